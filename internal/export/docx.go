package export

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/config"
)

// convertDOCX pipes html through pandoc.
func convertDOCX(ctx context.Context, profile config.ExportProfile, html string) ([]byte, error) {
	binary := profile.PandocPath
	if binary == "" {
		binary = "pandoc"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("%w: %s not installed", ErrDOCXDependencyMissing, binary)
	}

	cmd := exec.CommandContext(ctx, binary,
		"-f", "html",
		"-t", "docx",
		"--standalone",
		"-o", "-",
	)
	cmd.Stdin = strings.NewReader(html)

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("pandoc failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("pandoc execution failed: %w", err)
	}
	return output, nil
}

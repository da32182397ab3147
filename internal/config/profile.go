package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExportProfile controls page geometry and the external binaries used by
// the export path. Sizes are in inches, as the PDF printer expects.
type ExportProfile struct {
	PaperWidth   float64 `yaml:"paper_width"`
	PaperHeight  float64 `yaml:"paper_height"`
	MarginTop    float64 `yaml:"margin_top"`
	MarginBottom float64 `yaml:"margin_bottom"`
	MarginLeft   float64 `yaml:"margin_left"`
	MarginRight  float64 `yaml:"margin_right"`
	ChromePath   string  `yaml:"chrome_path"`
	PandocPath   string  `yaml:"pandoc_path"`
	TimeoutSecs  int     `yaml:"timeout_seconds"`
}

// DefaultExportProfile is A4 with 2cm margins.
func DefaultExportProfile() ExportProfile {
	return ExportProfile{
		PaperWidth:   8.27,
		PaperHeight:  11.69,
		MarginTop:    0.79,
		MarginBottom: 0.79,
		MarginLeft:   0.79,
		MarginRight:  0.79,
		PandocPath:   "pandoc",
		TimeoutSecs:  30,
	}
}

// LoadExportProfile reads path over the defaults. An empty path returns the
// defaults unchanged.
func LoadExportProfile(path string) (ExportProfile, error) {
	profile := DefaultExportProfile()
	if path == "" {
		return profile, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ExportProfile{}, fmt.Errorf("read export profile: %w", err)
	}
	if err := yaml.Unmarshal(raw, &profile); err != nil {
		return ExportProfile{}, fmt.Errorf("parse export profile: %w", err)
	}
	if profile.PaperWidth <= 0 || profile.PaperHeight <= 0 {
		return ExportProfile{}, fmt.Errorf("export profile: paper size must be positive")
	}
	if profile.TimeoutSecs <= 0 {
		profile.TimeoutSecs = 30
	}
	return profile, nil
}

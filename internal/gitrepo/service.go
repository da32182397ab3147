// Package gitrepo mirrors every document version into a per-lineage git
// repository, giving an audit trail outside the database.
package gitrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	contentFile = "content.html"
	metaFile    = "meta.json"
	branchName  = "main"
)

// Snapshot is one version as written to the mirror.
type Snapshot struct {
	TenantID          int64     `json:"tenantId"`
	RootID            int64     `json:"rootId"`
	VersionID         int64     `json:"versionId"`
	VersionNumber     int       `json:"versionNumber"`
	Title             string    `json:"title"`
	ChangeDescription string    `json:"changeDescription"`
	Author            string    `json:"author"`
	CreatedAt         time.Time `json:"createdAt"`
	Content           string    `json:"-"`
}

type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
}

type Mirror struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Mirror {
	return &Mirror{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Record commits snapshot on top of its lineage's history, creating the
// repository on first use.
func (m *Mirror) Record(snapshot Snapshot) (CommitInfo, error) {
	key := lineageKey(snapshot.TenantID, snapshot.RootID)
	lock := m.lineageLock(key)
	lock.Lock()
	defer lock.Unlock()

	repo, err := m.openOrInit(key)
	if err != nil {
		return CommitInfo{}, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}
	root := worktree.Filesystem.Root()

	meta, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return CommitInfo{}, fmt.Errorf("marshal snapshot meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(root, metaFile), append(meta, '\n'), 0o644); err != nil {
		return CommitInfo{}, fmt.Errorf("write %s: %w", metaFile, err)
	}
	if err := os.WriteFile(filepath.Join(root, contentFile), []byte(snapshot.Content), 0o644); err != nil {
		return CommitInfo{}, fmt.Errorf("write %s: %w", contentFile, err)
	}
	for _, name := range []string{contentFile, metaFile} {
		if _, err := worktree.Add(name); err != nil {
			return CommitInfo{}, fmt.Errorf("git add %s: %w", name, err)
		}
	}

	author := snapshot.Author
	if author == "" {
		author = "Nexio"
	}
	when := snapshot.CreatedAt
	if when.IsZero() {
		when = time.Now()
	}
	hash, err := worktree.Commit(commitMessage(snapshot), &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@mirror.nexio.local", sanitizeEmail(author)),
			When:  when,
		},
	})
	if err != nil {
		return CommitInfo{}, fmt.Errorf("commit version %d: %w", snapshot.VersionNumber, err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// History lists the mirrored versions of a lineage, newest first. A lineage
// that was never mirrored has no history.
func (m *Mirror) History(tenantID, rootID int64, limit int) ([]CommitInfo, error) {
	key := lineageKey(tenantID, rootID)
	lock := m.lineageLock(key)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(m.repoPath(key))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []CommitInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branchName), true)
	if err != nil {
		return nil, fmt.Errorf("resolve branch %s: %w", branchName, err)
	}
	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]CommitInfo, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// ContentAt returns the body recorded by the commit hash (full or
// abbreviated).
func (m *Mirror) ContentAt(tenantID, rootID int64, hash string) (string, error) {
	key := lineageKey(tenantID, rootID)
	lock := m.lineageLock(key)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(m.repoPath(key))
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return "", fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	commitObj, err := repo.CommitObject(*resolved)
	if err != nil {
		return "", fmt.Errorf("read commit %s: %w", hash, err)
	}
	file, err := commitObj.File(contentFile)
	if err != nil {
		return "", fmt.Errorf("load %s from commit: %w", contentFile, err)
	}
	return file.Contents()
}

func (m *Mirror) openOrInit(key string) (*git.Repository, error) {
	path := m.repoPath(key)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branchName))
	if err := repo.Storer.SetReference(head); err != nil {
		return nil, fmt.Errorf("set HEAD to %s: %w", branchName, err)
	}
	return repo, nil
}

func (m *Mirror) repoPath(key string) string {
	return filepath.Join(m.baseDir, key)
}

func (m *Mirror) lineageLock(key string) *sync.Mutex {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	lock, ok := m.locks[key]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	m.locks[key] = lock
	return lock
}

func lineageKey(tenantID, rootID int64) string {
	return filepath.Join(fmt.Sprintf("tenant-%d", tenantID), fmt.Sprintf("document-%d", rootID))
}

func commitMessage(snapshot Snapshot) string {
	subject := fmt.Sprintf("Version %d", snapshot.VersionNumber)
	if desc := strings.TrimSpace(snapshot.ChangeDescription); desc != "" {
		subject += ": " + desc
	}
	return fmt.Sprintf("%s\n\nversion-id: %d\nroot-id: %d\n", subject, snapshot.VersionID, snapshot.RootID)
}

func toCommitInfo(commitObj *object.Commit) CommitInfo {
	return CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range strings.ToLower(input) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' || r == '.' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

package gitrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMirrorRecordsVersions(t *testing.T) {
	tempDir := t.TempDir()
	mirror := New(tempDir)

	first, err := mirror.Record(Snapshot{
		TenantID:          1,
		RootID:            10,
		VersionID:         10,
		VersionNumber:     1,
		Title:             "Manuale",
		ChangeDescription: "Initial version",
		Author:            "Avery Rossi",
		CreatedAt:         time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Content:           "<p>v1</p>",
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if first.Hash == "" || first.Author != "Avery Rossi" {
		t.Fatalf("unexpected commit %+v", first)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "tenant-1", "document-10", ".git")); err != nil {
		t.Fatalf("repo directory missing: %v", err)
	}

	if _, err := mirror.Record(Snapshot{TenantID: 1, RootID: 10, VersionID: 12, VersionNumber: 2, Content: "<p>v2</p>", ChangeDescription: "Restored version 1"}); err != nil {
		t.Fatalf("Record() second error = %v", err)
	}

	history, err := mirror.History(1, 10, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(history))
	}
	if !strings.HasPrefix(history[0].Message, "Version 2: Restored version 1") {
		t.Fatalf("unexpected newest message %q", history[0].Message)
	}
	if history[0].Author != "Nexio" {
		t.Fatalf("expected default author, got %q", history[0].Author)
	}

	content, err := mirror.ContentAt(1, 10, history[1].Hash)
	if err != nil {
		t.Fatalf("ContentAt() error = %v", err)
	}
	if content != "<p>v1</p>" {
		t.Fatalf("unexpected content %q", content)
	}

	limited, err := mirror.History(1, 10, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected one commit with limit, got %d (%v)", len(limited), err)
	}
}

func TestMirrorHistoryOfUnknownLineage(t *testing.T) {
	mirror := New(t.TempDir())
	history, err := mirror.History(1, 99, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}
}

func TestMirrorSeparatesTenants(t *testing.T) {
	mirror := New(t.TempDir())
	for tenant := int64(1); tenant <= 2; tenant++ {
		if _, err := mirror.Record(Snapshot{TenantID: tenant, RootID: 5, VersionNumber: 1, Content: fmt.Sprintf("tenant %d", tenant)}); err != nil {
			t.Fatalf("Record() tenant %d error = %v", tenant, err)
		}
	}
	for tenant := int64(1); tenant <= 2; tenant++ {
		history, err := mirror.History(tenant, 5, 0)
		if err != nil || len(history) != 1 {
			t.Fatalf("tenant %d: expected one commit, got %d (%v)", tenant, len(history), err)
		}
	}
}

func TestMirrorConcurrentRecords(t *testing.T) {
	mirror := New(t.TempDir())
	const writers = 6
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 1; i <= writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := mirror.Record(Snapshot{TenantID: 1, RootID: 1, VersionNumber: n, Content: fmt.Sprintf("v%d", n)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	history, err := mirror.History(1, 1, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != writers {
		t.Fatalf("expected %d commits, got %d", writers, len(history))
	}
}

func TestSanitizeEmail(t *testing.T) {
	cases := map[string]string{
		"Avery Rossi": "avery.rossi",
		"":            "user",
		"è@!":         "user",
		"a_b-c":       "a.b.c",
	}
	for input, want := range cases {
		if got := sanitizeEmail(input); got != want {
			t.Fatalf("sanitizeEmail(%q) = %q, want %q", input, got, want)
		}
	}
}

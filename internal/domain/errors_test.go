package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{name: "not found", err: NotFound("document", 7), sentinel: ErrNotFound},
		{name: "permission", err: Forbidden("restore", "version"), sentinel: ErrPermission},
		{name: "storage", err: Storage("insert version", errors.New("conn reset")), sentinel: ErrStorage},
		{name: "validation", err: Invalid("number", "must be positive"), sentinel: ErrValidation},
		{name: "wrapped", err: fmt.Errorf("render: %w", NotFound("document", 1)), sentinel: ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.sentinel) {
				t.Fatalf("expected %v to match %v", tc.err, tc.sentinel)
			}
		})
	}
}

func TestStorageKeepsTaxonomyErrors(t *testing.T) {
	original := NotFound("version", 3)
	if got := Storage("load version", original); got != original {
		t.Fatalf("expected taxonomy error to pass through, got %v", got)
	}
	if Storage("noop", nil) != nil {
		t.Fatal("expected nil for nil error")
	}

	cause := errors.New("timeout")
	wrapped := Storage("lock lineage", cause)
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected storage error to unwrap to its cause")
	}
	var storageErr *StorageError
	if !errors.As(wrapped, &storageErr) || storageErr.Op != "lock lineage" {
		t.Fatalf("unexpected storage error %#v", wrapped)
	}
}

func TestPermissionErrorDoesNotMentionExistence(t *testing.T) {
	msg := Forbidden("read", "document").Error()
	if msg != "not authorized to read document" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestIdentityOwns(t *testing.T) {
	id := Identity{UserID: 1, TenantID: 4}
	if !id.Owns(4) {
		t.Fatal("expected identity to own its tenant")
	}
	if id.Owns(5) {
		t.Fatal("expected identity not to own another tenant")
	}
	if (Identity{}).Owns(0) {
		t.Fatal("zero identity must not own tenant 0")
	}
}

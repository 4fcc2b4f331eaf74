package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/codequery/codequery/internal/logging"
)

func TestCleanup_Idempotent(t *testing.T) {
	c := NewCloner(t.TempDir(), time.Minute, logging.New(logr.Discard()))

	dir := filepath.Join(t.TempDir(), "clone")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	c.Cleanup(dir)
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("expected clone dir to be removed")
	}

	// Second pass and empty path are no-ops.
	c.Cleanup(dir)
	c.Cleanup("")
}

func TestClone_FailureRemovesPartialDir(t *testing.T) {
	base := t.TempDir()
	c := NewCloner(base, time.Minute, logging.New(logr.Discard()))

	_, err := c.Clone(context.Background(), "file:///nonexistent/repo.git", "main")
	if err == nil {
		t.Fatal("expected clone of nonexistent repository to fail")
	}
	if !strings.Contains(err.Error(), "clone file:///nonexistent/repo.git") {
		t.Fatalf("error missing url context: %v", err)
	}

	entries, readErr := os.ReadDir(base)
	if readErr != nil {
		t.Fatalf("read base dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("partial clone dir left behind: %v", entries)
	}
}

func TestCloneError(t *testing.T) {
	cause := fmt.Errorf("exit status 128")

	err := cloneError("https://example.com/r.git", cause, "fatal: repository not found", nil)
	if !strings.Contains(err.Error(), "fatal: repository not found") {
		t.Fatalf("stderr missing from error: %v", err)
	}

	err = cloneError("https://example.com/r.git", cause, "", context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("timeout not reported: %v", err)
	}
}

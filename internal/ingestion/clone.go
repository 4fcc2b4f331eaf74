package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/codequery/codequery/internal/logging"
)

// Cloner shallow-clones repositories into unique directories under a base
// path and releases them when a run finishes.
type Cloner struct {
	baseDir string
	timeout time.Duration
	log     logging.Logger
}

func NewCloner(baseDir string, timeout time.Duration, log logging.Logger) *Cloner {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Cloner{baseDir: baseDir, timeout: timeout, log: log.WithName("cloner")}
}

// Clone fetches the latest snapshot of url at branch (depth 1) into a fresh
// temporary directory and returns its path. On failure the partial directory
// is removed and the git stderr is part of the returned error.
func (c *Cloner) Clone(ctx context.Context, url, branch string) (string, error) {
	if err := os.MkdirAll(c.baseDir, 0o755); err != nil {
		return "", fmt.Errorf("create clone base dir: %w", err)
	}
	dir, err := os.MkdirTemp(c.baseDir, "repo-")
	if err != nil {
		return "", fmt.Errorf("create clone dir: %w", err)
	}

	c.log.Info("cloning repository", "url", url, "branch", branch, "dir", dir)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{"clone", "--depth", "1", "--single-branch"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, url, dir)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.RemoveAll(dir)
		return "", cloneError(url, err, stderr.String(), ctx.Err())
	}

	c.log.Info("clone complete", "dir", dir)
	return dir, nil
}

// Cleanup removes a clone directory. Idempotent; a missing path is a no-op.
func (c *Cloner) Cleanup(dir string) {
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		c.log.Error(err, "cleanup failed", "dir", dir)
		return
	}
	c.log.Debug("cleaned up clone dir", "dir", dir)
}

func cloneError(url string, cause error, stderr string, ctxErr error) error {
	if ctxErr == context.DeadlineExceeded {
		return fmt.Errorf("clone %s: timed out: %w", url, ctxErr)
	}
	stderr = strings.TrimSpace(stderr)
	if stderr != "" {
		return fmt.Errorf("clone %s: %w: %s", url, cause, stderr)
	}
	return fmt.Errorf("clone %s: %w", url, cause)
}

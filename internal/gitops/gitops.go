// Package gitops versions a project directory with the git binary.
package gitops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Author identifies who commits ledger changes.
type Author struct {
	Name  string
	Email string
}

func (a Author) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Repo is a project directory under git.
type Repo struct {
	Dir    string
	Author Author
}

// Init initializes a new git repository at r.Dir.
func (r Repo) Init(ctx context.Context) error {
	if _, err := r.git(ctx, "init", "--quiet"); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	return nil
}

// IsRepo reports whether r.Dir is the root of a git repository.
func (r Repo) IsRepo() bool {
	_, err := os.Stat(filepath.Join(r.Dir, ".git"))
	return err == nil
}

// CommitAll stages every change and commits it. It returns the short commit
// hash, or "" when there was nothing to commit.
func (r Repo) CommitAll(ctx context.Context, message string) (string, error) {
	if _, err := r.git(ctx, "add", "-A"); err != nil {
		return "", fmt.Errorf("git add: %w", err)
	}

	// diff --cached --quiet exits 1 when something is staged.
	_, err := r.git(ctx, "diff", "--cached", "--quiet")
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return "", nil
	case !errors.As(err, &exitErr) || exitErr.ExitCode() != 1:
		return "", fmt.Errorf("git diff: %w", err)
	}

	if _, err := r.git(ctx, "commit", "--quiet", "-m", message, "--author", r.Author.String()); err != nil {
		return "", fmt.Errorf("git commit: %w", err)
	}

	out, err := r.git(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// git runs one git command in r.Dir. The author doubles as committer so
// commits work on machines without a git identity.
func (r Repo) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(),
		"GIT_COMMITTER_NAME="+r.Author.Name,
		"GIT_COMMITTER_EMAIL="+r.Author.Email,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w", msg, err)
		}
		return "", err
	}
	return stdout.String(), nil
}

package gitops

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) Repo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	return Repo{Dir: t.TempDir(), Author: Author{Name: "Test Author", Email: "test@example.com"}}
}

func gitLog(t *testing.T, dir, format string) string {
	t.Helper()
	log := exec.Command("git", "log", "--format="+format, "-1")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	return string(out)
}

func TestInit(t *testing.T) {
	repo := newRepo(t)
	assert.False(t, repo.IsRepo(), "empty dir should not be a repo")

	require.NoError(t, repo.Init(context.Background()))

	_, err := os.Stat(filepath.Join(repo.Dir, ".git"))
	require.NoError(t, err, ".git directory should exist")
	assert.True(t, repo.IsRepo(), "initialized dir should be a repo")
}

func TestCommitAll(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Init(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(repo.Dir, "records.csv"), []byte("id\n"), 0o644))

	hash, err := repo.CommitAll(ctx, "add: Maybank FD")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	assert.Contains(t, gitLog(t, repo.Dir, "%s"), "add: Maybank FD")
	assert.Contains(t, gitLog(t, repo.Dir, "%an <%ae>"), "Test Author <test@example.com>")
}

func TestCommitAll_NothingToCommit(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Init(ctx))
	require.NoError(t, os.WriteFile(filepath.Join(repo.Dir, "a.txt"), []byte("a"), 0o644))
	_, err := repo.CommitAll(ctx, "first")
	require.NoError(t, err)

	hash, err := repo.CommitAll(ctx, "second")
	require.NoError(t, err)
	assert.Empty(t, hash)
	assert.Contains(t, gitLog(t, repo.Dir, "%s"), "first")
}

func TestCommitAll_NotARepo(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.CommitAll(context.Background(), "nope")
	assert.Error(t, err)
}

func TestAuthorString(t *testing.T) {
	assert.Equal(t, "myasset <myasset@localhost>", Author{Name: "myasset", Email: "myasset@localhost"}.String())
}

package workspace

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/ben-ranford/why/internal/testutil"
)

func TestNormalizeRepoPath(t *testing.T) {
	got, err := NormalizeRepoPath("")
	if err != nil {
		t.Fatalf("normalize empty path: %v", err)
	}
	want, err := filepath.Abs(".")
	if err != nil {
		t.Fatalf("abs dot: %v", err)
	}
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNormalizeRepoPathRejectsMissingAndFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := NormalizeRepoPath(filepath.Join(dir, "missing")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}

	file := filepath.Join(dir, "Cargo.toml")
	testutil.MustWriteFile(t, file, "")
	if _, err := NormalizeRepoPath(file); !errors.Is(err, ErrNotDirectory) {
		t.Fatalf("expected ErrNotDirectory, got %v", err)
	}
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/nvandessel/episim/internal/pathutil"
)

func TestDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(pathutil.HomeEnv, dir)

	got, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath() error = %v", err)
	}
	if want := filepath.Join(dir, DatabaseFile); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}

func TestDefaultPath_UnderUserHome(t *testing.T) {
	t.Setenv(pathutil.HomeEnv, "")

	got, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath() error = %v", err)
	}
	if filepath.Base(filepath.Dir(got)) != ".episim" {
		t.Errorf("DefaultPath() = %q, want file inside .episim", got)
	}
}

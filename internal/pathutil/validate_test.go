package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestHomeDir(t *testing.T) {
	t.Run("env override", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(HomeEnv, dir)
		got, err := HomeDir()
		if err != nil {
			t.Fatalf("HomeDir() error = %v", err)
		}
		if got != dir {
			t.Errorf("HomeDir() = %q, want %q", got, dir)
		}
	})

	t.Run("default under user home", func(t *testing.T) {
		t.Setenv(HomeEnv, "")
		got, err := HomeDir()
		if err != nil {
			t.Fatalf("HomeDir() error = %v", err)
		}
		if filepath.Base(got) != ".episim" || !filepath.IsAbs(got) {
			t.Errorf("HomeDir() = %q, want absolute .episim directory", got)
		}
	})
}

func TestBackupDirAndAllowedArchiveDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	backupDir, err := BackupDir()
	if err != nil {
		t.Fatalf("BackupDir() error = %v", err)
	}
	if want := filepath.Join(home, "backups"); backupDir != want {
		t.Errorf("BackupDir() = %q, want %q", backupDir, want)
	}

	dirs, err := AllowedArchiveDirs()
	if err != nil {
		t.Fatalf("AllowedArchiveDirs() error = %v", err)
	}
	wd, _ := os.Getwd()
	if len(dirs) != 2 || dirs[0] != backupDir || dirs[1] != wd {
		t.Errorf("AllowedArchiveDirs() = %v, want [%s %s]", dirs, backupDir, wd)
	}
}

func TestConfine(t *testing.T) {
	allowedDir := t.TempDir()
	otherDir := t.TempDir()

	subDir := filepath.Join(allowedDir, "subdir")
	if err := os.MkdirAll(subDir, 0700); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}

	tests := []struct {
		name        string
		path        string
		allowedDirs []string
		errContains string
	}{
		{"inside allowed dir", filepath.Join(allowedDir, "nets.epz"), []string{allowedDir}, ""},
		{"nested missing dirs", filepath.Join(subDir, "a", "b", "nets.epz"), []string{allowedDir}, ""},
		{"allowed dir itself", allowedDir, []string{allowedDir}, ""},
		{"second allowed dir", filepath.Join(otherDir, "nets.epz"), []string{allowedDir, otherDir}, ""},
		{"dot-dot name stays inside", filepath.Join(allowedDir, "..nets.epz"), []string{allowedDir}, ""},
		{"dot-dot escape", filepath.Join(allowedDir, "..", "etc", "passwd"), []string{allowedDir}, "outside allowed directories"},
		{"embedded dot-dot escape", filepath.Join(allowedDir, "subdir", "..", "..", "x"), []string{allowedDir}, "outside allowed directories"},
		{"sibling with shared prefix", allowedDir + "-other/nets.epz", []string{allowedDir}, "outside allowed directories"},
		{"other dir", filepath.Join(otherDir, "nets.epz"), []string{allowedDir}, "outside allowed directories"},
		{"null byte", filepath.Join(allowedDir, "ne\x00ts.epz"), []string{allowedDir}, "null byte"},
		{"empty path", "", []string{allowedDir}, "empty"},
		{"no allowed dirs", filepath.Join(allowedDir, "nets.epz"), nil, "no allowed directories"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := confine(tt.path, tt.allowedDirs)
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("confine() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrPathRejected) || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("confine() error = %v, want ErrPathRejected containing %q", err, tt.errContains)
			}
		})
	}
}

func TestConfine_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not supported on Windows")
	}

	allowedDir := t.TempDir()
	outsideDir := t.TempDir()

	escape := filepath.Join(allowedDir, "escape")
	if err := os.Symlink(outsideDir, escape); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}
	if _, err := confine(filepath.Join(escape, "nets.epz"), []string{allowedDir}); err == nil {
		t.Error("confine() should reject a symlinked directory pointing outside")
	}

	realSubDir := filepath.Join(allowedDir, "real")
	if err := os.MkdirAll(realSubDir, 0700); err != nil {
		t.Fatalf("failed to create real subdir: %v", err)
	}
	link := filepath.Join(allowedDir, "link")
	if err := os.Symlink(realSubDir, link); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}
	got, err := confine(filepath.Join(link, "nets.epz"), []string{allowedDir})
	if err != nil {
		t.Fatalf("confine() should accept a symlink staying inside, got: %v", err)
	}
	if filepath.Base(filepath.Dir(got)) != "real" {
		t.Errorf("confine() = %q, want the resolved real directory", got)
	}
}

func TestValidateArchiveWrite(t *testing.T) {
	allowedDir := t.TempDir()
	existingDir := filepath.Join(allowedDir, "old.epz")
	if err := os.MkdirAll(existingDir, 0700); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		path        string
		errContains string
	}{
		{"new archive", filepath.Join(allowedDir, "nets.epz"), ""},
		{"upper-case extension", filepath.Join(allowedDir, "NETS.EPZ"), ""},
		{"missing extension", filepath.Join(allowedDir, "nets"), "must end in .epz"},
		{"wrong extension", filepath.Join(allowedDir, "config.yaml"), "must end in .epz"},
		{"directory", existingDir, "is a directory"},
		{"outside", filepath.Join(t.TempDir(), "nets.epz"), "outside allowed directories"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArchiveWrite(tt.path, []string{allowedDir})
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("ValidateArchiveWrite() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrPathRejected) || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("ValidateArchiveWrite() error = %v, want ErrPathRejected containing %q", err, tt.errContains)
			}
		})
	}
}

func TestValidateArchiveWrite_DanglingSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not supported on Windows")
	}

	allowedDir := t.TempDir()
	target := filepath.Join(t.TempDir(), "planted.epz")
	link := filepath.Join(allowedDir, "nets.epz")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	if err := ValidateArchiveWrite(link, []string{allowedDir}); !errors.Is(err, ErrPathRejected) {
		t.Errorf("ValidateArchiveWrite() error = %v, want ErrPathRejected", err)
	}
}

func TestValidateArchiveRead(t *testing.T) {
	allowedDir := t.TempDir()
	v1 := filepath.Join(allowedDir, "nets.json")
	if err := os.WriteFile(v1, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := ValidateArchiveRead(v1, []string{allowedDir}); err != nil {
		t.Errorf("ValidateArchiveRead(existing V1 file) error = %v", err)
	}
	if err := ValidateArchiveRead(filepath.Join(allowedDir, "missing.epz"), []string{allowedDir}); !errors.Is(err, ErrPathRejected) {
		t.Errorf("ValidateArchiveRead(missing) error = %v, want ErrPathRejected", err)
	}
	if err := ValidateArchiveRead(allowedDir, []string{allowedDir}); err == nil || !strings.Contains(err.Error(), "not a regular file") {
		t.Errorf("ValidateArchiveRead(dir) error = %v, want not a regular file", err)
	}
}

func TestValidateArchiveRead_SymlinkedFileEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not supported on Windows")
	}

	allowedDir := t.TempDir()
	secret := filepath.Join(t.TempDir(), "secret.epz")
	if err := os.WriteFile(secret, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(allowedDir, "nets.epz")
	if err := os.Symlink(secret, link); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	err := ValidateArchiveRead(link, []string{allowedDir})
	if err == nil || !strings.Contains(err.Error(), "outside allowed directories") {
		t.Errorf("ValidateArchiveRead() error = %v, want rejection of symlinked file", err)
	}
}

func TestRedactPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"/home/user/.episim/config.yaml", ".../.episim/config.yaml"},
		{"/a/b/c/d/e.txt", ".../d/e.txt"},
		{"/file.txt", "file.txt"},
		{"dir/file.txt", ".../dir/file.txt"},
		{"file.txt", "file.txt"},
		{"/home/user/.episim/", ".../user/.episim"},
	}
	for _, tt := range tests {
		if got := RedactPath(tt.input); got != tt.want {
			t.Errorf("RedactPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// Package pathutil resolves episim's data directory and confines archive
// paths supplied by users and MCP clients to the allowed directories.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the episim data directory.
const HomeEnv = "EPISIM_HOME"

// HomeDir returns the episim data directory: $EPISIM_HOME if set,
// otherwise ~/.episim.
func HomeDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".episim"), nil
}

// RedactPath reduces a full path to .../<parent>/<basename> for safe error messages.
// For example, "/home/user/.episim/config.yaml" becomes ".../.episim/config.yaml".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	dir := filepath.Dir(cleaned)
	base := filepath.Base(cleaned)
	parent := filepath.Base(dir)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// ArchiveExt is the extension of archives episim writes.
const ArchiveExt = ".epz"

// ErrPathRejected wraps every validation failure.
var ErrPathRejected = errors.New("path rejected")

// ValidateArchiveWrite checks the destination of a new archive. Besides
// confinement, the name must end in ArchiveExt and must not be a directory
// or a dangling symlink.
func ValidateArchiveWrite(path string, allowedDirs []string) error {
	if !strings.EqualFold(filepath.Ext(path), ArchiveExt) {
		return fmt.Errorf("%w: archive %s must end in %s", ErrPathRejected, RedactPath(path), ArchiveExt)
	}
	resolved, err := confine(path, allowedDirs)
	if err != nil {
		return err
	}
	if fi, err := os.Lstat(path); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: %s is a dangling symlink", ErrPathRejected, RedactPath(path))
		}
	}
	if fi, err := os.Stat(resolved); err == nil && fi.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrPathRejected, RedactPath(path))
	}
	return nil
}

// ValidateArchiveRead checks an archive to restore or verify: it must be
// confined and resolve to an existing regular file. Any extension is
// accepted since V1 archives are plain JSON.
func ValidateArchiveRead(path string, allowedDirs []string) error {
	resolved, err := confine(path, allowedDirs)
	if err != nil {
		return err
	}
	fi, err := os.Stat(resolved)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPathRejected, RedactPath(path), err)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrPathRejected, RedactPath(path))
	}
	return nil
}

// confine returns path with every existing symlink along it resolved, if the
// result lies inside one of dirs.
func confine(path string, dirs []string) (string, error) {
	switch {
	case path == "":
		return "", fmt.Errorf("%w: path is empty", ErrPathRejected)
	case len(dirs) == 0:
		return "", fmt.Errorf("%w: no allowed directories configured", ErrPathRejected)
	case strings.ContainsRune(path, '\x00'):
		return "", fmt.Errorf("%w: path contains null byte", ErrPathRejected)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPathRejected, err)
	}
	resolved, err := resolve(abs)
	if err != nil {
		return "", err
	}

	for _, dir := range dirs {
		base, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if base, err = resolve(base); err != nil {
			continue
		}
		rel, err := filepath.Rel(base, resolved)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("%w: %s is outside allowed directories", ErrPathRejected, RedactPath(abs))
}

// resolve evaluates symlinks on the longest existing prefix of an absolute
// path and re-appends the components that do not exist yet.
func resolve(abs string) (string, error) {
	var missing []string
	for p := abs; ; {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", fmt.Errorf("%w: cannot resolve %s", ErrPathRejected, RedactPath(abs))
		}
		missing = append(missing, filepath.Base(p))
		p = parent
	}
}

// BackupDir returns the default archive directory, <episim home>/backups.
func BackupDir() (string, error) {
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "backups"), nil
}

// AllowedArchiveDirs returns the directories network archives may be read
// from or written to: the backup directory and the working directory.
func AllowedArchiveDirs() ([]string, error) {
	backupDir, err := BackupDir()
	if err != nil {
		return nil, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return []string{backupDir, wd}, nil
}

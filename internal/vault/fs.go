package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FS is a Vault over a directory on the local filesystem.
//
// Process holds a per-path mutex for the whole read-transform-write and
// replaces the file by renaming a temp file over it, so readers see either
// the old or the new content. Other processes writing the same file are not
// coordinated with.
type FS struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFS returns a vault rooted at dir.
func NewFS(dir string) *FS {
	return &FS{root: dir, locks: make(map[string]*sync.Mutex)}
}

// Root returns the directory the vault is rooted at.
func (v *FS) Root() string {
	return v.root
}

func (v *FS) abs(p string) string {
	return filepath.Join(v.root, filepath.FromSlash(Clean(p)))
}

func (v *FS) lockFor(p string) *sync.Mutex {
	key := Clean(p)
	v.mu.Lock()
	defer v.mu.Unlock()
	l, ok := v.locks[key]
	if !ok {
		l = &sync.Mutex{}
		v.locks[key] = l
	}
	return l
}

// Exists implements Vault.
func (v *FS) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(v.abs(p))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", p, err)
}

// Read implements Vault.
func (v *FS) Read(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(v.abs(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read %s: %w", p, ErrNotFound)
		}
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	return string(data), nil
}

// Create implements Vault. The parent folder must already exist.
func (v *FS) Create(ctx context.Context, p, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := v.lockFor(p)
	l.Lock()
	defer l.Unlock()

	f, err := os.OpenFile(v.abs(p), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("create %s: %w", p, ErrExists)
		}
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("create %s: parent folder: %w", p, ErrNotFound)
		}
		return fmt.Errorf("create %s: %w", p, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("create %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	return nil
}

// Process implements Vault.
func (v *FS) Process(ctx context.Context, p string, fn TransformFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := v.lockFor(p)
	l.Lock()
	defer l.Unlock()

	target := v.abs(p)
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("process %s: %w", p, ErrNotFound)
		}
		return fmt.Errorf("process %s: %w", p, err)
	}

	out, err := fn(string(data))
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeAtomic(target, out)
}

// CreateFolder implements Vault.
func (v *FS) CreateFolder(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(v.abs(p), 0o755); err != nil {
		return fmt.Errorf("create folder %s: %w", p, err)
	}
	return nil
}

// writeAtomic replaces target with content via a temp file in the same
// directory.
func writeAtomic(target, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	if info, err := os.Stat(target); err == nil {
		_ = os.Chmod(tmpName, info.Mode().Perm())
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("rename %s: %w", target, err)
	}
	return nil
}

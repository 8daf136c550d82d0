// Package os provides a local disk adapter rooted at a base directory.
package os

import (
	"context"
	"errors"
	"io/fs"
	goos "os"
	"path/filepath"
	"sort"
	"time"

	"github.com/softwell/mountfs"
	"github.com/softwell/mountfs/backend"
)

// Protocol defines the backend type.
const Protocol = "os"

// Options holds the os backend configuration.
type Options struct {
	// Path is the local directory the mount is rooted at.
	Path string `mapstructure:"path" validate:"required"`
}

// Backend implements mountfs.Backend over a directory of the local
// filesystem. All paths are resolved below the configured root.
type Backend struct {
	root string
}

// New returns a disk backend rooted at opts.Path.
func New(opts Options) *Backend {
	return &Backend{root: filepath.Clean(opts.Path)}
}

// Name returns "os"
func (b *Backend) Name() string { return Protocol }

// Capabilities reports the capability set of the local disk adapter.
func (b *Backend) Capabilities() mountfs.Capability {
	return mountfs.CapabilityRead | mountfs.CapabilityWrite | mountfs.CapabilityDelete |
		mountfs.CapabilityList | mountfs.CapabilityMkdir
}

func (b *Backend) abs(path string) string {
	if path == "" {
		return b.root
	}
	return filepath.Join(b.root, filepath.FromSlash(path))
}

// Exists returns whether path exists on disk.
func (b *Backend) Exists(_ context.Context, path string) (bool, error) {
	_, err := goos.Stat(b.abs(path))
	if err != nil {
		if goos.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsFile returns whether path is a regular file.
func (b *Backend) IsFile(_ context.Context, path string) (bool, error) {
	info, err := goos.Stat(b.abs(path))
	if err != nil {
		if goos.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// IsDir returns whether path is a directory.
func (b *Backend) IsDir(_ context.Context, path string) (bool, error) {
	info, err := goos.Stat(b.abs(path))
	if err != nil {
		if goos.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// Size returns the file size in bytes.
func (b *Backend) Size(_ context.Context, path string) (int64, error) {
	info, err := goos.Stat(b.abs(path))
	if err != nil {
		if goos.IsNotExist(err) {
			return 0, mountfs.ErrNotExist
		}
		return 0, err
	}
	return info.Size(), nil
}

// LastModified returns the file modification time.
func (b *Backend) LastModified(_ context.Context, path string) (time.Time, error) {
	info, err := goos.Stat(b.abs(path))
	if err != nil {
		if goos.IsNotExist(err) {
			return time.Time{}, mountfs.ErrNotExist
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Read returns the file content.
func (b *Backend) Read(_ context.Context, path string) ([]byte, error) {
	data, err := goos.ReadFile(b.abs(path))
	if err != nil {
		if goos.IsNotExist(err) {
			return nil, mountfs.ErrNotExist
		}
		return nil, err
	}
	return data, nil
}

// Write stores data under path, creating parent directories as needed.
func (b *Backend) Write(_ context.Context, path string, data []byte) error {
	target := b.abs(path)
	if err := goos.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return goos.WriteFile(target, data, 0o644)
}

// Delete removes a file or directory. Missing paths are a no-op.
func (b *Backend) Delete(_ context.Context, path string, recursive bool) error {
	target := b.abs(path)
	info, err := goos.Stat(target)
	if err != nil {
		if goos.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() && !recursive {
		err := goos.Remove(target)
		if err != nil && isNotEmpty(err) {
			return mountfs.ErrNotEmpty
		}
		return err
	}
	return goos.RemoveAll(target)
}

func isNotEmpty(err error) bool {
	var perr *fs.PathError
	if errors.As(err, &perr) {
		return perr.Err.Error() == "directory not empty"
	}
	return false
}

// List returns the sorted names of the entries directly under path.
func (b *Backend) List(_ context.Context, path string) ([]string, error) {
	dirents, err := goos.ReadDir(b.abs(path))
	if err != nil {
		if goos.IsNotExist(err) {
			return nil, mountfs.ErrNotExist
		}
		return nil, err
	}
	names := make([]string, 0, len(dirents))
	for _, d := range dirents {
		names = append(names, d.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Mkdir creates a directory below the root.
func (b *Backend) Mkdir(_ context.Context, path string, parents, existOK bool) error {
	target := b.abs(path)
	if info, err := goos.Stat(target); err == nil {
		if info.IsDir() && existOK {
			return nil
		}
		return mountfs.ErrExist
	}
	if parents {
		return goos.MkdirAll(target, 0o755)
	}
	if err := goos.Mkdir(target, 0o755); err != nil {
		if goos.IsNotExist(err) {
			return mountfs.ErrNotExist
		}
		return err
	}
	return nil
}

// Copy copies a file to another backend via the generic byte path.
func (b *Backend) Copy(ctx context.Context, src string, dst mountfs.Backend, dstPath string) (string, error) {
	return mountfs.CopyBytes(ctx, b, src, dst, dstPath)
}

// Rename moves a file or directory within the backend.
func (b *Backend) Rename(_ context.Context, oldPath, newPath string) error {
	target := b.abs(newPath)
	if err := goos.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := goos.Rename(b.abs(oldPath), target); err != nil {
		if goos.IsNotExist(err) {
			return mountfs.ErrNotExist
		}
		return err
	}
	return nil
}

func init() {
	backend.Register(Protocol, backend.Descriptor{
		Capabilities: mountfs.CapabilityRead | mountfs.CapabilityWrite |
			mountfs.CapabilityDelete | mountfs.CapabilityList | mountfs.CapabilityMkdir,
		Validate: func(params map[string]any) error {
			var opts Options
			return backend.DecodeOptions(params, &opts)
		},
		New: func(params map[string]any) (mountfs.Backend, error) {
			var opts Options
			if err := backend.DecodeOptions(params, &opts); err != nil {
				return nil, err
			}
			return New(opts), nil
		},
	})
}

// Package sftp provides an SFTP adapter. Authentication supports password
// and key files, with host keys verified against known_hosts unless
// explicitly disabled.
package sftp

import (
	"context"
	"io"
	"os"
	"path"
	"sort"
	"time"

	_sftp "github.com/pkg/sftp"

	"github.com/softwell/mountfs"
	"github.com/softwell/mountfs/backend"
)

// Protocol defines the backend type.
const Protocol = "sftp"

// Client defines the subset of *sftp.Client behavior the adapter uses.
// Production wraps a real client via newClientAdapter; tests substitute a
// mock.
type Client interface {
	Stat(p string) (os.FileInfo, error)
	ReadDir(p string) ([]os.FileInfo, error)
	Open(p string) (io.ReadCloser, error)
	Create(p string) (io.WriteCloser, error)
	Mkdir(p string) error
	MkdirAll(p string) error
	Remove(p string) error
	RemoveDirectory(p string) error
	Rename(oldname, newname string) error
	Close() error
}

// clientAdapter narrows *sftp.Client to the Client interface. Open and
// Create need the wrap because they return concrete *sftp.File.
type clientAdapter struct {
	*_sftp.Client
}

func newClientAdapter(c *_sftp.Client) Client { return &clientAdapter{Client: c} }

func (a *clientAdapter) Open(p string) (io.ReadCloser, error) { return a.Client.Open(p) }

func (a *clientAdapter) Create(p string) (io.WriteCloser, error) { return a.Client.Create(p) }

// Backend implements mountfs.Backend over an SFTP connection rooted at a
// remote directory.
type Backend struct {
	client Client
	root   string
}

// New returns an SFTP backend over an established client.
func New(client Client, root string) *Backend {
	if root == "" {
		root = "."
	}
	return &Backend{client: client, root: root}
}

// Name returns "sftp"
func (b *Backend) Name() string { return Protocol }

// Capabilities reports the capability set of the SFTP adapter.
func (b *Backend) Capabilities() mountfs.Capability {
	return mountfs.CapabilityRead | mountfs.CapabilityWrite | mountfs.CapabilityDelete |
		mountfs.CapabilityList | mountfs.CapabilityMkdir
}

// Close terminates the underlying connection.
func (b *Backend) Close() error {
	return b.client.Close()
}

func (b *Backend) abs(p string) string {
	if p == "" {
		return b.root
	}
	return path.Join(b.root, p)
}

// Exists returns whether p exists on the server.
func (b *Backend) Exists(_ context.Context, p string) (bool, error) {
	_, err := b.client.Stat(b.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsFile returns whether p is a regular file.
func (b *Backend) IsFile(_ context.Context, p string) (bool, error) {
	info, err := b.client.Stat(b.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// IsDir returns whether p is a directory.
func (b *Backend) IsDir(_ context.Context, p string) (bool, error) {
	info, err := b.client.Stat(b.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// Size returns the file size in bytes.
func (b *Backend) Size(_ context.Context, p string) (int64, error) {
	info, err := b.client.Stat(b.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, mountfs.ErrNotExist
		}
		return 0, err
	}
	return info.Size(), nil
}

// LastModified returns the file modification time.
func (b *Backend) LastModified(_ context.Context, p string) (time.Time, error) {
	info, err := b.client.Stat(b.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, mountfs.ErrNotExist
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Read returns the file content.
func (b *Backend) Read(_ context.Context, p string) ([]byte, error) {
	f, err := b.client.Open(b.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mountfs.ErrNotExist
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// Write stores data under p, creating parent directories as needed.
func (b *Backend) Write(_ context.Context, p string, data []byte) error {
	target := b.abs(p)
	if err := b.client.MkdirAll(path.Dir(target)); err != nil {
		return err
	}
	f, err := b.client.Create(target)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Delete removes a file or a directory subtree. Missing paths are a no-op.
func (b *Backend) Delete(ctx context.Context, p string, recursive bool) error {
	target := b.abs(p)
	info, err := b.client.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return b.client.Remove(target)
	}
	entries, err := b.client.ReadDir(target)
	if err != nil {
		return err
	}
	if len(entries) > 0 && !recursive {
		return mountfs.ErrNotEmpty
	}
	for _, e := range entries {
		if err := b.Delete(ctx, path.Join(p, e.Name()), true); err != nil {
			return err
		}
	}
	return b.client.RemoveDirectory(target)
}

// List returns the sorted names of the entries directly under p.
func (b *Backend) List(_ context.Context, p string) ([]string, error) {
	entries, err := b.client.ReadDir(b.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mountfs.ErrNotExist
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Mkdir creates a remote directory.
func (b *Backend) Mkdir(_ context.Context, p string, parents, existOK bool) error {
	target := b.abs(p)
	if info, err := b.client.Stat(target); err == nil {
		if info.IsDir() && existOK {
			return nil
		}
		return mountfs.ErrExist
	}
	if parents {
		return b.client.MkdirAll(target)
	}
	if err := b.client.Mkdir(target); err != nil {
		if os.IsNotExist(err) {
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

// Rename moves a file or directory on the server.
func (b *Backend) Rename(_ context.Context, oldPath, newPath string) error {
	target := b.abs(newPath)
	if err := b.client.MkdirAll(path.Dir(target)); err != nil {
		return err
	}
	if err := b.client.Rename(b.abs(oldPath), target); err != nil {
		if os.IsNotExist(err) {
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
			client, err := getClient(opts)
			if err != nil {
				return nil, err
			}
			return New(newClientAdapter(client), opts.Path), nil
		},
	})
}

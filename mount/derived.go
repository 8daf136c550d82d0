package mount

import (
	"context"
	"time"

	"github.com/softwell/mountfs"
	"github.com/softwell/mountfs/utils"
)

// derivedBackend exposes a subtree of a parent adapter as its own root. It
// forwards every call with the prefix joined and delegates the optional
// extensions to the parent when the parent implements them; the capability
// set, and with it the gating, is the parent's.
type derivedBackend struct {
	parent mountfs.Backend
	prefix string
}

func newDerivedBackend(parent mountfs.Backend, prefix string) *derivedBackend {
	return &derivedBackend{parent: parent, prefix: prefix}
}

func (d *derivedBackend) join(path string) string {
	return utils.JoinPath(d.prefix, path)
}

func (d *derivedBackend) Name() string { return d.parent.Name() }

func (d *derivedBackend) Capabilities() mountfs.Capability { return d.parent.Capabilities() }

func (d *derivedBackend) Exists(ctx context.Context, path string) (bool, error) {
	return d.parent.Exists(ctx, d.join(path))
}

func (d *derivedBackend) IsFile(ctx context.Context, path string) (bool, error) {
	return d.parent.IsFile(ctx, d.join(path))
}

func (d *derivedBackend) IsDir(ctx context.Context, path string) (bool, error) {
	return d.parent.IsDir(ctx, d.join(path))
}

func (d *derivedBackend) Size(ctx context.Context, path string) (int64, error) {
	return d.parent.Size(ctx, d.join(path))
}

func (d *derivedBackend) LastModified(ctx context.Context, path string) (time.Time, error) {
	return d.parent.LastModified(ctx, d.join(path))
}

func (d *derivedBackend) Read(ctx context.Context, path string) ([]byte, error) {
	return d.parent.Read(ctx, d.join(path))
}

func (d *derivedBackend) Write(ctx context.Context, path string, data []byte) error {
	return d.parent.Write(ctx, d.join(path), data)
}

func (d *derivedBackend) Delete(ctx context.Context, path string, recursive bool) error {
	return d.parent.Delete(ctx, d.join(path), recursive)
}

func (d *derivedBackend) List(ctx context.Context, path string) ([]string, error) {
	return d.parent.List(ctx, d.join(path))
}

func (d *derivedBackend) Mkdir(ctx context.Context, path string, parents, existOK bool) error {
	return d.parent.Mkdir(ctx, d.join(path), parents, existOK)
}

func (d *derivedBackend) Copy(ctx context.Context, src string, dst mountfs.Backend, dstPath string) (string, error) {
	// unwrap so same-parent copies keep their server-side fast path
	if dd, ok := dst.(*derivedBackend); ok {
		return d.parent.Copy(ctx, d.join(src), dd.parent, dd.join(dstPath))
	}
	return d.parent.Copy(ctx, d.join(src), dst, dstPath)
}

func (d *derivedBackend) ContentHash(ctx context.Context, path string) (string, error) {
	if h, ok := d.parent.(mountfs.Hasher); ok {
		return h.ContentHash(ctx, d.join(path))
	}
	return "", mountfs.ErrNotSupported
}

func (d *derivedBackend) Metadata(ctx context.Context, path string) (map[string]string, error) {
	if md, ok := d.parent.(mountfs.Metadataer); ok {
		return md.Metadata(ctx, d.join(path))
	}
	return nil, mountfs.ErrNotSupported
}

func (d *derivedBackend) SetMetadata(ctx context.Context, path string, metadata map[string]string) error {
	if md, ok := d.parent.(mountfs.Metadataer); ok {
		return md.SetMetadata(ctx, d.join(path), metadata)
	}
	return mountfs.ErrNotSupported
}

func (d *derivedBackend) Versions(ctx context.Context, path string) ([]mountfs.VersionRecord, error) {
	if v, ok := d.parent.(mountfs.Versioner); ok {
		return v.Versions(ctx, d.join(path))
	}
	return nil, mountfs.ErrNotSupported
}

func (d *derivedBackend) ReadVersion(ctx context.Context, path, versionID string) ([]byte, error) {
	if v, ok := d.parent.(mountfs.Versioner); ok {
		return v.ReadVersion(ctx, d.join(path), versionID)
	}
	return nil, mountfs.ErrNotSupported
}

func (d *derivedBackend) DeleteVersion(ctx context.Context, path, versionID string) error {
	if v, ok := d.parent.(mountfs.Versioner); ok {
		return v.DeleteVersion(ctx, d.join(path), versionID)
	}
	return mountfs.ErrNotSupported
}

func (d *derivedBackend) URL(ctx context.Context, path string, expiresIn time.Duration) (string, error) {
	if u, ok := d.parent.(mountfs.URLer); ok {
		return u.URL(ctx, d.join(path), expiresIn)
	}
	return "", mountfs.ErrNotSupported
}

func (d *derivedBackend) Rename(ctx context.Context, oldPath, newPath string) error {
	if r, ok := d.parent.(mountfs.Renamer); ok {
		return r.Rename(ctx, d.join(oldPath), d.join(newPath))
	}
	return mountfs.ErrNotSupported
}

func (d *derivedBackend) WriteContent(ctx context.Context, path string, data []byte) (string, error) {
	if ca, ok := d.parent.(mountfs.ContentAddresser); ok {
		return ca.WriteContent(ctx, d.join(path), data)
	}
	return "", mountfs.ErrNotSupported
}

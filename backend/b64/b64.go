// Package b64 provides a content-addressed adapter where the path itself
// carries the data as URL-safe base64. Nodes on a b64 mount need no storage
// at all, which makes them handy for inlining small payloads into addresses.
//
// Because the content determines the path, writing "to" a path is
// meaningless; writes go through the content-addressed interface and yield
// the path the data now lives at.
package b64

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/softwell/mountfs"
	"github.com/softwell/mountfs/backend"
)

// Protocol defines the backend type.
const Protocol = "b64"

var encoding = base64.URLEncoding

// Backend implements mountfs.Backend over inline base64 payloads.
type Backend struct{}

// New returns the stateless base64 backend.
func New() *Backend { return &Backend{} }

// Name returns "b64"
func (b *Backend) Name() string { return Protocol }

// Capabilities reports the capability set. Write is advertised because
// content-addressed writes are supported, even though plain Write is not.
func (b *Backend) Capabilities() mountfs.Capability {
	return mountfs.CapabilityRead | mountfs.CapabilityWrite | mountfs.CapabilityHash
}

// Exists returns whether path is well-formed base64.
func (b *Backend) Exists(_ context.Context, path string) (bool, error) {
	_, err := encoding.DecodeString(path)
	return err == nil, nil
}

// IsFile returns whether path is well-formed base64. Every valid payload is
// a file.
func (b *Backend) IsFile(ctx context.Context, path string) (bool, error) {
	return b.Exists(ctx, path)
}

// IsDir always returns false, there are no directories.
func (b *Backend) IsDir(_ context.Context, _ string) (bool, error) {
	return false, nil
}

// Size returns the decoded payload length.
func (b *Backend) Size(ctx context.Context, path string) (int64, error) {
	data, err := b.Read(ctx, path)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// LastModified is unsupported, inline payloads have no timestamp.
func (b *Backend) LastModified(_ context.Context, _ string) (time.Time, error) {
	return time.Time{}, mountfs.ErrNotSupported
}

// Read decodes the payload carried by path.
func (b *Backend) Read(_ context.Context, path string) ([]byte, error) {
	data, err := encoding.DecodeString(path)
	if err != nil {
		return nil, mountfs.ErrNotExist
	}
	return data, nil
}

// Write is unsupported, the path is derived from the content. Use
// WriteContent instead.
func (b *Backend) Write(_ context.Context, _ string, _ []byte) error {
	return mountfs.ErrNotSupported
}

// WriteContent encodes data and returns the path it is now addressable at.
func (b *Backend) WriteContent(_ context.Context, _ string, data []byte) (string, error) {
	return encoding.EncodeToString(data), nil
}

// Delete is a no-op, inline payloads occupy no storage.
func (b *Backend) Delete(_ context.Context, _ string, _ bool) error {
	return nil
}

// List is unsupported, there are no directories.
func (b *Backend) List(_ context.Context, _ string) ([]string, error) {
	return nil, mountfs.ErrNotSupported
}

// Mkdir is unsupported, there are no directories.
func (b *Backend) Mkdir(_ context.Context, _ string, _, _ bool) error {
	return mountfs.ErrNotSupported
}

// Copy copies the decoded payload to another backend.
func (b *Backend) Copy(ctx context.Context, src string, dst mountfs.Backend, dstPath string) (string, error) {
	return mountfs.CopyBytes(ctx, b, src, dst, dstPath)
}

// ContentHash returns the fingerprint of the decoded payload.
func (b *Backend) ContentHash(ctx context.Context, path string) (string, error) {
	data, err := b.Read(ctx, path)
	if err != nil {
		return "", err
	}
	return mountfs.FingerprintBytes(data), nil
}

func init() {
	backend.Register(Protocol, backend.Descriptor{
		Capabilities: mountfs.CapabilityRead | mountfs.CapabilityWrite | mountfs.CapabilityHash,
		New: func(map[string]any) (mountfs.Backend, error) {
			return New(), nil
		},
	})
}

// Package mountfs provides a mount-point virtual storage layer: files on
// heterogeneous backends (local disk, object stores, SFTP, inline-encoded
// data) are addressed through one uniform address space ("mount:relative/path")
// and one operation set, so application code can swap storage providers via
// configuration instead of code changes.
package mountfs

import (
	"context"
	"errors"
	"time"
)

// Backend is the adapter interface every concrete protocol implements. It is
// the raw I/O boundary: paths are always mount-relative, normalized forms
// produced by ParseAddress, and never contain "..".
//
// A Backend only has to honor the operations its Capabilities advertise;
// optional extensions (Hasher, Metadataer, Versioner, URLer, Renamer) are
// consulted via type assertion after the matching capability is checked.
type Backend interface {
	// Exists returns whether a file or directory exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// IsFile returns whether path points to a file.
	IsFile(ctx context.Context, path string) (bool, error)

	// IsDir returns whether path points to a directory.
	IsDir(ctx context.Context, path string) (bool, error)

	// Size returns the file size in bytes. Missing paths return ErrNotExist.
	Size(ctx context.Context, path string) (int64, error)

	// LastModified returns the modification time. Missing paths return ErrNotExist.
	LastModified(ctx context.Context, path string) (time.Time, error)

	// Read returns the entire file content. Missing paths return ErrNotExist.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write replaces the file content, creating the file if needed. Backends
	// with versioning record a new version instead of overwriting.
	Write(ctx context.Context, path string, data []byte) error

	// Delete removes a file or directory. Deleting a non-empty directory
	// without recursive returns ErrNotEmpty. Implementations are idempotent:
	// deleting a missing path is a no-op.
	Delete(ctx context.Context, path string, recursive bool) error

	// List returns the base names of the entries directly under path.
	List(ctx context.Context, path string) ([]string, error)

	// Mkdir creates a directory. With parents it behaves like mkdir -p; with
	// existOK an already-present directory is not an error.
	Mkdir(ctx context.Context, path string, parents, existOK bool) error

	// Copy copies src on this backend to dstPath on dst, which may be a
	// different backend type. The returned path is non-empty only when the
	// destination backend rewrites identity on write (content-addressed
	// backends); otherwise it is "".
	Copy(ctx context.Context, src string, dst Backend, dstPath string) (string, error)

	// Capabilities reports the operations this adapter instance supports.
	Capabilities() Capability

	// Name returns the protocol name, ie: os, mem, s3.
	Name() string
}

// Hasher is implemented by backends that can produce a content fingerprint
// from storage metadata without reading the file (S3 ETag and the like).
// Gated by CapabilityHash.
type Hasher interface {
	ContentHash(ctx context.Context, path string) (string, error)
}

// Metadataer is implemented by backends that store custom key-value metadata
// per file. Gated by CapabilityMetadata.
type Metadataer interface {
	Metadata(ctx context.Context, path string) (map[string]string, error)
	SetMetadata(ctx context.Context, path string, metadata map[string]string) error
}

// Versioner is implemented by backends whose storage keeps version history.
// Gated by CapabilityVersioning.
type Versioner interface {
	// Versions lists known versions of path ordered oldest to newest.
	Versions(ctx context.Context, path string) ([]VersionRecord, error)

	// ReadVersion returns the content of one specific version.
	ReadVersion(ctx context.Context, path, versionID string) ([]byte, error)

	// DeleteVersion removes one specific version, leaving the rest intact.
	DeleteVersion(ctx context.Context, path, versionID string) error
}

// URLer is implemented by backends that can mint a time-limited URL for
// direct access. Gated by CapabilityPresignedURL.
type URLer interface {
	URL(ctx context.Context, path string, expiresIn time.Duration) (string, error)
}

// Renamer is implemented by backends with a native rename, used as the fast
// path for same-mount moves.
type Renamer interface {
	Rename(ctx context.Context, oldPath, newPath string) error
}

// ContentAddresser is implemented by backends whose written path is derived
// from the content itself. WriteContent stores data and returns the path the
// content ended up under.
type ContentAddresser interface {
	WriteContent(ctx context.Context, path string, data []byte) (string, error)
}

// VersionRecord describes one stored version of a file.
type VersionRecord struct {
	// ID is the backend's version identifier.
	ID string

	// IsLatest marks the current version.
	IsLatest bool

	// LastModified is when the version was written.
	LastModified time.Time

	// Size is the version's content size in bytes.
	Size int64

	// Fingerprint is the content fingerprint (ETag/hash or equivalent).
	Fingerprint string
}

// CopyBytes is the generic cross-backend copy used by backends that have no
// server-side copy path: read everything from src and write it to dst. The
// returned path is non-empty when dst rewrites identity on write.
func CopyBytes(ctx context.Context, src Backend, srcPath string, dst Backend, dstPath string) (string, error) {
	data, err := src.Read(ctx, srcPath)
	if err != nil {
		return "", err
	}
	if ca, ok := dst.(ContentAddresser); ok {
		rewritten, err := ca.WriteContent(ctx, dstPath, data)
		if !errors.Is(err, ErrNotSupported) {
			return rewritten, err
		}
		// Facade backends satisfy ContentAddresser but defer to a parent
		// that may not; fall through to a plain write.
	}
	return "", dst.Write(ctx, dstPath, data)
}

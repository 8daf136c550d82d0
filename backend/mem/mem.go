// Package mem provides an in-memory adapter. It is primarily a test and
// scratch backend, but it implements the full optional surface - versioning,
// metadata-level hashes and custom metadata - so it stands in for a
// versioned object store in tests.
package mem

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/softwell/mountfs"
	"github.com/softwell/mountfs/backend"
)

// Protocol defines the backend type.
const Protocol = "mem"

// Options holds the mem backend configuration.
type Options struct {
	// Versioning keeps every written version of each file instead of
	// overwriting in place.
	Versioning bool `mapstructure:"versioning"`
}

type version struct {
	id          string
	data        []byte
	modTime     time.Time
	fingerprint string
}

type entry struct {
	versions []version // oldest first, last is current
}

func (e *entry) current() *version {
	return &e.versions[len(e.versions)-1]
}

// Backend implements mountfs.Backend over process memory. Directories exist
// implicitly as prefixes of stored files and explicitly via Mkdir.
type Backend struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	dirs       map[string]bool
	meta       map[string]map[string]string
	versioning bool
	clock      func() time.Time
}

// New returns an empty in-memory backend.
func New(opts Options) *Backend {
	return &Backend{
		entries:    make(map[string]*entry),
		dirs:       make(map[string]bool),
		meta:       make(map[string]map[string]string),
		versioning: opts.Versioning,
		clock:      time.Now,
	}
}

// Name returns "mem"
func (b *Backend) Name() string { return Protocol }

// Capabilities reports the instance capability set. Versioning is only
// advertised when the mount was configured with it.
func (b *Backend) Capabilities() mountfs.Capability {
	c := mountfs.CapabilityRead | mountfs.CapabilityWrite | mountfs.CapabilityDelete |
		mountfs.CapabilityList | mountfs.CapabilityMkdir | mountfs.CapabilityHash |
		mountfs.CapabilityMetadata
	if b.versioning {
		c |= mountfs.CapabilityVersioning
	}
	return c
}

// Exists returns whether path is a stored file or a directory.
func (b *Backend) Exists(_ context.Context, path string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.isFileLocked(path) || b.isDirLocked(path), nil
}

// IsFile returns whether path is a stored file.
func (b *Backend) IsFile(_ context.Context, path string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.isFileLocked(path), nil
}

// IsDir returns whether path is the root, an explicit directory, or the
// prefix of any stored file.
func (b *Backend) IsDir(_ context.Context, path string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.isDirLocked(path), nil
}

func (b *Backend) isFileLocked(path string) bool {
	_, ok := b.entries[path]
	return ok
}

func (b *Backend) isDirLocked(path string) bool {
	if path == "" {
		return true
	}
	if b.dirs[path] {
		return true
	}
	prefix := path + "/"
	for p := range b.entries {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	for p := range b.dirs {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Size returns the current version's size.
func (b *Backend) Size(_ context.Context, path string) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[path]
	if !ok {
		return 0, mountfs.ErrNotExist
	}
	return int64(len(e.current().data)), nil
}

// LastModified returns the current version's write time.
func (b *Backend) LastModified(_ context.Context, path string) (time.Time, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[path]
	if !ok {
		return time.Time{}, mountfs.ErrNotExist
	}
	return e.current().modTime, nil
}

// Read returns a copy of the current version's content.
func (b *Backend) Read(_ context.Context, path string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[path]
	if !ok {
		return nil, mountfs.ErrNotExist
	}
	cur := e.current()
	out := make([]byte, len(cur.data))
	copy(out, cur.data)
	return out, nil
}

// Write stores data under path. With versioning on, a new version is
// appended; otherwise the single version is replaced.
func (b *Backend) Write(_ context.Context, path string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)
	v := version{
		id:          uuid.NewString(),
		data:        stored,
		modTime:     b.clock(),
		fingerprint: mountfs.FingerprintBytes(stored),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[path]
	if !ok || !b.versioning {
		b.entries[path] = &entry{versions: []version{v}}
		return nil
	}
	// version times must be strictly increasing so as-of lookups are
	// unambiguous even for writes within one clock tick
	if prev := e.current().modTime; !v.modTime.After(prev) {
		v.modTime = prev.Add(time.Nanosecond)
	}
	e.versions = append(e.versions, v)
	return nil
}

// Delete removes a file or directory subtree. Missing paths are a no-op.
func (b *Backend) Delete(_ context.Context, path string, recursive bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[path]; ok {
		delete(b.entries, path)
		delete(b.meta, path)
		return nil
	}
	if !b.isDirLocked(path) || path == "" {
		return nil
	}
	prefix := path + "/"
	var children []string
	for p := range b.entries {
		if strings.HasPrefix(p, prefix) {
			children = append(children, p)
		}
	}
	if !recursive && len(children) > 0 {
		return mountfs.ErrNotEmpty
	}
	for _, p := range children {
		delete(b.entries, p)
		delete(b.meta, p)
	}
	for p := range b.dirs {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(b.dirs, p)
		}
	}
	return nil
}

// List returns the sorted base names of the entries directly under path.
func (b *Backend) List(_ context.Context, path string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.isDirLocked(path) {
		return nil, mountfs.ErrNotExist
	}
	prefix := ""
	if path != "" {
		prefix = path + "/"
	}
	seen := make(map[string]bool)
	collect := func(p string) {
		if !strings.HasPrefix(p, prefix) {
			return
		}
		rest := p[len(prefix):]
		if rest == "" {
			return
		}
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		seen[rest] = true
	}
	for p := range b.entries {
		collect(p)
	}
	for p := range b.dirs {
		collect(p)
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Mkdir records an explicit directory.
func (b *Backend) Mkdir(_ context.Context, path string, parents, existOK bool) error {
	if path == "" {
		if existOK {
			return nil
		}
		return mountfs.ErrExist
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isDirLocked(path) {
		if existOK {
			return nil
		}
		return mountfs.ErrExist
	}
	if !parents {
		if i := strings.LastIndexByte(path, '/'); i >= 0 && !b.isDirLocked(path[:i]) {
			return mountfs.ErrNotExist
		}
	}
	b.dirs[path] = true
	return nil
}

// Copy copies a file to another backend via the generic byte path.
func (b *Backend) Copy(ctx context.Context, src string, dst mountfs.Backend, dstPath string) (string, error) {
	return mountfs.CopyBytes(ctx, b, src, dst, dstPath)
}

// ContentHash returns the current version's fingerprint.
func (b *Backend) ContentHash(_ context.Context, path string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[path]
	if !ok {
		return "", mountfs.ErrNotExist
	}
	return e.current().fingerprint, nil
}

// Metadata returns the custom metadata stored for path.
func (b *Backend) Metadata(_ context.Context, path string) (map[string]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.entries[path]; !ok {
		return nil, mountfs.ErrNotExist
	}
	out := make(map[string]string, len(b.meta[path]))
	for k, v := range b.meta[path] {
		out[k] = v
	}
	return out, nil
}

// SetMetadata replaces the custom metadata stored for path.
func (b *Backend) SetMetadata(_ context.Context, path string, metadata map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[path]; !ok {
		return mountfs.ErrNotExist
	}
	stored := make(map[string]string, len(metadata))
	for k, v := range metadata {
		stored[k] = v
	}
	b.meta[path] = stored
	return nil
}

// Versions lists stored versions oldest to newest.
func (b *Backend) Versions(_ context.Context, path string) ([]mountfs.VersionRecord, error) {
	if !b.versioning {
		return nil, mountfs.ErrNotSupported
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[path]
	if !ok {
		return nil, mountfs.ErrNotExist
	}
	records := make([]mountfs.VersionRecord, len(e.versions))
	for i, v := range e.versions {
		records[i] = mountfs.VersionRecord{
			ID:           v.id,
			IsLatest:     i == len(e.versions)-1,
			LastModified: v.modTime,
			Size:         int64(len(v.data)),
			Fingerprint:  v.fingerprint,
		}
	}
	return records, nil
}

// ReadVersion returns the content of one stored version.
func (b *Backend) ReadVersion(_ context.Context, path, versionID string) ([]byte, error) {
	if !b.versioning {
		return nil, mountfs.ErrNotSupported
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[path]
	if !ok {
		return nil, mountfs.ErrNotExist
	}
	for _, v := range e.versions {
		if v.id == versionID {
			out := make([]byte, len(v.data))
			copy(out, v.data)
			return out, nil
		}
	}
	return nil, mountfs.ErrNotExist
}

// DeleteVersion removes one stored version. The last remaining version of a
// file cannot be removed.
func (b *Backend) DeleteVersion(_ context.Context, path, versionID string) error {
	if !b.versioning {
		return mountfs.ErrNotSupported
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[path]
	if !ok {
		return mountfs.ErrNotExist
	}
	if len(e.versions) == 1 {
		return mountfs.Error("cannot delete the only remaining version")
	}
	for i, v := range e.versions {
		if v.id == versionID {
			e.versions = append(e.versions[:i], e.versions[i+1:]...)
			return nil
		}
	}
	return mountfs.ErrNotExist
}

func init() {
	backend.Register(Protocol, backend.Descriptor{
		Capabilities: mountfs.CapabilityRead | mountfs.CapabilityWrite |
			mountfs.CapabilityDelete | mountfs.CapabilityList | mountfs.CapabilityMkdir |
			mountfs.CapabilityHash | mountfs.CapabilityMetadata | mountfs.CapabilityVersioning,
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

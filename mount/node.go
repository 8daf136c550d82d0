package mount

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/softwell/mountfs"
	"github.com/softwell/mountfs/dualmode"
	"github.com/softwell/mountfs/utils"
)

// Node is a file or directory address bound to a configured mount. A node is
// cheap to create and carries no open handles; all I/O goes through the
// mount's adapter at call time, after permission, capability and
// precondition checks.
//
// A node optionally caches state probes (exists, size, hash and the like)
// after the first success; the cache is per instance and unsynchronized,
// matching the single-caller usage pattern. Refresh drops it.
type Node struct {
	mgr  *Manager
	rec  *Record
	addr mountfs.Address

	autocreate bool
	caching    bool
	mustExist  *bool
	memo       map[string]any

	ad *nodeAdapters

	// version selectors, mutually exclusive; any set selector makes the
	// node a read-only snapshot
	verIdx *int
	verID  string
	asOf   *time.Time
}

// nodeAdapters holds one dual-mode adapter per logical operation, so the
// async-seen latch is tracked per node and per method.
type nodeAdapters struct {
	exists   *dualmode.Adapter[bool]
	isFile   *dualmode.Adapter[bool]
	isDir    *dualmode.Adapter[bool]
	size     *dualmode.Adapter[int64]
	mtime    *dualmode.Adapter[time.Time]
	hash     *dualmode.Adapter[string]
	read     *dualmode.Adapter[[]byte]
	write    *dualmode.Adapter[struct{}]
	del      *dualmode.Adapter[struct{}]
	mkdir    *dualmode.Adapter[struct{}]
	list     *dualmode.Adapter[[]string]
	versions *dualmode.Adapter[[]mountfs.VersionRecord]
}

func newNodeAdapters() *nodeAdapters {
	return &nodeAdapters{
		exists:   dualmode.NewAdapter[bool]("Exists"),
		isFile:   dualmode.NewAdapter[bool]("IsFile"),
		isDir:    dualmode.NewAdapter[bool]("IsDir"),
		size:     dualmode.NewAdapter[int64]("Size"),
		mtime:    dualmode.NewAdapter[time.Time]("LastModified"),
		hash:     dualmode.NewAdapter[string]("Hash"),
		read:     dualmode.NewAdapter[[]byte]("Read"),
		write:    dualmode.NewAdapter[struct{}]("Write"),
		del:      dualmode.NewAdapter[struct{}]("Delete"),
		mkdir:    dualmode.NewAdapter[struct{}]("Mkdir"),
		list:     dualmode.NewAdapter[[]string]("List"),
		versions: dualmode.NewAdapter[[]mountfs.VersionRecord]("Versions"),
	}
}

// NodeOption configures a node at creation.
type NodeOption func(*Node)

// WithCache memoizes state probes after their first success.
func WithCache() NodeOption {
	return func(n *Node) { n.caching = true }
}

// WithAutocreate controls whether writes create missing parent directories.
// On by default; disabled, a write below a missing parent fails with
// NotFoundError.
func WithAutocreate(autocreate bool) NodeOption {
	return func(n *Node) { n.autocreate = autocreate }
}

// WithMustExist pins the node's existence policy. Explicitly true, reads and
// probes check the target up front and fail with NotFoundError when it is
// missing, the boolean queries included. Explicitly false, reads on a missing
// target return their zero value instead of an error. Unset, reads fail on
// missing targets and probes report false.
func WithMustExist(mustExist bool) NodeOption {
	return func(n *Node) { n.mustExist = utils.Ptr(mustExist) }
}

func newNode(mgr *Manager, rec *Record, addr mountfs.Address, opts ...NodeOption) *Node {
	n := &Node{
		mgr:        mgr,
		rec:        rec,
		addr:       addr,
		autocreate: true,
		ad:         newNodeAdapters(),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// clone returns a sibling node at addr carrying the same policies, with
// fresh adapters and an empty cache.
func (n *Node) clone(addr mountfs.Address) *Node {
	c := &Node{
		mgr:        n.mgr,
		rec:        n.rec,
		addr:       addr,
		autocreate: n.autocreate,
		caching:    n.caching,
		mustExist:  n.mustExist,
		ad:         newNodeAdapters(),
	}
	return c
}

// String returns the external "mount:relative/path" form.
func (n *Node) String() string { return n.addr.String() }

// Address returns the parsed address.
func (n *Node) Address() mountfs.Address { return n.addr }

// Mount returns the mount name.
func (n *Node) Mount() string { return n.addr.Mount }

// Path returns the mount-relative path.
func (n *Node) Path() string { return n.addr.Path }

// Base returns the last path segment.
func (n *Node) Base() string { return n.addr.Base() }

// Stem returns the file name without its extension.
func (n *Node) Stem() string { return n.addr.Stem() }

// Ext returns the file extension including the leading dot, or "".
func (n *Node) Ext() string { return n.addr.Ext() }

// IsRoot returns whether the node is the mount root.
func (n *Node) IsRoot() bool { return n.addr.IsRoot() }

// Permission returns the mount's configured privilege level.
func (n *Node) Permission() mountfs.Permission { return n.rec.Permission }

// Capabilities returns the mount adapter's capability set.
func (n *Node) Capabilities() mountfs.Capability { return n.rec.Capabilities }

// Parent returns the containing directory node. The parent of the mount root
// is the root itself.
func (n *Node) Parent() *Node {
	return n.clone(n.addr.Parent())
}

// Child returns the node for the given segments below this one, each segment
// re-normalized.
func (n *Node) Child(segments ...string) (*Node, error) {
	addr, err := n.addr.Join(segments...)
	if err != nil {
		return nil, err
	}
	return n.clone(addr), nil
}

// Refresh drops all memoized state.
func (n *Node) Refresh() {
	n.memo = nil
}

func (n *Node) cached(key string) (any, bool) {
	if !n.caching || n.memo == nil {
		return nil, false
	}
	v, ok := n.memo[key]
	return v, ok
}

func (n *Node) store(key string, v any) {
	if !n.caching {
		return
	}
	if n.memo == nil {
		n.memo = make(map[string]any)
	}
	n.memo[key] = v
}

// notFound translates the adapter's missing-path sentinel into a typed error
// carrying the address.
func (n *Node) notFound(err error) error {
	if errors.Is(err, mountfs.ErrNotExist) {
		return &mountfs.NotFoundError{Address: n.String()}
	}
	return err
}

func (n *Node) isSnapshot() bool {
	return n.verIdx != nil || n.verID != "" || n.asOf != nil
}

// required and optional split the tri-state existence policy; both are false
// when the node carries no explicit policy.
func (n *Node) required() bool { return n.mustExist != nil && *n.mustExist }

func (n *Node) optional() bool { return n.mustExist != nil && !*n.mustExist }

// existsRaw probes existence without applying the node's policy.
func (n *Node) existsRaw(ctx context.Context) (bool, error) {
	if n.isSnapshot() {
		_, err := n.resolveVersion(ctx)
		if errors.Is(err, mountfs.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	}
	return n.rec.Backend.Exists(ctx, n.addr.Path)
}

// requireExists is the up-front check behind WithMustExist(true).
func (n *Node) requireExists(ctx context.Context) error {
	if !n.required() {
		return nil
	}
	exists, err := n.existsRaw(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return &mountfs.NotFoundError{Address: n.String()}
	}
	return nil
}

func (n *Node) checkWrite(op string) error {
	if n.isSnapshot() {
		return mountfs.ErrVersionedWrite
	}
	if !n.rec.Permission.CanWrite() {
		return &mountfs.PermissionError{Address: n.String(), Op: op, Permission: n.rec.Permission}
	}
	return nil
}

func (n *Node) checkDelete(op string) error {
	if n.isSnapshot() {
		return mountfs.ErrVersionedWrite
	}
	if !n.rec.Permission.CanDelete() {
		return &mountfs.PermissionError{Address: n.String(), Op: op, Permission: n.rec.Permission}
	}
	return nil
}

// ensureParent resolves the write-family parent precondition: with
// autocreate, missing parents are created; without, a missing parent fails.
// Adapters that have no real directories skip the whole dance.
func (n *Node) ensureParent(ctx context.Context) error {
	if n.addr.IsRoot() || !n.rec.Capabilities.Has(mountfs.CapabilityMkdir) {
		return nil
	}
	parent := n.addr.Parent()
	if n.autocreate {
		if parent.IsRoot() {
			return nil
		}
		return n.rec.Backend.Mkdir(ctx, parent.Path, true, true)
	}
	ok, err := n.rec.Backend.IsDir(ctx, parent.Path)
	if err != nil {
		return err
	}
	if !ok {
		return &mountfs.NotFoundError{Address: mountfs.Address{Mount: n.addr.Mount, Path: parent.Path}.String()}
	}
	return nil
}

func (n *Node) existsFn() dualmode.Func[bool] {
	return func(ctx context.Context) (bool, error) {
		if v, ok := n.cached("exists"); ok {
			return v.(bool), nil
		}
		exists, err := n.existsRaw(ctx)
		if err != nil {
			return false, err
		}
		if !exists && n.required() {
			return false, &mountfs.NotFoundError{Address: n.String()}
		}
		if !n.isSnapshot() {
			n.store("exists", exists)
		}
		return exists, nil
	}
}

// Exists returns whether the node points at an existing file or directory.
func (n *Node) Exists(ctx context.Context) (bool, error) {
	return n.ad.exists.Block(ctx, n.existsFn())
}

func (n *Node) isFileFn() dualmode.Func[bool] {
	return func(ctx context.Context) (bool, error) {
		if v, ok := n.cached("isFile"); ok {
			return v.(bool), nil
		}
		if err := n.requireExists(ctx); err != nil {
			return false, err
		}
		if n.isSnapshot() {
			return n.existsFn()(ctx)
		}
		isFile, err := n.rec.Backend.IsFile(ctx, n.addr.Path)
		if err == nil {
			n.store("isFile", isFile)
		}
		return isFile, err
	}
}

// IsFile returns whether the node points at a file.
func (n *Node) IsFile(ctx context.Context) (bool, error) {
	return n.ad.isFile.Block(ctx, n.isFileFn())
}

func (n *Node) isDirFn() dualmode.Func[bool] {
	return func(ctx context.Context) (bool, error) {
		if v, ok := n.cached("isDir"); ok {
			return v.(bool), nil
		}
		if err := n.requireExists(ctx); err != nil {
			return false, err
		}
		if n.isSnapshot() {
			return false, nil
		}
		isDir, err := n.rec.Backend.IsDir(ctx, n.addr.Path)
		if err == nil {
			n.store("isDir", isDir)
		}
		return isDir, err
	}
}

// IsDir returns whether the node points at a directory.
func (n *Node) IsDir(ctx context.Context) (bool, error) {
	return n.ad.isDir.Block(ctx, n.isDirFn())
}

func (n *Node) sizeFn() dualmode.Func[int64] {
	return func(ctx context.Context) (int64, error) {
		if v, ok := n.cached("size"); ok {
			return v.(int64), nil
		}
		if err := n.requireExists(ctx); err != nil {
			return 0, err
		}
		if n.isSnapshot() {
			rec, err := n.resolveVersion(ctx)
			if err != nil {
				return 0, n.notFound(err)
			}
			return rec.Size, nil
		}
		size, err := n.rec.Backend.Size(ctx, n.addr.Path)
		if err != nil {
			if n.optional() && errors.Is(err, mountfs.ErrNotExist) {
				return 0, nil
			}
			return 0, n.notFound(err)
		}
		n.store("size", size)
		return size, nil
	}
}

// Size returns the file size in bytes. Missing files yield a NotFoundError.
func (n *Node) Size(ctx context.Context) (int64, error) {
	return n.ad.size.Block(ctx, n.sizeFn())
}

func (n *Node) lastModifiedFn() dualmode.Func[time.Time] {
	return func(ctx context.Context) (time.Time, error) {
		if v, ok := n.cached("mtime"); ok {
			return v.(time.Time), nil
		}
		if err := n.requireExists(ctx); err != nil {
			return time.Time{}, err
		}
		if n.isSnapshot() {
			rec, err := n.resolveVersion(ctx)
			if err != nil {
				return time.Time{}, n.notFound(err)
			}
			return rec.LastModified, nil
		}
		mtime, err := n.rec.Backend.LastModified(ctx, n.addr.Path)
		if err != nil {
			if n.optional() && errors.Is(err, mountfs.ErrNotExist) {
				return time.Time{}, nil
			}
			return time.Time{}, n.notFound(err)
		}
		n.store("mtime", mtime)
		return mtime, nil
	}
}

// LastModified returns the file modification time.
func (n *Node) LastModified(ctx context.Context) (time.Time, error) {
	return n.ad.mtime.Block(ctx, n.lastModifiedFn())
}

func (n *Node) hashFn() dualmode.Func[string] {
	return func(ctx context.Context) (string, error) {
		if v, ok := n.cached("hash"); ok {
			return v.(string), nil
		}
		if err := n.requireExists(ctx); err != nil {
			return "", err
		}
		if n.isSnapshot() {
			rec, err := n.resolveVersion(ctx)
			if err != nil {
				return "", n.notFound(err)
			}
			if rec.Fingerprint != "" {
				return rec.Fingerprint, nil
			}
			data, err := n.readFn()(ctx)
			if err != nil {
				return "", err
			}
			return mountfs.FingerprintBytes(data), nil
		}
		if n.rec.Capabilities.Has(mountfs.CapabilityHash) {
			if h, ok := n.rec.Backend.(mountfs.Hasher); ok {
				hash, err := h.ContentHash(ctx, n.addr.Path)
				if err != nil {
					if n.optional() && errors.Is(err, mountfs.ErrNotExist) {
						return "", nil
					}
					return "", n.notFound(err)
				}
				n.store("hash", hash)
				return hash, nil
			}
		}
		data, err := n.rec.Backend.Read(ctx, n.addr.Path)
		if err != nil {
			if n.optional() && errors.Is(err, mountfs.ErrNotExist) {
				return "", nil
			}
			return "", n.notFound(err)
		}
		hash := mountfs.FingerprintBytes(data)
		n.store("hash", hash)
		return hash, nil
	}
}

// Hash returns the content fingerprint: the adapter's metadata-level hash
// when available, a digest of the full content otherwise.
func (n *Node) Hash(ctx context.Context) (string, error) {
	return n.ad.hash.Block(ctx, n.hashFn())
}

func (n *Node) readFn() dualmode.Func[[]byte] {
	return func(ctx context.Context) ([]byte, error) {
		if err := n.requireExists(ctx); err != nil {
			return nil, err
		}
		if n.isSnapshot() {
			rec, err := n.resolveVersion(ctx)
			if err != nil {
				return nil, n.notFound(err)
			}
			v, ok := n.rec.Backend.(mountfs.Versioner)
			if !ok {
				return nil, mountfs.ErrNotSupported
			}
			data, err := v.ReadVersion(ctx, n.addr.Path, rec.ID)
			if err != nil {
				return nil, n.notFound(err)
			}
			return data, nil
		}
		data, err := n.rec.Backend.Read(ctx, n.addr.Path)
		if err != nil {
			if n.optional() && errors.Is(err, mountfs.ErrNotExist) {
				return nil, nil
			}
			return nil, n.notFound(err)
		}
		return data, nil
	}
}

// Read returns the full content. Missing files yield a NotFoundError unless
// the node was built with WithMustExist(false).
func (n *Node) Read(ctx context.Context) ([]byte, error) {
	return n.ad.read.Block(ctx, n.readFn())
}

// ReadString returns the full content as a string.
func (n *Node) ReadString(ctx context.Context) (string, error) {
	data, err := n.Read(ctx)
	return string(data), err
}

func (n *Node) writeFn(data []byte) dualmode.Func[struct{}] {
	return func(ctx context.Context) (struct{}, error) {
		if err := n.checkWrite("write"); err != nil {
			return struct{}{}, err
		}
		if !n.rec.Capabilities.Has(mountfs.CapabilityWrite) {
			return struct{}{}, mountfs.ErrNotSupported
		}
		if err := n.ensureParent(ctx); err != nil {
			return struct{}{}, err
		}
		if err := n.rec.Backend.Write(ctx, n.addr.Path, data); err != nil {
			return struct{}{}, err
		}
		n.Refresh()
		return struct{}{}, nil
	}
}

// Write replaces the content, creating the file and (by default) missing
// parent directories. On versioning mounts this records a new version.
func (n *Node) Write(ctx context.Context, data []byte) error {
	_, err := n.ad.write.Block(ctx, n.writeFn(data))
	return err
}

// WriteString replaces the content with the given string.
func (n *Node) WriteString(ctx context.Context, s string) error {
	return n.Write(ctx, []byte(s))
}

func (n *Node) deleteFn() dualmode.Func[struct{}] {
	return func(ctx context.Context) (struct{}, error) {
		if err := n.checkDelete("delete"); err != nil {
			return struct{}{}, err
		}
		if !n.rec.Capabilities.Has(mountfs.CapabilityDelete) {
			return struct{}{}, mountfs.ErrNotSupported
		}
		if err := n.requireExists(ctx); err != nil {
			return struct{}{}, err
		}
		if err := n.rec.Backend.Delete(ctx, n.addr.Path, true); err != nil {
			return struct{}{}, err
		}
		n.Refresh()
		return struct{}{}, nil
	}
}

// Delete removes the file or directory subtree. Deleting a missing node is a
// no-op unless the node was built with WithMustExist(true).
func (n *Node) Delete(ctx context.Context) error {
	_, err := n.ad.del.Block(ctx, n.deleteFn())
	return err
}

func (n *Node) mkdirFn() dualmode.Func[struct{}] {
	return func(ctx context.Context) (struct{}, error) {
		if err := n.checkWrite("mkdir"); err != nil {
			return struct{}{}, err
		}
		if !n.rec.Capabilities.Has(mountfs.CapabilityMkdir) {
			return struct{}{}, mountfs.ErrNotSupported
		}
		if err := n.rec.Backend.Mkdir(ctx, n.addr.Path, true, true); err != nil {
			return struct{}{}, err
		}
		n.Refresh()
		return struct{}{}, nil
	}
}

// Mkdir creates the directory, parents included. An existing directory is
// not an error.
func (n *Node) Mkdir(ctx context.Context) error {
	_, err := n.ad.mkdir.Block(ctx, n.mkdirFn())
	return err
}

func (n *Node) listFn() dualmode.Func[[]string] {
	return func(ctx context.Context) ([]string, error) {
		if !n.rec.Capabilities.Has(mountfs.CapabilityList) {
			return nil, mountfs.ErrNotSupported
		}
		if err := n.requireExists(ctx); err != nil {
			return nil, err
		}
		names, err := n.rec.Backend.List(ctx, n.addr.Path)
		if err != nil {
			if n.optional() && errors.Is(err, mountfs.ErrNotExist) {
				return nil, nil
			}
			return nil, n.notFound(err)
		}
		return names, nil
	}
}

// List returns the base names of the entries directly under the node.
func (n *Node) List(ctx context.Context) ([]string, error) {
	return n.ad.list.Block(ctx, n.listFn())
}

// Children returns child nodes for every entry directly under the node.
func (n *Node) Children(ctx context.Context) ([]*Node, error) {
	names, err := n.List(ctx)
	if err != nil {
		return nil, err
	}
	children := make([]*Node, 0, len(names))
	for _, name := range names {
		child, err := n.Child(name)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// Metadata returns the custom key-value metadata stored with the file.
func (n *Node) Metadata(ctx context.Context) (map[string]string, error) {
	if !n.rec.Capabilities.Has(mountfs.CapabilityMetadata) {
		return nil, mountfs.ErrNotSupported
	}
	md, ok := n.rec.Backend.(mountfs.Metadataer)
	if !ok {
		return nil, mountfs.ErrNotSupported
	}
	meta, err := md.Metadata(ctx, n.addr.Path)
	if err != nil {
		return nil, n.notFound(err)
	}
	return meta, nil
}

// SetMetadata replaces the custom key-value metadata stored with the file.
func (n *Node) SetMetadata(ctx context.Context, metadata map[string]string) error {
	if err := n.checkWrite("set metadata"); err != nil {
		return err
	}
	if !n.rec.Capabilities.Has(mountfs.CapabilityMetadata) {
		return mountfs.ErrNotSupported
	}
	md, ok := n.rec.Backend.(mountfs.Metadataer)
	if !ok {
		return mountfs.ErrNotSupported
	}
	if err := md.SetMetadata(ctx, n.addr.Path, metadata); err != nil {
		return n.notFound(err)
	}
	return nil
}

// URL mints a time-limited URL for direct access to the file.
func (n *Node) URL(ctx context.Context, expiresIn time.Duration) (string, error) {
	if !n.rec.Capabilities.Has(mountfs.CapabilityPresignedURL) {
		return "", mountfs.ErrNotSupported
	}
	u, ok := n.rec.Backend.(mountfs.URLer)
	if !ok {
		return "", mountfs.ErrNotSupported
	}
	return u.URL(ctx, n.addr.Path, expiresIn)
}

// Move relocates the node's content to dst and rebinds the node to dst's
// address. Same-mount moves use the adapter's native rename when it has one;
// everything else degrades to copy plus delete.
func (n *Node) Move(ctx context.Context, dst *Node) error {
	if err := n.checkDelete("move"); err != nil {
		return err
	}
	if err := dst.checkWrite("move"); err != nil {
		return err
	}

	renamed := false
	if n.rec == dst.rec {
		if r, ok := n.rec.Backend.(mountfs.Renamer); ok {
			err := r.Rename(ctx, n.addr.Path, dst.addr.Path)
			switch {
			case err == nil:
				renamed = true
			case errors.Is(err, mountfs.ErrNotSupported):
				// fall through to copy+delete
			default:
				return n.notFound(err)
			}
		}
	}
	if !renamed {
		if _, err := n.CopyTo(ctx, dst); err != nil {
			return err
		}
		if err := n.Delete(ctx); err != nil {
			return err
		}
	}

	n.rec = dst.rec
	n.addr = dst.addr
	n.ad = newNodeAdapters()
	n.Refresh()
	return nil
}

// ToBase64 returns the content encoded as standard base64. With includeURI
// the result is a data: URI carrying the sniffed media type.
func (n *Node) ToBase64(ctx context.Context, includeURI bool) (string, error) {
	data, err := n.Read(ctx)
	if err != nil {
		return "", err
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	if !includeURI {
		return encoded, nil
	}
	return fmt.Sprintf("data:%s;base64,%s", mimetype.Detect(data).String(), encoded), nil
}

// FillFromURL downloads rawURL and writes the body into the node. A nil
// client uses http.DefaultClient.
func (n *Node) FillFromURL(ctx context.Context, rawURL string, client *http.Client) error {
	if err := n.checkWrite("write"); err != nil {
		return err
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return n.Write(ctx, data)
}

// LocalPath materializes the content in a temporary file for tools that need
// a real filesystem path, and returns that path with a done func. done must
// be called exactly once: it writes the file back through the node when its
// content changed and the mount allows writing, then removes it. A missing
// target starts from an empty file when the node is writable.
func (n *Node) LocalPath(ctx context.Context) (string, func() error, error) {
	data, err := n.Read(ctx)
	if err != nil {
		var nf *mountfs.NotFoundError
		if !errors.As(err, &nf) || n.checkWrite("write") != nil {
			return "", nil, err
		}
		data = nil
	}

	tmp, err := os.CreateTemp("", "mountfs-*"+n.Ext())
	if err != nil {
		return "", nil, err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", nil, err
	}

	path := tmp.Name()
	before := mountfs.QuickDigest(data)
	done := func() error {
		defer func() { _ = os.Remove(path) }()
		if n.checkWrite("write") != nil {
			return nil
		}
		after, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if mountfs.QuickDigest(after) == before {
			return nil
		}
		return n.Write(ctx, after)
	}
	return path, done, nil
}

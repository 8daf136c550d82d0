// Package mount implements the mount table and the node API on top of it:
// mounts bind names to configured backend adapters, nodes address files as
// "mount:relative/path" and enforce permissions, preconditions and
// capability gating before any adapter call.
package mount

import (
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/softwell/mountfs"
	"github.com/softwell/mountfs/backend"
)

// Config is one mount configuration record. Regular mounts name a protocol
// and carry its backend-specific parameters; derived mounts instead set Path
// to a "parent:prefix" address and reuse the parent's adapter.
type Config struct {
	// Name is the mount's unique key in addresses.
	Name string `mapstructure:"name"`

	// Protocol selects the registered backend type. Empty on derived mounts.
	Protocol string `mapstructure:"protocol"`

	// Path is backend-specific (local root directory for os, remote root for
	// sftp) or, when it contains a ":", the parent address of a derived
	// mount.
	Path string `mapstructure:"path"`

	// Permissions is readonly, readwrite or delete. Empty means the widest
	// level the adapter's capabilities allow; derived mounts additionally
	// never exceed their parent.
	Permissions string `mapstructure:"permissions"`

	// Params holds the remaining backend-specific fields.
	Params map[string]any `mapstructure:",remain"`
}

func (c Config) isDerived() bool {
	return c.Protocol == "" && strings.Contains(c.Path, ":")
}

// Record is a configured mount.
type Record struct {
	Name         string
	Backend      mountfs.Backend
	Permission   mountfs.Permission
	Capabilities mountfs.Capability
}

// Manager is the mount table. Safe for concurrent use; in practice mounts
// are configured once at startup and read afterwards.
type Manager struct {
	mu     sync.RWMutex
	mounts map[string]*Record
	log    *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used by the configuration paths.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager returns an empty mount table.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		mounts: make(map[string]*Record),
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Configure adds the given mounts in order. Configuration errors are fatal:
// the first invalid record aborts with a ConfigError and later records are
// not processed. Reconfiguring an existing name replaces it, closing the old
// adapter.
func (m *Manager) Configure(configs []Config) error {
	for _, c := range configs {
		if err := m.configure(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) configure(c Config) error {
	if c.Name == "" {
		return &mountfs.ConfigError{Reason: "mount name is required"}
	}
	if strings.ContainsAny(c.Name, ":/") {
		return &mountfs.ConfigError{Mount: c.Name, Reason: `mount name must not contain ":" or "/"`}
	}

	var rec *Record
	var err error
	if c.isDerived() {
		rec, err = m.configureDerived(c)
	} else {
		rec, err = m.configureProtocol(c)
	}
	if err != nil {
		return err
	}

	if err := checkPermissionCeiling(c.Name, rec.Permission, rec.Capabilities); err != nil {
		return err
	}

	m.mu.Lock()
	old := m.mounts[c.Name]
	m.mounts[c.Name] = rec
	m.mu.Unlock()
	if old != nil {
		closeBackend(old.Backend)
	}

	m.log.Info("mount configured",
		"name", rec.Name,
		"protocol", rec.Backend.Name(),
		"permission", string(rec.Permission),
		"capabilities", rec.Capabilities.String())
	return nil
}

func (m *Manager) configureProtocol(c Config) (*Record, error) {
	if c.Protocol == "" {
		return nil, &mountfs.ConfigError{Mount: c.Name, Reason: "protocol is required"}
	}
	desc, err := backend.Lookup(c.Protocol)
	if err != nil {
		return nil, &mountfs.ConfigError{Mount: c.Name, Reason: "unknown protocol", Err: err}
	}

	params := make(map[string]any, len(c.Params)+1)
	for k, v := range c.Params {
		params[k] = v
	}
	if c.Path != "" {
		params["path"] = c.Path
	}

	if desc.Validate != nil {
		if err := desc.Validate(params); err != nil {
			return nil, &mountfs.ConfigError{Mount: c.Name, Reason: "invalid parameters", Err: err}
		}
	}
	b, err := desc.New(params)
	if err != nil {
		return nil, &mountfs.ConfigError{Mount: c.Name, Reason: "adapter construction failed", Err: err}
	}

	caps := b.Capabilities()
	perm, err := resolvePermission(c, mountfs.DefaultPermission(caps))
	if err != nil {
		return nil, &mountfs.ConfigError{Mount: c.Name, Reason: "invalid permissions", Err: err}
	}
	return &Record{Name: c.Name, Backend: b, Permission: perm, Capabilities: caps}, nil
}

func (m *Manager) configureDerived(c Config) (*Record, error) {
	parentAddr, err := mountfs.ParseAddress(c.Path)
	if err != nil {
		return nil, &mountfs.ConfigError{Mount: c.Name, Reason: "invalid parent path", Err: err}
	}
	parent, err := m.Resolve(parentAddr.Mount)
	if err != nil {
		return nil, &mountfs.ConfigError{Mount: c.Name, Reason: "unresolvable parent mount", Err: err}
	}

	perm, err := resolvePermission(c, parent.Permission)
	if err != nil {
		return nil, &mountfs.ConfigError{Mount: c.Name, Reason: "invalid permissions", Err: err}
	}
	// a derived mount can only narrow its parent's level
	perm = mountfs.MinPermission(parent.Permission, perm)

	return &Record{
		Name:         c.Name,
		Backend:      newDerivedBackend(parent.Backend, parentAddr.Path),
		Permission:   perm,
		Capabilities: parent.Capabilities,
	}, nil
}

func resolvePermission(c Config, fallback mountfs.Permission) (mountfs.Permission, error) {
	if c.Permissions == "" {
		return fallback, nil
	}
	return mountfs.ParsePermission(c.Permissions)
}

func checkPermissionCeiling(name string, perm mountfs.Permission, caps mountfs.Capability) error {
	if perm.CanWrite() && !caps.Has(mountfs.CapabilityWrite) {
		return &mountfs.ConfigError{Mount: name,
			Reason: `permission "` + string(perm) + `" requires write capability the protocol lacks`}
	}
	if perm.CanDelete() && !caps.Has(mountfs.CapabilityDelete) {
		return &mountfs.ConfigError{Mount: name,
			Reason: `permission "` + string(perm) + `" requires delete capability the protocol lacks`}
	}
	return nil
}

// Resolve returns the mount registered under name.
func (m *Manager) Resolve(name string) (*Record, error) {
	m.mu.RLock()
	rec, ok := m.mounts[name]
	m.mu.RUnlock()
	if !ok {
		return nil, &mountfs.MountNotFoundError{Mount: name, Configured: m.MountNames()}
	}
	return rec, nil
}

// HasMount returns whether name is configured.
func (m *Manager) HasMount(name string) bool {
	m.mu.RLock()
	_, ok := m.mounts[name]
	m.mu.RUnlock()
	return ok
}

// MountNames returns the sorted names of all configured mounts.
func (m *Manager) MountNames() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.mounts))
	for name := range m.mounts {
		names = append(names, name)
	}
	m.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Unmount removes a mount and closes its adapter. Unknown names are a no-op.
func (m *Manager) Unmount(name string) {
	m.mu.Lock()
	rec := m.mounts[name]
	delete(m.mounts, name)
	m.mu.Unlock()
	if rec != nil {
		closeBackend(rec.Backend)
	}
}

// Close closes every adapter and empties the table.
func (m *Manager) Close() error {
	m.mu.Lock()
	mounts := m.mounts
	m.mounts = make(map[string]*Record)
	m.mu.Unlock()

	var firstErr error
	for _, rec := range mounts {
		if err := closeBackend(rec.Backend); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Node resolves an external address into a node.
func (m *Manager) Node(address string, opts ...NodeOption) (*Node, error) {
	addr, err := mountfs.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	rec, err := m.Resolve(addr.Mount)
	if err != nil {
		return nil, err
	}
	return newNode(m, rec, addr, opts...), nil
}

func closeBackend(b mountfs.Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

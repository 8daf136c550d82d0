// Package backend provides the process-wide protocol registry. Concrete
// adapter packages register a Descriptor from their init function; the mount
// table looks protocols up by name when configuring mounts.
package backend

import (
	"sort"
	"sync"

	"github.com/softwell/mountfs"
)

// Factory instantiates an adapter from the backend-specific fields of a mount
// configuration record.
type Factory func(params map[string]any) (mountfs.Backend, error)

// Descriptor ties a protocol name to its configuration schema, capability set
// and adapter factory. Immutable once registered.
type Descriptor struct {
	// Name is the protocol's unique key, ie: os, mem, s3, sftp, b64.
	Name string

	// Capabilities is the full operation set adapters of this protocol can
	// support. It is the ceiling for mount permission validation.
	Capabilities mountfs.Capability

	// Validate checks the backend-specific configuration fields. A nil
	// Validate accepts anything.
	Validate func(params map[string]any) error

	// New builds a configured adapter instance.
	New Factory
}

var mmu sync.RWMutex
var m map[string]Descriptor

// Register adds a protocol descriptor to the registry. Registering the same
// name twice overwrites the prior entry, last registration wins; accidental
// duplicates are expected to be caught by integration tests, not here.
func Register(name string, d Descriptor) {
	d.Name = name
	mmu.Lock()
	m[name] = d
	mmu.Unlock()
}

// Unregister removes a protocol from the registry.
func Unregister(name string) {
	mmu.Lock()
	delete(m, name)
	mmu.Unlock()
}

// UnregisterAll removes all protocols from the registry.
func UnregisterAll() {
	// mainly for tests
	mmu.Lock()
	m = make(map[string]Descriptor)
	mmu.Unlock()
}

// Lookup returns the descriptor registered under name.
func Lookup(name string) (Descriptor, error) {
	mmu.RLock()
	d, ok := m[name]
	mmu.RUnlock()
	if !ok {
		return Descriptor{}, &mountfs.UnknownProtocolError{Protocol: name, Registered: Registered()}
	}
	return d, nil
}

// Registered returns the sorted names of all registered protocols.
func Registered() []string {
	var names []string
	mmu.RLock()
	for k := range m {
		names = append(names, k)
	}
	mmu.RUnlock()
	sort.Strings(names)
	return names
}

func init() {
	m = make(map[string]Descriptor)
}

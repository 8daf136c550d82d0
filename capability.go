package mountfs

import "strings"

// Capability is a bit set describing the operations a protocol's adapter
// supports. A protocol advertises its set once, at registration; optional
// extensions are only invoked after the matching bit is checked.
type Capability uint16

const (
	// CapabilityRead - adapter supports read operations.
	CapabilityRead Capability = 1 << iota

	// CapabilityWrite - adapter supports write operations.
	CapabilityWrite

	// CapabilityDelete - adapter supports delete operations.
	CapabilityDelete

	// CapabilityList - adapter supports listing directory contents.
	CapabilityList

	// CapabilityMkdir - adapter supports creating directories.
	CapabilityMkdir

	// CapabilityMetadata - adapter supports custom key-value metadata.
	CapabilityMetadata

	// CapabilityVersioning - adapter exposes version history.
	CapabilityVersioning

	// CapabilityHash - content fingerprint available from metadata without
	// reading the file.
	CapabilityHash

	// CapabilityPresignedURL - adapter can mint time-limited access URLs.
	CapabilityPresignedURL
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{CapabilityRead, "read"},
	{CapabilityWrite, "write"},
	{CapabilityDelete, "delete"},
	{CapabilityList, "list"},
	{CapabilityMkdir, "mkdir"},
	{CapabilityMetadata, "metadata"},
	{CapabilityVersioning, "versioning"},
	{CapabilityHash, "hash"},
	{CapabilityPresignedURL, "presigned-url"},
}

// Has returns whether every bit of c2 is present in c.
func (c Capability) Has(c2 Capability) bool {
	return c&c2 == c2
}

// String returns a comma-separated list of the set capability names.
func (c Capability) String() string {
	var names []string
	for _, cn := range capabilityNames {
		if c.Has(cn.c) {
			names = append(names, cn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// Permission is a mount's configured privilege level, ordered by increasing
// privilege: readonly < readwrite < delete.
type Permission string

const (
	// PermissionReadOnly permits read-family operations only.
	PermissionReadOnly Permission = "readonly"

	// PermissionReadWrite additionally permits write and mkdir.
	PermissionReadWrite Permission = "readwrite"

	// PermissionDelete permits everything the adapter's capability set allows.
	PermissionDelete Permission = "delete"
)

// ParsePermission validates a configured permission string. The empty string
// is not valid here; defaulting happens at mount configuration time.
func ParsePermission(s string) (Permission, error) {
	switch Permission(s) {
	case PermissionReadOnly, PermissionReadWrite, PermissionDelete:
		return Permission(s), nil
	}
	return "", Error("invalid permission " + `"` + s + `": must be one of readonly, readwrite, delete`)
}

func (p Permission) rank() int {
	switch p {
	case PermissionReadOnly:
		return 0
	case PermissionReadWrite:
		return 1
	case PermissionDelete:
		return 2
	}
	return -1
}

// CanWrite returns whether the level permits write/mkdir operations.
func (p Permission) CanWrite() bool { return p.rank() >= 1 }

// CanDelete returns whether the level permits delete operations.
func (p Permission) CanDelete() bool { return p.rank() >= 2 }

// MinPermission returns the narrower of the two levels. Derived mounts use it
// so a child can only ever narrow its parent's level.
func MinPermission(a, b Permission) Permission {
	if a.rank() <= b.rank() {
		return a
	}
	return b
}

// DefaultPermission returns the widest level the capability set can honor:
// delete when the adapter can delete, readwrite when it can write, otherwise
// readonly.
func DefaultPermission(c Capability) Permission {
	switch {
	case c.Has(CapabilityDelete):
		return PermissionDelete
	case c.Has(CapabilityWrite):
		return PermissionReadWrite
	default:
		return PermissionReadOnly
	}
}

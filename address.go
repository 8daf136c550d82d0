package mountfs

import (
	"path"
	"strings"
)

// Address identifies a node as a (mount name, relative path) pair. The path
// is always normalized: no leading/trailing separators, no empty segments, no
// "..". Two addresses are equal iff both fields are equal.
type Address struct {
	Mount string
	Path  string
}

// ParseAddress parses the external "mount" or "mount:relative/path" form.
//
// The algorithm: split on the first ':' (no ':' means the whole string is a
// mount name with an empty path), split the remainder on '/', drop empty
// segments, reject any ".." segment with a PathError, and re-join. It is pure,
// performs no I/O, and is idempotent over the string form of its own result.
func ParseAddress(address string) (Address, error) {
	mount := address
	rest := ""
	if i := strings.IndexByte(address, ':'); i >= 0 {
		mount, rest = address[:i], address[i+1:]
	}
	p, err := NormalizePath(rest)
	if err != nil {
		return Address{}, &PathError{Address: address, Reason: err.Error()}
	}
	return Address{Mount: mount, Path: p}, nil
}

// NormalizePath collapses redundant separators and strips leading/trailing
// slashes. Any ".." segment is rejected.
func NormalizePath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, part := range parts {
		if part == "" {
			continue
		}
		if part == ".." {
			return "", Error("parent directory traversal is not supported")
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "/"), nil
}

// String returns the external "mount:relative/path" form.
func (a Address) String() string {
	return a.Mount + ":" + a.Path
}

// Join returns the address for the given segments appended to the path, each
// segment re-normalized.
func (a Address) Join(segments ...string) (Address, error) {
	parts := append([]string{a.Path}, segments...)
	p, err := NormalizePath(strings.Join(parts, "/"))
	if err != nil {
		return Address{}, &PathError{Address: a.String() + "/" + strings.Join(segments, "/"), Reason: err.Error()}
	}
	return Address{Mount: a.Mount, Path: p}, nil
}

// Parent returns the address with the last path segment removed. The parent
// of the mount root is the root itself.
func (a Address) Parent() Address {
	if a.Path == "" {
		return a
	}
	i := strings.LastIndexByte(a.Path, '/')
	if i < 0 {
		return Address{Mount: a.Mount}
	}
	return Address{Mount: a.Mount, Path: a.Path[:i]}
}

// Base returns the last path segment, ie: the file name with extension.
func (a Address) Base() string {
	if a.Path == "" {
		return ""
	}
	return path.Base(a.Path)
}

// Ext returns the file extension including the leading dot, or "".
func (a Address) Ext() string {
	return path.Ext(a.Path)
}

// Stem returns the file name without its extension.
func (a Address) Stem() string {
	base := a.Base()
	return strings.TrimSuffix(base, path.Ext(base))
}

// IsRoot returns whether the address points at the mount root.
func (a Address) IsRoot() bool { return a.Path == "" }

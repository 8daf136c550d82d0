// Package utils provides path helpers shared by backend adapters.
package utils

import "strings"

// RemoveTrailingSlash removes trailing slash, if any
func RemoveTrailingSlash(path string) string {
	return strings.TrimRight(path, "/")
}

// RemoveLeadingSlash removes leading slash, if any
func RemoveLeadingSlash(path string) string {
	return strings.TrimLeft(path, "/")
}

// EnsureTrailingSlash adds a trailing slash if one is not already present.
func EnsureTrailingSlash(dir string) string {
	if strings.HasSuffix(dir, "/") {
		return dir
	}
	return dir + "/"
}

// JoinPath joins a base prefix and a mount-relative path with single slashes.
// Either part may be empty.
func JoinPath(base, rel string) string {
	base = RemoveTrailingSlash(base)
	rel = RemoveLeadingSlash(rel)
	switch {
	case base == "":
		return rel
	case rel == "":
		return base
	}
	return base + "/" + rel
}

// BaseName returns the last slash-separated segment of path.
func BaseName(path string) string {
	path = RemoveTrailingSlash(path)
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Ptr returns a pointer to the given value.
func Ptr[T any](value T) *T {
	return &value
}

package mountfs

import (
	"fmt"
	"strings"
)

// Error is a type that allows for error constants below
type Error string

// Error returns a string representation of the error
func (e Error) Error() string { return string(e) }

const (
	// ErrNotExist - file does not exist
	ErrNotExist = Error("file does not exist")

	// ErrExist - file or directory already exists
	ErrExist = Error("file or directory already exists")

	// ErrNotEmpty - directory is not empty and recursive was not set
	ErrNotEmpty = Error("directory not empty, recursive delete required")

	// ErrVersionedWrite - a node bound to a version snapshot is read-only
	ErrVersionedWrite = Error("cannot write to a versioned snapshot")

	// ErrVersionSelector - at most one of version index, version id and as-of
	// time may be set on a node
	ErrVersionSelector = Error("version selectors are mutually exclusive")

	// ErrNotSupported - the adapter's capability set lacks the operation
	ErrNotSupported = Error("operation not supported by backend")
)

// UnknownProtocolError is returned when a protocol name is not present in the
// registry. It carries the registered names so configuration mistakes are
// self-explaining.
type UnknownProtocolError struct {
	Protocol   string
	Registered []string
}

func (e *UnknownProtocolError) Error() string {
	return fmt.Sprintf("unknown protocol %q, registered protocols: %s",
		e.Protocol, strings.Join(e.Registered, ", "))
}

// MountNotFoundError is returned when an address names a mount that has not
// been configured.
type MountNotFoundError struct {
	Mount      string
	Configured []string
}

func (e *MountNotFoundError) Error() string {
	return fmt.Sprintf("mount %q not found, configured mounts: %s",
		e.Mount, strings.Join(e.Configured, ", "))
}

// ConfigError reports an invalid mount or protocol configuration. It is fatal
// at configure time and never retried.
type ConfigError struct {
	Mount  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "invalid mount configuration"
	if e.Mount != "" {
		msg += fmt.Sprintf(" for %q", e.Mount)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// PathError reports a malformed address, rejected before any I/O is attempted.
type PathError struct {
	Address string
	Reason  string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Address, e.Reason)
}

// NotFoundError reports a missing file or directory on an operation that
// requires existence.
type NotFoundError struct {
	Address string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", e.Address, ErrNotExist)
}

func (e *NotFoundError) Unwrap() error { return ErrNotExist }

// PermissionError reports a mutation attempted on a mount whose permission
// level does not allow it.
type PermissionError struct {
	Address    string
	Op         string
	Permission Permission
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s: %s denied, mount permission is %q", e.Address, e.Op, e.Permission)
}

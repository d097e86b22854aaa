package resource

import (
	"fmt"
	"sort"

	"github.com/go-openapi/jsonpointer"
)

// State describes how a resource resolved.
type State int

const (
	// StatePresent means the resource was found and, for
	// structured kinds, parsed.
	StatePresent State = iota
	// StateAbsent means the path does not exist.
	StateAbsent
	// StateMalformed means the file exists but could not be
	// parsed as the declared kind.
	StateMalformed
	// StateUnreadable means the file exists but could not be
	// read (permissions, size limit, encoding, directory).
	StateUnreadable
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StatePresent:
		return "present"
	case StateAbsent:
		return "absent"
	case StateMalformed:
		return "malformed"
	case StateUnreadable:
		return "unreadable"
	default:
		return "unknown"
	}
}

// Value is the resolved form of a single resource key. Values
// are shared between assertions and must be treated as
// read-only, including the parsed Data document.
type Value struct {
	Key   Key
	State State

	// Text holds the file content for text, json and yaml
	// kinds.
	Text string

	// Data holds the parsed document for json and yaml kinds.
	Data any

	// Files holds the sorted, root-relative paths of regular
	// files for tree kinds.
	Files []string

	// Cause describes why the value is malformed or
	// unreadable.
	Cause string
}

// Exists reports whether the underlying path exists.
func (v Value) Exists() bool {
	return v.State != StateAbsent
}

// Usable reports whether predicates may inspect the value. File
// values are always usable since existence is their payload.
func (v Value) Usable() bool {
	if v.Key.Kind == KindFile {
		return true
	}
	return v.State == StatePresent
}

// Problem returns the message an assertion reports when the
// value is not usable.
func (v Value) Problem() string {
	switch v.State {
	case StateAbsent:
		return fmt.Sprintf("%s not found", v.Key.Path)
	case StateMalformed:
		return fmt.Sprintf(
			"%s is malformed: %s", v.Key.Path, v.Cause,
		)
	case StateUnreadable:
		return fmt.Sprintf(
			"%s could not be read: %s", v.Key.Path, v.Cause,
		)
	}
	return ""
}

// Lookup resolves an RFC 6901 JSON pointer against the parsed
// document. The empty pointer returns the whole document.
func (v Value) Lookup(pointer string) (any, error) {
	if !v.Key.Kind.Structured() {
		return nil, fmt.Errorf(
			"%s is not a structured resource", v.Key,
		)
	}
	if v.State != StatePresent {
		return nil, fmt.Errorf("%s", v.Problem())
	}

	ptr, err := jsonpointer.New(pointer)
	if err != nil {
		return nil, fmt.Errorf(
			"invalid pointer %q: %w", pointer, err,
		)
	}

	found, _, err := ptr.Get(v.Data)
	if err != nil {
		return nil, fmt.Errorf(
			"%s has no %s", v.Key.Path, pointer,
		)
	}
	return found, nil
}

// HasFile reports whether a tree value lists the given
// root-relative path.
func (v Value) HasFile(p string) bool {
	i := sort.SearchStrings(v.Files, p)
	return i < len(v.Files) && v.Files[i] == p
}

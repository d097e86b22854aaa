// Package resource resolves the inputs assertions depend on. A
// Provider reads a file tree once per run and produces an
// immutable Context mapping resource keys to resolved values.
package resource

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// Kind selects how a resource is resolved.
type Kind string

// Resource kinds understood by the Provider.
const (
	// KindFile resolves to the existence of a path.
	KindFile Kind = "file"
	// KindText resolves to the full text of a file.
	KindText Kind = "text"
	// KindJSON resolves to a parsed JSON document.
	KindJSON Kind = "json"
	// KindYAML resolves to a parsed YAML document.
	KindYAML Kind = "yaml"
	// KindTree resolves to the list of regular files below a
	// directory.
	KindTree Kind = "tree"
)

// Known reports whether the Provider can resolve this kind.
func (k Kind) Known() bool {
	switch k {
	case KindFile, KindText, KindJSON, KindYAML, KindTree:
		return true
	}
	return false
}

// Structured reports whether values of this kind carry a parsed
// document.
func (k Kind) Structured() bool {
	return k == KindJSON || k == KindYAML
}

// Key identifies a resource as "<kind>:<path>", for example
// "json:manifest.json". Paths are slash-separated and relative
// to the provider root.
type Key struct {
	Kind Kind
	Path string
}

// ParseKey parses a "<kind>:<path>" string. The kind is not
// checked against the known kinds; a key of an unknown kind is
// syntactically valid but never resolved by a Provider.
func ParseKey(s string) (Key, error) {
	kind, p, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || kind == "" {
		return Key{}, fmt.Errorf(
			"resource key %q: expected <kind>:<path>", s,
		)
	}
	if p == "" {
		return Key{}, fmt.Errorf(
			"resource key %q: empty path", s,
		)
	}

	clean := path.Clean(p)
	if !fs.ValidPath(clean) {
		return Key{}, fmt.Errorf(
			"resource key %q: path must be relative and stay inside the root",
			s,
		)
	}

	return Key{Kind: Kind(strings.ToLower(kind)), Path: clean}, nil
}

// MustParseKey is like ParseKey but panics on error. It is
// intended for rule sets declared in Go code.
func MustParseKey(s string) Key {
	k, err := ParseKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

// String returns the "<kind>:<path>" form of the key.
func (k Key) String() string {
	return string(k.Kind) + ":" + k.Path
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

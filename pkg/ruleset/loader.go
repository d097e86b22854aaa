package ruleset

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Format is the encoding of a rule file.
type Format string

const (
	// FormatYAML is a YAML rule file.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON rule file.
	FormatJSON Format = "json"
)

// FormatFromPath picks a format from a file extension. Unknown
// extensions are read as YAML, which also accepts JSON.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes a rule file. Unknown fields are rejected so
// that typos in rule definitions surface as errors.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parse json rules: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse yaml rules: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown rule format: %s", format)
	}
	return &f, nil
}

// LoadFile reads and parses a rule file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to read rule file %s: %w", path, err,
		)
	}
	f, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// LoadDir loads all .json and .yaml/.yml rule files from a
// directory in name order. It does not recurse into
// subdirectories.
func LoadDir(dir string) ([]*File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to read directory %s: %w", dir, err,
		)
	}

	var files []*File
	for _, entry := range entries {
		if entry.IsDir() || !isRuleFile(entry.Name()) {
			continue
		}
		f, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// LoadPaths loads each path as a rule file, or as a directory
// of rule files, and merges the result.
func LoadPaths(paths ...string) (*File, error) {
	var files []*File
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("rule path %s: %w", p, err)
		}
		if info.IsDir() {
			dirFiles, err := LoadDir(p)
			if err != nil {
				return nil, err
			}
			files = append(files, dirFiles...)
			continue
		}
		f, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no rule files found")
	}
	return Merge(files...), nil
}

// Builtin returns a rule file shipped with the checker.
func Builtin(name string) (*File, error) {
	data, err := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf(
			"unknown built-in rule set %q (available: %s)",
			name, strings.Join(BuiltinNames(), ", "),
		)
	}
	return Parse(data, FormatYAML)
}

// BuiltinNames lists the built-in rule sets in sorted order.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

func isRuleFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Package env reads settings from .env files and the process
// environment. Process variables take precedence over values
// loaded from files.
package env

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultPrefix scopes the variables read by the conformance
// tooling.
const DefaultPrefix = "CONFORMANCE_"

// Loader defines the interface for environment variable management.
type Loader interface {
	// Load reads environment variables from a .env file.
	Load(filepath string) error
	// Get retrieves a setting by its unprefixed name.
	Get(name string) string
	// Lookup is like Get but reports whether the setting is
	// present at all.
	Lookup(name string) (string, bool)
	// GetRequired retrieves a required setting or returns error.
	GetRequired(name string) (string, error)
	// GetWithDefault retrieves a setting with a default fallback.
	GetWithDefault(name, defaultValue string) string
	// Set sets a setting in the process environment.
	Set(name, value string) error
	// All returns all loaded file variables.
	All() map[string]string
}

// DefaultLoader implements Loader with .env file support.
type DefaultLoader struct {
	mu     sync.RWMutex
	vars   map[string]string
	loaded bool
	prefix string
}

// NewLoader creates a loader scoped to DefaultPrefix.
func NewLoader() *DefaultLoader {
	return NewLoaderWithPrefix(DefaultPrefix)
}

// NewLoaderWithPrefix creates a loader scoped to prefix. An
// empty prefix reads variables by their plain names.
func NewLoaderWithPrefix(prefix string) *DefaultLoader {
	return &DefaultLoader{
		vars:   make(map[string]string),
		prefix: strings.ToUpper(prefix),
	}
}

// Key returns the variable name for a setting, e.g. "log_level"
// becomes "CONFORMANCE_LOG_LEVEL".
func (l *DefaultLoader) Key(name string) string {
	name = strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if strings.HasPrefix(name, l.prefix) {
		return name
	}
	return l.prefix + name
}

// Loaded reports whether a .env file has been read.
func (l *DefaultLoader) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

func (l *DefaultLoader) Load(filepath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(filepath)
	if err != nil {
		return fmt.Errorf("open env file %s: %w", filepath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		// Remove surrounding quotes
		value = strings.Trim(value, `"'`)
		l.vars[key] = value
	}

	l.loaded = true
	return scanner.Err()
}

func (l *DefaultLoader) Lookup(name string) (string, bool) {
	key := l.Key(name)
	// OS env takes precedence
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.vars[key]
	return v, ok
}

func (l *DefaultLoader) Get(name string) string {
	v, _ := l.Lookup(name)
	return v
}

func (l *DefaultLoader) GetRequired(name string) (string, error) {
	v := l.Get(name)
	if v == "" {
		return "", fmt.Errorf(
			"required environment variable %s is not set", l.Key(name),
		)
	}
	return v, nil
}

func (l *DefaultLoader) GetWithDefault(name, defaultValue string) string {
	if v := l.Get(name); v != "" {
		return v
	}
	return defaultValue
}

// GetBool parses a boolean setting. Unset settings return
// false without error.
func (l *DefaultLoader) GetBool(name string) (bool, bool, error) {
	v, ok := l.Lookup(name)
	if !ok || v == "" {
		return false, false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, true, fmt.Errorf("%s: %w", l.Key(name), err)
	}
	return b, true, nil
}

// GetInt parses an integer setting.
func (l *DefaultLoader) GetInt(name string) (int, bool, error) {
	v, ok := l.Lookup(name)
	if !ok || v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", l.Key(name), err)
	}
	return n, true, nil
}

// GetDuration parses a duration setting such as "250ms".
func (l *DefaultLoader) GetDuration(name string) (time.Duration, bool, error) {
	v, ok := l.Lookup(name)
	if !ok || v == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", l.Key(name), err)
	}
	return d, true, nil
}

func (l *DefaultLoader) Set(name, value string) error {
	key := l.Key(name)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.vars[key] = value
	return os.Setenv(key, value)
}

func (l *DefaultLoader) All() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make(map[string]string, len(l.vars))
	for k, v := range l.vars {
		result[k] = v
	}
	return result
}

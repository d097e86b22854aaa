package assertion

import (
	"fmt"
	"sort"
	"sync"

	"digital.vasic.conformance/pkg/resource"
)

// Factory builds the predicate for one check kind from a
// definition and its parsed resource keys. It returns an error
// when the definition's parameters or keys do not fit the kind.
type Factory func(
	def Definition,
	keys []resource.Key,
) (Predicate, error)

// Engine defines the interface for compiling rule definitions
// into assertions.
type Engine interface {
	// Compile turns a definition into an Assertion belonging
	// to section.
	Compile(section string, def Definition) (Assertion, error)

	// Register adds a custom check kind. Returns an error if
	// the kind is already registered.
	Register(kind string, factory Factory) error

	// HasCheck reports whether kind is registered.
	HasCheck(kind string) bool
}

// DefaultEngine is the standard Engine implementation. It is
// safe for concurrent use.
type DefaultEngine struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewEngine creates a DefaultEngine with all built-in check
// kinds pre-registered.
func NewEngine() *DefaultEngine {
	e := &DefaultEngine{
		factories: make(map[string]Factory),
	}
	e.registerDefaults()
	return e
}

// registerDefaults registers all built-in check kinds.
func (e *DefaultEngine) registerDefaults() {
	e.factories["exists"] = newExists
	e.factories["not_empty"] = newNotEmpty
	e.factories["min_length"] = newMinLength
	e.factories["contains"] = newContains
	e.factories["contains_all"] = newContainsAll
	e.factories["contains_any"] = newContainsAny
	e.factories["starts_with"] = newStartsWith
	e.factories["matches"] = newMatches
	e.factories["json_has"] = newJSONHas
	e.factories["json_equals"] = newJSONEquals
	e.factories["json_type"] = newJSONType
	e.factories["json_contains_all"] = newJSONContainsAll
	e.factories["json_ref_exists"] = newJSONRefExists
	e.factories["all_of"] = e.newAllOf
	e.factories["any_of"] = e.newAnyOf
}

// Register adds a custom check kind.
func (e *DefaultEngine) Register(
	kind string,
	factory Factory,
) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.factories[kind]; exists {
		return fmt.Errorf(
			"check kind already registered: %s", kind,
		)
	}

	e.factories[kind] = factory
	return nil
}

// HasCheck returns true if the given check kind has a
// registered factory.
func (e *DefaultEngine) HasCheck(kind string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, exists := e.factories[kind]
	return exists
}

// Kinds returns the registered check kinds in sorted order.
func (e *DefaultEngine) Kinds() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	kinds := make([]string, 0, len(e.factories))
	for k := range e.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Compile turns a definition into an Assertion.
func (e *DefaultEngine) Compile(
	section string,
	def Definition,
) (Assertion, error) {
	if def.ID == "" {
		return Assertion{}, fmt.Errorf("assertion has no id")
	}

	def = normalize(def)

	severity, err := resolveSeverity(def)
	if err != nil {
		return Assertion{}, fmt.Errorf("%s: %w", def.ID, err)
	}

	keys, err := parseKeys(def.Resources)
	if err != nil {
		return Assertion{}, fmt.Errorf("%s: %w", def.ID, err)
	}

	check, err := e.build(def, keys)
	if err != nil {
		return Assertion{}, fmt.Errorf("%s: %w", def.ID, err)
	}

	return Assertion{
		ID:          def.ID,
		Section:     section,
		Severity:    severity,
		Keys:        keys,
		Description: def.Description,
		Heuristic:   def.Heuristic,
		Check:       check,
	}, nil
}

func (e *DefaultEngine) build(
	def Definition,
	keys []resource.Key,
) (Predicate, error) {
	e.mu.RLock()
	factory, exists := e.factories[def.Check]
	e.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf(
			"unknown check kind: %s", def.Check,
		)
	}
	return factory(def, keys)
}

// normalize expands the compact "kind:value" check form.
func normalize(def Definition) Definition {
	if def.Value != nil {
		return def
	}
	kind, value := ParseCheckString(def.Check)
	def.Check = kind
	def.Value = value
	return def
}

func resolveSeverity(def Definition) (Severity, error) {
	if def.Severity == "" {
		if def.Heuristic {
			return Advisory, nil
		}
		return Blocking, nil
	}
	return ParseSeverity(def.Severity)
}

func parseKeys(raw []string) ([]resource.Key, error) {
	keys := make([]resource.Key, 0, len(raw))
	for _, s := range raw {
		k, err := resource.ParseKey(s)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

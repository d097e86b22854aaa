package assertion

import (
	"fmt"
	"strings"

	"digital.vasic.conformance/pkg/resource"
)

// AllOf returns a predicate that holds when every predicate
// holds. It reports the message of the first failing predicate.
func AllOf(predicates ...Predicate) Predicate {
	return func(values []resource.Value) (bool, string) {
		messages := make([]string, 0, len(predicates))
		for _, p := range predicates {
			ok, msg := p(values)
			if !ok {
				return false, msg
			}
			messages = append(messages, msg)
		}
		return true, strings.Join(messages, "; ")
	}
}

// AnyOf returns a predicate that holds when at least one
// predicate holds. It reports the message of the first passing
// predicate, or all failure messages when none pass.
func AnyOf(predicates ...Predicate) Predicate {
	return func(values []resource.Value) (bool, string) {
		messages := make([]string, 0, len(predicates))
		for _, p := range predicates {
			ok, msg := p(values)
			if ok {
				return true, msg
			}
			messages = append(messages, msg)
		}
		return false, strings.Join(messages, "; ")
	}
}

// Not returns a predicate that inverts p. The message is kept,
// prefixed with "not: " when the inverted predicate fails.
func Not(p Predicate) Predicate {
	return func(values []resource.Value) (bool, string) {
		ok, msg := p(values)
		if ok {
			return false, "not: " + msg
		}
		return true, msg
	}
}

func (e *DefaultEngine) newAllOf(
	def Definition,
	keys []resource.Key,
) (Predicate, error) {
	subs, err := e.compileSubs(def, keys)
	if err != nil {
		return nil, err
	}
	return AllOf(subs...), nil
}

func (e *DefaultEngine) newAnyOf(
	def Definition,
	keys []resource.Key,
) (Predicate, error) {
	subs, err := e.compileSubs(def, keys)
	if err != nil {
		return nil, err
	}
	return AnyOf(subs...), nil
}

// compileSubs builds the predicates of a composite check. Each
// sub definition reads either the parent's resources or a subset
// of them; its predicate receives only the values it declared.
func (e *DefaultEngine) compileSubs(
	def Definition,
	keys []resource.Key,
) ([]Predicate, error) {
	if len(def.Of) == 0 {
		return nil, fmt.Errorf("%s requires sub-checks", def.Check)
	}

	subs := make([]Predicate, 0, len(def.Of))
	for i, sub := range def.Of {
		sub = normalize(sub)

		subKeys := keys
		if len(sub.Resources) > 0 {
			parsed, err := parseKeys(sub.Resources)
			if err != nil {
				return nil, fmt.Errorf("sub-check %d: %w", i, err)
			}
			subKeys = parsed
		}

		index, err := indexKeys(keys, subKeys)
		if err != nil {
			return nil, fmt.Errorf("sub-check %d: %w", i, err)
		}

		p, err := e.build(sub, subKeys)
		if err != nil {
			return nil, fmt.Errorf("sub-check %d: %w", i, err)
		}
		subs = append(subs, selectValues(index, p))
	}
	return subs, nil
}

// indexKeys maps each sub key to its position in the parent
// keys.
func indexKeys(parent, sub []resource.Key) ([]int, error) {
	index := make([]int, len(sub))
	for i, k := range sub {
		pos := -1
		for j, pk := range parent {
			if pk == k {
				pos = j
				break
			}
		}
		if pos < 0 {
			return nil, fmt.Errorf(
				"resource %s is not declared by the parent", k,
			)
		}
		index[i] = pos
	}
	return index, nil
}

func selectValues(index []int, p Predicate) Predicate {
	return func(values []resource.Value) (bool, string) {
		selected := make([]resource.Value, len(index))
		for i, pos := range index {
			selected[i] = values[pos]
		}
		return p(selected)
	}
}

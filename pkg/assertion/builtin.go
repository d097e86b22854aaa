package assertion

import (
	"fmt"
	"io/fs"
	"path"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"digital.vasic.conformance/pkg/resource"
)

// newExists checks that a file: resource exists.
func newExists(
	_ Definition,
	keys []resource.Key,
) (Predicate, error) {
	if err := expectKeys(keys, []resource.Kind{resource.KindFile}); err != nil {
		return nil, err
	}
	return func(values []resource.Value) (bool, string) {
		v := values[0]
		if v.Exists() {
			return true, "file exists"
		}
		return false, v.Problem()
	}, nil
}

// newNotEmpty checks that a text resource has non-blank
// content.
func newNotEmpty(
	_ Definition,
	keys []resource.Key,
) (Predicate, error) {
	if err := expectKeys(keys, textKinds); err != nil {
		return nil, err
	}
	return func(values []resource.Value) (bool, string) {
		if strings.TrimSpace(values[0].Text) == "" {
			return false, "file is empty"
		}
		return true, "file has content"
	}, nil
}

// newMinLength checks that a text resource meets a minimum
// character length.
func newMinLength(
	def Definition,
	keys []resource.Key,
) (Predicate, error) {
	if err := expectKeys(keys, textKinds); err != nil {
		return nil, err
	}
	minLength, ok := toInt(def.Value)
	if !ok {
		return nil, fmt.Errorf("value is not a number")
	}
	return func(values []resource.Value) (bool, string) {
		actual := len(values[0].Text)
		if actual >= minLength {
			return true, fmt.Sprintf(
				"length %d >= %d", actual, minLength,
			)
		}
		return false, fmt.Sprintf(
			"length %d < %d", actual, minLength,
		)
	}, nil
}

// newContains checks that a text resource contains the
// expected substring.
func newContains(
	def Definition,
	keys []resource.Key,
) (Predicate, error) {
	if err := expectKeys(keys, textKinds); err != nil {
		return nil, err
	}
	expected, ok := def.Value.(string)
	if !ok || expected == "" {
		return nil, fmt.Errorf("value is not a non-empty string")
	}
	match := substringMatcher(def.IgnoreCase)
	return func(values []resource.Value) (bool, string) {
		if match(values[0].Text, expected) {
			return true, fmt.Sprintf("contains '%s'", expected)
		}
		return false, fmt.Sprintf("missing '%s'", expected)
	}, nil
}

// newContainsAll checks that a text resource contains every
// expected substring.
func newContainsAll(
	def Definition,
	keys []resource.Key,
) (Predicate, error) {
	if err := expectKeys(keys, textKinds); err != nil {
		return nil, err
	}
	expected, err := stringValues(def)
	if err != nil {
		return nil, err
	}
	match := substringMatcher(def.IgnoreCase)
	return func(values []resource.Value) (bool, string) {
		var missing []string
		for _, s := range expected {
			if !match(values[0].Text, s) {
				missing = append(missing, s)
			}
		}
		if len(missing) > 0 {
			return false, fmt.Sprintf(
				"missing: %s", quoteJoin(missing),
			)
		}
		return true, fmt.Sprintf(
			"contains all of: %s", quoteJoin(expected),
		)
	}, nil
}

// newContainsAny checks that a text resource contains at least
// one of the expected substrings.
func newContainsAny(
	def Definition,
	keys []resource.Key,
) (Predicate, error) {
	if err := expectKeys(keys, textKinds); err != nil {
		return nil, err
	}
	expected, err := stringValues(def)
	if err != nil {
		return nil, err
	}
	match := substringMatcher(def.IgnoreCase)
	return func(values []resource.Value) (bool, string) {
		for _, s := range expected {
			if match(values[0].Text, s) {
				return true, fmt.Sprintf("contains '%s'", s)
			}
		}
		return false, fmt.Sprintf(
			"contains none of: %s", quoteJoin(expected),
		)
	}, nil
}

// newStartsWith checks that the trimmed text of a resource
// starts with the expected prefix.
func newStartsWith(
	def Definition,
	keys []resource.Key,
) (Predicate, error) {
	if err := expectKeys(keys, textKinds); err != nil {
		return nil, err
	}
	prefix, ok := def.Value.(string)
	if !ok || prefix == "" {
		return nil, fmt.Errorf("value is not a non-empty string")
	}
	return func(values []resource.Value) (bool, string) {
		text := strings.TrimSpace(values[0].Text)
		if strings.HasPrefix(text, prefix) {
			return true, fmt.Sprintf("starts with '%s'", prefix)
		}
		return false, fmt.Sprintf(
			"does not start with '%s'", prefix,
		)
	}, nil
}

// newMatches checks a text resource against a regular
// expression compiled once at build time.
func newMatches(
	def Definition,
	keys []resource.Key,
) (Predicate, error) {
	if err := expectKeys(keys, textKinds); err != nil {
		return nil, err
	}
	pattern, ok := def.Value.(string)
	if !ok || pattern == "" {
		return nil, fmt.Errorf("value is not a non-empty string")
	}
	if def.IgnoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return func(values []resource.Value) (bool, string) {
		if re.MatchString(values[0].Text) {
			return true, fmt.Sprintf("matches /%s/", pattern)
		}
		return false, fmt.Sprintf(
			"does not match /%s/", pattern,
		)
	}, nil
}

// newJSONHas checks that a pointer resolves in a structured
// resource.
func newJSONHas(
	def Definition,
	keys []resource.Key,
) (Predicate, error) {
	if err := expectKeys(keys, structuredKinds); err != nil {
		return nil, err
	}
	if err := requirePointer(def); err != nil {
		return nil, err
	}
	return func(values []resource.Value) (bool, string) {
		if _, err := values[0].Lookup(def.Pointer); err != nil {
			return false, missingField(def.Pointer)
		}
		return true, fmt.Sprintf("has %s", fieldName(def.Pointer))
	}, nil
}

// newJSONEquals checks that the value at a pointer equals the
// expected value. Numbers compare numerically, so a YAML rule
// value of 3 matches a JSON 3.
func newJSONEquals(
	def Definition,
	keys []resource.Key,
) (Predicate, error) {
	if err := expectKeys(keys, structuredKinds); err != nil {
		return nil, err
	}
	if err := requirePointer(def); err != nil {
		return nil, err
	}
	if def.Value == nil {
		return nil, fmt.Errorf("value is required")
	}
	return func(values []resource.Value) (bool, string) {
		actual, err := values[0].Lookup(def.Pointer)
		if err != nil {
			return false, missingField(def.Pointer)
		}
		if !equalValues(def.Value, actual) {
			return false, fmt.Sprintf(
				"expected %v, got %v", def.Value, actual,
			)
		}
		return true, fmt.Sprintf(
			"%s is %v", fieldName(def.Pointer), actual,
		)
	}, nil
}

// newJSONType checks the type of the value at a pointer.
func newJSONType(
	def Definition,
	keys []resource.Key,
) (Predicate, error) {
	if err := expectKeys(keys, structuredKinds); err != nil {
		return nil, err
	}
	if err := requirePointer(def); err != nil {
		return nil, err
	}
	expected, ok := def.Value.(string)
	if !ok {
		return nil, fmt.Errorf("value is not a type name")
	}
	switch expected {
	case "string", "number", "boolean", "object", "array", "null":
	default:
		return nil, fmt.Errorf("unknown type name: %s", expected)
	}
	return func(values []resource.Value) (bool, string) {
		actual, err := values[0].Lookup(def.Pointer)
		if err != nil {
			return false, missingField(def.Pointer)
		}
		if got := typeName(actual); got != expected {
			return false, fmt.Sprintf(
				"expected %s, got %s", expected, got,
			)
		}
		return true, fmt.Sprintf("valid %s", expected)
	}, nil
}

// newJSONContainsAll checks that the array at a pointer holds
// every expected element.
func newJSONContainsAll(
	def Definition,
	keys []resource.Key,
) (Predicate, error) {
	if err := expectKeys(keys, structuredKinds); err != nil {
		return nil, err
	}
	if err := requirePointer(def); err != nil {
		return nil, err
	}
	if len(def.Values) == 0 {
		return nil, fmt.Errorf("values are required")
	}
	return func(values []resource.Value) (bool, string) {
		actual, err := values[0].Lookup(def.Pointer)
		if err != nil {
			return false, fmt.Sprintf(
				"no %s field found", fieldName(def.Pointer),
			)
		}
		items, ok := actual.([]any)
		if !ok {
			return false, fmt.Sprintf(
				"%s is not an array", fieldName(def.Pointer),
			)
		}

		var missing []string
		for _, want := range def.Values {
			found := false
			for _, item := range items {
				if equalValues(want, item) {
					found = true
					break
				}
			}
			if !found {
				missing = append(missing, fmt.Sprint(want))
			}
		}
		if len(missing) > 0 {
			return false, fmt.Sprintf(
				"missing %s: %s",
				fieldName(def.Pointer), quoteJoin(missing),
			)
		}
		return true, fmt.Sprintf(
			"all required %s present", fieldName(def.Pointer),
		)
	}, nil
}

// newJSONRefExists checks that every path referenced at a
// pointer exists in the tree. References may be a string, an
// array of strings, or an object whose values are strings, and
// are resolved relative to the document's directory.
func newJSONRefExists(
	def Definition,
	keys []resource.Key,
) (Predicate, error) {
	if err := expectKeys(
		keys, structuredKinds, []resource.Kind{resource.KindTree},
	); err != nil {
		return nil, err
	}
	if err := requirePointer(def); err != nil {
		return nil, err
	}
	return func(values []resource.Value) (bool, string) {
		doc, tree := values[0], values[1]

		actual, err := doc.Lookup(def.Pointer)
		if err != nil {
			return false, fmt.Sprintf(
				"%s not configured", fieldName(def.Pointer),
			)
		}
		refs, ok := referencedPaths(actual)
		if !ok || len(refs) == 0 {
			return false, fmt.Sprintf(
				"%s does not reference any file",
				fieldName(def.Pointer),
			)
		}

		base := path.Dir(doc.Key.Path)
		var missing []string
		for _, ref := range refs {
			p := path.Join(base, ref)
			if !fs.ValidPath(p) || !tree.HasFile(p) {
				missing = append(missing, ref)
			}
		}
		if len(missing) > 0 {
			return false, fmt.Sprintf(
				"referenced file not found: %s",
				strings.Join(missing, ", "),
			)
		}
		return true, fmt.Sprintf(
			"referenced file exists: %s",
			strings.Join(refs, ", "),
		)
	}, nil
}

// --- helpers ---

var (
	textKinds = []resource.Kind{
		resource.KindText, resource.KindJSON, resource.KindYAML,
	}
	structuredKinds = []resource.Kind{
		resource.KindJSON, resource.KindYAML,
	}
)

// expectKeys checks that keys has exactly one key per position
// and that each key's kind is allowed at its position.
func expectKeys(
	keys []resource.Key,
	positions ...[]resource.Kind,
) error {
	if len(keys) != len(positions) {
		return fmt.Errorf(
			"expected %d resource(s), got %d",
			len(positions), len(keys),
		)
	}
	for i, allowed := range positions {
		ok := false
		for _, kind := range allowed {
			if keys[i].Kind == kind {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf(
				"resource %s: kind %q not supported here (want %s)",
				keys[i], keys[i].Kind, kindList(allowed),
			)
		}
	}
	return nil
}

func kindList(kinds []resource.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, "|")
}

func requirePointer(def Definition) error {
	if def.Pointer == "" {
		return fmt.Errorf("pointer is required")
	}
	return nil
}

func substringMatcher(ignoreCase bool) func(s, sub string) bool {
	if ignoreCase {
		return func(s, sub string) bool {
			return strings.Contains(
				strings.ToLower(s), strings.ToLower(sub),
			)
		}
	}
	return strings.Contains
}

// stringValues collects the expected strings of a multi-value
// check from Values, or from Value when it is a list.
func stringValues(def Definition) ([]string, error) {
	raw := def.Values
	if len(raw) == 0 {
		switch v := def.Value.(type) {
		case []any:
			raw = v
		case string:
			for _, s := range strings.Split(v, ",") {
				raw = append(raw, strings.TrimSpace(s))
			}
		}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("values are required")
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf(
				"value %v is not a non-empty string", item,
			)
		}
		out = append(out, s)
	}
	return out, nil
}

func quoteJoin(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	return strings.Join(quoted, ", ")
}

// fieldName renders a pointer as a dotted field path for
// messages: "/background/service_worker" becomes
// "background.service_worker".
func fieldName(pointer string) string {
	return strings.ReplaceAll(
		strings.TrimPrefix(pointer, "/"), "/", ".",
	)
}

func missingField(pointer string) string {
	return fmt.Sprintf(
		"missing required field %s", fieldName(pointer),
	)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	if _, ok := toFloat64(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

// equalValues compares a rule value with a document value.
// Numbers of any Go type compare by numeric value.
func equalValues(expected, actual any) bool {
	ef, eok := toFloat64(expected)
	af, aok := toFloat64(actual)
	if eok || aok {
		return eok && aok && ef == af
	}
	return reflect.DeepEqual(expected, actual)
}

// referencedPaths extracts file references from a document
// value. Object values are returned in key order.
func referencedPaths(v any) ([]string, bool) {
	switch val := v.(type) {
	case string:
		return []string{val}, true
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(val))
		for _, k := range keys {
			s, ok := val[k].(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// toInt converts an any value to int.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	case int64:
		return int(n), true
	}
	return 0, false
}

// toFloat64 converts an any value to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

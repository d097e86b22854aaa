package assertion

import "strings"

// ParseCheckString parses a compact check string of the form
// "kind:value" into its components. If no colon is present the
// entire string is treated as the kind and value is nil.
//
// Examples:
//
//	"contains:chrome."  -> ("contains", "chrome.")
//	"not_empty"         -> ("not_empty", nil)
//	"matches:^<!DOCTYPE" -> ("matches", "^<!DOCTYPE")
func ParseCheckString(
	s string,
) (kind string, value any) {
	parts := strings.SplitN(s, ":", 2)
	kind = strings.TrimSpace(parts[0])

	if len(parts) > 1 {
		value = parts[1]
	}

	return
}

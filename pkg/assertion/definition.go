package assertion

// Definition describes a single assertion declaratively, as it
// appears in a rule file. The Engine compiles it into an
// Assertion.
type Definition struct {
	// ID is the stable identifier of the assertion.
	ID string `json:"id" yaml:"id"`

	// Check is the registered check kind (e.g., "contains",
	// "json_equals"). The compact form "kind:value" is
	// accepted when Value is unset.
	Check string `json:"check" yaml:"check"`

	// Resources lists the resource keys the check reads, in
	// the order the check expects them.
	Resources []string `json:"resources,omitempty" yaml:"resources,omitempty"`

	// Severity is "blocking" or "advisory". It defaults to
	// advisory for heuristic checks and blocking otherwise.
	Severity string `json:"severity,omitempty" yaml:"severity,omitempty"`

	// Pointer is the JSON pointer used by structured checks.
	Pointer string `json:"pointer,omitempty" yaml:"pointer,omitempty"`

	// Value is the expected value for single-value checks.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`

	// Values holds expected values for multi-value checks
	// (e.g., "contains_all").
	Values []any `json:"values,omitempty" yaml:"values,omitempty"`

	// IgnoreCase makes substring checks case-insensitive.
	IgnoreCase bool `json:"ignore_case,omitempty" yaml:"ignore_case,omitempty"`

	// Heuristic marks the check as a raw textual hint.
	Heuristic bool `json:"heuristic,omitempty" yaml:"heuristic,omitempty"`

	// Of holds the sub-checks of "all_of" and "any_of". Sub
	// definitions without resources inherit the parent's. The
	// parent's resources are resolved before any sub-check runs,
	// so an absent or malformed resource fails the whole check,
	// including "any_of". Use "file:" keys for optional files.
	Of []Definition `json:"of,omitempty" yaml:"of,omitempty"`

	// Description is the human-readable purpose of the check.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

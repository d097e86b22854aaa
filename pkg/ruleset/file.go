package ruleset

import "digital.vasic.conformance/pkg/assertion"

// File is the on-disk structure of a rule file (YAML or JSON).
type File struct {
	Version     string        `json:"version" yaml:"version"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Sections    []SectionFile `json:"sections" yaml:"sections"`

	// NextSteps holds guidance printed after the summary.
	NextSteps *NextSteps `json:"next_steps,omitempty" yaml:"next_steps,omitempty"`
}

// SectionFile is one named group of rule definitions.
type SectionFile struct {
	Name  string                 `json:"name" yaml:"name"`
	Rules []assertion.Definition `json:"rules" yaml:"rules"`
}

// NextSteps is the guidance shown when a run passes or fails.
type NextSteps struct {
	Pass []string `json:"pass,omitempty" yaml:"pass,omitempty"`
	Fail []string `json:"fail,omitempty" yaml:"fail,omitempty"`
}

// RuleCount returns the number of rule definitions in the file.
func (f *File) RuleCount() int {
	n := 0
	for _, s := range f.Sections {
		n += len(s.Rules)
	}
	return n
}

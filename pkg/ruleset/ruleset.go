// Package ruleset loads, validates and compiles declarative rule
// files into ordered sections of assertions.
package ruleset

import (
	"digital.vasic.conformance/pkg/assertion"
	"digital.vasic.conformance/pkg/resource"
)

// Section is a named, ordered group of assertions.
type Section struct {
	Name       string
	Assertions []assertion.Assertion
}

// RuleSet is an ordered collection of sections. Its assertion
// order is the declaration order used in reports.
type RuleSet struct {
	Name        string
	Version     string
	Description string
	Sections    []Section
	NextSteps   NextSteps
}

// Assertions returns every assertion, section by section, in
// declaration order.
func (rs *RuleSet) Assertions() []assertion.Assertion {
	var out []assertion.Assertion
	for _, s := range rs.Sections {
		out = append(out, s.Assertions...)
	}
	return out
}

// Keys returns the distinct resource keys declared by the
// rule set, in order of first use.
func (rs *RuleSet) Keys() []resource.Key {
	seen := make(map[resource.Key]bool)
	var keys []resource.Key
	for _, s := range rs.Sections {
		for _, a := range s.Assertions {
			for _, k := range a.Keys {
				if seen[k] {
					continue
				}
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// Len returns the number of assertions.
func (rs *RuleSet) Len() int {
	n := 0
	for _, s := range rs.Sections {
		n += len(s.Assertions)
	}
	return n
}

// Filter returns a copy of the rule set keeping only the named
// sections. Unknown names are ignored; an empty list keeps
// everything.
func (rs *RuleSet) Filter(sections ...string) *RuleSet {
	if len(sections) == 0 {
		return rs
	}
	keep := make(map[string]bool, len(sections))
	for _, s := range sections {
		keep[s] = true
	}

	out := *rs
	out.Sections = nil
	for _, s := range rs.Sections {
		if keep[s.Name] {
			out.Sections = append(out.Sections, s)
		}
	}
	return &out
}

// Compile validates f and compiles every rule with engine. It
// returns ValidationErrors when the file has any problem.
func Compile(
	engine assertion.Engine,
	f *File,
) (*RuleSet, error) {
	if errs := Validate(engine, f); len(errs) > 0 {
		return nil, errs
	}

	rs := &RuleSet{
		Name:        f.Name,
		Version:     f.Version,
		Description: f.Description,
	}
	if f.NextSteps != nil {
		rs.NextSteps = *f.NextSteps
	}

	for _, sf := range f.Sections {
		section := Section{
			Name:       sf.Name,
			Assertions: make([]assertion.Assertion, 0, len(sf.Rules)),
		}
		for _, def := range sf.Rules {
			a, err := engine.Compile(sf.Name, def)
			if err != nil {
				return nil, err
			}
			section.Assertions = append(section.Assertions, a)
		}
		rs.Sections = append(rs.Sections, section)
	}
	return rs, nil
}

// Merge concatenates rule files into one. The first file's
// name, version and next steps win.
func Merge(files ...*File) *File {
	if len(files) == 0 {
		return &File{}
	}
	out := *files[0]
	out.Sections = nil
	for _, f := range files {
		out.Sections = append(out.Sections, f.Sections...)
	}
	return &out
}

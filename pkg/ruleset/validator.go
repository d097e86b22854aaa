package ruleset

import (
	"fmt"
	"strings"

	"digital.vasic.conformance/pkg/assertion"
)

// ValidationError represents a problem found in a rule file.
type ValidationError struct {
	Section int // -1 if not applicable
	Index   int // -1 if not applicable
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	switch {
	case e.Section >= 0 && e.Index >= 0:
		return fmt.Sprintf(
			"sections[%d].rules[%d].%s: %s",
			e.Section, e.Index, e.Field, e.Message,
		)
	case e.Section >= 0:
		return fmt.Sprintf(
			"sections[%d].%s: %s", e.Section, e.Field, e.Message,
		)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem of a rule file.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.Error()
	}
	return fmt.Sprintf(
		"invalid rule file (%d problem(s)):\n  %s",
		len(errs), strings.Join(lines, "\n  "),
	)
}

// Validate checks a rule file against the engine's check kinds
// and returns all problems found.
func Validate(
	engine assertion.Engine,
	f *File,
) ValidationErrors {
	var errs ValidationErrors

	if f.Version == "" {
		errs = append(errs, ValidationError{
			Section: -1, Index: -1,
			Field: "version", Message: "version is required",
		})
	}
	if len(f.Sections) == 0 {
		errs = append(errs, ValidationError{
			Section: -1, Index: -1,
			Field: "sections", Message: "at least one section is required",
		})
	}

	ids := make(map[string]bool)
	for si, s := range f.Sections {
		if s.Name == "" {
			errs = append(errs, ValidationError{
				Section: si, Index: -1,
				Field: "name", Message: "section name is required",
			})
		}
		if len(s.Rules) == 0 {
			errs = append(errs, ValidationError{
				Section: si, Index: -1,
				Field: "rules", Message: "section has no rules",
			})
		}

		for ri, def := range s.Rules {
			at := func(field, msg string) ValidationError {
				return ValidationError{
					Section: si, Index: ri,
					Field: field, Message: msg,
				}
			}

			switch {
			case def.ID == "":
				errs = append(errs, at("id", "rule ID is required"))
			case ids[def.ID]:
				errs = append(errs, at("id",
					fmt.Sprintf("duplicate ID: %s", def.ID)))
			default:
				ids[def.ID] = true
			}

			if def.Severity != "" {
				if _, err := assertion.ParseSeverity(def.Severity); err != nil {
					errs = append(errs, at("severity", err.Error()))
				}
			}

			kind := def.Check
			if def.Value == nil {
				kind, _ = assertion.ParseCheckString(def.Check)
			}
			if kind == "" {
				errs = append(errs, at("check", "check is required"))
				continue
			}
			if !engine.HasCheck(kind) {
				errs = append(errs, at("check",
					fmt.Sprintf("unknown check kind: %s", kind)))
				continue
			}

			if def.ID == "" {
				continue
			}
			if _, err := engine.Compile(s.Name, def); err != nil {
				msg := strings.TrimPrefix(err.Error(), def.ID+": ")
				if !strings.Contains(msg, "unknown severity") {
					errs = append(errs, at("check", msg))
				}
			}
		}
	}

	return errs
}

package assertion

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"digital.vasic.conformance/pkg/resource"
)

// ConfigurationError reports an assertion that cannot be
// evaluated because the rule definition itself is broken, for
// example a declared key the Context never produced. It aborts
// the whole run; no outcomes are produced.
type ConfigurationError struct {
	AssertionID string
	Key         resource.Key
	Reason      string
}

func (e *ConfigurationError) Error() string {
	if e.Key != (resource.Key{}) {
		return fmt.Sprintf(
			"configuration error: assertion %q: %s: %s",
			e.AssertionID, e.Reason, e.Key,
		)
	}
	return fmt.Sprintf(
		"configuration error: assertion %q: %s",
		e.AssertionID, e.Reason,
	)
}

// Evaluate runs every assertion against the Context and returns
// one Outcome per assertion in declaration order. It returns a
// *ConfigurationError, and no outcomes, if any assertion
// declares a key missing from the Context or has no check.
func Evaluate(
	assertions []Assertion,
	c *resource.Context,
) ([]Outcome, error) {
	if err := checkConfiguration(assertions, c); err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(assertions))
	for i, a := range assertions {
		outcomes[i] = evaluateOne(a, c)
	}
	return outcomes, nil
}

// EvaluateParallel is Evaluate with at most workers assertions
// evaluated concurrently. Outcomes are written to their
// declaration index, so the result is identical to Evaluate.
func EvaluateParallel(
	assertions []Assertion,
	c *resource.Context,
	workers int,
) ([]Outcome, error) {
	if workers <= 1 {
		return Evaluate(assertions, c)
	}
	if err := checkConfiguration(assertions, c); err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(assertions))

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range assertions {
		g.Go(func() error {
			outcomes[i] = evaluateOne(assertions[i], c)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, nil
}

func checkConfiguration(
	assertions []Assertion,
	c *resource.Context,
) error {
	for _, a := range assertions {
		if a.Check == nil {
			return &ConfigurationError{
				AssertionID: a.ID,
				Reason:      "no check defined",
			}
		}
		for _, k := range a.Keys {
			if _, ok := c.Lookup(k); !ok {
				return &ConfigurationError{
					AssertionID: a.ID,
					Key:         k,
					Reason:      "resource not provided by context",
				}
			}
		}
	}
	return nil
}

// evaluateOne resolves the assertion's values and invokes its
// predicate. Unusable values fail the assertion with the value's
// own explanation; the predicate never sees them.
func evaluateOne(a Assertion, c *resource.Context) Outcome {
	severity := a.Severity
	if severity == "" {
		severity = Blocking
	}

	outcome := Outcome{
		AssertionID: a.ID,
		Section:     a.Section,
		Severity:    severity,
		Description: a.Description,
		Heuristic:   a.Heuristic,
	}

	values := make([]resource.Value, len(a.Keys))
	for i, k := range a.Keys {
		v, _ := c.Lookup(k)
		if !v.Usable() {
			outcome.Message = v.Problem()
			return outcome
		}
		values[i] = v
	}

	outcome.Passed, outcome.Message = a.Check(values)
	return outcome
}

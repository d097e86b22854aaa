package report

import "digital.vasic.conformance/pkg/assertion"

// Totals holds the outcome counts of a run. Run always equals
// Passed + Failed + Warned.
type Totals struct {
	Run    int `json:"run"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Warned int `json:"warned"`
}

// Report is the aggregated result of one evaluation. It holds
// no timestamps or identifiers, so the same outcomes always
// produce the same Report.
type Report struct {
	Totals      Totals              `json:"totals"`
	SuccessRate float64             `json:"success_rate"`
	Outcomes    []assertion.Outcome `json:"outcomes"`
}

// SectionSummary holds the totals of one section.
type SectionSummary struct {
	Name   string `json:"name"`
	Totals Totals `json:"totals"`
}

// Aggregate folds outcomes into a Report. Non-passed outcomes
// are split by severity into failed (blocking) and warned
// (advisory). The outcome order is kept unchanged.
func Aggregate(outcomes []assertion.Outcome) *Report {
	r := &Report{
		Outcomes: make([]assertion.Outcome, len(outcomes)),
	}
	copy(r.Outcomes, outcomes)

	r.Totals = tally(outcomes)
	if r.Totals.Run > 0 {
		r.SuccessRate = float64(r.Totals.Passed) /
			float64(r.Totals.Run)
	}
	return r
}

func tally(outcomes []assertion.Outcome) Totals {
	var t Totals
	for _, o := range outcomes {
		t.Run++
		switch {
		case o.Passed:
			t.Passed++
		case o.Failed():
			t.Failed++
		default:
			t.Warned++
		}
	}
	return t
}

// OK reports whether the run has no blocking failures.
func (r *Report) OK() bool {
	return r.Totals.Failed == 0
}

// Clean reports whether the run has neither failures nor
// warnings.
func (r *Report) Clean() bool {
	return r.Totals.Failed == 0 && r.Totals.Warned == 0
}

// Failures returns the blocking failures in order.
func (r *Report) Failures() []assertion.Outcome {
	var out []assertion.Outcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			out = append(out, o)
		}
	}
	return out
}

// Warnings returns the advisory failures in order.
func (r *Report) Warnings() []assertion.Outcome {
	var out []assertion.Outcome
	for _, o := range r.Outcomes {
		if o.Warned() {
			out = append(out, o)
		}
	}
	return out
}

// Sections returns per-section totals in order of first
// appearance.
func (r *Report) Sections() []SectionSummary {
	index := make(map[string]int)
	var out []SectionSummary
	for _, o := range r.Outcomes {
		i, ok := index[o.Section]
		if !ok {
			i = len(out)
			index[o.Section] = i
			out = append(out, SectionSummary{Name: o.Section})
		}
		t := &out[i].Totals
		t.Run++
		switch {
		case o.Passed:
			t.Passed++
		case o.Failed():
			t.Failed++
		default:
			t.Warned++
		}
	}
	return out
}

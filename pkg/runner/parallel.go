package runner

import (
	"context"

	"golang.org/x/sync/errgroup"

	"digital.vasic.conformance/pkg/ruleset"
)

// runParallel checks roots with at most maxConcurrency runs in
// flight. Each run writes to its root's index, so results come
// back in the order of roots. Roots whose run failed are left
// out and the error of the first such root is returned.
func runParallel(
	ctx context.Context,
	r *DefaultRunner,
	roots []string,
	rs *ruleset.RuleSet,
	maxConcurrency int,
) ([]*Result, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	results := make([]*Result, len(roots))
	errs := make([]error, len(roots))

	var g errgroup.Group
	g.SetLimit(maxConcurrency)
	for i, root := range roots {
		g.Go(func() error {
			res, err := r.Run(ctx, root, rs)
			if err != nil {
				errs[i] = rootError(root, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var firstErr error
	ordered := make([]*Result, 0, len(roots))
	for i, res := range results {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		ordered = append(ordered, res)
	}
	return ordered, firstErr
}

// Package doctor runs diagnostic checks on the client setup: configuration,
// persisted session, API reachability and the push endpoint.
package doctor

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Status is the outcome of one check item.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// CheckItem is one line of a check result. Fixable items are repaired when
// the check runs with autofix enabled.
type CheckItem struct {
	Label   string `json:"label"`
	Status  Status `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Fixable bool   `json:"fixable,omitempty"`
}

type Result struct {
	Name  string      `json:"name"`
	Items []CheckItem `json:"items"`
}

type Check interface {
	Name() string
	Run(ctx context.Context) Result
}

// RunAll runs the checks concurrently. Results keep the order of checks.
func RunAll(ctx context.Context, checks []Check) []Result {
	results := make([]Result, len(checks))

	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			results[i] = check.Run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Summary counts items per status across results.
func Summary(results []Result) (passed, warned, failed int) {
	for _, item := range items(results) {
		switch item.Status {
		case StatusPass:
			passed++
		case StatusWarn:
			warned++
		case StatusFail:
			failed++
		}
	}
	return passed, warned, failed
}

// CountFixable counts the failing or warning items autofix would repair.
func CountFixable(results []Result) int {
	n := 0
	for _, item := range items(results) {
		if item.Fixable && item.Status != StatusPass {
			n++
		}
	}
	return n
}

func items(results []Result) []CheckItem {
	var all []CheckItem
	for _, r := range results {
		all = append(all, r.Items...)
	}
	return all
}

// Package batch fans plan generation out across many agents with a
// bounded worker pool. One agent's failure never aborts the batch; the
// caller gets a per-agent result either way.
package batch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quintalabs/fieldplan/internal/contract"
	"github.com/quintalabs/fieldplan/internal/domain"
	"github.com/quintalabs/fieldplan/internal/service"
)

const defaultConcurrency = 4

// Result is the outcome of one agent's generation.
type Result struct {
	AgentID  string
	Plan     *domain.Plan
	Warnings []string
	Skipped  []contract.SkippedRecord
	Err      error
	Elapsed  time.Duration
}

// ProgressFunc is invoked after each agent completes, with the running
// completion count. Calls are serialized.
type ProgressFunc func(done, total int, r Result)

// Runner drives concurrent plan generation.
type Runner struct {
	plans       service.PlanService
	concurrency int
	progress    ProgressFunc
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency bounds the number of agents generated in parallel.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithProgress registers a completion callback.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) { r.progress = fn }
}

func NewRunner(plans service.PlanService, opts ...Option) *Runner {
	r := &Runner{plans: plans, concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GenerateAll runs one generation per request and returns results in
// request order. Per-agent errors are recorded, not propagated; only
// context cancellation stops the batch early.
func (r *Runner) GenerateAll(ctx context.Context, reqs []contract.GeneratePlanRequest) []Result {
	results := make([]Result, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	var mu sync.Mutex
	done := 0

	for i := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{AgentID: reqs[i].AgentID, Err: err}
				return nil
			}

			start := time.Now()
			resp, err := r.plans.Generate(ctx, reqs[i])

			res := Result{AgentID: reqs[i].AgentID, Err: err, Elapsed: time.Since(start)}
			if resp != nil {
				res.Plan = resp.Plan
				res.Warnings = resp.Warnings
				res.Skipped = resp.Skipped
			}
			results[i] = res

			mu.Lock()
			done++
			if r.progress != nil {
				r.progress(done, len(reqs), res)
			}
			mu.Unlock()
			return nil
		})
	}

	g.Wait() // workers never return errors; Wait only joins them
	return results
}

// Failed returns the subset of results that carry an error.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Package runner schedules extracted tests against a provisioned engine.
// Stateless files share a fixed pool of sessions over one scratch database;
// stateful files each get a dedicated database and run their tests strictly
// in order, with a bounded number of files in flight. Results are always
// reported in source order regardless of completion order.
package runner

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/shibukawa/sqldoctest"
	"github.com/shibukawa/sqldoctest/validator"
)

// Session is one live connection a test runs on.
type Session interface {
	Begin(ctx context.Context) error
	Rollback(ctx context.Context) error
	Query(ctx context.Context, query string) ([][]string, error)
	Close(ctx context.Context) error
}

// Cluster provisions databases and sessions on a running engine.
type Cluster interface {
	EnsureRole(ctx context.Context) error
	CreateDatabase(ctx context.Context, name string) error
	DropDatabase(ctx context.Context, name string) error
	Connect(ctx context.Context, database string) (Session, error)
}

// Options tunes runner concurrency. Zero values fall back to the defaults.
type Options struct {
	// PoolSize is the number of sessions shared by stateless tests.
	PoolSize int
	// PipelineWidth is the number of stateful files in flight at once.
	PipelineWidth int
}

// Result is the outcome of one test. A nil Failure means the test passed.
type Result struct {
	File    string
	Test    *sqldoctest.Test
	Failure *validator.Failure
}

// Summary aggregates a whole run.
type Summary struct {
	TotalTests  int
	PassedTests int
	FailedTests int
	Duration    time.Duration
	Failures    []Result
}

// Ok reports whether every test passed.
func (s *Summary) Ok() bool {
	return s.FailedTests == 0
}

// Runner executes test files against a cluster.
type Runner struct {
	cluster Cluster
	out     io.Writer
	opts    Options

	roleOnce sync.Once
	roleErr  error
}

// New builds a Runner writing progress to out.
func New(cluster Cluster, out io.Writer, opts Options) *Runner {
	if opts.PoolSize <= 0 {
		opts.PoolSize = sqldoctest.DefaultPoolSize
	}

	if opts.PipelineWidth <= 0 {
		opts.PipelineWidth = sqldoctest.DefaultPipelineWidth
	}

	return &Runner{
		cluster: cluster,
		out:     out,
		opts:    opts,
	}
}

// Run executes all files and returns the aggregated summary. Stateless
// files run first as one pooled batch, then stateful files go through the
// bounded pipeline. A non-nil error means infrastructure broke down, not
// that tests failed; test failures live in the summary.
func (r *Runner) Run(ctx context.Context, files []sqldoctest.TestFile) (*Summary, error) {
	started := time.Now()

	if err := r.ensureRole(ctx); err != nil {
		return nil, err
	}

	var stateless, stateful []sqldoctest.TestFile

	for _, file := range files {
		if len(file.Tests) == 0 {
			continue
		}

		if file.Stateless {
			stateless = append(stateless, file)
		} else {
			stateful = append(stateful, file)
		}
	}

	summary := &Summary{}

	if err := r.runStateless(ctx, stateless, summary); err != nil {
		return nil, err
	}

	if err := r.runStateful(ctx, stateful, summary); err != nil {
		return nil, err
	}

	summary.Duration = time.Since(started)
	r.renderVerdict(summary)

	return summary, nil
}

// ensureRole bootstraps the session role exactly once per run.
func (r *Runner) ensureRole(ctx context.Context) error {
	r.roleOnce.Do(func() {
		r.roleErr = r.cluster.EnsureRole(ctx)
	})

	if r.roleErr != nil {
		return fmt.Errorf("failed to bootstrap session role: %w", r.roleErr)
	}

	return nil
}

// record folds one result into the summary and prints its status line.
func (r *Runner) record(summary *Summary, res Result) {
	summary.TotalTests++

	if res.Failure == nil {
		summary.PassedTests++
	} else {
		summary.FailedTests++
		summary.Failures = append(summary.Failures, res)
	}

	r.renderStatus(res)
}

// runTransactional runs a single test inside a transaction that is rolled
// back no matter what, so the session comes back clean for its next holder.
func runTransactional(ctx context.Context, sess Session, test *sqldoctest.Test) *Failure {
	if err := sess.Begin(ctx); err != nil {
		return validator.QueryFailure(err)
	}

	received, queryErr := sess.Query(ctx, test.Text)

	// The rollback must happen even when the query failed; an aborted
	// transaction would poison every later test on this session.
	if err := sess.Rollback(ctx); err != nil {
		return validator.QueryFailure(err)
	}

	if queryErr != nil {
		return validator.QueryFailure(queryErr)
	}

	return validator.Validate(received, test)
}

// Failure is the validator failure type, aliased for result consumers.
type Failure = validator.Failure

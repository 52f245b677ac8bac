package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shibukawa/sqldoctest"
	"github.com/shibukawa/sqldoctest/validator"
)

// fileOutcome is everything one stateful file produced: its per-test
// results in order, or the infrastructure error that kept it from running.
type fileOutcome struct {
	results []Result
	err     error
}

// runStateful pushes stateful files through a bounded pipeline. Each file
// acquires one of PipelineWidth slots, runs its tests strictly in order on
// a dedicated database, and hands its results back over a one-slot channel.
// Outcomes are drained in admission order so the report is deterministic.
func (r *Runner) runStateful(ctx context.Context, files []sqldoctest.TestFile, summary *Summary) error {
	if len(files) == 0 {
		return nil
	}

	slots := make(chan struct{}, r.opts.PipelineWidth)

	outcomes := make([]chan fileOutcome, len(files))

	for fi := range files {
		file := &files[fi]
		outcome := make(chan fileOutcome, 1)
		outcomes[fi] = outcome

		slots <- struct{}{}

		go func() {
			defer func() { <-slots }()

			results, err := r.runStatefulFile(ctx, file)
			outcome <- fileOutcome{results: results, err: err}
		}()
	}

	var firstErr error

	for fi, outcome := range outcomes {
		out := <-outcome

		if out.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", files[fi].Name, out.err)
			}

			continue
		}

		r.renderFileBanner(files[fi].Name)

		for _, res := range out.results {
			r.record(summary, res)
		}
	}

	return firstErr
}

// runStatefulFile runs one file's tests sequentially on a freshly created,
// uniquely named database. The database is dropped afterwards in every
// case, after the session is closed.
func (r *Runner) runStatefulFile(ctx context.Context, file *sqldoctest.TestFile) ([]Result, error) {
	dbName := "stateful_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	if err := r.cluster.CreateDatabase(ctx, dbName); err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	defer func() {
		_ = r.cluster.DropDatabase(ctx, dbName)
	}()

	sess, err := r.cluster.Connect(ctx, dbName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	defer sess.Close(ctx)

	results := make([]Result, 0, len(file.Tests))

	for ti := range file.Tests {
		test := &file.Tests[ti]

		var failure *Failure
		if test.Transactional {
			failure = runTransactional(ctx, sess, test)
		} else {
			failure = runCommitted(ctx, sess, test)
		}

		results = append(results, Result{File: file.Name, Test: test, Failure: failure})
	}

	return results, nil
}

// runCommitted runs a non-transactional test directly on the session, so
// its effects stay visible to the tests that follow in the same file.
func runCommitted(ctx context.Context, sess Session, test *sqldoctest.Test) *Failure {
	received, err := sess.Query(ctx, test.Text)
	if err != nil {
		return validator.QueryFailure(err)
	}

	return validator.Validate(received, test)
}

package runner

import (
	"context"
	"fmt"

	"github.com/shibukawa/sqldoctest"
)

// statelessDatabase is the scratch database shared by every stateless test.
// Rollback-only transactions keep it pristine, so one database serves the
// whole pool.
const statelessDatabase = "stateless_test_db"

// runStateless executes all stateless files over a fixed pool of sessions.
// Tests from all files are flattened into one queue and dispatched to
// whichever session frees up first; each dispatch gets a one-slot result
// channel and the slots are drained in dispatch order, so reporting stays
// in source order no matter which test finishes first.
func (r *Runner) runStateless(ctx context.Context, files []sqldoctest.TestFile, summary *Summary) error {
	if len(files) == 0 {
		return nil
	}

	if err := r.cluster.CreateDatabase(ctx, statelessDatabase); err != nil {
		return fmt.Errorf("failed to create stateless database: %w", err)
	}

	pool := make(chan Session, r.opts.PoolSize)

	opened := 0

	for range r.opts.PoolSize {
		sess, err := r.cluster.Connect(ctx, statelessDatabase)
		if err != nil {
			drainPool(ctx, pool, opened)
			_ = r.cluster.DropDatabase(ctx, statelessDatabase)

			return fmt.Errorf("failed to open pooled session: %w", err)
		}

		pool <- sess
		opened++
	}

	type unit struct {
		file string
		test *sqldoctest.Test
	}

	var slots []chan Result

	for fi := range files {
		file := &files[fi]
		for ti := range file.Tests {
			u := unit{file: file.Name, test: &file.Tests[ti]}

			sess := <-pool
			slot := make(chan Result, 1)
			slots = append(slots, slot)

			go func() {
				failure := runTransactional(ctx, sess, u.test)
				pool <- sess
				slot <- Result{File: u.file, Test: u.test, Failure: failure}
			}()
		}
	}

	currentFile := ""

	for _, slot := range slots {
		res := <-slot

		if res.File != currentFile {
			currentFile = res.File
			r.renderFileBanner(currentFile)
		}

		r.record(summary, res)
	}

	drainPool(ctx, pool, opened)

	if err := r.cluster.DropDatabase(ctx, statelessDatabase); err != nil {
		return fmt.Errorf("failed to drop stateless database: %w", err)
	}

	return nil
}

// drainPool collects n sessions back from the pool and closes them. Every
// session must be closed before the shared database can be dropped.
func drainPool(ctx context.Context, pool chan Session, n int) {
	for range n {
		sess := <-pool
		_ = sess.Close(ctx)
	}
}

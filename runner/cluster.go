package runner

import (
	"context"
	"io"

	"github.com/shibukawa/sqldoctest"
	"github.com/shibukawa/sqldoctest/engine"
)

// engineCluster adapts a live engine instance to the Cluster interface.
type engineCluster struct {
	inst *engine.Instance
}

func (c *engineCluster) EnsureRole(ctx context.Context) error {
	return c.inst.EnsureRole(ctx)
}

func (c *engineCluster) CreateDatabase(ctx context.Context, name string) error {
	return c.inst.CreateDatabase(ctx, name)
}

func (c *engineCluster) DropDatabase(ctx context.Context, name string) error {
	return c.inst.DropDatabase(ctx, name)
}

func (c *engineCluster) Connect(ctx context.Context, database string) (Session, error) {
	return c.inst.Connect(ctx, database)
}

// Execute brings up an ephemeral engine, runs every file against it, and
// tears the engine down again. This is the one-call entry point the CLI
// uses; the instance never outlives the run.
func Execute(ctx context.Context, cfg *sqldoctest.Config, files []sqldoctest.TestFile, out io.Writer) (*Summary, error) {
	controller, err := engine.NewController(ctx, cfg.Engine)
	if err != nil {
		return nil, err
	}

	inst, err := engine.Launch(ctx, controller, cfg.Engine, out)
	if err != nil {
		return nil, err
	}
	defer inst.Close()

	r := New(&engineCluster{inst: inst}, out, Options{
		PoolSize:      cfg.Run.PoolSize,
		PipelineWidth: cfg.Run.PipelineWidth,
	})

	return r.Run(ctx, files)
}

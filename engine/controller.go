// Package engine manages the ephemeral PostgreSQL instance tests run
// against: storage initialization, server process lifecycle with health
// checking and deterministic teardown, database provisioning, and
// simple-protocol query sessions.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shibukawa/sqldoctest"
)

// serverConfig is appended to the instance's postgresql.conf so the
// captured logs carry enough detail for postmortems.
const serverConfig = `
# Configuration added by test runner
log_autovacuum_min_duration = 0
log_checkpoints = on
log_line_prefix = '%m %b[%p] %q%a '
log_lock_waits = on
log_temp_files = 128kB
max_prepared_transactions = 2
`

// Controller drives the engine binaries and client protocol. It is the
// only component that knows where the binaries live and how connection
// strings are built.
type Controller struct {
	BinDir string
	Host   string
	// MaintRole is the role used for provisioning connections (create/drop
	// database, role bootstrap). Empty means the driver default, which is
	// the OS user that ran initdb.
	MaintRole string
	Password  string
}

// NewController resolves the engine binary directory, via pg_config unless
// the configuration pins one explicitly.
func NewController(ctx context.Context, cfg sqldoctest.EngineConfig) (*Controller, error) {
	binDir := cfg.BinDir
	if binDir == "" {
		out, err := exec.CommandContext(ctx, "pg_config", "--bindir").Output()
		if err != nil {
			return nil, fmt.Errorf("failed to locate engine binaries via pg_config: %w", err)
		}

		binDir = strings.TrimSpace(string(out))
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	return &Controller{
		BinDir:   binDir,
		Host:     host,
		Password: cfg.Password,
	}, nil
}

// InitStorage initializes an ephemeral storage directory and appends the
// operational server configuration. Failure is fatal for the whole run, so
// the init tool's captured output rides along in the error.
func (c *Controller) InitStorage(ctx context.Context, dataDir string) error {
	cmd := exec.CommandContext(ctx, filepath.Join(c.BinDir, "initdb"),
		"-D", dataDir, "--no-clean", "--no-sync")

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %v\nout:\n%s\nerr:\n%s",
			sqldoctest.ErrEngineInit, err, stdout.String(), stderr.String())
	}

	return c.appendServerConfig(dataDir)
}

func (c *Controller) appendServerConfig(dataDir string) error {
	confPath := filepath.Join(dataDir, "postgresql.conf")

	conf, err := os.OpenFile(confPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: could not open %s: %v", sqldoctest.ErrEngineInit, confPath, err)
	}
	defer conf.Close()

	if _, err := conf.WriteString(serverConfig); err != nil {
		return fmt.Errorf("%w: could not write to %s: %v", sqldoctest.ErrEngineInit, confPath, err)
	}

	return nil
}

// Spawn starts the engine server process bound to port, with stdout and
// stderr redirected to the given files. The caller owns the returned
// process handle.
func (c *Controller) Spawn(dataDir string, port int, stdout, stderr *os.File) (*exec.Cmd, error) {
	cmd := exec.Command(filepath.Join(c.BinDir, "postgres"),
		"-D", dataDir,
		"-F",
		"-c", fmt.Sprintf("port=%d", port))
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", sqldoctest.ErrEngineStart, err)
	}

	return cmd, nil
}

// Probe reports whether the engine accepts connections on port. It is a
// lightweight connect-and-close, the moral equivalent of psql -X postgres.
func (c *Controller) Probe(ctx context.Context, port int) bool {
	conn, err := pgconn.Connect(ctx, c.connString(port, "postgres", c.MaintRole))
	if err != nil {
		return false
	}

	_ = conn.Close(ctx)

	return true
}

// CreateDatabase creates a database over a maintenance connection.
func (c *Controller) CreateDatabase(ctx context.Context, port int, name string) error {
	return c.maintExec(ctx, port, fmt.Sprintf("CREATE DATABASE %s", quoteIdentifier(name)))
}

// DropDatabase drops a database over a maintenance connection. All sessions
// to the database must be closed first.
func (c *Controller) DropDatabase(ctx context.Context, port int, name string) error {
	return c.maintExec(ctx, port, fmt.Sprintf("DROP DATABASE %s", quoteIdentifier(name)))
}

// EnsureRole creates the login role test sessions connect as. An already
// existing role is fine; the bootstrap is idempotent.
func (c *Controller) EnsureRole(ctx context.Context, port int, role string) error {
	err := c.maintExec(ctx, port, fmt.Sprintf("CREATE ROLE %s WITH LOGIN", quoteIdentifier(role)))

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42710" { // duplicate_object
		return nil
	}

	return err
}

// Connect opens a session to the given database as the given role.
func (c *Controller) Connect(ctx context.Context, port int, database, role string) (*Session, error) {
	conn, err := pgconn.Connect(ctx, c.connString(port, database, role))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %q: %w", database, err)
	}

	return &Session{conn: conn}, nil
}

func (c *Controller) maintExec(ctx context.Context, port int, query string) error {
	sess, err := c.Connect(ctx, port, "postgres", c.MaintRole)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	_, err = sess.Query(ctx, query)

	return err
}

// connString builds a libpq-style connection string. An empty role defers
// to the driver default (the current OS user).
func (c *Controller) connString(port int, database, role string) string {
	parts := []string{
		fmt.Sprintf("host=%s", c.Host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("dbname=%s", database),
		"sslmode=disable",
		"connect_timeout=5",
		"application_name=sqldoctest",
	}

	if role != "" {
		parts = append(parts, fmt.Sprintf("user=%s", role))
	}

	if c.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", c.Password))
	}

	return strings.Join(parts, " ")
}

// quoteIdentifier quotes a SQL identifier for provisioning statements.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

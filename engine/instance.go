package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/shibukawa/sqldoctest"
)

// State tracks where an instance is in its lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateStarting
	StateHealthChecking
	StateReady
	StateShuttingDown
	StateCrashed
	StateTerminated
)

// String returns the state name for diagnostics.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateStarting:
		return "starting"
	case StateHealthChecking:
		return "health-checking"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting-down"
	case StateCrashed:
		return "crashed"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

const (
	healthCheckTimeout  = 60 * time.Second
	healthCheckInterval = time.Second

	tempStdoutLog = "engine-stdout.temp.log"
	tempStderrLog = "engine-stderr.temp.log"

	cleanStdoutLog = "engine-out.log"
	cleanStderrLog = "engine-err.log"

	crashStdoutLog = "engine-crash-out.log"
	crashStderrLog = "engine-crash-err.log"
)

var (
	stepFmt  = color.New(color.FgBlue, color.Bold).SprintFunc()
	alertFmt = color.New(color.FgRed, color.Bold).SprintFunc()
)

// Instance is a running ephemeral engine. It exclusively owns the server
// process handle and storage directory; Close is the single teardown path
// and runs its work exactly once no matter how many exit paths reach it.
type Instance struct {
	controller *Controller
	port       int
	role       string
	logDir     string

	tempRoot string
	dataDir  string

	cmd    *exec.Cmd
	waitCh chan error

	stdoutLog *os.File
	stderrLog *os.File

	state     State
	closeOnce sync.Once
	out       io.Writer
}

// Launch provisions storage, starts the server process, and health-checks
// it until it accepts connections. On any failure the partially constructed
// instance is torn down before the error is returned; on success the caller
// owns the instance and must Close it.
func Launch(ctx context.Context, controller *Controller, cfg sqldoctest.EngineConfig, out io.Writer) (*Instance, error) {
	if out == nil {
		out = os.Stderr
	}

	logDir := cfg.LogDir
	if logDir == "" {
		logDir = "."
	}

	inst := &Instance{
		controller: controller,
		port:       cfg.Port,
		role:       cfg.Role,
		logDir:     logDir,
		out:        out,
	}

	if err := inst.initialize(ctx); err != nil {
		return nil, err
	}

	if err := inst.start(); err != nil {
		inst.removeStorage()
		return nil, err
	}

	if err := inst.waitUntilReady(ctx); err != nil {
		inst.Close()
		return nil, err
	}

	inst.state = StateReady
	fmt.Fprintf(out, "running on port %d with PID %d\n\n", inst.port, inst.cmd.Process.Pid)

	return inst, nil
}

func (inst *Instance) initialize(ctx context.Context) error {
	inst.state = StateInitializing

	tempRoot, err := os.MkdirTemp("", "sqldoctest-*")
	if err != nil {
		return fmt.Errorf("%w: could not allocate storage directory: %v", sqldoctest.ErrEngineInit, err)
	}

	inst.tempRoot = tempRoot
	inst.dataDir = filepath.Join(tempRoot, "data")

	fmt.Fprintf(inst.out, "%s at %s\n", stepFmt("Initializing storage"), inst.dataDir)

	if err := inst.controller.InitStorage(ctx, inst.dataDir); err != nil {
		inst.removeStorage()
		return err
	}

	return nil
}

func (inst *Instance) start() error {
	inst.state = StateStarting

	fmt.Fprintf(inst.out, "%s... ", stepFmt("Starting engine"))

	var err error

	inst.stdoutLog, err = openLogFile(filepath.Join(inst.logDir, tempStdoutLog))
	if err != nil {
		return fmt.Errorf("%w: %v", sqldoctest.ErrEngineStart, err)
	}

	inst.stderrLog, err = openLogFile(filepath.Join(inst.logDir, tempStderrLog))
	if err != nil {
		inst.stdoutLog.Close()
		return fmt.Errorf("%w: %v", sqldoctest.ErrEngineStart, err)
	}

	inst.cmd, err = inst.controller.Spawn(inst.dataDir, inst.port, inst.stdoutLog, inst.stderrLog)
	if err != nil {
		inst.stdoutLog.Close()
		inst.stderrLog.Close()

		return err
	}

	inst.waitCh = make(chan error, 1)
	go func() {
		inst.waitCh <- inst.cmd.Wait()
	}()

	return nil
}

// waitUntilReady polls the engine with a connect probe once per second for
// up to a minute. An exiting server process fails the wait immediately
// instead of letting the timeout run out.
func (inst *Instance) waitUntilReady(ctx context.Context) error {
	inst.state = StateHealthChecking

	deadline := time.Now().Add(healthCheckTimeout)

	for time.Now().Before(deadline) {
		if inst.controller.Probe(ctx, inst.port) {
			return nil
		}

		select {
		case <-inst.waitCh:
			// Put the exit result back for the teardown path.
			inst.waitCh <- nil
			return fmt.Errorf("%w: %s", sqldoctest.ErrEngineExited, inst.cmd.ProcessState)
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(healthCheckInterval):
		}
	}

	return fmt.Errorf("%w (%s)", sqldoctest.ErrEngineStartTimeout, healthCheckTimeout)
}

// Port returns the port the instance listens on.
func (inst *Instance) Port() int {
	return inst.port
}

// State returns the current lifecycle state.
func (inst *Instance) State() State {
	return inst.state
}

// ready guards operations that need a live server.
func (inst *Instance) ready() error {
	if inst.state != StateReady {
		return fmt.Errorf("%w: instance is %s", sqldoctest.ErrEngineNotReady, inst.state)
	}

	return nil
}

// EnsureRole creates the session role on this instance, tolerating an
// existing one.
func (inst *Instance) EnsureRole(ctx context.Context) error {
	if err := inst.ready(); err != nil {
		return err
	}

	return inst.controller.EnsureRole(ctx, inst.port, inst.role)
}

// CreateDatabase creates a database on this instance.
func (inst *Instance) CreateDatabase(ctx context.Context, name string) error {
	if err := inst.ready(); err != nil {
		return err
	}

	return inst.controller.CreateDatabase(ctx, inst.port, name)
}

// DropDatabase drops a database on this instance.
func (inst *Instance) DropDatabase(ctx context.Context, name string) error {
	if err := inst.ready(); err != nil {
		return err
	}

	return inst.controller.DropDatabase(ctx, inst.port, name)
}

// Connect opens a session to the named database as the configured role.
func (inst *Instance) Connect(ctx context.Context, database string) (*Session, error) {
	if err := inst.ready(); err != nil {
		return nil, err
	}

	return inst.controller.Connect(ctx, inst.port, database, inst.role)
}

// Close tears the instance down: a crashed server keeps its storage
// directory for postmortems, a running one is shut down gracefully and its
// storage removed. Either way the captured logs are renamed to their
// permanent locations. Close never fails the run; teardown problems are
// reported and swallowed.
func (inst *Instance) Close() {
	inst.closeOnce.Do(inst.teardown)
}

func (inst *Instance) teardown() {
	inst.stdoutLog.Close()
	inst.stderrLog.Close()

	select {
	case <-inst.waitCh:
		inst.state = StateCrashed

		fmt.Fprintf(inst.out, "%s: engine exited unexpectedly, keeping %s for postmortem\n",
			alertFmt("Crash detected"), inst.tempRoot)
		inst.publishLogs(crashStdoutLog, crashStderrLog)
		inst.state = StateTerminated

		return
	default:
	}

	inst.state = StateShuttingDown

	fmt.Fprintf(inst.out, "%s... ", stepFmt("Stopping engine"))

	if err := terminate(inst.cmd.Process); err != nil {
		fmt.Fprintf(inst.out, "\n%s: %v: %v, leaving pid %d and %s in place\n",
			alertFmt("Error"), sqldoctest.ErrShutdown, err, inst.cmd.Process.Pid, inst.tempRoot)

		return
	}

	<-inst.waitCh
	fmt.Fprintln(inst.out, "stopped")

	inst.publishLogs(cleanStdoutLog, cleanStderrLog)
	inst.removeStorage()
	inst.state = StateTerminated
}

// publishLogs renames the temporary redirect targets to their permanent
// names and reports where they live.
func (inst *Instance) publishLogs(stdoutName, stderrName string) {
	renames := []struct {
		from, to, label string
	}{
		{tempStdoutLog, stdoutName, "Engine stdout"},
		{tempStderrLog, stderrName, "Engine stderr"},
	}

	for _, r := range renames {
		from := filepath.Join(inst.logDir, r.from)
		to := filepath.Join(inst.logDir, r.to)

		if err := os.Rename(from, to); err != nil {
			fmt.Fprintf(inst.out, "%s: could not move %s to %s: %v\n", alertFmt("Error"), from, to, err)
			continue
		}

		fmt.Fprintf(inst.out, "%s can be found in %s\n", stepFmt(r.label), to)
	}
}

func (inst *Instance) removeStorage() {
	if inst.tempRoot != "" {
		_ = os.RemoveAll(inst.tempRoot)
	}
}

func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
}

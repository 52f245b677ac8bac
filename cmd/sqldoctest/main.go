package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/shibukawa/sqldoctest"
	"github.com/shibukawa/sqldoctest/runner"
)

// Context represents the global context for commands
type Context struct {
	Config  string
	Verbose bool
	Quiet   bool
}

// RunCmd extracts tests from the given paths and runs them against an
// ephemeral database engine.
type RunCmd struct {
	Host        string   `help:"Host the engine listens on"`
	Port        int      `help:"Port the engine listens on" short:"p"`
	Password    string   `help:"Password for the session role" short:"a"`
	StartMarker string   `help:"Marker opening an embedded test block"`
	EndMarker   string   `help:"Marker closing an embedded test block"`
	Paths       []string `arg:"" optional:"" help:"Files or directories to extract tests from" type:"path"`
}

// Run executes the run command
func (cmd *RunCmd) Run(ctx *Context) error {
	config, err := sqldoctest.LoadConfig(ctx.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cmd.applyOverrides(config)

	if len(cmd.Paths) == 0 {
		return sqldoctest.ErrNoInputFiles
	}

	files, errs := collectTestFiles(config, cmd.Paths)

	// Extraction problems abort the run before any engine is provisioned.
	if len(errs) > 0 {
		for _, err := range errs {
			color.Red("Error: %v", err)
		}

		return fmt.Errorf("%d extraction error(s)", len(errs))
	}

	if ctx.Verbose {
		total := 0
		for _, f := range files {
			total += len(f.Tests)
		}

		fmt.Printf("Extracted %d tests from %d files\n", total, len(files))
	}

	out := os.Stdout
	if ctx.Quiet {
		devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if err == nil {
			defer devNull.Close()

			out = devNull
		}
	}

	summary, err := runner.Execute(context.Background(), config, files, out)
	if err != nil {
		return fmt.Errorf("test execution failed: %w", err)
	}

	// Exit with non-zero code if any tests failed
	if !summary.Ok() {
		os.Exit(1)
	}

	return nil
}

// applyOverrides folds the command-line flags over the loaded configuration.
func (cmd *RunCmd) applyOverrides(config *sqldoctest.Config) {
	if cmd.Host != "" {
		config.Engine.Host = cmd.Host
	}

	if cmd.Port != 0 {
		config.Engine.Port = cmd.Port
	}

	if cmd.Password != "" {
		config.Engine.Password = cmd.Password
	}

	if cmd.StartMarker != "" {
		config.Markers.Start = cmd.StartMarker
	}

	if cmd.EndMarker != "" {
		config.Markers.End = cmd.EndMarker
	}
}

// VersionCmd represents the version command
type VersionCmd struct{}

// Run executes the version command
func (cmd *VersionCmd) Run() error {
	fmt.Println("sqldoctest v0.1.0")
	return nil
}

// CLI represents the command-line interface
var CLI struct {
	Config  string     `help:"Configuration file path" default:"sqldoctest.yaml"`
	Verbose bool       `help:"Enable verbose output" short:"v"`
	Quiet   bool       `help:"Suppress engine and progress output" short:"q"`
	Run     RunCmd     `cmd:"" default:"withargs" help:"Extract and run SQL tests"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	appCtx := &Context{
		Config:  CLI.Config,
		Verbose: CLI.Verbose,
		Quiet:   CLI.Quiet,
	}

	err := ctx.Run(appCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"schemagate/internal/config"
	"schemagate/internal/errors"
	"schemagate/internal/slogutil"
	"schemagate/internal/version"
)

// app carries the state shared by every command of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	dir        string
	format     string
	configPath string
	verbosity  int
	quiet      bool

	root    string
	cfg     *config.Config
	logger  *slog.Logger
	factory *slogutil.LoggerFactory
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemagate",
		Short: "schemagate - schema evolution analysis",
		Long: `schemagate compares two versions of a JSON Schema, classifies every
structural difference as breaking or safe, checks the result against a
compatibility level and plans the migration.

Subjects declared in schemagate.toml are checked across their whole version
history, and every verdict is recorded in .schemagate/history.db.`,
		Version:       version.Info(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.factory != nil {
				a.factory.Close()
			}
		},
	}
	cmd.SetVersionTemplate("schemagate version {{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.format, "format", "", "Output format (human, json); defaults to config output")
	flags.StringVar(&a.configPath, "config", "", "Config file (default <dir>/.schemagate/config.json)")
	flags.StringVarP(&a.dir, "dir", "C", "", "Project directory (default current directory)")
	flags.CountVarP(&a.verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Suppress all logs")

	cmd.AddCommand(
		newAnalyzeCmd(a),
		newCheckCmd(a),
		newValidateCmd(a),
		newSubjectsCmd(a),
		newHistoryCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

// setup resolves the project root, loads config and builds the logger.
// Precedence for every setting: flag > config > default.
func (a *app) setup(cmd *cobra.Command) error {
	root := a.dir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	a.root = abs

	var cfg *config.Config
	if a.configPath != "" {
		cfg, err = config.LoadConfigFile(a.configPath)
	} else {
		cfg, err = config.LoadConfig(a.root)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	if a.format == "" {
		a.format = cfg.Output
	}
	switch OutputFormat(a.format) {
	case FormatHuman, FormatJSON:
	default:
		return fmt.Errorf("unsupported format: %s", a.format)
	}

	var cliLevel *slog.Level
	if a.quiet || a.verbosity > 0 {
		l := slogutil.LevelFromVerbosity(a.verbosity, a.quiet)
		cliLevel = &l
	}
	a.factory = slogutil.NewLoggerFactory(a.root, cfg, cliLevel)
	a.logger = a.factory.Logger(a.stderr)
	a.logger.Debug("Loaded configuration",
		"root", a.root,
		"defaultLevel", cfg.DefaultLevel,
		"format", a.format,
	)
	return nil
}

// print formats resp and writes it to stdout.
func (a *app) print(resp any) error {
	out, err := FormatResponse(resp, OutputFormat(a.format))
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprintln(a.stdout, out)
	return nil
}

func (a *app) context() context.Context {
	return context.Background()
}

// execute runs the CLI and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return 0
	}
	reportError(stderr, err)
	return errors.ExitCodeFor(err)
}

func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var sge *errors.SchemaGateError
	if !stderrors.As(err, &sge) {
		return
	}
	for _, fix := range sge.SuggestedFixes {
		switch {
		case fix.Command != "":
			fmt.Fprintf(w, "  Fix: %s\n    $ %s\n", fix.Description, fix.Command)
		case fix.Description != "":
			fmt.Fprintf(w, "  Fix: %s\n", fix.Description)
		}
	}
}

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/taskflow/internal/config"
	"github.com/roach88/taskflow/internal/engine"
	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string // overrides database.path
	Actor      string
	Org        string

	// Config is loaded before any subcommand runs.
	Config *config.Config
	Logger *slog.Logger

	// Clock and IDs override the engine defaults (for testing).
	Clock engine.Clock
	IDs   engine.IDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the taskflow CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskflow",
		Short: "taskflow - task lifecycle and workflow engine",
		Long: `taskflow tracks tasks through an approval workflow: status transitions,
delegation, prerequisites, time budgets, recurrence and project roll-ups.

Every change is recorded in a hash-chained per-task history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			if opts.Database != "" {
				cfg.Database.Path = opts.Database
			}
			opts.Config = cfg
			opts.Logger = newLogger(cfg.Log, opts.Verbose, cmd.ErrOrStderr())
			slog.SetDefault(opts.Logger)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ./"+config.DefaultFile+" if present)")
	flags.StringVar(&opts.Database, "db", "", "path to SQLite database (overrides database.path)")
	flags.StringVar(&opts.Actor, "actor", os.Getenv("TASKFLOW_ACTOR"), "acting member id")
	flags.StringVar(&opts.Org, "org", os.Getenv("TASKFLOW_ORG"), "organization id")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTaskCommand(opts))
	cmd.AddCommand(NewTimeCommand(opts))
	cmd.AddCommand(NewLinkCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewCommentCommand(opts))
	cmd.AddCommand(NewAttachCommand(opts))
	cmd.AddCommand(NewMemberCommand(opts))
	cmd.AddCommand(NewProjectCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewTickCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

// newLogger builds the process logger. --verbose forces debug level.
func newLogger(cfg config.LogConfig, verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

// formatter returns an OutputFormatter writing to the command's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// actor returns the acting member from --actor and --org.
func (o *RootOptions) actor() (ir.Actor, error) {
	if o.Actor == "" || o.Org == "" {
		return ir.Actor{}, NewExitError(ExitCommandError,
			"--actor and --org are required (or set TASKFLOW_ACTOR and TASKFLOW_ORG)")
	}
	return ir.Actor{MemberID: o.Actor, OrganizationID: o.Org}, nil
}

// openEngine opens the configured database and builds an engine on it.
// The returned function closes the database.
func (o *RootOptions) openEngine() (*engine.Engine, func(), error) {
	path := o.Config.Database.Path
	logger := o.Logger
	logger.Debug("opening database", "path", path)

	st, err := store.Open(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	closeFn := func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithPrerequisiteGate(o.Config.Workflow.EnforcePrerequisites),
	}
	if !o.Config.Workflow.Notify {
		engineOpts = append(engineOpts, engine.WithNotifier(engine.NopNotifier{}))
	}
	if o.Clock != nil {
		engineOpts = append(engineOpts, engine.WithClock(o.Clock))
	}
	if o.IDs != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(o.IDs))
	}
	return engine.New(st, engineOpts...), closeFn, nil
}

// session opens the engine and resolves the actor in one step.
func (o *RootOptions) session() (*engine.Engine, ir.Actor, func(), error) {
	actor, err := o.actor()
	if err != nil {
		return nil, ir.Actor{}, nil, err
	}
	eng, closeFn, err := o.openEngine()
	if err != nil {
		return nil, ir.Actor{}, nil, err
	}
	return eng, actor, closeFn, nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/raysh454/harstyle/internal/config"
	"github.com/raysh454/harstyle/internal/model"
)

// AppName is the program name used in usage and logger names.
const AppName = "harstyle"

// initializeAppContext prepares the environment after the command line has
// been parsed and before the subcommand runs.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		env.Cfg.Logging.ConsoleLogger.Level = "debug"
	}
	if env.Log, err = env.Cfg.Logging.Prepare(AppName); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", model.ToolVersion), zap.String("runtime", runtime.Version()))
	if len(configFile) == 0 {
		env.Log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := EnvFromContext(ctx)

	if env.app != nil {
		if er := env.app.Shutdown(context.WithoutCancel(ctx)); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to shut down: %w", er))
		}
	}
	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}
	env.RestoreStdLog()
	return
}

// errWasHandled is set once a subcommand error has been logged, so main
// does not print it a second time.
var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

// ErrWasHandled reports whether the last error has already been logged.
func ErrWasHandled() bool { return errWasHandled }

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	if log := EnvFromContext(ctx).Log; log != nil {
		log.Warn("Unknown command, nothing to do", zap.String("command", name))
	}
}

// NewCommand builds the root command. Run it with a context prepared by
// ContextWithEnv.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:            AppName,
		Usage:           "style linter for captured web pages (HAR)",
		Version:         model.ToolVersion + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log at debug level on the console"},
		},
		Commands: []*cli.Command{
			{
				Name:         "analyze",
				Usage:        "Analyzes HAR file(s) and prints page results and group summaries as NDJSON",
				OnUsageError: usageErrorHandler,
				Action:       runAnalyze,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "page `URL` of the capture (default: first request of each file)"},
					&cli.StringFlag{Name: "group", Aliases: []string{"g"}, Usage: "group `KEY` (default: registrable domain of the page)"},
					&cli.BoolFlag{Name: "report", Usage: "also print per-group reports"},
				},
				ArgsUsage: "HAR...",
			},
			{
				Name:         "pipe",
				Usage:        "Reads host messages as NDJSON on STDIN and writes replies to STDOUT",
				OnUsageError: usageErrorHandler,
				Action:       runPipe,
			},
			{
				Name:         "serve",
				Usage:        "Runs the HTTP and WebSocket host",
				OnUsageError: usageErrorHandler,
				Action:       runServe,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "listen `ADDRESS` (default: server.listen_addr from configuration)"},
				},
			},
			{
				Name:         "record",
				Usage:        "Loads page(s) in headless Chrome, optionally crawling their site, and analyzes the captures",
				OnUsageError: usageErrorHandler,
				Action:       runRecord,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "group", Aliases: []string{"g"}, Usage: "group `KEY` (default: registrable domain of each page)"},
					&cli.StringFlag{Name: "save", Usage: "write every capture as HAR into `DIRECTORY`"},
					&cli.IntFlag{Name: "depth", Value: 0, Usage: "follow same-site links up to `N` clicks away from each URL"},
					&cli.IntFlag{Name: "max-pages", Value: 0, Usage: "stop each crawl after `N` pages (0 - no limit)"},
				},
				ArgsUsage: "URL...",
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT
`, cli.CommandHelpTemplate),
			},
		},
	}
}

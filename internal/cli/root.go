// Package cli provides the cobra commands of the werss client: the watch
// daemon, its remote control, and thin wrappers over the backend REST API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"werss-client/internal/config"
	"werss-client/internal/infra/api"
	"werss-client/internal/infra/worker"
	"werss-client/internal/observability/logging"
)

// Command group IDs for organizing help output.
const (
	groupDaemon  = "daemon"
	groupContent = "content"
)

// daemonMetrics registers the daemon metrics once per process, however many
// root commands are built.
var daemonMetrics = sync.OnceValue(func() *worker.WorkerMetrics {
	return worker.NewWorkerMetrics(nil)
})

// app carries state shared by every command of one invocation.
type app struct {
	configPath string
	logLevel   string
	output     string
	envFile    string

	cfg     *config.AppConfig
	logger  *slog.Logger
	closer  io.Closer
	printer *printer

	stdout io.Writer
	stderr io.Writer
}

// NewRootCommand builds the command tree. Output goes to stdout and stderr.
func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdout, os.Stderr)
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "werss",
		Short: "WeRSS client and new-article monitor",
		Long: `werss talks to a WeRSS backend.

It can watch for newly collected articles and announce them with a chime,
a flashing terminal title, a desktop notification and chat webhooks, and
it exposes the backend's articles, subscriptions, message tasks and tags.`,
		Example: `  # Watch for new articles in the foreground
  werss watch

  # Pause notifications of a running watcher
  werss notify disable

  # Latest articles as JSON
  werss articles list --limit 5 -o json`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.teardown() },
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddGroup(&cobra.Group{ID: groupDaemon, Title: "Monitor:"})
	root.AddGroup(&cobra.Group{ID: groupContent, Title: "Backend:"})

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVarP(&a.output, "output", "o", "text", "Output format: text or json")
	pf.StringVar(&a.envFile, "env-file", ".env", "Dotenv file loaded before the config")

	root.AddCommand(
		a.watchCommand(),
		a.notifyCommand(),
		a.articlesCommand(),
		a.mpsCommand(),
		a.tasksCommand(),
		a.tagsCommand(),
	)
	return root
}

// Execute runs the CLI and prints a failing command's error as one line.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	p, err := newPrinter(a.output, a.stdout)
	if err != nil {
		return err
	}
	a.printer = p

	// The config is loaded before the final logger exists, so fallback
	// warnings go to stderr as text.
	bootLogger := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg, err := config.Load(a.configPath, bootLogger, daemonMetrics())
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	logger, closer, err := logging.NewLoggerWithOptions(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Output:     a.stderr,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger, a.closer = logger, closer
	slog.SetDefault(logger)
	return nil
}

func (a *app) teardown() {
	if a.closer != nil {
		_ = a.closer.Close()
	}
}

// apiClient builds a backend client and warns about an expiring token.
func (a *app) apiClient() (*api.Client, error) {
	client, err := api.New(a.cfg.APIClientConfig(a.logger))
	if err != nil {
		return nil, err
	}
	if a.cfg.API.Token != "" {
		if _, err := client.CheckToken(time.Now()); errors.Is(err, api.ErrTokenExpired) {
			return nil, err
		}
	}
	return client, nil
}

// Package cli implements the spamfilter command-line interface.
package cli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"spam_filter/config"
	"spam_filter/internal/bootstrap"
	"spam_filter/pkg/apperr"
	"spam_filter/pkg/logger"
	"spam_filter/pkg/metrics"
)

const metricsShutdownTimeout = 5 * time.Second

// DependencyFactory builds the service graph for a loaded configuration.
type DependencyFactory func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*bootstrap.Dependencies, func(), error)

// App holds state shared by every command of one invocation.
type App struct {
	Out     io.Writer
	NewDeps DependencyFactory

	cfg        *config.Config
	log        zerolog.Logger
	deps       *bootstrap.Dependencies
	cleanup    func()
	metricsSrv *http.Server
}

// NewApp returns an App wired to the real backends.
func NewApp() *App {
	return &App{Out: os.Stdout, NewDeps: bootstrap.NewDependencies}
}

// Config returns the loaded configuration. It is nil before a command runs.
func (a *App) Config() *config.Config {
	return a.cfg
}

// dependencies connects lazily so commands that fail validation never dial
// a database.
func (a *App) dependencies(ctx context.Context) (*bootstrap.Dependencies, error) {
	if a.deps != nil {
		return a.deps, nil
	}
	deps, cleanup, err := a.NewDeps(ctx, a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.deps, a.cleanup = deps, cleanup
	return deps, nil
}

func (a *App) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger.Init(logger.Config{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Output:  os.Stderr,
		Service: "spamfilter",
		Pretty:  cfg.IsDevelopment(),
	})
	a.log = logger.Default().Zerolog()

	if cfg.MetricsAddr != "" {
		a.startMetrics(cfg.MetricsAddr)
	}
	return nil
}

func (a *App) startMetrics(addr string) {
	a.metricsSrv = &http.Server{
		Addr:              addr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Metrics listening on %s", addr)
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed: %v", err)
		}
	}()
}

func (a *App) teardown() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
		a.deps = nil
	}
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			logger.Warn("Metrics server shutdown: %v", err)
		}
		a.metricsSrv = nil
	}
}

// NewRootCommand builds the command tree for app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "spamfilter",
		Short:         "Train and run the Bayes and neural spam models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.teardown()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return apperr.InvalidInput("flags", err.Error())
	})

	root.AddCommand(
		newTrainCommand(app, "train-bayes", "Train the Bayes word model", bayesModel),
		newTrainCommand(app, "train-nn", "Train the neural ensemble", neuralModel),
		newCheckCommand(app),
		newValidateCommand(app),
		newAutolearnCommand(app),
		newSubmitCommand(app),
		newArchiveCommand(app),
		newSchemaCommand(app),
	)
	return root
}

// Execute runs the CLI with ctx and tears the app down afterwards, also
// when a command failed.
func Execute(ctx context.Context, app *App, args []string) error {
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(app.Out)
	defer app.teardown()
	return root.ExecuteContext(ctx)
}

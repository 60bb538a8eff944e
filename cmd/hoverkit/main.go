package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/hoverkit/pkg/config"
	"github.com/odvcencio/hoverkit/pkg/errors"
	"github.com/odvcencio/hoverkit/pkg/logging"
	"github.com/odvcencio/hoverkit/pkg/observability"
)

// Version information - set via ldflags during build
var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errors.UserMessage(err))
		os.Exit(exitCodeForError(err))
	}
}

// app carries what the global flags resolve to.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath    string
	logLevel      string
	trace         bool
	metricsListen string

	cfg    *config.Config
	logger *logging.Logger
	tracer *observability.TracerProvider
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "hoverkit",
		Short:         "Hover popovers for language servers in the terminal",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: ~/.hoverkit/config.yaml then ./.hoverkit/config.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")
	flags.BoolVar(&a.trace, "trace", false, "write OpenTelemetry spans to stderr")
	flags.StringVar(&a.metricsListen, "metrics-listen", "", "serve Prometheus metrics on host:port")

	root.AddCommand(newShowCmd(a), newRenderCmd(a), newViewCmd(a))
	return root
}

func (a *app) setup() error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFromPath(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return withExitCode(err, exitConfig)
	}

	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if a.metricsListen != "" {
		a.cfg.Metrics.Listen = a.metricsListen
	}
	if err := a.cfg.Validate(); err != nil {
		return withExitCode(err, exitConfig)
	}

	a.logger = logging.New("cli", a.cfg.LogLevel(), a.cfg.LogFormat(), a.stderr)
	if a.trace {
		a.tracer, err = observability.NewTracerProvider("hoverkit", version, a.stderr)
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *app) teardown() error {
	if a.tracer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return a.tracer.Shutdown(ctx)
}

// run executes body alongside the metrics endpoint, when one is configured.
// The endpoint stops as soon as body returns.
func (a *app) run(ctx context.Context, body func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if addr := a.cfg.Metrics.Listen; addr != "" {
		g.Go(func() error {
			a.logger.Info("serving metrics", "addr", addr)
			return observability.ServeMetrics(gctx, addr)
		})
	}
	g.Go(func() error {
		defer cancel()
		return body(gctx)
	})
	return g.Wait()
}

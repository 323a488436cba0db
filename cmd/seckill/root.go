// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ManuGH/seckill/internal/app/bootstrap"
	"github.com/ManuGH/seckill/internal/config"
	"github.com/ManuGH/seckill/internal/dispatch"
	xglog "github.com/ManuGH/seckill/internal/log"
	"github.com/ManuGH/seckill/internal/metrics"
	"github.com/ManuGH/seckill/internal/router"
	"github.com/ManuGH/seckill/internal/version"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
)

// usageError marks invalid invocations (exit code 2).
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// redirectError reports that the guard refused the screen a command needs.
type redirectError struct {
	From   string
	To     string
	Reason string
}

func (e *redirectError) Error() string {
	return fmt.Sprintf("%s: redirected to %s (%s)", e.From, e.To, e.Reason)
}

// cli carries the streams and global flags shared by every command.
type cli struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	app        string
	logLevel   string
	logFormat  string
	metricsOut string

	// httpClient replaces the configured client in tests.
	httpClient *http.Client
	container  *bootstrap.Container
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	c := &cli{in: bufio.NewReader(in), out: out, errOut: errOut}
	return c.execute(ctx, args)
}

func (c *cli) execute(ctx context.Context, args []string) int {
	xglog.Configure(xglog.Config{Level: "warn", Output: c.errOut, Service: "seckill", Version: version.Version})

	ctx = xglog.ContextWithCorrelationID(ctx, uuid.NewString())
	root := c.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := c.close(ctx); err == nil {
		err = cerr
	}
	if merr := c.writeMetrics(); err == nil {
		err = merr
	}
	if err == nil {
		return exitOK
	}

	fmt.Fprintf(c.errOut, "error: %v\n", err)
	var uerr usageError
	if errors.As(err, &uerr) || strings.HasPrefix(err.Error(), "unknown command") {
		return exitUsage
	}
	return exitRuntime
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "seckill",
		Short:         "Flash-sale client for the storefront and the admin console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "path to config file (YAML)")
	pf.StringVar(&c.app, "app", "", "application profile: user or admin (overrides config)")
	pf.StringVar(&c.logLevel, "log-level", "", "log level (overrides config)")
	pf.StringVar(&c.logFormat, "log-format", "", "log format: json or console (overrides config)")
	pf.StringVar(&c.metricsOut, "metrics-out", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.goodsCmd(),
		c.buyCmd(),
		c.ordersCmd(),
		c.orderCmd(),
		c.adminCmd(),
		c.configCmd(),
		c.versionCmd(),
	)
	return root
}

func (c *cli) overrides() []func(*config.AppConfig) {
	return []func(*config.AppConfig){func(cfg *config.AppConfig) {
		if c.app != "" {
			cfg.App = c.app
		}
		if c.logLevel != "" {
			cfg.Log.Level = c.logLevel
		}
		if c.logFormat != "" {
			cfg.Log.Format = c.logFormat
		}
	}}
}

// client wires the container on first use.
func (c *cli) client(ctx context.Context) (*bootstrap.Container, error) {
	if c.container != nil {
		return c.container, nil
	}
	container, err := bootstrap.WireServices(ctx, c.configPath, bootstrap.Options{
		Version:    version.Version,
		Overrides:  c.overrides(),
		Notifier:   &dispatch.WriterNotifier{W: c.errOut},
		HTTPClient: c.httpClient,
	})
	if err != nil {
		if errors.Is(err, config.ErrInvalidConfig) || errors.Is(err, config.ErrUnknownConfigField) {
			return nil, usageError{err}
		}
		return nil, err
	}
	xglog.Configure(xglog.Config{
		Level:   container.Config.Log.Level,
		Format:  container.Config.Log.Format,
		Output:  c.errOut,
		Service: "seckill",
		Version: version.Version,
	})
	c.container = container
	return container, nil
}

func (c *cli) close(ctx context.Context) error {
	if c.container == nil {
		return nil
	}
	err := c.container.Close(context.WithoutCancel(ctx))
	c.container = nil
	return err
}

// enter navigates to the screen a command represents so the route guard
// applies. A redirect is reported as an error.
func (c *cli) enter(ctx context.Context, target router.Target) (*bootstrap.Container, error) {
	container, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	loc, err := container.Router.Push(ctx, target)
	if err != nil {
		return nil, err
	}
	if loc.Route.Name != target.Name {
		return nil, &redirectError{From: target.Name, To: loc.Route.Name, Reason: loc.Reason}
	}
	return container, nil
}

func (c *cli) writeMetrics() error {
	if c.metricsOut == "" {
		return nil
	}
	f, err := os.Create(c.metricsOut)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := metrics.WriteText(f, nil); err != nil {
		_ = f.Close()
		return fmt.Errorf("metrics: %w", err)
	}
	return f.Close()
}

func (c *cli) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("%s: accepts %d arg(s), received %d", cmd.CommandPath(), n, len(args))
		}
		return nil
	}
}

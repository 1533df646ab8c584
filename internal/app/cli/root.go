// Package cli 提供 rawbridge 命令行
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"rawbridge-core/internal/config/loader"
	"rawbridge-core/internal/config/schema"
	"rawbridge-core/internal/core/dispose"
	coreerrors "rawbridge-core/internal/core/errors"
	"rawbridge-core/internal/core/events"
	corelog "rawbridge-core/internal/core/log"
	"rawbridge-core/internal/core/metrics"
	"rawbridge-core/internal/core/safe"
	"rawbridge-core/internal/datastream/handle"
	"rawbridge-core/internal/engine"
	"rawbridge-core/internal/engine/libraw"
	"rawbridge-core/internal/session"
	"rawbridge-core/internal/version"
)

// App 一次命令执行的共享状态
type App struct {
	// 全局标志
	configFile    string
	engineName    string
	logLevel      string
	metricsListen string
	noColor       bool

	cfg       *schema.Root
	out       *Output
	errOut    io.Writer
	resources *dispose.ResourceManager
	bus       events.EventBus
	cancel    context.CancelFunc
}

// Run 执行一次命令行调用，返回的错误可交给 ExitCode
func Run(args []string, stdout, stderr io.Writer) error {
	app := &App{errOut: stderr}
	defer app.teardown()

	root := app.newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.Execute()
}

func (a *App) newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "rawbridge",
		Short: "Decode RAW images through a native engine fed by Go stream sources",
		Long: `rawbridge drives the LibRaw engine over Go-side stream sources.

Examples:
  rawbridge info IMG_0001.CR2
  rawbridge unpack --workers 8 --output out/ *.NEF
  rawbridge thumb --output thumbs/ *.CR2
  rawbridge config`,
		Version:           version.GetVersion(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "Config file path")
	flags.StringVarP(&a.engineName, "engine", "e", libraw.BackendName, "Engine backend")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug/info/warn/error")
	flags.StringVar(&a.metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable coloured output")

	root.AddCommand(
		a.newInfoCommand(),
		a.newUnpackCommand(),
		a.newThumbCommand(),
		a.newConfigCommand(),
		a.newVersionCommand(),
	)
	return root
}

// Execute 入口：返回进程退出码
func Execute() int {
	defer func() {
		if r := recover(); r != nil {
			corelog.Errorf("FATAL: main goroutine panic recovered: %v", r)
			fmt.Fprintf(os.Stderr, "\nPANIC: %v\n%s\n", r, debug.Stack())
			os.Exit(ExitFailure)
		}
	}()

	err := Run(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return ExitCode(err)
}

// setup 加载配置，配置日志与指标
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := loader.NewLoaderBuilder().
		WithConfigFile(a.configFile).
		WithOverride(a.applyFlags).
		Build().
		Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.out = NewOutput(cmd.OutOrStdout(), a.noColor)
	a.resources = dispose.NewResourceManager()

	closer, err := corelog.Configure(cfg.Log)
	if err != nil {
		return err
	}
	_ = a.resources.Register("log-output", dispose.DisposableFunc(closer.Close))

	if cfg.Metrics.Enabled {
		m, err := metrics.New(cfg.Metrics)
		if err != nil {
			return err
		}
		metrics.SetGlobalMetrics(m)
		_ = a.resources.Register("metrics", dispose.DisposableFunc(func() error {
			metrics.SetGlobalMetrics(nil)
			return m.Close()
		}))

		if cfg.Metrics.Listen != "" {
			if err := a.serveMetrics(m, cfg.Metrics.Listen); err != nil {
				return err
			}
		}
	}

	a.bus = events.NewEventBus(context.Background())
	for _, eventType := range events.SessionEvents {
		_ = a.bus.Subscribe(eventType, logSessionEvent)
	}
	_ = a.resources.Register("event-bus", dispose.DisposableFunc(a.bus.Close))

	// 兜底：进程结束前释放仍存活的句柄
	_ = a.resources.Register("handles", handle.Default())
	return nil
}

func (a *App) serveMetrics(m metrics.Metrics, listen string) error {
	prom, ok := m.(*metrics.PrometheusMetrics)
	if !ok {
		return coreerrors.New(coreerrors.CodeConfigError, "metrics listen address requires the prometheus backend")
	}
	srv, err := metrics.NewServer(listen, prom)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	safe.GoWithContext(ctx, "metrics-server", func(ctx context.Context) {
		if err := srv.Serve(ctx); err != nil {
			corelog.WithError(err).Warn("metrics server stopped")
		}
	})
	_ = a.resources.Register("metrics-server", dispose.DisposableFunc(func() error {
		cancel()
		return srv.Dispose()
	}))
	corelog.Infof("serving metrics on %s", srv.Addr())
	return nil
}

// applyFlags 命令行标志覆盖配置，优先级最高
func (a *App) applyFlags(cfg *schema.Root) error {
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.metricsListen != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Backend = schema.MetricsBackendPrometheus
		cfg.Metrics.Listen = a.metricsListen
	}
	return nil
}

func (a *App) teardown() {
	if a.resources == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
	}
	if res := a.resources.DisposeAll(); res.HasErrors() {
		fmt.Fprintln(a.errOut, "cleanup:", res.Error())
	}
	a.resources = nil
}

// signalContext 收到 SIGINT/SIGTERM 时取消
func (a *App) signalContext(parent context.Context) context.Context {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	a.cancel = cancel
	return ctx
}

// sessionConfig 当前引擎与配置对应的会话配置
func (a *App) sessionConfig() (session.Config, error) {
	backend, err := engine.Lookup(a.engineName)
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		Engine: backend.New,
		Params: engine.ParamsFromConfig(a.cfg.Engine),
		Stream: a.cfg.Stream,
		Events: a.bus,
	}, nil
}

func logSessionEvent(event events.Event) error {
	ev, ok := event.(*events.SessionEvent)
	if !ok {
		return nil
	}
	entry := corelog.WithFields(map[string]interface{}{
		"session": ev.SessionID,
		"file":    ev.File,
		"op":      ev.Op,
	})
	if ev.Error != "" {
		entry = entry.WithField("status", ev.Status).WithField("error", ev.Error)
	}
	entry.Debug(ev.Type())
	return nil
}

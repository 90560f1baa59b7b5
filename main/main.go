package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dbpool"
	"dbpool/config"
	"dbpool/logger"
	"dbpool/mysql"
	"dbpool/postgres"
)

var version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var flags cliFlags

	root := &cobra.Command{
		Use:   "dbpool",
		Short: "dbpool - per-database connection pool for metadata collection",
		Long: `dbpool keeps one connection per database of every monitored server,
closes connections idle for longer than their TTL and caps the number of
connections per server with least recently used eviction.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "dbpool.yaml", "configuration file")
	root.PersistentFlags().BoolVar(&flags.development, "dev", false, "human readable debug logging")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dbpool v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Collect from every configured database until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Run a single collection cycle and print pool statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return check(cmd.Context(), flags)
		},
	})

	return root
}

type cliFlags struct {
	configFile  string
	development bool
}

type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *dbpool.Registry
	reader   reader
}

func newApp(flags cliFlags) (*app, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, err
	}
	if flags.development {
		cfg.Log.Development = true
		cfg.Log.Level = "debug"
		cfg.Log.Encoding = "console"
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	deadlock.Opts.Disable = !cfg.Debug.DetectDeadlocks

	registry := dbpool.NewRegistry(log)
	for _, instance := range cfg.Instances {
		connect, err := newConnectFunc(instance, log)
		if err != nil {
			return nil, err
		}
		_, err = registry.GetOrCreate(instance.Credentials(), func() (*dbpool.LimitedPool, error) {
			return dbpool.NewLimited(connect, cfg.MaxConnections,
				dbpool.WithLogger(log),
				dbpool.WithCloseTimeout(cfg.CloseTimeout))
		})
		if err != nil {
			return nil, err
		}
	}

	return &app{
		cfg:      cfg,
		logger:   log,
		registry: registry,
		reader: reader{
			registry:  registry,
			instances: cfg.Instances,
			ttl:       cfg.IdleTTL(),
			logger:    log,
		},
	}, nil
}

func newConnectFunc(instance config.Instance, log *zap.Logger) (dbpool.ConnectFunc, error) {
	credentials := instance.Credentials()
	switch instance.Driver {
	case config.DriverPostgres:
		connector, err := postgres.NewConnector(postgres.ConnString(credentials, instance.SSLMode), log)
		if err != nil {
			return nil, err
		}
		return connector.Connect, nil
	case config.DriverMySQL:
		return mysql.NewConnector(mysql.ConfigFromCredentials(credentials), log).Connect, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", instance.Driver)
	}
}

// shutdown closes every pool, the designated last use of the registry.
func (a *app) shutdown() {
	if !a.registry.CloseAll() {
		a.logger.Warn("some DB connections failed to close")
	}
	_ = a.logger.Sync()
}

func run(ctx context.Context, flags cliFlags) error {
	a, err := newApp(flags)
	if err != nil {
		return err
	}
	defer a.shutdown()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.registry.Each(func(id string, pool *dbpool.LimitedPool) {
		pool.StartCleaner(ctx, a.cfg.PruneInterval)
	})

	if a.cfg.Metrics.Enabled {
		server := a.serveMetrics()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	a.logger.Info("starting collection",
		zap.Int("instances", len(a.cfg.Instances)),
		zap.Duration("interval", a.cfg.CollectionInterval),
		zap.Duration("ttl", a.cfg.IdleTTL()))

	ticker := time.NewTicker(a.cfg.CollectionInterval)
	defer ticker.Stop()
	for {
		a.reader.ReadAll(ctx)
		select {
		case <-ctx.Done():
			a.logger.Info("stopping collection")
			return nil
		case <-ticker.C:
		}
	}
}

func (a *app) serveMetrics() *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		dbpool.NewCollector("dbpool", a.registry),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              a.cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("address", a.cfg.Metrics.Address))
	return server
}

func check(ctx context.Context, flags cliFlags) error {
	a, err := newApp(flags)
	if err != nil {
		return err
	}
	defer a.shutdown()

	a.reader.ReadAll(ctx)
	a.registry.Each(func(id string, pool *dbpool.LimitedPool) {
		stats := pool.Stats()
		fmt.Printf("%s: connections=%d/%d opened=%d pruned=%d evicted=%d closed=%d closed_failed=%d\n",
			id, pool.Len(), pool.MaxConns(),
			stats.Opened, stats.Pruned, stats.Evicted, stats.Closed, stats.ClosedFailed)
	})
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"rollcall-roster/config"
	"rollcall-roster/db"
	"rollcall-roster/logging"
	"rollcall-roster/server"
	"rollcall-roster/service"
)

var (
	configPath string
	listen     string
	dataPath   string
	sourceKind string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "rollcall-server",
	Short: "Read-only student roster API",
	Long: `rollcall-server loads a student roster once at startup and serves it
over HTTP at GET /api, optionally filtered by one or more ?class= labels.

The roster is read from data/data.csv next to the binary unless configured
otherwise. A roster that cannot be loaded stops the server from starting.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger, err := logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := run(ctx, cfg, logger); err != nil {
			logger.Error("Server exited", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (default :8080)")
	rootCmd.Flags().StringVar(&dataPath, "data", "", "roster file path, relative to the binary's directory unless absolute")
	rootCmd.Flags().StringVar(&sourceKind, "source", "", "roster source: csv, xlsx or redis")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig applies flags on top of the file and environment configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("listen") {
		cfg.Server.Listen = listen
	}
	if cmd.Flags().Changed("data") {
		cfg.Source.Path = dataPath
	}
	if cmd.Flags().Changed("source") {
		cfg.Source.Kind = sourceKind
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// run loads the roster, then serves it until ctx is cancelled. The listener
// is not opened unless the whole roster loaded.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	src, closeSrc, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	students, err := db.Load(ctx, src, logger)
	closeSrc()
	if err != nil {
		return err
	}

	roster := service.NewRoster(students)

	srv, err := server.New(roster, server.Options{
		Addr:            cfg.Server.Listen,
		Mode:            cfg.Server.Mode,
		ShutdownTimeout: cfg.GetShutdownTimeout(),
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// openSource builds the configured roster source. The returned func releases
// any connection the source holds once loading is done.
func openSource(ctx context.Context, cfg *config.Config) (db.Source, func(), error) {
	noop := func() {}

	switch cfg.Source.Kind {
	case config.SourceRedis:
		dialCtx, cancel := context.WithTimeout(ctx, cfg.GetRedisDialTimeout())
		defer cancel()
		client, err := db.NewRedisClient(dialCtx, db.RedisOptions{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.GetRedisDialTimeout(),
		})
		if err != nil {
			return nil, nil, err
		}
		return db.NewRedisSource(client, cfg.Redis.ListKey), func() { _ = client.Close() }, nil
	}

	baseDir, err := config.ExecutableDir()
	if err != nil {
		return nil, nil, err
	}
	path := cfg.ResolveDataPath(baseDir)
	if cfg.Source.Kind == config.SourceXLSX {
		return db.NewExcelSource(path, cfg.Source.Sheet), noop, nil
	}
	return db.NewCSVSource(path), noop, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

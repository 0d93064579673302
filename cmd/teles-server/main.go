package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	teles "github.com/telesdb/go-teles"
	"github.com/telesdb/go-teles/drivers/memgeo"
)

var (
	configFile string
	bind       string
	httpBind   string
	snapshot   string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "teles-server",
	Short: "In-memory Teles geospatial server",
	Long: `Serves the Teles line protocol over TCP (and optionally websocket),
backed by an in-memory R-Tree store with optional JSON snapshot persistence.
Intended for development and testing against go-teles clients.`,
	RunE: runServe,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file")
	rootCmd.Flags().StringVar(&bind, "bind", "", "TCP bind address (overrides config)")
	rootCmd.Flags().StringVar(&httpBind, "http-bind", "", "HTTP bind address for /ws and /metrics (overrides config)")
	rootCmd.Flags().StringVar(&snapshot, "snapshot", "", "Snapshot file path (overrides config)")
	rootCmd.Flags().StringVar(&logLevel, "loglevel", "", "Logging level: debug, info, warn, error (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("bind") {
		cfg.Bind = bind
	}
	if cmd.Flags().Changed("http-bind") {
		cfg.HTTPBind = httpBind
	}
	if cmd.Flags().Changed("snapshot") {
		cfg.Snapshot = snapshot
	}
	if cmd.Flags().Changed("loglevel") {
		cfg.Log.Level = logLevel
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store := memgeo.New()
	if cfg.Snapshot != "" {
		if _, err := os.Stat(cfg.Snapshot); err == nil {
			if err := store.LoadSnapshot(cfg.Snapshot); err != nil {
				return err
			}
			logger.Info("loaded snapshot", zap.String("path", cfg.Snapshot))
		}
	}

	hub, err := teles.NewHub(store, teles.HubOptions{}, logger)
	if err != nil {
		return err
	}

	if cfg.HTTPBind != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			teles.ServeWs(hub, w, r)
		})
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			logger.Info("http listener", zap.String("addr", cfg.HTTPBind))
			if err := http.ListenAndServe(cfg.HTTPBind, mux); err != nil {
				logger.Error("http listener failed", zap.Error(err))
			}
		}()
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		logger.Info("shutting down")
		if cfg.Snapshot != "" {
			if err := store.SaveSnapshot(cfg.Snapshot); err != nil {
				logger.Error("failed to save snapshot", zap.Error(err))
			} else {
				logger.Info("saved snapshot", zap.String("path", cfg.Snapshot))
			}
		}
		hub.Close()
	}()

	return hub.ListenAndServe(cfg.Bind)
}

func buildLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("bad log level %q: %w", cfg.Level, err)
	}
	if cfg.File == "" {
		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(level)
		return zcfg.Build()
	}
	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	})
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		writer,
		level,
	)
	return zap.New(core), nil
}

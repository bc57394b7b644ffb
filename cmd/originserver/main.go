// Command originserver is the Process Entrypoint (SPEC_FULL §4.8): loads
// Configuration, wires the Request Parser, File Handler, Metrics Handler,
// Observability Adapter sinks, and Connection Driver, then runs the TCP
// accept loop until an interrupt signal requests graceful shutdown.
//
// Adapted from the teacher's cmd/httpserver/main.go signal-channel
// shutdown pattern, generalized from a bare const PORT and a single demo
// handler into a cobra command reading layered configuration.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"originserver/internal/config"
	"originserver/internal/conndriver"
	"originserver/internal/fileserver"
	"originserver/internal/handler"
	"originserver/internal/metricshandler"
	"originserver/internal/observability"
	"originserver/internal/request"
	"originserver/internal/server"
)

func newRootCommand() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "originserver",
		Short: "A file-backed HTTP/1.1 origin server hardened for adversarial input",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v, configFile)
		},
	}

	flags := cmd.Flags()
	flags.String("listen-address", "", "TCP address to listen on (default :8080)")
	flags.String("document-root", "", "directory of files to serve (default ./public)")
	flags.String("metrics-endpoint-path", "", "path matched before file resolution (default /metrics)")
	flags.Bool("access-log-enabled", true, "emit one access-log line per request")
	flags.Bool("metrics-enabled", true, "record metrics per request")
	flags.StringVar(&configFile, "config", "", "optional YAML/JSON configuration file")

	_ = v.BindPFlag("listen_address", flags.Lookup("listen-address"))
	_ = v.BindPFlag("document_root", flags.Lookup("document-root"))
	_ = v.BindPFlag("metrics_endpoint_path", flags.Lookup("metrics-endpoint-path"))
	_ = v.BindPFlag("access_log_enabled", flags.Lookup("access-log-enabled"))
	_ = v.BindPFlag("metrics_enabled", flags.Lookup("metrics-enabled"))

	return cmd
}

func run(v *viper.Viper, configFile string) error {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	fileHandler, err := fileserver.New(cfg.DocumentRoot)
	if err != nil {
		return fmt.Errorf("initializing file handler: %w", err)
	}

	metrics := observability.NewPromMetrics(nil)
	var sink observability.MetricsSink
	if cfg.MetricsEnabled {
		sink = metrics
	}

	router := handler.NewRouter(cfg.MetricsPath, metricshandler.New(metrics), fileHandler)

	parser := request.New(request.Limits{
		MaxRequestLine:   cfg.MaxRequestLine,
		MaxHeaderSection: cfg.MaxHeaderSection,
		MaxHeaders:       cfg.MaxHeaderCount,
		MaxBody:          cfg.MaxBodyBytes,
	})

	accessLog := observability.NewAccessLogger(logger, cfg.AccessLogEnabled)
	readTimeout := time.Duration(cfg.ClientReadTimeoutMs) * time.Millisecond
	driver := conndriver.New(parser, router, readTimeout, sink, accessLog)

	srv, err := server.Serve(cfg.ListenAddress, driver)
	if err != nil {
		return fmt.Errorf("starting listener: %w", err)
	}
	logger.Info("server started", zap.String("listen_address", cfg.ListenAddress), zap.String("document_root", cfg.DocumentRoot))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	if err := srv.Close(); err != nil {
		logger.Warn("error closing listener", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
	return nil
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/circdesk/loanrules/internal/core/api"
	"github.com/circdesk/loanrules/internal/core/auth"
	"github.com/circdesk/loanrules/internal/core/config"
	"github.com/circdesk/loanrules/internal/core/db"
	"github.com/circdesk/loanrules/internal/core/metrics"
	"github.com/circdesk/loanrules/internal/core/server"
	"github.com/circdesk/loanrules/internal/rules"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC loan rules service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
	serveCmd.Flags().String("metrics-addr", ":9090", "metrics listen address (empty disables)")
}

// openDatabase opens --db-url, failing when it is unset.
func openDatabase() (*sqlx.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("--db-url required (or set LR_DB_URL)")
	}
	database, err := db.Open(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// loadServiceConfig loads the config file and applies changed serve flags.
func loadServiceConfig(cmd *cobra.Command) (*config.ServiceConfig, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadServiceConfig(cmd)
	if err != nil {
		return err
	}

	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RequireMigrations(ctx, database); err != nil {
		return err
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set LR_HMAC_SECRET environment variable)")
	}

	opts, err := cfg.CompilerOptions()
	if err != nil {
		return err
	}
	engine, err := rules.NewEngine(opts)
	if err != nil {
		return fmt.Errorf("failed to create compiler: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	authenticator := auth.NewAuthenticator(secrets, db.NewAPIKeyStore(queries),
		auth.WithLogger(logger),
		auth.WithPublicPrefix("/grpc.health.v1.Health/"),
	)

	service, err := api.NewLoanRulesService(db.NewLoanRulesStore(queries), engine, cfg, collector, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg, service, authenticator, collector, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting loan rules service",
		"version", Version,
		"addr", grpcServer.Addr(),
		"default_priorities", engine.Options().DefaultPriorities,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return grpcServer.Start(gctx) })

	var metricsServer *server.MetricsServer
	if cfg.MetricsAddr != "" {
		metricsServer = server.NewMetricsServer(cfg.MetricsAddr, collector, logger)
		g.Go(metricsServer.Start)
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully")
		shutdownCtx := context.WithoutCancel(ctx)
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", "error", err)
			}
		}
		return grpcServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

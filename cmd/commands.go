package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/AndrivA89/family-graph/internal/config"
	"github.com/AndrivA89/family-graph/internal/logging"
	"github.com/AndrivA89/family-graph/internal/metrics"
	"github.com/AndrivA89/family-graph/internal/repository"
	"github.com/AndrivA89/family-graph/internal/transport/httpapi"
	"github.com/AndrivA89/family-graph/internal/usecase"
)

var (
	configPath string
	cfg        config.Config
	logger     *slog.Logger

	rootCmd = &cobra.Command{
		Use:           "familytree",
		Short:         "Family relationship graph engine",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			logger = logging.New(logging.Config{
				Level:   cfg.Log.Level,
				JSON:    cfg.Log.JSON,
				Service: "familytree",
			})
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the family graph HTTP API",
		RunE:  runServe,
	}

	demoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Seed the Rao Family example and print its hierarchy, statistics and a connection",
		RunE:  runDemo,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "familytree.yaml", "path to the YAML config file")
	serveCmd.Flags().String("addr", "", "listen address, overrides http.addr")
	demoCmd.Flags().Bool("json", false, "print results as JSON")
	rootCmd.AddCommand(serveCmd, demoCmd)
}

// newUseCase opens the configured store and wires the use case on top of it.
// The returned closer releases the store.
func newUseCase(ctx context.Context, reg prometheus.Registerer) (*usecase.FamilyUseCase, func(), error) {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewFamilyRepository(store, repository.WithBatchLimit(cfg.Store.BatchLimit))
	uc := usecase.NewFamilyUseCase(repo,
		usecase.WithLogger(logger),
		usecase.WithMetrics(metrics.New(reg)),
	)
	return uc, closeStore, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	uc, closeStore, err := newUseCase(ctx, reg)
	if err != nil {
		return err
	}
	defer closeStore()

	addr := cfg.HTTP.Addr
	if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
		addr = flagAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(httpapi.NewHandlers(uc), reg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr, "store", cfg.Store.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

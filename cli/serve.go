package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"taskboard-service/config"
	"taskboard-service/logging"

	"github.com/spf13/cobra"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

// loadConfig loads configuration and initialises the logger from it.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, loaded, err := config.Load(opts.envFile)
	if err != nil {
		return nil, err
	}
	logging.InitLogger(logging.Options{
		SystemName: "taskboard-service",
		FilePath:   cfg.LogFile,
		Level:      cfg.LogLevel,
	})
	if !loaded {
		logging.Logger.Warnf("Event ID: ENV_FILE_MISSING, Description: %s not found, using process environment", opts.envFile)
	}
	return cfg, nil
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting taskboard service...")
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		a.Close(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logging.Logger.Info("Event ID: SERVICE_STOP, Description: Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	a.Close(shutdownCtx)
	return err
}

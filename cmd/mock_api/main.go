// Command mock_api serves an in-memory library backend seeded with demo
// data, for trying the client without the real server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"library-client/logger"
	"library-client/mockapi"
)

type options struct {
	addr     string
	secret   string
	env      string
	logLevel string
	empty    bool
}

func newRootCmd() *cobra.Command {
	_ = godotenv.Load()
	opts := options{
		addr:     envOr("MOCK_API_ADDR", ":8080"),
		secret:   envOr("MOCK_API_SECRET", "library-mock-secret"),
		env:      envOr("LIBRARY_ENV", "development"),
		logLevel: envOr("LIBRARY_LOG_LEVEL", "info"),
	}
	cmd := &cobra.Command{
		Use:           "mock_api",
		Short:         "Serve a seeded in-memory library API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", opts.addr, "listen address")
	f.StringVar(&opts.secret, "secret", opts.secret, "token signing secret")
	f.StringVar(&opts.logLevel, "log-level", opts.logLevel, "debug, info, warn or error")
	f.BoolVar(&opts.empty, "empty", false, "start without demo data")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func serve(ctx context.Context, opts options) error {
	logger.Init(opts.env, opts.logLevel)
	if opts.env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	api := mockapi.New(mockapi.WithSecret(opts.secret))
	if !opts.empty {
		if err := api.Seed(); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		log.Info().
			Str("admin", "admin/"+mockapi.DemoAdminPassword).
			Str("librarian", "librarian/"+mockapi.DemoLibrarianPassword).
			Str("members", "mia, noah, omar / "+mockapi.DemoMemberPassword).
			Msg("demo accounts")
	}

	srv := &http.Server{
		Addr:           opts.addr,
		Handler:        api.Router(),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", opts.addr).Msg("mock API listening; base URL is http://localhost" + opts.addr + "/api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/ferrou/turnstile"
	"github.com/ferrou/turnstile/internal/cli"
	"github.com/ferrou/turnstile/internal/logging"
	httpadapter "github.com/ferrou/turnstile/pkg/adapters/http"
	"github.com/ferrou/turnstile/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the checkout HTTP server",
	Long:  `Exposes the checkout engine as a JSON API over HTTP, with Prometheus metrics on /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := sharedOptions(cmd)
		opts.RedisAddr, _ = cmd.Flags().GetString("redis")
		port, _ := cmd.Flags().GetString("port")

		if err := runServe(opts, port); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for persistent sessions (host:port)")
}

func runServe(opts cli.RunOptions, port string) error {
	logger := logging.New(logLevel(opts.Debug))

	def, _, err := cli.LoadDefinition(context.Background(), opts)
	if err != nil {
		return err
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("flow is not valid: %w", err)
	}

	metrics := observability.NewMetrics()
	eng, err := turnstile.New(def,
		turnstile.WithLogger(logger),
		turnstile.WithLifecycleHooks(metrics.Hooks()),
		turnstile.WithResolveObserver(metrics.ObserveResolve),
	)
	if err != nil {
		return err
	}

	sessions, err := cli.SetupSessions(opts, logger)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Mount("/", httpadapter.NewHandler(eng, sessions, logger))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		fmt.Printf("Starting Turnstile Server on %s\n", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err

	case sig := <-shutdown:
		fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("could not stop server: %w", err)
			}
		}
		fmt.Println("Turnstile Server stopped gracefully")
	}
	return nil
}

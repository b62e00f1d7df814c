package commands

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ruralpay/backoffice/docs"
	"github.com/ruralpay/backoffice/internal/database"
	"github.com/ruralpay/backoffice/internal/handlers"
)

func newServeCommand(load configLoader) *cobra.Command {
	var migrate bool
	var origins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.JWT.SecretKey == "" {
				return errors.New("JWT_SECRET_KEY must be set to serve the API")
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if migrate {
				if err := database.ApplySchema(cmd.Context(), a.db); err != nil {
					return err
				}
			}

			docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port
			router := handlers.NewRouter(a.services, handlers.RouterOptions{
				JWTSecret:      cfg.JWT.SecretKey,
				AllowedOrigins: origins,
			})
			return serve(cmd.Context(), ":"+cfg.Server.Port, router)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "allowed CORS origins (default any http/https origin)")

	return cmd
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Println("Server stopped")
	return nil
}

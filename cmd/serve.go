package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"journalflow/internal/adapters/httpapi"
	"journalflow/internal/bootstrap"
	"journalflow/internal/bootstrap/logging"
	"journalflow/internal/errs"
	"journalflow/internal/usecase/editorial"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API, event feed and metrics",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		if strings.TrimSpace(app.Config.HTTP.JWTSecret) == "" {
			return errors.New("http.jwt_secret must be set to serve the API")
		}
		addr, _ := cmd.Flags().GetString("addr")
		if strings.TrimSpace(addr) == "" {
			addr = app.Config.HTTP.Addr
		}
		withRelay, _ := cmd.Flags().GetBool("relay")

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := &http.Server{
			Addr: addr,
			Handler: httpapi.NewRouter(svc, httpapi.Options{
				JWTSecret: app.Config.HTTP.JWTSecret,
				Metrics:   app.Metrics,
			}),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       app.Config.HTTP.ReadTimeout,
			WriteTimeout:      app.Config.HTTP.WriteTimeout,
		}

		if withRelay {
			go func() {
				if err := app.Relay.Run(ctx, app.Config.Notify.Relay.Interval); err != nil {
					logging.Error(ctx, "notification relay stopped", slog.Any("err", errs.Loggable(err)))
				}
			}()
		}
		if strings.TrimSpace(app.Config.Notify.CatalogFile) != "" {
			go func() {
				if err := app.Catalog.Watch(ctx); err != nil {
					logging.Warn(ctx, "template catalog watch stopped", slog.Any("err", errs.Loggable(err)))
				}
			}()
		}

		serveErr := make(chan error, 1)
		go func() {
			logging.Info(ctx, "http server listening", slog.String("addr", addr), slog.Bool("relay", withRelay))
			serveErr <- server.ListenAndServe()
		}()

		select {
		case err := <-serveErr:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errs.Wrap(err, "serve http")
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logging.Info(ctx, "shutting down http server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown http server")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default: http.addr)")
	serveCmd.Flags().Bool("relay", true, "Run the notification relay alongside the server")
}

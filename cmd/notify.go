package cmd

import (
	"encoding/json"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"journalflow/internal/bootstrap"
	"journalflow/internal/bootstrap/logging"
	domain "journalflow/internal/domain/editorial"
	"journalflow/internal/errs"
	"journalflow/internal/usecase/editorial"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification outbox tools",
}

var notifyRelayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Dispatch undelivered notification intents",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		once, _ := cmd.Flags().GetBool("once")
		watch, _ := cmd.Flags().GetBool("watch")

		if once {
			result, err := app.Relay.RunOnce(ctx)
			if err != nil {
				logging.Error(ctx, "relay run failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "run relay")
			}
			return printf(cmd, "relay: scanned=%d dispatched=%d failed=%d\n", result.Scanned, result.Dispatched, result.Failed)
		}

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if watch && strings.TrimSpace(app.Config.Notify.CatalogFile) != "" {
			go func() {
				if err := app.Catalog.Watch(ctx); err != nil {
					logging.Warn(ctx, "template catalog watch stopped", slog.Any("err", errs.Loggable(err)))
				}
			}()
		}

		logging.Info(ctx, "notification relay started",
			slog.String("driver", app.Config.Notify.Driver),
			slog.Duration("interval", app.Config.Notify.Relay.Interval),
		)
		return app.Relay.Run(ctx, app.Config.Notify.Relay.Interval)
	}),
}

var notifySchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of a notification intent",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reflector := &jsonschema.Reflector{ExpandedStruct: true}
		schema := reflector.Reflect(&domain.Intent{})
		raw, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return errs.Wrap(err, "encode intent schema")
		}
		return printf(cmd, "%s\n", raw)
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyRelayCmd)
	notifyCmd.AddCommand(notifySchemaCmd)

	notifyRelayCmd.Flags().Bool("once", false, "Dispatch one batch and exit")
	notifyRelayCmd.Flags().Bool("watch", true, "Reload the template catalog file when it changes")
}

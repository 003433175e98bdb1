package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"journalflow/internal/bootstrap"
	"journalflow/internal/bootstrap/logging"
	"journalflow/internal/errs"
	"journalflow/internal/usecase/editorconsole"
	"journalflow/internal/usecase/editorial"
)

var consoleEditorCmd = &cobra.Command{
	Use:   "editor",
	Short: "Start the editorial triage console",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, _ := cmd.Flags().GetUint64("actor")
		status, _ := cmd.Flags().GetString("status")
		mine, _ := cmd.Flags().GetBool("mine")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")
		if refreshInterval <= 0 {
			refreshInterval = 5 * time.Second
		}

		if err := svc.RequireEditor(ctx, actor); err != nil {
			return errs.Wrap(err, "open editor console")
		}

		model := editorconsole.NewEditorModel(ctx, svc, editorconsole.EditorOptions{
			ActorID:         actor,
			StatusFilter:    status,
			MineOnly:        mine,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run editor console")
		}
		return nil
	}),
}

func init() {
	consoleCmd.AddCommand(consoleEditorCmd)
	consoleEditorCmd.Flags().Uint64("actor", 0, "Editor user id")
	consoleEditorCmd.Flags().String("status", "", "Status filter, comma separated (default: open statuses)")
	consoleEditorCmd.Flags().Bool("mine", false, "Only manuscripts where the actor is handling editor")
	consoleEditorCmd.Flags().Duration("refresh-interval", 5*time.Second, "Auto refresh interval")
	_ = consoleEditorCmd.MarkFlagRequired("actor")
}

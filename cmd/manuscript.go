package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"journalflow/internal/bootstrap"
	"journalflow/internal/bootstrap/logging"
	domain "journalflow/internal/domain/editorial"
	"journalflow/internal/errs"
	"journalflow/internal/ports"
	"journalflow/internal/usecase/editorial"
)

var manuscriptCmd = &cobra.Command{
	Use:     "manuscript",
	Aliases: []string{"ms"},
	Short:   "Submit, screen, decide and inspect manuscripts",
}

var manuscriptSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new manuscript",
	Long:  "Submit a new manuscript from flags or from a json/yaml submission file (--file).",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, _ := cmd.Flags().GetUint64("actor")
		submission, err := resolveSubmission(cmd)
		if err != nil {
			return err
		}

		m, err := svc.Submit(ctx, editorial.SubmitInput{ActorID: actor, Submission: submission})
		if err != nil {
			logging.Error(ctx, "submit manuscript failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "submit manuscript")
		}
		return printf(cmd, "submitted manuscript: id=%d tracking_code=%s status=%s\n", m.ID, m.TrackingCode, m.Status)
	}),
}

var manuscriptResubmitCmd = &cobra.Command{
	Use:   "resubmit",
	Short: "Resubmit a manuscript sent back for revision",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetUint64("id")
		actor, _ := cmd.Flags().GetUint64("actor")
		fileRef, _ := cmd.Flags().GetString("file-ref")
		note, _ := cmd.Flags().GetString("note")
		m, err := svc.Resubmit(ctx, editorial.ResubmitInput{
			ManuscriptID: id,
			ActorID:      actor,
			FileRef:      fileRef,
			Note:         note,
		})
		if err != nil {
			logging.Error(ctx, "resubmit manuscript failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "resubmit manuscript")
		}
		return printf(cmd, "resubmitted manuscript: %s status=%s\n", m.TrackingCode, m.Status)
	}),
}

var manuscriptScreenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Apply a screening decision (proceed|reject|revision)",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetUint64("id")
		actor, _ := cmd.Flags().GetUint64("actor")
		decision, _ := cmd.Flags().GetString("decision")
		notes, _ := cmd.Flags().GetString("notes")
		m, err := svc.Screen(ctx, editorial.ScreenInput{
			ManuscriptID: id,
			ActorID:      actor,
			Decision:     decision,
			Notes:        notes,
		})
		if err != nil {
			logging.Error(ctx, "screen manuscript failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "screen manuscript")
		}
		return printf(cmd, "screened manuscript: %s status=%s\n", m.TrackingCode, m.Status)
	}),
}

var manuscriptAssignEditorCmd = &cobra.Command{
	Use:   "assign-editor",
	Short: "Set the handling editor and start review",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetUint64("id")
		actor, _ := cmd.Flags().GetUint64("actor")
		editor, _ := cmd.Flags().GetUint64("editor")
		if editor == 0 {
			editor = actor
		}
		m, err := svc.AssignHandlingEditor(ctx, editorial.AssignEditorInput{
			ManuscriptID: id,
			ActorID:      actor,
			EditorID:     editor,
		})
		if err != nil {
			logging.Error(ctx, "assign handling editor failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "assign handling editor")
		}
		return printf(cmd, "handling editor set: %s editor=%d status=%s\n", m.TrackingCode, editor, m.Status)
	}),
}

var manuscriptDecideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Record the final decision (accept|revision|reject)",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetUint64("id")
		actor, _ := cmd.Flags().GetUint64("actor")
		decision, _ := cmd.Flags().GetString("decision")
		note, _ := cmd.Flags().GetString("note")
		m, err := svc.RecordFinalDecision(ctx, editorial.FinalDecisionInput{
			ManuscriptID: id,
			ActorID:      actor,
			Decision:     decision,
			Note:         note,
		})
		if err != nil {
			logging.Error(ctx, "record final decision failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "record final decision")
		}
		return printf(cmd, "final decision recorded: %s status=%s\n", m.TrackingCode, m.Status)
	}),
}

var manuscriptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List manuscripts",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		statusFilter, _ := cmd.Flags().GetStringSlice("status")
		submitter, _ := cmd.Flags().GetUint64("submitter")
		editor, _ := cmd.Flags().GetUint64("editor")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := ports.ManuscriptFilter{SubmitterID: submitter, HandlingEditorID: editor, Limit: limit}
		for _, raw := range statusFilter {
			status, err := domain.ParseManuscriptStatus(raw)
			if err != nil {
				return errs.Wrap(err, "parse status filter")
			}
			filter.Statuses = append(filter.Statuses, status)
		}

		items, err := svc.ListManuscripts(ctx, filter)
		if err != nil {
			logging.Error(ctx, "list manuscripts failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list manuscripts")
		}
		views := editorial.NewManuscriptViews(items)
		return writeStructured(cmd, views, func(w io.Writer) error {
			if len(views) == 0 {
				_, err := fmt.Fprintln(w, "no manuscripts")
				return err
			}
			for _, v := range views {
				handler := "-"
				if v.HandlingEditorID != nil {
					handler = fmt.Sprintf("%d", *v.HandlingEditorID)
				}
				if _, err := fmt.Fprintf(w, "%d\t%s\t%-14s\teditor=%s\t%s\n", v.ID, v.TrackingCode, v.Status, handler, v.Title); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

var manuscriptShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show manuscript detail, reviews and history",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetUint64("id")
		code, _ := cmd.Flags().GetString("code")

		var (
			detail editorial.ManuscriptDetail
			err    error
		)
		switch {
		case strings.TrimSpace(code) != "":
			detail, err = svc.GetManuscriptByTrackingCode(ctx, code)
		case id != 0:
			detail, err = svc.GetManuscript(ctx, id)
		default:
			return fmt.Errorf("one of --id or --code is required")
		}
		if err != nil {
			logging.Error(ctx, "show manuscript failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "show manuscript")
		}

		view := editorial.NewDetailView(detail)
		return writeStructured(cmd, view, func(w io.Writer) error {
			return printDetail(w, view)
		})
	}),
}

var manuscriptStatusCmd = &cobra.Command{
	Use:   "status <tracking-code>",
	Short: "Print the current status of a tracking code",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		code := cmd.Flags().Arg(0)
		status, err := svc.CurrentStatus(ctx, code)
		if err != nil {
			return errs.Wrap(err, "read current status")
		}
		return printf(cmd, "%s\t%s\n", strings.ToUpper(strings.TrimSpace(code)), status)
	}),
}

func resolveSubmission(cmd *cobra.Command) (domain.Submission, error) {
	file, _ := cmd.Flags().GetString("file")
	if strings.TrimSpace(file) != "" {
		var submission domain.Submission
		if err := decodeFile(file, &submission); err != nil {
			return domain.Submission{}, err
		}
		return submission, nil
	}

	title, _ := cmd.Flags().GetString("title")
	abstract, _ := cmd.Flags().GetString("abstract")
	keywords, _ := cmd.Flags().GetStringSlice("keyword")
	category, _ := cmd.Flags().GetString("category")
	fileRef, _ := cmd.Flags().GetString("file-ref")
	rawAuthors, _ := cmd.Flags().GetStringArray("author")

	authors := make([]domain.AuthorRecord, 0, len(rawAuthors))
	for i, raw := range rawAuthors {
		author, err := parseAuthorFlag(raw)
		if err != nil {
			return domain.Submission{}, err
		}
		author.IsPrimary = i == 0
		authors = append(authors, author)
	}

	return domain.Submission{
		Title:    title,
		Abstract: abstract,
		Keywords: keywords,
		Category: category,
		FileRef:  fileRef,
		Authors:  authors,
	}, nil
}

// parseAuthorFlag reads "Name <email>[;affiliation[;orcid]]".
func parseAuthorFlag(raw string) (domain.AuthorRecord, error) {
	parts := strings.Split(raw, ";")
	head := strings.TrimSpace(parts[0])
	open := strings.LastIndex(head, "<")
	closeIdx := strings.LastIndex(head, ">")
	if open <= 0 || closeIdx < open {
		return domain.AuthorRecord{}, fmt.Errorf("author %q must look like \"Name <email>[;affiliation[;orcid]]\"", raw)
	}
	author := domain.AuthorRecord{
		Name:  strings.TrimSpace(head[:open]),
		Email: strings.TrimSpace(head[open+1 : closeIdx]),
	}
	if len(parts) > 1 {
		author.Affiliation = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		author.ORCID = strings.TrimSpace(parts[2])
	}
	return author, nil
}

func printDetail(w io.Writer, view editorial.DetailView) error {
	m := view.Manuscript
	lines := []string{
		fmt.Sprintf("TrackingCode: %s", m.TrackingCode),
		fmt.Sprintf("Status: %s", m.Status),
		fmt.Sprintf("Title: %s", m.Title),
		fmt.Sprintf("Category: %s", m.Category),
		fmt.Sprintf("Keywords: %s", strings.Join(m.Keywords, ", ")),
		fmt.Sprintf("Submitter: %d", m.SubmitterID),
	}
	if m.HandlingEditorID != nil {
		lines = append(lines, fmt.Sprintf("HandlingEditor: %d", *m.HandlingEditorID))
	}
	if m.Publication != nil {
		lines = append(lines, fmt.Sprintf("Publication: issue=%d pages=%s-%s doi=%s", m.Publication.IssueID, m.Publication.PageStart, m.Publication.PageEnd, m.Publication.DOI))
	}
	lines = append(lines, fmt.Sprintf("SubmittedAt: %s", m.SubmittedAt.Format("2006-01-02 15:04:05")))

	lines = append(lines, "", "Authors:")
	for _, a := range view.Authors {
		marker := " "
		if a.IsPrimary {
			marker = "*"
		}
		lines = append(lines, fmt.Sprintf("  %s %s <%s> %s", marker, a.Name, a.Email, a.Affiliation))
	}

	lines = append(lines, "", "Assignments:")
	for _, a := range view.Assignments {
		lines = append(lines, fmt.Sprintf("  #%d %s user=%d status=%s due=%s", a.ID, a.Role, a.UserID, a.Status, a.DueDate))
	}

	lines = append(lines, "", fmt.Sprintf("Reviews: completed=%d outstanding=%d", view.Tally.Completed, view.Tally.Outstanding))
	for _, r := range view.Reviews {
		lines = append(lines, fmt.Sprintf("  assignment=%d %s scores=%d/%d/%d", r.AssignmentID, r.Recommendation, r.Scores.Relevance, r.Scores.Novelty, r.Scores.Methodology))
	}

	lines = append(lines, "", "History:")
	for _, e := range view.Events {
		from := e.FromStatus
		if from == "" {
			from = "-"
		}
		lines = append(lines, fmt.Sprintf("  e%d %s user=%d %s %s->%s %s", e.EventID, e.CreatedAt.Format("2006-01-02 15:04"), e.ActorID, e.Action, from, e.ToStatus, e.Note))
	}

	if len(view.Intents) > 0 {
		lines = append(lines, "", "Notifications:")
		for _, n := range view.Intents {
			lines = append(lines, fmt.Sprintf("  %s to=%d status=%s attempts=%d", n.TemplateKey, n.RecipientUserID, n.Status, n.Attempts))
		}
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(manuscriptCmd)
	manuscriptCmd.AddCommand(manuscriptSubmitCmd)
	manuscriptCmd.AddCommand(manuscriptResubmitCmd)
	manuscriptCmd.AddCommand(manuscriptScreenCmd)
	manuscriptCmd.AddCommand(manuscriptAssignEditorCmd)
	manuscriptCmd.AddCommand(manuscriptDecideCmd)
	manuscriptCmd.AddCommand(manuscriptListCmd)
	manuscriptCmd.AddCommand(manuscriptShowCmd)
	manuscriptCmd.AddCommand(manuscriptStatusCmd)

	manuscriptSubmitCmd.Flags().Uint64("actor", 0, "Submitting user id")
	manuscriptSubmitCmd.Flags().String("file", "", "Path to a json/yaml submission document")
	manuscriptSubmitCmd.Flags().String("title", "", "Manuscript title")
	manuscriptSubmitCmd.Flags().String("abstract", "", "Manuscript abstract")
	manuscriptSubmitCmd.Flags().StringSlice("keyword", nil, "Keywords")
	manuscriptSubmitCmd.Flags().String("category", "", "Subject category")
	manuscriptSubmitCmd.Flags().String("file-ref", "", "Stored manuscript file reference")
	manuscriptSubmitCmd.Flags().StringArray("author", nil, "Author as \"Name <email>[;affiliation[;orcid]]\"; the first is primary")
	_ = manuscriptSubmitCmd.MarkFlagRequired("actor")

	manuscriptResubmitCmd.Flags().Uint64("id", 0, "Manuscript id")
	manuscriptResubmitCmd.Flags().Uint64("actor", 0, "Submitter user id")
	manuscriptResubmitCmd.Flags().String("file-ref", "", "Replacement file reference")
	manuscriptResubmitCmd.Flags().String("note", "", "Revision note")
	_ = manuscriptResubmitCmd.MarkFlagRequired("id")
	_ = manuscriptResubmitCmd.MarkFlagRequired("actor")

	manuscriptScreenCmd.Flags().Uint64("id", 0, "Manuscript id")
	manuscriptScreenCmd.Flags().Uint64("actor", 0, "Editor user id")
	manuscriptScreenCmd.Flags().String("decision", "", "Screening decision (proceed|reject|revision)")
	manuscriptScreenCmd.Flags().String("notes", "", "Screening notes (required for reject and revise)")
	_ = manuscriptScreenCmd.MarkFlagRequired("id")
	_ = manuscriptScreenCmd.MarkFlagRequired("actor")
	_ = manuscriptScreenCmd.MarkFlagRequired("decision")

	manuscriptAssignEditorCmd.Flags().Uint64("id", 0, "Manuscript id")
	manuscriptAssignEditorCmd.Flags().Uint64("actor", 0, "Editor user id performing the assignment")
	manuscriptAssignEditorCmd.Flags().Uint64("editor", 0, "Handling editor user id (default: actor)")
	_ = manuscriptAssignEditorCmd.MarkFlagRequired("id")
	_ = manuscriptAssignEditorCmd.MarkFlagRequired("actor")

	manuscriptDecideCmd.Flags().Uint64("id", 0, "Manuscript id")
	manuscriptDecideCmd.Flags().Uint64("actor", 0, "Editor user id")
	manuscriptDecideCmd.Flags().String("decision", "", "Final decision (accept|revision|reject)")
	manuscriptDecideCmd.Flags().String("note", "", "Decision note")
	_ = manuscriptDecideCmd.MarkFlagRequired("id")
	_ = manuscriptDecideCmd.MarkFlagRequired("actor")
	_ = manuscriptDecideCmd.MarkFlagRequired("decision")

	manuscriptListCmd.Flags().StringSlice("status", nil, "Status filter")
	manuscriptListCmd.Flags().Uint64("submitter", 0, "Submitter user id filter")
	manuscriptListCmd.Flags().Uint64("editor", 0, "Handling editor user id filter")
	manuscriptListCmd.Flags().Int("limit", 0, "Maximum rows")

	manuscriptShowCmd.Flags().Uint64("id", 0, "Manuscript id")
	manuscriptShowCmd.Flags().String("code", "", "Tracking code")

	addOutputFlag(manuscriptListCmd, manuscriptShowCmd)
}

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"journalflow/internal/bootstrap"
	"journalflow/internal/bootstrap/logging"
	domain "journalflow/internal/domain/editorial"
	"journalflow/internal/errs"
	"journalflow/internal/usecase/editorial"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Reviewer invitations, responses and reports",
}

var reviewInviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Invite a reviewer to a manuscript under review",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetUint64("id")
		actor, _ := cmd.Flags().GetUint64("actor")
		reviewer, _ := cmd.Flags().GetUint64("reviewer")
		rawDue, _ := cmd.Flags().GetString("due")

		var due time.Time
		if strings.TrimSpace(rawDue) != "" {
			parsed, err := time.Parse(time.DateOnly, strings.TrimSpace(rawDue))
			if err != nil {
				return errs.Wrap(err, "parse --due (YYYY-MM-DD)")
			}
			due = parsed
		}

		a, err := svc.Invite(ctx, editorial.InviteInput{
			ManuscriptID: id,
			ActorID:      actor,
			ReviewerID:   reviewer,
			DueDate:      due,
		})
		if err != nil {
			logging.Error(ctx, "invite reviewer failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "invite reviewer")
		}
		return printf(cmd, "invited reviewer: assignment=%d reviewer=%d due=%s\n", a.ID, a.UserID, a.DueDate.Format(time.DateOnly))
	}),
}

var reviewRespondCmd = &cobra.Command{
	Use:   "respond",
	Short: "Accept or decline a review invitation",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		assignment, _ := cmd.Flags().GetUint64("assignment")
		actor, _ := cmd.Flags().GetUint64("actor")
		decision, _ := cmd.Flags().GetString("decision")
		a, err := svc.Respond(ctx, editorial.RespondInput{
			AssignmentID: assignment,
			ActorID:      actor,
			Decision:     decision,
		})
		if err != nil {
			logging.Error(ctx, "respond to invitation failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "respond to invitation")
		}
		return printf(cmd, "assignment %d: %s\n", a.ID, a.Status)
	}),
}

var reviewSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit the review report of an accepted assignment",
	Long:  "Submit a review from flags or from a json/yaml review document (--file).",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		assignment, _ := cmd.Flags().GetUint64("assignment")
		actor, _ := cmd.Flags().GetUint64("actor")
		submission, err := resolveReviewSubmission(cmd)
		if err != nil {
			return err
		}

		r, err := svc.SubmitReview(ctx, editorial.SubmitReviewInput{
			AssignmentID: assignment,
			ActorID:      actor,
			Review:       submission,
		})
		if err != nil {
			logging.Error(ctx, "submit review failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "submit review")
		}
		return printf(cmd, "review submitted: id=%d assignment=%d recommendation=%s\n", r.ID, r.AssignmentID, r.Recommendation)
	}),
}

var reviewSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Aggregate completed reviews of a manuscript",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetUint64("id")
		tally, err := svc.ReviewSummary(ctx, id)
		if err != nil {
			logging.Error(ctx, "review summary failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "review summary")
		}
		view := editorial.NewTallyView(tally)
		return writeStructured(cmd, view, func(w io.Writer) error {
			if _, err := fmt.Fprintf(w, "completed=%d outstanding=%d complete=%t\n", view.Completed, view.Outstanding, view.Complete); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "mean relevance=%.2f novelty=%.2f methodology=%.2f\n", view.MeanRelevance, view.MeanNovelty, view.MeanMethodology); err != nil {
				return err
			}
			for _, rec := range domain.Recommendations() {
				if _, err := fmt.Fprintf(w, "%s: %d\n", rec, view.Recommendations[string(rec)]); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

var reviewAssignmentsCmd = &cobra.Command{
	Use:   "assignments",
	Short: "List a reviewer's assignments",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		reviewer, _ := cmd.Flags().GetUint64("reviewer")
		all, _ := cmd.Flags().GetBool("all")

		var statuses []domain.AssignmentStatus
		if !all {
			statuses = domain.ActiveAssignmentStatuses()
		}
		items, err := svc.ListReviewerAssignments(ctx, reviewer, statuses...)
		if err != nil {
			logging.Error(ctx, "list assignments failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list assignments")
		}
		views := editorial.NewAssignmentViews(items)
		sort.SliceStable(views, func(i, j int) bool { return views[i].DueDate < views[j].DueDate })
		return writeStructured(cmd, views, func(w io.Writer) error {
			if len(views) == 0 {
				_, err := fmt.Fprintln(w, "no assignments")
				return err
			}
			for _, v := range views {
				if _, err := fmt.Fprintf(w, "%d\tmanuscript=%d\t%s\tdue=%s\n", v.ID, v.ManuscriptID, v.Status, v.DueDate); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

func resolveReviewSubmission(cmd *cobra.Command) (domain.ReviewSubmission, error) {
	file, _ := cmd.Flags().GetString("file")
	if strings.TrimSpace(file) != "" {
		var submission domain.ReviewSubmission
		if err := decodeFile(file, &submission); err != nil {
			return domain.ReviewSubmission{}, err
		}
		return submission, nil
	}

	relevance, _ := cmd.Flags().GetInt("relevance")
	novelty, _ := cmd.Flags().GetInt("novelty")
	methodology, _ := cmd.Flags().GetInt("methodology")
	forAuthor, _ := cmd.Flags().GetString("comment")
	confidential, _ := cmd.Flags().GetString("confidential")
	recommendation, _ := cmd.Flags().GetString("recommendation")
	return domain.ReviewSubmission{
		Scores: domain.Scores{
			Relevance:   relevance,
			Novelty:     novelty,
			Methodology: methodology,
		},
		CommentForAuthor:    forAuthor,
		ConfidentialComment: confidential,
		Recommendation:      recommendation,
	}, nil
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(reviewInviteCmd)
	reviewCmd.AddCommand(reviewRespondCmd)
	reviewCmd.AddCommand(reviewSubmitCmd)
	reviewCmd.AddCommand(reviewSummaryCmd)
	reviewCmd.AddCommand(reviewAssignmentsCmd)

	reviewInviteCmd.Flags().Uint64("id", 0, "Manuscript id")
	reviewInviteCmd.Flags().Uint64("actor", 0, "Editor user id")
	reviewInviteCmd.Flags().Uint64("reviewer", 0, "Reviewer user id")
	reviewInviteCmd.Flags().String("due", "", "Due date YYYY-MM-DD (default: configured review window)")
	_ = reviewInviteCmd.MarkFlagRequired("id")
	_ = reviewInviteCmd.MarkFlagRequired("actor")
	_ = reviewInviteCmd.MarkFlagRequired("reviewer")

	reviewRespondCmd.Flags().Uint64("assignment", 0, "Assignment id")
	reviewRespondCmd.Flags().Uint64("actor", 0, "Invited reviewer user id")
	reviewRespondCmd.Flags().String("decision", "", "Response (accept|decline)")
	_ = reviewRespondCmd.MarkFlagRequired("assignment")
	_ = reviewRespondCmd.MarkFlagRequired("actor")
	_ = reviewRespondCmd.MarkFlagRequired("decision")

	reviewSubmitCmd.Flags().Uint64("assignment", 0, "Assignment id")
	reviewSubmitCmd.Flags().Uint64("actor", 0, "Reviewer user id")
	reviewSubmitCmd.Flags().String("file", "", "Path to a json/yaml review document")
	reviewSubmitCmd.Flags().Int("relevance", 0, "Relevance score 1-5")
	reviewSubmitCmd.Flags().Int("novelty", 0, "Novelty score 1-5")
	reviewSubmitCmd.Flags().Int("methodology", 0, "Methodology score 1-5")
	reviewSubmitCmd.Flags().String("comment", "", "Comment for the author")
	reviewSubmitCmd.Flags().String("confidential", "", "Confidential comment for editors")
	reviewSubmitCmd.Flags().String("recommendation", "", "Recommendation (accept|minor_revision|major_revision|reject)")
	_ = reviewSubmitCmd.MarkFlagRequired("assignment")
	_ = reviewSubmitCmd.MarkFlagRequired("actor")

	reviewSummaryCmd.Flags().Uint64("id", 0, "Manuscript id")
	_ = reviewSummaryCmd.MarkFlagRequired("id")

	reviewAssignmentsCmd.Flags().Uint64("reviewer", 0, "Reviewer user id")
	reviewAssignmentsCmd.Flags().Bool("all", false, "Include declined and completed assignments")
	_ = reviewAssignmentsCmd.MarkFlagRequired("reviewer")

	addOutputFlag(reviewSummaryCmd, reviewAssignmentsCmd)
}

package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"journalflow/internal/bootstrap"
	"journalflow/internal/bootstrap/logging"
	"journalflow/internal/errs"
	"journalflow/internal/usecase/editorial"
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage journal volumes and issues",
}

var issueCreateVolumeCmd = &cobra.Command{
	Use:   "create-volume",
	Short: "Create a volume",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, _ := cmd.Flags().GetUint64("actor")
		number, _ := cmd.Flags().GetInt("number")
		year, _ := cmd.Flags().GetInt("year")
		v, err := svc.CreateVolume(ctx, editorial.CreateVolumeInput{ActorID: actor, Number: number, Year: year})
		if err != nil {
			logging.Error(ctx, "create volume failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "create volume")
		}
		return printf(cmd, "created volume: id=%d number=%d year=%d\n", v.ID, v.Number, v.Year)
	}),
}

var issueCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a draft issue in a volume",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, _ := cmd.Flags().GetUint64("actor")
		volume, _ := cmd.Flags().GetUint64("volume")
		number, _ := cmd.Flags().GetInt("number")
		year, _ := cmd.Flags().GetInt("year")
		month, _ := cmd.Flags().GetInt("month")
		cover, _ := cmd.Flags().GetString("cover")
		issue, err := svc.CreateIssue(ctx, editorial.CreateIssueInput{
			ActorID:    actor,
			VolumeID:   volume,
			Number:     number,
			Year:       year,
			Month:      month,
			CoverAsset: cover,
		})
		if err != nil {
			logging.Error(ctx, "create issue failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "create issue")
		}
		return printf(cmd, "created issue: id=%d volume=%d number=%d %04d-%02d status=%s\n",
			issue.ID, issue.VolumeID, issue.Number, issue.Year, issue.Month, issue.Status)
	}),
}

var issueSetStatusCmd = &cobra.Command{
	Use:   "set-status",
	Short: "Move an issue to published or archived",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, _ := cmd.Flags().GetUint64("actor")
		id, _ := cmd.Flags().GetUint64("id")
		status, _ := cmd.Flags().GetString("status")
		issue, err := svc.SetIssueStatus(ctx, editorial.SetIssueStatusInput{ActorID: actor, IssueID: id, Status: status})
		if err != nil {
			logging.Error(ctx, "set issue status failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "set issue status")
		}
		return printf(cmd, "issue %d: %s\n", issue.ID, issue.Status)
	}),
}

var issueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List volumes, or the issues of one volume",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		volume, _ := cmd.Flags().GetUint64("volume")
		if volume == 0 {
			volumes, err := svc.ListVolumes(ctx)
			if err != nil {
				return errs.Wrap(err, "list volumes")
			}
			views := make([]editorial.VolumeView, 0, len(volumes))
			for _, v := range volumes {
				views = append(views, editorial.NewVolumeView(v))
			}
			return writeStructured(cmd, views, func(w io.Writer) error {
				for _, v := range views {
					if _, err := fmt.Fprintf(w, "volume %d\tnumber=%d\tyear=%d\n", v.ID, v.Number, v.Year); err != nil {
						return err
					}
				}
				return nil
			})
		}

		issues, err := svc.ListIssues(ctx, volume)
		if err != nil {
			return errs.Wrap(err, "list issues")
		}
		views := make([]editorial.IssueView, 0, len(issues))
		for _, i := range issues {
			views = append(views, editorial.NewIssueView(i))
		}
		return writeStructured(cmd, views, func(w io.Writer) error {
			for _, v := range views {
				if _, err := fmt.Fprintf(w, "issue %d\tnumber=%d\t%04d-%02d\t%s\n", v.ID, v.Number, v.Year, v.Month, v.Status); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Bind an accepted manuscript to an issue",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetUint64("id")
		actor, _ := cmd.Flags().GetUint64("actor")
		issue, _ := cmd.Flags().GetUint64("issue")
		pageStart, _ := cmd.Flags().GetString("page-start")
		pageEnd, _ := cmd.Flags().GetString("page-end")
		doi, _ := cmd.Flags().GetString("doi")
		m, err := svc.Publish(ctx, editorial.PublishInput{
			ManuscriptID: id,
			ActorID:      actor,
			IssueID:      issue,
			PageStart:    pageStart,
			PageEnd:      pageEnd,
			DOI:          doi,
		})
		if err != nil {
			logging.Error(ctx, "publish manuscript failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "publish manuscript")
		}
		return printf(cmd, "published manuscript: %s issue=%d status=%s\n", m.TrackingCode, issue, m.Status)
	}),
}

func init() {
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(publishCmd)
	issueCmd.AddCommand(issueCreateVolumeCmd)
	issueCmd.AddCommand(issueCreateCmd)
	issueCmd.AddCommand(issueSetStatusCmd)
	issueCmd.AddCommand(issueListCmd)

	issueCreateVolumeCmd.Flags().Uint64("actor", 0, "Manager user id")
	issueCreateVolumeCmd.Flags().Int("number", 0, "Volume number")
	issueCreateVolumeCmd.Flags().Int("year", 0, "Volume year")
	_ = issueCreateVolumeCmd.MarkFlagRequired("actor")
	_ = issueCreateVolumeCmd.MarkFlagRequired("number")
	_ = issueCreateVolumeCmd.MarkFlagRequired("year")

	issueCreateCmd.Flags().Uint64("actor", 0, "Manager user id")
	issueCreateCmd.Flags().Uint64("volume", 0, "Volume id")
	issueCreateCmd.Flags().Int("number", 0, "Issue number within the volume")
	issueCreateCmd.Flags().Int("year", 0, "Issue year")
	issueCreateCmd.Flags().Int("month", 0, "Issue month 1-12")
	issueCreateCmd.Flags().String("cover", "", "Cover asset reference")
	_ = issueCreateCmd.MarkFlagRequired("actor")
	_ = issueCreateCmd.MarkFlagRequired("volume")
	_ = issueCreateCmd.MarkFlagRequired("number")

	issueSetStatusCmd.Flags().Uint64("actor", 0, "Manager user id")
	issueSetStatusCmd.Flags().Uint64("id", 0, "Issue id")
	issueSetStatusCmd.Flags().String("status", "", "Target status (published|archived)")
	_ = issueSetStatusCmd.MarkFlagRequired("actor")
	_ = issueSetStatusCmd.MarkFlagRequired("id")
	_ = issueSetStatusCmd.MarkFlagRequired("status")

	issueListCmd.Flags().Uint64("volume", 0, "List issues of this volume instead of volumes")

	publishCmd.Flags().Uint64("id", 0, "Manuscript id")
	publishCmd.Flags().Uint64("actor", 0, "Editor user id")
	publishCmd.Flags().Uint64("issue", 0, "Issue id")
	publishCmd.Flags().String("page-start", "", "First page")
	publishCmd.Flags().String("page-end", "", "Last page")
	publishCmd.Flags().String("doi", "", "Digital object identifier")
	_ = publishCmd.MarkFlagRequired("id")
	_ = publishCmd.MarkFlagRequired("actor")
	_ = publishCmd.MarkFlagRequired("issue")

	addOutputFlag(issueListCmd)
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vytor/linguatrack/internal/db"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/notify"
	"github.com/vytor/linguatrack/internal/srs"
	"github.com/vytor/linguatrack/internal/worker"
)

func commandContext(cmd *cobra.Command) context.Context {
	return logger.NewContext(cmd.Context(), logger.Default())
}

func (a *cliApp) profile(ctx context.Context, username string) (*models.Profile, error) {
	if username == "" {
		return nil, fmt.Errorf("--profile is required")
	}
	return a.profiles.GetProfileByUsername(ctx, username)
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations and print their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the database already applied pending migrations.
			statuses, err := db.Status(commandContext(cmd), opts.app.db.DB)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, st := range statuses {
				state := "pending"
				if st.Applied {
					state = "applied"
				}
				fmt.Fprintf(out, "%-8s %05d %s\n", state, st.Version, st.Path)
			}
			return nil
		},
	}
}

func newDueCmd(opts *rootOptions) *cobra.Command {
	var (
		username string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List the cards due for review, most overdue first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			p, err := opts.app.profile(ctx, username)
			if err != nil {
				return err
			}
			due, err := opts.app.reviews.Today(ctx, p.ID, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(due) == 0 {
				fmt.Fprintln(out, "nothing due")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWORD\tTRANSLATION\tLEVEL\tDUE SINCE")
			for _, c := range due {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Word, c.Translation, c.Level, c.Schedule.NextReviewAt.Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&username, "profile", "", "profile username")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many cards (0 = all)")
	return cmd
}

func newReviewCmd(opts *rootOptions) *cobra.Command {
	var (
		username string
		cardID   int64
		quality  string
	)
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Record a review of one card (quality 0-5, clamped)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			q, err := srs.ParseQuality(quality)
			if err != nil {
				return fmt.Errorf("invalid --quality %q: must be a number between 0 and 5", quality)
			}
			p, err := opts.app.profile(ctx, username)
			if err != nil {
				return err
			}

			next, err := opts.app.reviews.Review(ctx, p.ID, cardID, int(q))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "card %d: quality %d, next review in %d days (%s), ease %.2f, repetitions %d\n",
				cardID, q, next.IntervalDays, next.NextReviewAt.Format(time.DateTime), next.EaseFactor, next.Repetitions)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "profile", "", "profile username")
	cmd.Flags().Int64Var(&cardID, "card", 0, "card id")
	cmd.Flags().StringVar(&quality, "quality", "", "recall quality 0-5")
	_ = cmd.MarkFlagRequired("card")
	_ = cmd.MarkFlagRequired("quality")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		username string
		outPath  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a profile's cards as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			p, err := opts.app.profile(ctx, username)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			n, err := opts.app.imports.ExportCSV(ctx, p.ID, w)
			if err != nil {
				return err
			}
			if outPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d cards to %s\n", n, outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "profile", "", "profile username")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (defaults to stdout)")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		username string
		path     string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import cards from a CSV file, creating the profile if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			p, err := opts.app.profiles.CreateProfile(ctx, username)
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := opts.app.imports.ImportCSV(ctx, p.ID, f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported %d cards into %s\n", res.Imported, p.Username)
			for _, re := range res.Errors {
				fmt.Fprintf(out, "line %d: %s\n", re.Line, re.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "profile", "", "profile username")
	cmd.Flags().StringVar(&path, "file", "", "CSV file to import")
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newRemindCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send the due-card reminders once, now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job := &worker.ReminderJob{
				StatsRepo:   opts.app.statsRepo,
				Notifier:    notify.New(opts.app.cfg.NotifyWebhookURL),
				Clock:       opts.app.clock,
				Concurrency: opts.app.cfg.ReminderConcurrency,
			}
			summary, err := job.Execute(commandContext(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: profiles=%d sent=%d failed=%d\n",
				summary.RunID, summary.Profiles, summary.Sent, summary.Failed)
			return nil
		},
	}
}

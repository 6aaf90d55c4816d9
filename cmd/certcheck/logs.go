package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/certcheck/internal/cli"
	"github.com/Veraticus/certcheck/internal/common"
	"github.com/Veraticus/certcheck/internal/model"
	"github.com/Veraticus/certcheck/internal/storage"
)

func logsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect the verification audit trail",
		Long:  `Browse verification history and fraud cases, review flagged submissions and view statistics.`,
	}

	cmd.AddCommand(historyCmd())
	cmd.AddCommand(fraudCmd())
	cmd.AddCommand(reviewCmd())
	cmd.AddCommand(statsCmd())

	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent verifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.ListVerificationLogs(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to list verification logs: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No verifications recorded yet."))
				return nil
			}

			table := cli.NewTable(out, "ID", "WHEN", "FILE", "SEAT NO", "RESULT", "CONFIDENCE", "SOURCE")
			for _, e := range entries {
				table.Row(e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Filename, orDash(e.Extracted.SeatNo),
					e.Result, cli.FormatPercent(e.Confidence), e.Source)
			}
			return table.Flush()
		},
	}

	cmd.Flags().Int("limit", storage.DefaultLogLimit, "Maximum entries to show")
	cmd.Flags().Bool("json", false, "Print entries as JSON")

	return cmd
}

func fraudCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fraud",
		Short: "List flagged submissions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetString("status")
			unreviewed, _ := cmd.Flags().GetBool("unreviewed")
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")

			filter := model.FraudLogFilter{
				Status:         model.Status(status),
				UnreviewedOnly: unreviewed,
				Limit:          limit,
			}
			if filter.Status != "" && !filter.Status.IsFlagged() {
				return fmt.Errorf("--status must be FAKE or SUSPICIOUS, got %q", status)
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.ListFraudLogs(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list fraud logs: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, cli.FormatSuccess("No fraud cases found."))
				return nil
			}

			table := cli.NewTable(out, "ID", "DETECTED", "FILE", "SEAT NO", "STATUS", "CONFIDENCE", "REVIEWED", "REASON")
			for _, e := range entries {
				reason := "-"
				if len(e.Reasons) > 0 {
					reason = e.Reasons[0]
				}
				table.Row(e.ID, e.DetectedAt.Local().Format("2006-01-02 15:04"), e.Filename, orDash(e.Extracted.SeatNo),
					e.Status, cli.FormatPercent(e.Confidence), e.Reviewed, reason)
			}
			return table.Flush()
		},
	}

	cmd.Flags().String("status", "", "Only show FAKE or SUSPICIOUS cases")
	cmd.Flags().Bool("unreviewed", false, "Only show cases not yet reviewed")
	cmd.Flags().Int("limit", storage.DefaultLogLimit, "Maximum entries to show")
	cmd.Flags().Bool("json", false, "Print entries as JSON")

	return cmd
}

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review <fraud-log-id>",
		Short: "Mark a fraud case as reviewed",
		Long: `Mark a fraud case as reviewed with optional notes. Without --notes the
notes are read interactively.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid fraud log id %q: %w", args[0], err)
			}

			ctx := cmd.Context()
			notes, _ := cmd.Flags().GetString("notes")
			if !cmd.Flags().Changed("notes") {
				reader := cli.NewLineReader(cmd.InOrStdin(), cmd.OutOrStdout())
				notes, err = reader.Prompt(ctx, "Review notes")
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ReviewFraudLog(ctx, id, notes); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("fraud log %d not found", id), nil)
				}
				return fmt.Errorf("failed to review fraud log: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Fraud case #%d marked as reviewed", id)))
			return nil
		},
	}

	cmd.Flags().String("notes", "", "Reviewer notes")

	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show verification statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			days, _ := cmd.Flags().GetInt("days")
			asJSON, _ := cmd.Flags().GetBool("json")
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			since := time.Now().UTC().AddDate(0, 0, -days)

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.GetVerificationStats(ctx, since)
			if err != nil {
				return fmt.Errorf("failed to load statistics: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, stats)
			}

			fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Verifications in the last %d days", days)))
			table := cli.NewTable(out, "STATUS", "COUNT", "AVG CONFIDENCE")
			for _, s := range stats.ByStatus {
				table.Row(s.Status, s.Count, cli.FormatPercent(s.AverageConfidence))
			}
			if err := table.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nTotal: %d  Fraud cases: %d\n", stats.Total, stats.FraudTotal)
			return nil
		},
	}

	cmd.Flags().Int("days", 30, "Size of the reporting window in days")
	cmd.Flags().Bool("json", false, "Print statistics as JSON")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

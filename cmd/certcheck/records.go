package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/certcheck/internal/cli"
	"github.com/Veraticus/certcheck/internal/common"
	"github.com/Veraticus/certcheck/internal/importer"
	"github.com/Veraticus/certcheck/internal/model"
)

// maxListedProblems caps the row problems printed per category on import.
const maxListedProblems = 20

func recordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Manage reference certificate records",
		Long:  `Add, import, list, inspect and deactivate the records submissions are verified against.`,
	}

	cmd.AddCommand(addRecordCmd())
	cmd.AddCommand(importRecordsCmd())
	cmd.AddCommand(listRecordsCmd())
	cmd.AddCommand(showRecordCmd())
	cmd.AddCommand(deactivateRecordCmd())

	return cmd
}

func addRecordCmd() *cobra.Command {
	var cert model.Certificate

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a single reference record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.SaveCertificate(ctx, &cert); err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError("a record with this seat number already exists", err)
				}
				return fmt.Errorf("failed to add record: %w", err)
			}
			a.invalidate(ctx, cert.SeatNo)

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added record #%d for %s (%s)", cert.ID, cert.StudentName, cert.SeatNo)))
			return nil
		},
	}

	cmd.Flags().StringVar(&cert.SeatNo, "seat", "", "Seat number (required)")
	cmd.Flags().StringVar(&cert.StudentName, "student", "", "Student name (required)")
	cmd.Flags().StringVar(&cert.MotherName, "mother", "", "Mother's name")
	cmd.Flags().Float64Var(&cert.SGPA, "sgpa", 0, "SGPA between 0 and 10")
	cmd.Flags().StringVar(&cert.ResultDate, "date", "", "Result date as printed on the certificate")
	cmd.Flags().StringVar(&cert.Subject, "subject", "", "Subject or programme")
	_ = cmd.MarkFlagRequired("seat")
	_ = cmd.MarkFlagRequired("student")

	return cmd
}

func importRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Bulk import reference records from CSV",
		Long: `Import records from a CSV file with the columns
seat_no, student_name, mother_name, sgpa, result_date, subject.

Invalid and duplicate rows are reported and skipped. The remaining rows are
inserted in a single transaction.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := importer.New(a.store).Parse(ctx, f)
			if err != nil {
				return common.NewUserError("import failed", err)
			}

			out := cmd.OutOrStdout()
			printProblems(out, "Validation errors", report.ValidationErrors)
			printProblems(out, "Duplicates", report.Duplicates)

			if len(report.Valid) == 0 {
				return common.NewUserError("no valid certificates found in CSV file", nil)
			}
			if dryRun {
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Dry run: %d records would be imported", len(report.Valid))))
				return nil
			}

			n, err := importer.Commit(ctx, a.store, report)
			if err != nil {
				return common.NewUserError("no certificates were added", err)
			}
			for _, cert := range report.Certificates() {
				a.invalidate(ctx, cert.SeatNo)
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d certificates", n)))
			if problems := report.Problems(); problems > 0 {
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d rows had errors and were skipped", problems)))
			}
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Validate the file without importing")

	return cmd
}

func printProblems(w io.Writer, title string, problems []string) {
	if len(problems) == 0 {
		return
	}
	fmt.Fprintln(w, cli.WarningStyle.Render(title+":"))
	for i, p := range problems {
		if i == maxListedProblems {
			fmt.Fprintf(w, "  ... and %d more\n", len(problems)-maxListedProblems)
			break
		}
		fmt.Fprintf(w, "  %s\n", p)
	}
}

func listRecordsCmd() *cobra.Command {
	var filter model.CertificateFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reference records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			certs, err := a.store.ListCertificates(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list records: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, certs)
			}
			if len(certs) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("No records found. Use 'certcheck records add' or 'certcheck records import' to create some."))
				return nil
			}

			table := cli.NewTable(out, "ID", "SEAT NO", "STUDENT", "MOTHER", "SGPA", "RESULT DATE", "SUBJECT", "ACTIVE")
			for _, c := range certs {
				table.Row(c.ID, c.SeatNo, c.StudentName, c.MotherName, fmt.Sprintf("%.2f", c.SGPA), c.ResultDate, c.Subject, c.IsActive)
			}
			return table.Flush()
		},
	}

	cmd.Flags().BoolVar(&filter.IncludeInactive, "all", false, "Include deactivated records")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Filter by seat number or name")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum records to show (0 for all)")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "Records to skip")
	cmd.Flags().Bool("json", false, "Print records as JSON")

	return cmd
}

func showRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <seat-no|id>",
		Short: "Show one reference record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			byID, _ := cmd.Flags().GetBool("id")

			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var cert *model.Certificate
			if byID {
				id, perr := strconv.ParseInt(args[0], 10, 64)
				if perr != nil {
					return fmt.Errorf("invalid record id %q: %w", args[0], perr)
				}
				cert, err = a.store.GetCertificate(ctx, id)
			} else {
				cert, err = a.store.FindActiveCertificate(ctx, args[0])
			}
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError(fmt.Sprintf("no record found for %s", args[0]), nil)
			}
			if err != nil {
				return fmt.Errorf("failed to load record: %w", err)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "ID:           %d\n", cert.ID)
			fmt.Fprintf(&b, "Seat No:      %s\n", cert.SeatNo)
			fmt.Fprintf(&b, "Student Name: %s\n", cert.StudentName)
			fmt.Fprintf(&b, "Mother Name:  %s\n", cert.MotherName)
			fmt.Fprintf(&b, "SGPA:         %.2f\n", cert.SGPA)
			fmt.Fprintf(&b, "Result Date:  %s\n", cert.ResultDate)
			fmt.Fprintf(&b, "Subject:      %s\n", cert.Subject)
			fmt.Fprintf(&b, "Active:       %t\n", cert.IsActive)
			fmt.Fprintf(&b, "Created:      %s", cert.CreatedAt.Format("2006-01-02 15:04"))
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(cli.FolderIcon+" Reference Record", b.String()))
			return nil
		},
	}

	cmd.Flags().Bool("id", false, "Look up by record id instead of seat number")

	return cmd
}

func deactivateRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deactivate <seat-no>",
		Short: "Deactivate a reference record",
		Long: `Deactivate a record so that submissions with its seat number no longer
match. The record is kept for the audit trail.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			seatNo := model.NormalizeSeatNo(args[0])

			ctx := cmd.Context()
			if !yes {
				reader := cli.NewLineReader(cmd.InOrStdin(), cmd.OutOrStdout())
				ok, err := reader.Confirm(ctx, fmt.Sprintf("Deactivate record %s?", seatNo))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Canceled"))
					return nil
				}
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.DeactivateCertificate(ctx, seatNo); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no active record found for %s", seatNo), nil)
				}
				return fmt.Errorf("failed to deactivate record: %w", err)
			}
			a.invalidate(ctx, seatNo)

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deactivated "+seatNo))
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

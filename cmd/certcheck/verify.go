package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/Veraticus/certcheck/internal/cli"
	"github.com/Veraticus/certcheck/internal/engine"
)

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <file>...",
		Short: "Verify certificate images or PDFs",
		Long: `Run OCR on each document, extract the certificate fields and score them
against the reference records. Every result is written to the audit log and
FAKE or SUSPICIOUS results are also recorded as fraud cases.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runVerify,
	}

	cmd.Flags().Bool("json", false, "Print results as JSON")
	cmd.Flags().String("qr", "", "Write a QR receipt PNG for a single document")
	cmd.Flags().Int("concurrency", 0, "Documents processed in parallel (default batch.concurrency)")

	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	qrPath, _ := cmd.Flags().GetString("qr")
	workers, _ := cmd.Flags().GetInt("concurrency")
	if qrPath != "" && len(args) > 1 {
		return fmt.Errorf("--qr can only be used with a single document")
	}
	if workers <= 0 {
		workers = concurrency()
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	eng, err := a.buildEngine(ctx, true)
	if err != nil {
		return err
	}

	subs := make([]engine.Submission, len(args))
	for i, path := range args {
		subs[i] = engine.Submission{Path: path}
	}

	if len(subs) == 1 {
		report, err := eng.Process(ctx, subs[0])
		if report != nil {
			if perr := printReports(cmd.OutOrStdout(), asJSON, report); perr != nil {
				return perr
			}
		}
		if err != nil {
			return err
		}
		if qrPath != "" {
			if err := writeReceipt(qrPath, report); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess("QR receipt written to "+qrPath))
		}
		return nil
	}

	return runBatch(ctx, cmd, eng, subs, workers, asJSON)
}

func runBatch(ctx context.Context, cmd *cobra.Command, eng *engine.Engine, subs []engine.Submission, workers int, asJSON bool) error {
	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := handler.HandleInterrupts(ctx, len(subs))
	defer stop()

	bar := progressbar.NewOptions(len(subs),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Verifying documents..."),
		progressbar.OptionClearOnFinish(),
	)

	reports, summary, batchErr := eng.ProcessBatch(ctx, subs, workers, func(_ int, _ *engine.Report, err error) {
		if err == nil {
			handler.MarkCompleted()
		}
		_ = bar.Add(1)
	})
	_ = bar.Finish()

	done := make([]*engine.Report, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			done = append(done, r)
		}
	}
	if err := printReports(cmd.OutOrStdout(), asJSON, done...); err != nil {
		return err
	}
	if !asJSON {
		fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSummary(summary))
	}

	if handler.WasInterrupted() {
		return fmt.Errorf("verification interrupted: %w", context.Canceled)
	}
	return batchErr
}

func printReports(w io.Writer, asJSON bool, reports ...*engine.Report) error {
	if asJSON {
		var payload any = reports
		if len(reports) == 1 {
			payload = reports[0]
		}
		return writeJSON(w, payload)
	}
	for _, r := range reports {
		fmt.Fprintln(w, cli.RenderReport(r))
	}
	return nil
}

// receipt is the payload encoded in a verification QR code.
type receipt struct {
	VerifiedAt time.Time `json:"verified_at"`
	Filename   string    `json:"filename"`
	Status     string    `json:"status"`
	SeatNo     string    `json:"seat_no,omitempty"`
	LogID      int64     `json:"verification_log_id"`
	Confidence float64   `json:"confidence"`
}

func writeReceipt(path string, report *engine.Report) error {
	payload, err := json.Marshal(receipt{
		VerifiedAt: time.Now().UTC().Truncate(time.Second),
		Filename:   report.Filename,
		Status:     string(report.Outcome.Status),
		SeatNo:     report.Fields.SeatNo,
		LogID:      report.LogID,
		Confidence: report.Outcome.Confidence,
	})
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}
	if err := qrcode.WriteFile(string(payload), qrcode.Medium, 256, path); err != nil {
		return fmt.Errorf("failed to write QR receipt: %w", err)
	}
	return nil
}

func verifyTextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-text [text]",
		Short: "Verify raw OCR text",
		Long: `Verify text that was already recognized elsewhere. The text is taken from
--file, from the arguments, or from standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			file, _ := cmd.Flags().GetString("file")

			text, name, err := readTextInput(cmd, file, args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			eng, err := a.buildEngine(ctx, false)
			if err != nil {
				return err
			}

			report, err := eng.Process(ctx, engine.Submission{Text: text, Filename: name})
			if report != nil {
				if perr := printReports(cmd.OutOrStdout(), asJSON, report); perr != nil {
					return perr
				}
			}
			return err
		},
	}

	cmd.Flags().String("file", "", "Read text from this file")
	cmd.Flags().Bool("json", false, "Print the result as JSON")

	return cmd
}

// readTextInput resolves text from a file, the arguments or stdin, in that order.
func readTextInput(cmd *cobra.Command, file string, args []string) (string, string, error) {
	var text string
	name := "text"
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		text, name = string(data), filepath.Base(file)
	case len(args) > 0:
		text = strings.Join(args, " ")
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		text, name = string(data), "stdin"
	}

	if strings.TrimSpace(text) == "" {
		return "", "", errNoInput
	}
	return text, name, nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/certcheck/internal/cli"
	"github.com/Veraticus/certcheck/internal/extract"
	"github.com/Veraticus/certcheck/internal/model"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract certificate fields without verifying",
		Long: `Print the fields recovered from a document (or from --text) along with
the extraction quality. Nothing is looked up or logged.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			text, _ := cmd.Flags().GetString("text")
			if text == "" && len(args) == 0 {
				return fmt.Errorf("%w: pass a file or --text", errNoInput)
			}

			ctx := cmd.Context()
			if text == "" {
				reader, closeFn, err := buildReader(ctx)
				if err != nil {
					return err
				}
				defer func() { _ = closeFn() }()

				text, err = reader.ReadText(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", args[0], err)
				}
			}

			extractor, err := buildExtractor()
			if err != nil {
				return err
			}
			fields := extractor.Extract(text)
			quality := extract.Quality(fields)

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, struct {
					Fields  model.ExtractedFields   `json:"extracted_data"`
					Quality model.ExtractionQuality `json:"extraction_quality"`
				}{fields, quality})
			}

			fmt.Fprintln(out, cli.RenderBox(cli.SearchIcon+" Extracted Fields", cli.RenderFields(fields)+"\n\n"+cli.RenderQuality(quality)))
			return nil
		},
	}

	cmd.Flags().String("text", "", "Extract from this text instead of a file")
	cmd.Flags().Bool("json", false, "Print the result as JSON")

	return cmd
}

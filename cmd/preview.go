// =============================================================================
// File Mapper - Preview Command
// =============================================================================
//
// This file defines the 'preview' command, which parses a single file and
// shows its detected format, columns and first rows.
//
// COMMAND USAGE:
//   converter preview <file> [--rows N] [--content-type TYPE] [--mapping m.yaml]
//
// With --mapping the rows are shown after the mapping is applied.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/file-mapper/internal/config"
	"github.com/ginjaninja78/file-mapper/internal/converter"
	"github.com/ginjaninja78/file-mapper/internal/ingest"
	"github.com/ginjaninja78/file-mapper/internal/types"
	"github.com/ginjaninja78/file-mapper/internal/validation"
)

var previewContentType string

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Show the detected format, columns and first rows of a file",
	Long: `Parse a single file and print the first rows as a table.

The format is detected from the file suffix. --content-type overrides the
detection with a MIME type such as text/csv or application/json.

With --mapping the saved mapping is validated against the file and the
mapped rows are printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().Int("rows", 5, "Number of rows to show")
	previewCmd.Flags().StringVar(&previewContentType, "content-type", "", "Declared MIME type, overriding suffix detection")
	previewCmd.Flags().StringP("mapping", "m", "", "Mapping file (YAML) to apply")
	addInputFlags(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	f, err := ingest.ReadFile(args[0])
	if err != nil {
		return err
	}
	f.ContentType = previewContentType

	ds, err := newLoader().Load(commandContext(cmd), f)
	if err != nil {
		return fmt.Errorf("%s: %w", types.Message(err), err)
	}

	fmt.Fprintf(out, "%s  %s  %d rows\n\n", f.Name, okStyle.Render(string(ds.Format)), ds.Len())

	mappingPath, _ := cmd.Flags().GetString("mapping")
	if mappingPath == "" {
		renderRows(out, ds.Headers(), ds.Head(cfg.PreviewRows))
		return nil
	}

	mapping, err := config.LoadMapping(mappingPath)
	if err != nil {
		return err
	}

	report := validation.NewValidator(validation.Options{
		HasSource:   ds.HasKey,
		CheckAction: converter.CheckAction,
	}).ValidateMapping(mapping)
	if !report.IsValid {
		fmt.Fprint(out, validation.FormatErrors(report.Errors))
		return report.Err()
	}

	t, err := converter.NewTransformer(mapping)
	if err != nil {
		return err
	}
	renderRows(out, mapping.Names(), converter.Preview(ds, mapping, t, cfg.PreviewRows))
	return nil
}

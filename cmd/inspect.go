// =============================================================================
// File Mapper - Inspect Command
// =============================================================================
//
// This file defines the 'inspect' command, which prints what the converter
// knows about a file without mapping it.
//
// COMMAND USAGE:
//   converter inspect <file> [--dump]
//
// OUTPUT:
//   - Detected format, row count and columns
//   - OFX: header fields and statement summaries (account, balance, range)
//   - Spreadsheets: sheet names (only the first is read)
//   - --dump: the full parsed structure, pretty-printed
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/file-mapper/internal/detect"
	"github.com/ginjaninja78/file-mapper/internal/ingest"
	"github.com/ginjaninja78/file-mapper/internal/ofxparser"
	"github.com/ginjaninja78/file-mapper/internal/types"
	"github.com/ginjaninja78/file-mapper/internal/xlsxparser"
)

var inspectDump bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Describe a file: format, columns and statement details",
	Long: `Inspect parses a file and describes it.

For OFX files the statement details (institution, account, balance and date
range) are read with a full OFX client parser. This requires a complete
response; when it fails the transactions may still be loadable, as 'preview'
repairs malformed SGML before parsing.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectDump, "dump", false, "Pretty-print the parsed structure")
	addInputFlags(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	printer := pp.New()
	printer.SetOutput(out)
	printer.SetColoringEnabled(false)

	f, err := ingest.ReadFile(args[0])
	if err != nil {
		return err
	}

	format, err := detect.Detect(f.Name, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "File:    %s (%d bytes)\n", f.Name, len(f.Data))
	fmt.Fprintf(out, "Format:  %s\n", format)

	ds, err := newLoader().Load(commandContext(cmd), f)
	if err != nil {
		fmt.Fprintf(out, "Rows:    %s\n", errStyle.Render(types.Message(err)))
	} else {
		fmt.Fprintf(out, "Rows:    %d\n", ds.Len())
		fmt.Fprintf(out, "Columns: %v\n", ds.Headers())
	}

	switch format {
	case types.FormatOFX:
		inspectOFX(cmd, printer, f.Data)
	case types.FormatSpreadsheet:
		names, err := xlsxparser.SheetNames(f.Data)
		if err != nil || len(names) == 0 {
			logger.Warn("could not list sheets", "err", err)
		} else {
			fmt.Fprintf(out, "Sheets:  %v (reading %q)\n", names, names[0])
		}
	}

	if inspectDump && ds.Len() > 0 {
		fmt.Fprintln(out)
		for _, row := range ds.Head(cfg.PreviewRows) {
			printer.Println(row.Strings())
		}
	}
	return nil
}

func inspectOFX(cmd *cobra.Command, printer *pp.PrettyPrinter, data []byte) {
	out := cmd.OutOrStdout()

	if header := ofxparser.Header(data); len(header) > 0 {
		fmt.Fprintf(out, "Header:  VERSION=%s ENCODING=%s CHARSET=%s\n", header["VERSION"], header["ENCODING"], header["CHARSET"])
	}

	summaries, resp, err := ofxparser.Summarize(data)
	if err != nil {
		logger.Warn("statement details unavailable", "err", err)
		return
	}

	for _, s := range summaries {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Statement (%s)\n", s.Kind)
		if s.Institution != "" {
			fmt.Fprintf(out, "  Institution:  %s\n", s.Institution)
		}
		fmt.Fprintf(out, "  Account:      %s %s\n", s.AccountID, s.AccountType)
		fmt.Fprintf(out, "  Balance:      %s %s (as of %s)\n", s.LedgerBalance, s.Currency, s.BalanceAsOf.Format("2006-01-02"))
		fmt.Fprintf(out, "  Period:       %s to %s\n", s.Start.Format("2006-01-02"), s.End.Format("2006-01-02"))
		fmt.Fprintf(out, "  Transactions: %d\n", s.Transactions)
	}

	if inspectDump {
		fmt.Fprintln(out)
		printer.Println(resp.Signon)
	}
}

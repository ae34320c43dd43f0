// =============================================================================
// File Mapper - Map Command
// =============================================================================
//
// This file defines the 'map' command, an interactive editor for the column
// mapping of one file. It reads commands line by line from standard input.
//
// COMMAND USAGE:
//   converter map <file> [--load m.yaml] [--save m.yaml]
//
// EDITOR COMMANDS:
//   add [name]          : Declare a new target column
//   rename <i> <name>   : Rename target i
//   bind <i> <source>   : Bind target i to a source column
//   unbind <i>          : Clear the source of target i
//   remove <i>          : Remove target i
//   suggest             : Replace the targets with date/description/amount
//   show                : List the source columns and targets
//   validate            : Check that every target has a source
//   preview             : Show the first mapped rows (after validate)
//   export <csv|ofx|both> : Write the exports (after validate)
//   save [path]         : Write the mapping to a YAML file
//   quit                : Leave the editor
//
// =============================================================================

package cmd

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/file-mapper/internal/config"
	"github.com/ginjaninja78/file-mapper/internal/converter"
	"github.com/ginjaninja78/file-mapper/internal/export"
	"github.com/ginjaninja78/file-mapper/internal/ingest"
	"github.com/ginjaninja78/file-mapper/internal/mapper"
	"github.com/ginjaninja78/file-mapper/internal/types"
	"github.com/ginjaninja78/file-mapper/internal/validation"
	"github.com/ginjaninja78/file-mapper/pkg/utils"
)

var mapCmd = &cobra.Command{
	Use:   "map <file>",
	Short: "Build a column mapping for a file interactively",
	Long: `Open a file and edit its column mapping from the terminal.

Targets are the output columns. Each target is bound to one source column of
the file. Once every target has a source, 'validate' unlocks 'preview' and
'export'. Type 'help' for the list of commands.

With --save the mapping is written on quit if it validated, so it can be
reused with 'converter convert --mapping'.`,
	Args: cobra.ExactArgs(1),
	RunE: runMap,
}

func init() {
	rootCmd.AddCommand(mapCmd)

	mapCmd.Flags().String("load", "", "Start from a saved mapping (YAML)")
	mapCmd.Flags().String("save", "", "Write the mapping here on quit once validated")
	mapCmd.Flags().String("output-dir", ".", "Directory for exported files")
	mapCmd.Flags().String("name-format", "mapped_data", "Output base name for exported files")
	mapCmd.Flags().String("default-type", "CREDIT", "TRNTYPE written for OFX rows without one")
	addInputFlags(mapCmd)
}

// mapEditor is the state of one interactive session.
type mapEditor struct {
	out      io.Writer
	path     string
	ds       *types.Dataset
	m        *mapper.Mapper
	mapping  *types.ColumnMapping
	savePath string
}

func runMap(cmd *cobra.Command, args []string) error {
	f, err := ingest.ReadFile(args[0])
	if err != nil {
		return err
	}
	ds, err := newLoader().Load(commandContext(cmd), f)
	if err != nil {
		return fmt.Errorf("%s: %w", types.Message(err), err)
	}

	e := &mapEditor{
		out:  cmd.OutOrStdout(),
		path: args[0],
		ds:   ds,
		m:    mapper.New(ds.Headers()),
	}
	e.m.SetAliases(cfg.OFX.Aliases)
	e.savePath, _ = cmd.Flags().GetString("save")

	if load, _ := cmd.Flags().GetString("load"); load != "" {
		mapping, err := config.LoadMapping(load)
		if err != nil {
			return err
		}
		e.m.Load(mapping)
	}

	fmt.Fprintf(e.out, "%s: %s, %d rows. Type 'help' for commands.\n", f.Name, ds.Format, ds.Len())
	e.show()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(e.out, "> ")
		if !scanner.Scan() {
			break
		}
		done, err := e.exec(scanner.Text())
		if err != nil {
			fmt.Fprintln(e.out, errStyle.Render("error: "+err.Error()))
		}
		if done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Fprintln(e.out)
	return e.finish()
}

// exec runs one editor command line. It reports true when the editor should
// exit.
func (e *mapEditor) exec(line string) (bool, error) {
	word, rest := nextWord(line)
	if word == "" {
		return false, nil
	}
	name, args := strings.ToLower(word), strings.Fields(rest)

	switch name {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		e.help()
	case "show", "ls":
		e.show()
	case "add":
		i := e.m.AddTarget()
		if rest != "" {
			return false, e.m.RenameTarget(i, rest)
		}
	case "rename":
		i, value, err := indexArg(rest)
		if err != nil {
			return false, err
		}
		return false, e.m.RenameTarget(i, value)
	case "bind":
		i, value, err := indexArg(rest)
		if err != nil {
			return false, err
		}
		return false, e.m.BindSource(i, value)
	case "unbind":
		i, _, err := indexArg(rest)
		if err != nil {
			return false, err
		}
		return false, e.m.BindSource(i, "")
	case "remove", "rm":
		i, _, err := indexArg(rest)
		if err != nil {
			return false, err
		}
		return false, e.m.RemoveTarget(i)
	case "suggest":
		e.m.Suggest()
		e.show()
	case "validate":
		return false, e.validate()
	case "preview":
		return false, e.preview()
	case "export":
		return false, e.export(args)
	case "save":
		path := e.savePath
		if len(args) > 0 {
			path = args[0]
		}
		if path == "" {
			return false, errors.New("save needs a path")
		}
		if err := config.SaveMapping(path, e.m.Mapping()); err != nil {
			return false, err
		}
		fmt.Fprintf(e.out, "saved %s\n", path)
	default:
		return false, fmt.Errorf("unknown command %q", name)
	}
	return false, nil
}

func (e *mapEditor) help() {
	fmt.Fprintln(e.out, `  add [name]            declare a new target
  rename <i> <name>     rename target i
  bind <i> <source>     bind target i to a source column
  unbind <i>            clear the source of target i
  remove <i>            remove target i
  suggest               use the date/description/amount targets
  show                  list columns and targets
  validate              check the mapping
  preview               show mapped rows (after validate)
  export <csv|ofx|both> write the exports (after validate)
  save [path]           write the mapping to YAML
  quit                  leave`)
}

func (e *mapEditor) show() {
	fmt.Fprintf(e.out, "columns: %s\n", strings.Join(e.m.Headers(), ", "))
	fmt.Fprintf(e.out, "targets (%s):\n", e.m.State())
	renderTargets(e.out, e.m.Targets())
}

func (e *mapEditor) validate() error {
	mapping, report := e.m.Validate()
	if mapping == nil {
		e.mapping = nil
		fmt.Fprint(e.out, validation.FormatErrors(report.Errors))
		return report.Err()
	}

	e.mapping = mapping
	fmt.Fprintln(e.out, okStyle.Render(fmt.Sprintf("valid: %d target(s)", report.TargetsValidated)))
	if report.WarningCount > 0 {
		fmt.Fprint(e.out, validation.FormatErrors(report.Errors))
	}
	return nil
}

// validated returns the mapping of the last successful validate, or an error
// when the targets changed since.
func (e *mapEditor) validated() (*types.ColumnMapping, error) {
	if e.mapping == nil || e.m.State() != mapper.StateValidated {
		return nil, errors.New("run 'validate' first")
	}
	return e.mapping, nil
}

func (e *mapEditor) preview() error {
	mapping, err := e.validated()
	if err != nil {
		return err
	}
	t, err := converter.NewTransformer(mapping)
	if err != nil {
		return err
	}
	renderRows(e.out, mapping.Names(), converter.Preview(e.ds, mapping, t, cfg.PreviewRows))
	return nil
}

func (e *mapEditor) export(args []string) error {
	mapping, err := e.validated()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return errors.New("export needs a format: csv, ofx or both")
	}
	formats, err := parseFormats(args[0])
	if err != nil {
		return err
	}

	t, err := converter.NewTransformer(mapping)
	if err != nil {
		return err
	}
	rows := converter.ApplyWith(e.ds, mapping, t)

	files := utils.NewFileManager(cfg.OutputDir, cfg.OutputNameFormat)
	if err := files.EnsureDirectories(); err != nil {
		return err
	}

	for _, f := range formats {
		var buf bytes.Buffer
		if err := export.Write(&buf, f, mapping, rows, export.OFXOptionsFrom(cfg.OFX)); err != nil {
			return err
		}
		path, err := files.WriteOutput(e.path, f.Extension(), buf.Bytes())
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "wrote %s (%d rows)\n", path, len(rows))
	}
	return nil
}

// finish saves the mapping on exit when --save is set.
func (e *mapEditor) finish() error {
	if e.savePath == "" {
		return nil
	}
	if e.m.State() != mapper.StateValidated {
		fmt.Fprintln(e.out, mutedStyle.Render("mapping not validated; not saved"))
		return nil
	}
	if err := config.SaveMapping(e.savePath, e.m.Mapping()); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "saved %s\n", e.savePath)
	return nil
}

// indexArg parses the leading target index of rest and returns the text
// after it verbatim, so column names keep their inner spacing.
func indexArg(rest string) (int, string, error) {
	word, value := nextWord(rest)
	if word == "" {
		return 0, "", errors.New("missing target index")
	}
	i, err := strconv.Atoi(word)
	if err != nil {
		return 0, "", fmt.Errorf("invalid target index %q", word)
	}
	return i, value, nil
}

// nextWord splits s into its first whitespace-separated word and the text
// after the separator that follows it.
func nextWord(s string) (string, string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return s, ""
	}
	return s[:end], strings.TrimLeftFunc(s[end:], unicode.IsSpace)
}

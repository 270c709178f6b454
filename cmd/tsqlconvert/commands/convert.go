package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edudw/tsqlconvert/convert"
)

// NewRootCmd builds the tsqlconvert root command. The root itself performs
// conversion: an inline statement, a single file, or a whole directory.
func NewRootCmd(version string) *cobra.Command {
	var (
		inputFile  string
		outputFile string
		inputDir   string
		outputDir  string
		rulesFile  string
		preview    bool
		quiet      bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:     "tsqlconvert [statement]",
		Short:   "Convert T-SQL syntax to PL/pgSQL",
		Long:    "Best-effort T-SQL to PL/pgSQL syntax converter.\nConverted output always needs manual review; every run reports the statements it passed through or could not decide.",
		Version: version,
		Args:    cobra.MaximumNArgs(1),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			InitLogging(verbose, quiet)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bind the cobra flags into viper so they can be read uniformly.
			for _, name := range []string{"input", "output", "directory", "output-directory", "rules"} {
				if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
					return err
				}
			}
			return runConvert(args, convertOptions{
				inputFile:  viper.GetString("input"),
				outputFile: viper.GetString("output"),
				inputDir:   viper.GetString("directory"),
				outputDir:  viper.GetString("output-directory"),
				rulesFile:  viper.GetString("rules"),
				preview:    preview,
				quiet:      quiet,
			})
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file containing T-SQL code")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (stdout when omitted)")
	cmd.Flags().StringVarP(&inputDir, "directory", "d", "", "Convert every *.sql file in this directory")
	cmd.Flags().StringVar(&outputDir, "output-directory", "", "Output directory for --directory mode")
	cmd.Flags().StringVar(&rulesFile, "rules", "", "Override the builtin conversion rules with a YAML file")
	cmd.Flags().BoolVarP(&preview, "preview", "p", false, "Print conversion results without writing files")
	cmd.Flags().BoolVarP(&quiet, "test", "t", false, "Suppress diagnostic output")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging")
	cmd.MarkFlagsMutuallyExclusive("input", "directory")

	cmd.AddCommand(NewValidateCmd())
	return cmd
}

type convertOptions struct {
	inputFile  string
	outputFile string
	inputDir   string
	outputDir  string
	rulesFile  string
	preview    bool
	quiet      bool
}

func runConvert(args []string, opts convertOptions) error {
	conv, err := newConverter(opts.rulesFile)
	if err != nil {
		return err
	}

	switch {
	case opts.inputDir != "":
		return runDirectory(conv, opts)
	case opts.inputFile != "":
		return runFile(conv, opts)
	case len(args) == 1:
		return runInline(conv, args[0], opts)
	}
	return fmt.Errorf("nothing to convert: pass a statement, --input or --directory")
}

func newConverter(rulesFile string) (*convert.Converter, error) {
	if rulesFile == "" {
		return convert.New()
	}
	data, err := os.ReadFile(rulesFile)
	if err != nil {
		return nil, fmt.Errorf("reading rules file %q: %w", rulesFile, err)
	}
	tables, err := convert.LoadRuleTables(data)
	if err != nil {
		return nil, fmt.Errorf("loading rules file %q: %w", rulesFile, err)
	}
	log.Debug().Str("rules", rulesFile).Msg("rule tables overridden")
	return convert.New(convert.WithRuleTables(tables))
}

// runInline converts a single statement and prints it to stdout.
func runInline(conv *convert.Converter, statement string, opts convertOptions) error {
	res := conv.ConvertText(statement)
	fmt.Println(res.Output)
	reportDiagnostics(res, opts.quiet)
	if res.Fatal() {
		return res.Errors[0]
	}
	return nil
}

// runFile converts one file, writing to --output unless --preview is set.
func runFile(conv *convert.Converter, opts convertOptions) error {
	outPath := opts.outputFile
	if opts.preview {
		outPath = ""
	}
	res, err := conv.ConvertFile(opts.inputFile, outPath, opts.preview)
	if res != nil {
		reportDiagnostics(res, opts.quiet)
	}
	if err != nil {
		return err
	}
	if opts.preview || opts.outputFile == "" {
		fmt.Println(res.Output)
	} else if !opts.quiet {
		log.Info().Str("input", opts.inputFile).Str("output", opts.outputFile).Msg("converted")
	}
	return nil
}

// runDirectory converts every *.sql file in a directory. Per-file failures
// are reported but never abort the batch.
func runDirectory(conv *convert.Converter, opts convertOptions) error {
	batch, err := conv.ConvertDirectory(opts.inputDir, opts.outputDir, opts.preview)
	if err != nil {
		return err
	}
	for _, fr := range batch.Files {
		if fr.Err != nil {
			log.Error().Err(fr.Err).Str("file", fr.Input).Msg("conversion failed")
			continue
		}
		if opts.preview {
			fmt.Printf("=== %s ===\n%s\n", fr.Input, fr.Result.Output)
		}
		if fr.Result != nil {
			reportDiagnostics(fr.Result, opts.quiet)
		}
	}
	log.Info().Int("converted", batch.Converted).Int("failed", batch.Failed).Msg("batch complete")
	return nil
}

// reportDiagnostics logs the per-statement report to stderr so a reviewer
// can locate every passthrough and ambiguous spot.
func reportDiagnostics(res *convert.ConversionResult, quiet bool) {
	if quiet {
		return
	}
	for _, d := range res.Diagnostics {
		ev := log.Debug()
		if d.Status != convert.StatusConverted {
			ev = log.Warn()
		}
		ev.Int("line", d.Line).
			Str("category", d.Category.String()).
			Str("status", d.Status.String()).
			Msg(d.Note)
	}
	for _, e := range res.Errors {
		log.Error().Int("line", e.Line).Msg(e.Msg)
	}
	log.Info().Str("confidence", res.Confidence.String()).Msg("conversion finished")
}

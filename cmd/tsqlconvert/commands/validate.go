package commands

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edudw/tsqlconvert/convert"
)

// NewValidateCmd builds the 'validate' cobra command, which runs the builtin
// conversion corpus and reports per-category results.
func NewValidateCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the builtin T-SQL conversion corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write report to file instead of stdout")
	return cmd
}

func runValidate(outputPath string) error {
	conv, err := convert.New()
	if err != nil {
		return err
	}

	results, summary := convert.RunCorpus(conv, convert.BuiltinCorpus())

	out := io.Writer(os.Stdout)
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	printCorpusTable(out, results)

	fmt.Fprintf(out, "\nTotal: %d  Passed: %d  Failed: %d\n",
		summary.Total, summary.Passed, summary.Total-summary.Passed)

	categories := make([]string, 0, len(summary.ByCategory))
	for cat := range summary.ByCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)
	for _, cat := range categories {
		cc := summary.ByCategory[cat]
		fmt.Fprintf(out, "  %s: %d/%d\n", cat, cc.Passed, cc.Total)
	}

	for _, r := range results {
		if r.Passed {
			continue
		}
		fmt.Fprintf(out, "\nFAILED: %s\n  input:    %s\n  expected: %q\n  actual:   %q\n",
			r.Case.Name, r.Case.Input, r.Case.Expected, r.Actual)
	}

	if summary.Passed < summary.Total {
		return fmt.Errorf("corpus: %d of %d cases failed", summary.Total-summary.Passed, summary.Total)
	}
	return nil
}

// printCorpusTable renders the corpus results as a fixed-column table.
func printCorpusTable(w io.Writer, results []convert.TestRunResult) {
	const (
		hCategory = "CATEGORY"
		hCase     = "CASE"
		hResult   = "RESULT"
	)

	wCategory := len(hCategory)
	wCase := len(hCase)
	for _, r := range results {
		if len(r.Case.Category) > wCategory {
			wCategory = len(r.Case.Category)
		}
		if len(r.Case.Name) > wCase {
			wCase = len(r.Case.Name)
		}
	}
	wCategory += 2
	wCase += 2

	fmtRow := func(c, n, s string) {
		fmt.Fprintf(w, "%-*s%-*s%s\n", wCategory, c, wCase, n, s)
	}

	fmtRow(hCategory, hCase, hResult)
	fmtRow(strings.Repeat("-", wCategory-2), strings.Repeat("-", wCase-2), strings.Repeat("-", len(hResult)))

	for _, r := range results {
		result := "PASS"
		if !r.Passed {
			result = "FAIL"
		}
		fmtRow(r.Case.Category, r.Case.Name, result)
	}
}

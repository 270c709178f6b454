// Package convert implements a statement-level T-SQL to PL/pgSQL syntax
// converter. It is a best-effort assistant, not a full SQL parser: every
// output comes with per-statement diagnostics so a reviewer can locate each
// spot the converter passed through or could not decide.
package convert

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Converter drives one or more conversion runs. The rule tables are
// read-only and safe to share; all per-run state (declared variables, the
// block matcher stack) is created fresh for every input.
type Converter struct {
	tables *RuleTables
	fs     afero.Fs
	log    zerolog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithRuleTables overrides the embedded default rule tables.
func WithRuleTables(t *RuleTables) Option {
	return func(c *Converter) { c.tables = t }
}

// WithFs overrides the filesystem used for file and directory conversion.
func WithFs(fs afero.Fs) Option {
	return func(c *Converter) { c.fs = fs }
}

// WithLogger overrides the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Converter) { c.log = l }
}

// New builds a Converter with the embedded rule tables and the OS
// filesystem unless overridden.
func New(opts ...Option) (*Converter, error) {
	c := &Converter{
		fs:  afero.NewOsFs(),
		log: log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tables == nil {
		t, err := DefaultRuleTables()
		if err != nil {
			return nil, fmt.Errorf("loading default rule tables: %w", err)
		}
		c.tables = t
	}
	return c, nil
}

// ConvertText converts one T-SQL string. It always produces output; block
// structure problems are reported in the result's Errors and downgrade its
// confidence to LOW rather than aborting.
func (c *Converter) ConvertText(src string) *ConversionResult {
	rw := newRewriter(c.tables)
	matcher := newBlockMatcher()

	src = strings.ReplaceAll(src, "\r\n", "\n")
	units := strings.Split(src, "\n")

	var out []string
	var diags []Diagnostic

	for i, text := range units {
		u := StatementUnit{Text: text, Line: i + 1}

		lines, d, handled := matcher.Feed(u, rw)
		out = append(out, lines...)
		diags = append(diags, d...)
		if handled {
			continue
		}

		s, sd := rw.RewriteStatement(u)
		out = append(out, s)
		diags = append(diags, sd...)
	}

	lines, d := matcher.Finish(rw)
	out = append(out, lines...)
	diags = append(diags, d...)

	res := &ConversionResult{
		Output:      strings.Join(out, "\n"),
		Diagnostics: diags,
		Errors:      matcher.errs,
		Confidence:  gradeConfidence(diags, matcher.errs),
	}
	c.log.Debug().
		Int("statements", len(units)).
		Int("diagnostics", len(diags)).
		Int("structuralErrors", len(res.Errors)).
		Str("confidence", res.Confidence.String()).
		Msg("conversion run finished")
	return res
}

func gradeConfidence(diags []Diagnostic, errs []*StructuralError) Confidence {
	if len(errs) > 0 {
		return ConfidenceLow
	}
	for _, d := range diags {
		if d.Status != StatusConverted {
			return ConfidencePartial
		}
	}
	return ConfidenceHigh
}

// ConvertFile converts one file. Unless preview is set, the result is
// written to outPath. A structural error aborts the write and is returned
// alongside the (still populated) result.
func (c *Converter) ConvertFile(path, outPath string, preview bool) (*ConversionResult, error) {
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading input file %q: %w", path, err)
	}
	c.log.Debug().Str("input", path).Int("bytes", len(data)).Msg("input file read")

	res := c.ConvertText(string(data))
	if res.Fatal() {
		return res, fmt.Errorf("converting %q: %w", path, res.Errors[0])
	}
	if preview || outPath == "" {
		return res, nil
	}

	if err := afero.WriteFile(c.fs, outPath, []byte(res.Output), 0o644); err != nil {
		return res, fmt.Errorf("writing output file %q: %w", outPath, err)
	}
	c.log.Debug().Str("output", outPath).Msg("output file written")
	return res, nil
}

// FileResult is the outcome of one file within a directory batch.
type FileResult struct {
	Input  string
	Output string
	Result *ConversionResult
	Err    error
}

// BatchResult aggregates a directory conversion. Each file is independent:
// one failure never aborts the others.
type BatchResult struct {
	Files     []FileResult
	Converted int
	Failed    int
}

// ConvertDirectory converts every *.sql file directly inside dir (not
// recursive). Output files are named <stem>-postgresql.sql under outDir,
// which defaults to dir/converted.
func (c *Converter) ConvertDirectory(dir, outDir string, preview bool) (*BatchResult, error) {
	infos, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %q: %w", dir, err)
	}
	if outDir == "" {
		outDir = filepath.Join(dir, "converted")
	}
	if !preview {
		if err := c.fs.MkdirAll(outDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory %q: %w", outDir, err)
		}
	}

	batch := &BatchResult{}
	for _, info := range infos {
		if info.IsDir() || !strings.EqualFold(filepath.Ext(info.Name()), ".sql") {
			continue
		}
		in := filepath.Join(dir, info.Name())
		stem := strings.TrimSuffix(info.Name(), filepath.Ext(info.Name()))
		out := filepath.Join(outDir, stem+"-postgresql.sql")

		res, err := c.ConvertFile(in, out, preview)
		fr := FileResult{Input: in, Output: out, Result: res, Err: err}
		if err != nil {
			batch.Failed++
			c.log.Warn().Err(err).Str("file", in).Msg("file conversion failed")
		} else {
			batch.Converted++
			c.log.Debug().Str("file", in).Str("confidence", res.Confidence.String()).Msg("file converted")
		}
		batch.Files = append(batch.Files, fr)
	}
	return batch, nil
}

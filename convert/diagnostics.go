package convert

import "fmt"

// Status classifies the outcome of converting a single statement.
type Status int

const (
	// StatusConverted means at least one rule fired and the statement was
	// fully recognized.
	StatusConverted Status = iota
	// StatusPassthrough means no rule matched; the statement was emitted
	// unchanged and should be reviewed by hand.
	StatusPassthrough
	// StatusAmbiguous means a fragment could not be safely rewritten and
	// was left unchanged.
	StatusAmbiguous
)

func (s Status) String() string {
	switch s {
	case StatusConverted:
		return "CONVERTED"
	case StatusPassthrough:
		return "PASSTHROUGH"
	case StatusAmbiguous:
		return "AMBIGUOUS"
	}
	return "UNKNOWN"
}

// Confidence is the overall quality grade of one conversion run.
type Confidence int

const (
	// ConfidenceHigh: every non-blank statement converted cleanly.
	ConfidenceHigh Confidence = iota
	// ConfidencePartial: some statements passed through or were ambiguous.
	ConfidencePartial
	// ConfidenceLow: a structural error (unbalanced blocks) occurred.
	ConfidenceLow
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "HIGH"
	case ConfidencePartial:
		return "PARTIAL"
	case ConfidenceLow:
		return "LOW"
	}
	return "UNKNOWN"
}

// Diagnostic records what happened to one input statement.
type Diagnostic struct {
	Line     int
	Category RuleCategory
	Status   Status
	Note     string
}

// StructuralError is a fatal block-structure problem in one conversion run:
// an END with no open block, or a block still open at end of input.
type StructuralError struct {
	Line int
	Msg  string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ConversionResult is the immutable outcome of converting one input string
// or file.
type ConversionResult struct {
	Output      string
	Diagnostics []Diagnostic
	Confidence  Confidence
	Errors      []*StructuralError
}

// Fatal reports whether the run hit a structural error. Passthrough and
// ambiguous statements are warnings, not failures.
func (r *ConversionResult) Fatal() bool {
	return len(r.Errors) > 0
}

// StatementUnit is one logical T-SQL statement as split from the input.
// Splitting is line-based, matching the source material this converter
// targets (one statement or control-flow keyword per physical line).
type StatementUnit struct {
	Text string
	Line int
}

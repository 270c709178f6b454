package convert

import (
	"regexp"
	"strings"
)

// Regular expressions for statement shape detection.
var (
	reDeclare      = regexp.MustCompile(`(?i)^\s*DECLARE\s+(.+)$`)
	reSelectAssign = regexp.MustCompile(`(?i)^\s*SELECT\s+(@\w+\s*=.+)$`)
	reSetAssign    = regexp.MustCompile(`(?i)^\s*SET\s+@(\w+)\s*=\s*(.+?);?\s*$`)
	reComment      = regexp.MustCompile(`^\s*--`)

	reIfBeginEndLine    = regexp.MustCompile(`(?i)^(\s*)IF\s+(.+?)\s+BEGIN\s+(.+?)\s+END;?\s*$`)
	reWhileBeginEndLine = regexp.MustCompile(`(?i)^(\s*)WHILE\s+(.+?)\s+BEGIN\s+(.+?)\s+END;?\s*$`)
	reIfBegin           = regexp.MustCompile(`(?i)^(\s*)IF\s+(.+?)\s+BEGIN\s*$`)
	reWhileBegin        = regexp.MustCompile(`(?i)^(\s*)WHILE\s+(.+?)\s+BEGIN\s*$`)
	reIfOnly            = regexp.MustCompile(`(?i)^(\s*)IF\s+(.+?)\s*$`)
	reWhileOnly         = regexp.MustCompile(`(?i)^(\s*)WHILE\s+(.+?)\s*$`)
	reBareBegin         = regexp.MustCompile(`(?i)^\s*BEGIN\s*$`)
	reBareEnd           = regexp.MustCompile(`(?i)^\s*END;?\s*$`)

	reConcatOperand = `'[^']*'|[@#\w.]+(?:\([^()]*\))?(?:::\w+(?:\(\d+(?:,\s*\d+)?\))?)?`
	reConcat        = regexp.MustCompile(`(` + reConcatOperand + `)\s*\+\s*(` + reConcatOperand + `)`)
	reTempTable     = regexp.MustCompile(`#\w+`)
)

// StatementKind is the coarse shape of one statement unit.
type StatementKind int

const (
	KindBlank StatementKind = iota
	KindComment
	KindDeclaration
	KindAssignment
	KindControlFlow
	KindGeneric
)

func (k StatementKind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindComment:
		return "comment"
	case KindDeclaration:
		return "declaration"
	case KindAssignment:
		return "assignment"
	case KindControlFlow:
		return "control-flow"
	case KindGeneric:
		return "generic"
	}
	return "unknown"
}

// Match is one rule-category hit inside a statement, with the matched
// sub-range so the rewriter knows where to substitute.
type Match struct {
	Category RuleCategory
	Start    int
	End      int
}

// Classification is the classifier's verdict for one statement unit.
type Classification struct {
	Kind    StatementKind
	Matches []Match
}

// Categories returns the distinct matched categories in match order.
func (c Classification) Categories() []RuleCategory {
	var out []RuleCategory
	seen := map[RuleCategory]bool{}
	for _, m := range c.Matches {
		if !seen[m.Category] {
			seen[m.Category] = true
			out = append(out, m.Category)
		}
	}
	return out
}

// Classify inspects one statement unit and reports its kind plus every rule
// category that applies, with sub-ranges. It is a pure function of the
// statement text and the rule tables; block state is never consulted.
func (t *RuleTables) Classify(u StatementUnit) Classification {
	text := u.Text
	trimmed := strings.TrimSpace(text)

	c := Classification{Kind: KindGeneric}

	switch {
	case trimmed == "":
		c.Kind = KindBlank
		return c
	case reComment.MatchString(text):
		c.Kind = KindComment
		return c
	case isControlFlowLine(text):
		c.Kind = KindControlFlow
		c.Matches = append(c.Matches, Match{Category: CategoryControlFlowKeyword, Start: 0, End: len(text)})
	case reDeclare.MatchString(text):
		c.Kind = KindDeclaration
	case reSelectAssign.MatchString(text) || reSetAssign.MatchString(text):
		// SELECT @var = <rhs> stays an assignment even when the right-hand
		// side is itself a parenthesized SELECT.
		c.Kind = KindAssignment
	}

	c.Matches = append(c.Matches, t.tableMatches(text)...)

	for _, loc := range reConcat.FindAllStringIndex(text, -1) {
		c.Matches = append(c.Matches, Match{Category: CategoryOperatorMapping, Start: loc[0], End: loc[1]})
	}
	for _, loc := range reTempTable.FindAllStringIndex(text, -1) {
		c.Matches = append(c.Matches, Match{Category: CategoryTempTableNaming, Start: loc[0], End: loc[1]})
	}

	return c
}

// tableMatches collects sub-ranges for every table-driven rule category.
func (t *RuleTables) tableMatches(text string) []Match {
	var out []Match
	for _, cat := range []RuleCategory{
		CategoryCastConvert,
		CategoryFunctionMapping,
		CategorySystemVariableMapping,
		CategoryTypeMapping,
	} {
		for _, rule := range t.Rules(cat) {
			for _, loc := range rule.Pattern.FindAllStringIndex(text, -1) {
				out = append(out, Match{Category: cat, Start: loc[0], End: loc[1]})
			}
		}
	}
	return out
}

func isControlFlowLine(text string) bool {
	return reIfBeginEndLine.MatchString(text) ||
		reWhileBeginEndLine.MatchString(text) ||
		reIfBegin.MatchString(text) ||
		reWhileBegin.MatchString(text) ||
		reBareBegin.MatchString(text) ||
		reBareEnd.MatchString(text)
}

package convert

import (
	"fmt"
	"regexp"
	"strings"
)

// SQL Server specific patterns handled during expression rewriting.
var (
	reSelectTopParen = regexp.MustCompile(`(?i)\bSELECT\s+TOP\s*\(\s*\d+\s*\)\s+`)
	reSelectTop      = regexp.MustCompile(`(?i)\bSELECT\s+TOP\s+\d+\s+`)
	reDeleteTop      = regexp.MustCompile(`(?i)\bDELETE\s+TOP\s*\(\s*\d+\s*\)\s+FROM\s+`)
	reObjectIDDrop   = regexp.MustCompile(`(?i)\bIF\s+OBJECT_ID\([^)]+\)\s+IS\s+NOT\s+NULL\s+DROP\s+TABLE\s+(#?\w+)`)

	reVariable   = regexp.MustCompile(`@@?\w+`)
	reNumericLit = regexp.MustCompile(`^\d+(\.\d+)?$`)
	reCharType   = regexp.MustCompile(`(?i)\b(NVARCHAR|VARCHAR|NCHAR|CHAR|NTEXT|TEXT)\b`)
	reNumType    = regexp.MustCompile(`(?i)\b(INT|INTEGER|BIGINT|SMALLINT|TINYINT|DECIMAL|NUMERIC|FLOAT|REAL|MONEY|SMALLMONEY|BIT|SERIAL|BIGSERIAL)\b`)
)

// varClass is the statically known type class of a declared variable, used
// to disambiguate the + operator.
type varClass int

const (
	classUnknown varClass = iota
	classString
	classNumeric
	classOther
)

// rewriter applies category rules to statements. It carries per-run state:
// the type class of every variable declared so far in this conversion run.
type rewriter struct {
	tables *RuleTables
	vars   map[string]varClass
}

func newRewriter(t *RuleTables) *rewriter {
	return &rewriter{tables: t, vars: map[string]varClass{}}
}

// RewriteStatement converts one non-control-flow statement unit.
func (r *rewriter) RewriteStatement(u StatementUnit) (string, []Diagnostic) {
	cls := r.tables.Classify(u)

	switch cls.Kind {
	case KindBlank, KindComment:
		return u.Text, nil
	case KindDeclaration:
		return r.rewriteDeclare(u)
	case KindAssignment:
		return r.rewriteAssignment(u)
	default:
		return r.rewriteGeneric(u)
	}
}

// rewriteGeneric runs the full category chain over the whole line.
func (r *rewriter) rewriteGeneric(u StatementUnit) (string, []Diagnostic) {
	out, fired, diags := r.RewriteExpression(u.Text, u.Line)
	if len(fired) > 0 {
		diags = append(diags, Diagnostic{
			Line: u.Line, Category: fired[0], Status: StatusConverted,
			Note: "rules fired: " + categoryList(fired),
		})
	} else {
		diags = append(diags, Diagnostic{
			Line: u.Line, Category: CategoryNone, Status: StatusPassthrough,
			Note: "no rule matched, emitted unchanged",
		})
	}
	return out, diags
}

// RewriteExpression applies the category rules to a text fragment in the
// fixed order CastConvert, FunctionMapping, SystemVariableMapping,
// OperatorMapping, TypeMapping, TempTableNaming. Types and identifiers are
// rewritten last so earlier rules see the original statement shape.
func (r *rewriter) RewriteExpression(s string, line int) (string, []RuleCategory, []Diagnostic) {
	var fired []RuleCategory
	var diags []Diagnostic

	apply := func(cat RuleCategory) {
		out, changed := r.tables.Apply(cat, s)
		if changed {
			fired = append(fired, cat)
			s = out
		}
	}

	apply(CategoryCastConvert)
	apply(CategoryFunctionMapping)
	apply(CategorySystemVariableMapping)

	out, opFired, opDiags := r.convertConcat(s, line)
	if opFired {
		fired = append(fired, CategoryOperatorMapping)
	}
	s = out
	diags = append(diags, opDiags...)

	if out, changed := r.sqlServerSpecific(s); changed {
		fired = append(fired, CategoryFunctionMapping)
		s = out
	}

	apply(CategoryTypeMapping)
	apply(CategoryTempTableNaming)

	out, stripped, stripDiags := r.stripVariableSigils(s, line)
	if stripped {
		fired = append(fired, CategoryNone)
	}
	s = out
	diags = append(diags, stripDiags...)

	return s, fired, diags
}

// sqlServerSpecific removes TOP clauses and rewrites OBJECT_ID existence
// checks into DROP TABLE IF EXISTS.
func (r *rewriter) sqlServerSpecific(s string) (string, bool) {
	orig := s
	s = reSelectTopParen.ReplaceAllString(s, "SELECT ")
	s = reSelectTop.ReplaceAllString(s, "SELECT ")
	s = reDeleteTop.ReplaceAllString(s, "DELETE FROM ")
	s = reObjectIDDrop.ReplaceAllString(s, "DROP TABLE IF EXISTS $1")
	return s, s != orig
}

// stripVariableSigils drops the @ prefix from local variables. Unrecognized
// @@ system variables are left intact and flagged for manual review.
func (r *rewriter) stripVariableSigils(s string, line int) (string, bool, []Diagnostic) {
	var diags []Diagnostic
	changed := false
	out := reVariable.ReplaceAllStringFunc(s, func(m string) string {
		if strings.HasPrefix(m, "@@") {
			diags = append(diags, Diagnostic{
				Line: line, Category: CategorySystemVariableMapping,
				Status: StatusPassthrough,
				Note:   fmt.Sprintf("unrecognized system variable %s", m),
			})
			return m
		}
		changed = true
		return m[1:]
	})
	return out, changed, diags
}

// ── String concatenation vs arithmetic ────────────────────────────────────────

// convertConcat rewrites string-context + to ||. Arithmetic + is preserved.
// When the operand types cannot be statically determined the occurrence is
// left unchanged and an AMBIGUOUS diagnostic is recorded instead of
// guessing.
func (r *rewriter) convertConcat(s string, line int) (string, bool, []Diagnostic) {
	fired := false

	// Convert string-context occurrences, repeating for chains like
	// 'a' + b + c where each pass exposes the next pair.
	for range [8]struct{}{} {
		replaced := false
		s = reConcat.ReplaceAllStringFunc(s, func(m string) string {
			sub := reConcat.FindStringSubmatch(m)
			left, right := sub[1], sub[2]
			lc, rc := r.operandClass(left), r.operandClass(right)
			if lc == classString || rc == classString {
				replaced = true
				return left + " || " + right
			}
			return m
		})
		if !replaced {
			break
		}
		fired = true
	}

	// Whatever + remains is either decidedly arithmetic or ambiguous.
	var diags []Diagnostic
	for _, m := range reConcat.FindAllStringSubmatch(s, -1) {
		lc, rc := r.operandClass(m[1]), r.operandClass(m[2])
		if lc == classNumeric && rc == classNumeric {
			fired = true // decided: arithmetic, keep +
			continue
		}
		diags = append(diags, Diagnostic{
			Line: line, Category: CategoryOperatorMapping,
			Status: StatusAmbiguous,
			Note:   fmt.Sprintf("cannot determine whether + in %q is arithmetic or concatenation", strings.TrimSpace(m[0])),
		})
	}
	return s, fired, diags
}

// operandClass decides the type class of one + operand.
func (r *rewriter) operandClass(op string) varClass {
	op = strings.TrimSpace(op)
	switch {
	case strings.HasPrefix(op, "'"):
		return classString
	case reNumericLit.MatchString(op):
		return classNumeric
	}
	upper := strings.ToUpper(op)
	if strings.Contains(upper, "::TEXT") || strings.Contains(upper, "::VARCHAR") || strings.Contains(upper, "::CHAR") {
		return classString
	}
	if strings.Contains(upper, "CONVERT(") || strings.Contains(upper, "CAST(") {
		return classString
	}
	name := strings.ToLower(strings.TrimPrefix(op, "@"))
	if cls, ok := r.vars[name]; ok {
		return cls
	}
	return classUnknown
}

// typeClass maps a declared T-SQL type to its operand class.
func typeClass(tsqlType string) varClass {
	switch {
	case reCharType.MatchString(tsqlType):
		return classString
	case reNumType.MatchString(tsqlType):
		return classNumeric
	default:
		return classOther
	}
}

// ── Declarations ──────────────────────────────────────────────────────────────

var reDeclPart = regexp.MustCompile(`(?i)^@(\w+)\s+(.+)$`)

// rewriteDeclare converts a DECLARE line. Each declared variable is recorded
// in the per-run type table for later operator disambiguation.
func (r *rewriter) rewriteDeclare(u StatementUnit) (string, []Diagnostic) {
	m := reDeclare.FindStringSubmatch(u.Text)
	if m == nil {
		return r.rewriteGeneric(u)
	}
	indent := indentOf(u.Text)
	body := strings.TrimSuffix(strings.TrimSpace(m[1]), ";")

	var decls []string
	var diags []Diagnostic
	for _, part := range splitTopLevel(body, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pm := reDeclPart.FindStringSubmatch(part)
		if pm == nil {
			// Unexpected shape, run the generic chain over it.
			conv, _, d := r.RewriteExpression(part, u.Line)
			decls = append(decls, ensureSemicolon(conv))
			diags = append(diags, d...)
			diags = append(diags, Diagnostic{
				Line: u.Line, Category: CategoryTypeMapping,
				Status: StatusAmbiguous,
				Note:   fmt.Sprintf("unrecognized declaration %q", part),
			})
			continue
		}
		name := pm[1]
		typeAndInit := pm[2]

		declType := typeAndInit
		init := ""
		if eq := topLevelIndexByte(typeAndInit, '='); eq >= 0 {
			declType = strings.TrimSpace(typeAndInit[:eq])
			init = strings.TrimSpace(typeAndInit[eq+1:])
		}

		r.vars[strings.ToLower(name)] = typeClass(declType)

		pgType, _ := r.tables.Apply(CategoryTypeMapping, declType)
		decl := name + " " + strings.TrimSpace(pgType)
		if init != "" {
			conv, _, d := r.RewriteExpression(init, u.Line)
			diags = append(diags, d...)
			decl += " := " + conv
		}
		decls = append(decls, decl+";")
	}

	diags = append(diags, Diagnostic{
		Line: u.Line, Category: CategoryTypeMapping, Status: StatusConverted,
		Note: fmt.Sprintf("declaration of %d variable(s)", len(decls)),
	})

	if len(decls) == 1 {
		return indent + "DECLARE " + decls[0], diags
	}
	out := indent + "DECLARE\n"
	for i, d := range decls {
		out += indent + "    " + d
		if i < len(decls)-1 {
			out += "\n"
		}
	}
	return out, diags
}

// ── Assignments ───────────────────────────────────────────────────────────────

var reAssignPart = regexp.MustCompile(`(?i)^@(\w+)\s*=\s*(.+)$`)

// rewriteAssignment converts SET @var = expr and SELECT @var = expr forms.
func (r *rewriter) rewriteAssignment(u StatementUnit) (string, []Diagnostic) {
	indent := indentOf(u.Text)

	if m := reSetAssign.FindStringSubmatch(u.Text); m != nil {
		conv, _, diags := r.RewriteExpression(m[2], u.Line)
		diags = append(diags, Diagnostic{
			Line: u.Line, Category: CategoryNone, Status: StatusConverted,
			Note: "SET assignment rewritten to :=",
		})
		return indent + m[1] + " := " + conv + ";", diags
	}

	m := reSelectAssign.FindStringSubmatch(u.Text)
	if m == nil {
		return r.rewriteGeneric(u)
	}
	body := strings.TrimSuffix(strings.TrimSpace(m[1]), ";")

	assigns := body
	fromClause := ""
	if idx := topLevelKeywordIndex(body, "FROM"); idx >= 0 {
		assigns = strings.TrimSpace(body[:idx])
		fromClause = strings.TrimSpace(body[idx+len("FROM"):])
	}

	var vars, exprs []string
	var diags []Diagnostic
	for _, part := range splitTopLevel(assigns, ',') {
		am := reAssignPart.FindStringSubmatch(strings.TrimSpace(part))
		if am == nil {
			// Not a clean assignment list; fall back to the generic chain.
			return r.rewriteGeneric(u)
		}
		conv, _, d := r.RewriteExpression(am[2], u.Line)
		diags = append(diags, d...)
		vars = append(vars, am[1])
		exprs = append(exprs, conv)
	}

	converted := Diagnostic{
		Line: u.Line, Category: CategoryNone, Status: StatusConverted,
		Note: "SELECT assignment rewritten to INTO",
	}

	switch {
	case fromClause != "":
		fromConv, _, d := r.RewriteExpression(fromClause, u.Line)
		diags = append(diags, d...)
		diags = append(diags, converted)
		return indent + "SELECT " + strings.Join(exprs, ", ") + " INTO " +
			strings.Join(vars, ", ") + " FROM " + fromConv + ";", diags

	case len(vars) == 1 && isScalarSubquery(exprs[0]):
		// SELECT @v = (SELECT ...): keep the inner query as a parenthesized
		// scalar expression and place INTO after the outer column list.
		diags = append(diags, converted)
		return indent + "SELECT " + exprs[0] + " INTO " + vars[0] + ";", diags

	case len(vars) == 1:
		diags = append(diags, converted)
		return indent + vars[0] + " := " + exprs[0] + ";", diags
	}

	return r.rewriteGeneric(u)
}

func isScalarSubquery(expr string) bool {
	trimmed := strings.TrimSpace(expr)
	return strings.HasPrefix(trimmed, "(") &&
		strings.HasPrefix(strings.ToUpper(strings.TrimSpace(trimmed[1:])), "SELECT")
}

// ── Splitting helpers ─────────────────────────────────────────────────────────

// splitTopLevel splits s on sep occurrences outside parentheses and quoted
// strings.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\'':
			inQuote = !inQuote
		case inQuote:
		case s[i] == '(':
			depth++
		case s[i] == ')':
			depth--
		case s[i] == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// topLevelIndexByte returns the index of the first sep outside parentheses
// and quotes, or -1.
func topLevelIndexByte(s string, sep byte) int {
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\'':
			inQuote = !inQuote
		case inQuote:
		case s[i] == '(':
			depth++
		case s[i] == ')':
			depth--
		case s[i] == sep && depth == 0:
			return i
		}
	}
	return -1
}

// topLevelKeywordIndex finds a keyword at parenthesis depth zero, matched
// case-insensitively on word boundaries.
func topLevelKeywordIndex(s, keyword string) int {
	depth := 0
	inQuote := false
	upper := strings.ToUpper(s)
	kw := strings.ToUpper(keyword)
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\'':
			inQuote = !inQuote
		case inQuote:
		case s[i] == '(':
			depth++
		case s[i] == ')':
			depth--
		case depth == 0 && strings.HasPrefix(upper[i:], kw):
			before := i == 0 || !isWordByte(s[i-1])
			afterIdx := i + len(kw)
			after := afterIdx >= len(s) || !isWordByte(s[afterIdx])
			if before && after {
				return i
			}
		}
	}
	return -1
}

func ensureSemicolon(s string) string {
	if strings.HasSuffix(strings.TrimSpace(s), ";") {
		return s
	}
	return s + ";"
}

func categoryList(cats []RuleCategory) string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.String()
	}
	return strings.Join(names, ", ")
}

package convert

import (
	"fmt"
	"strings"
)

// openerKind identifies which construct opened a BEGIN...END block.
type openerKind int

const (
	openerIf openerKind = iota
	openerWhile
	openerBegin // bare BEGIN block, closes with END;
)

func (k openerKind) String() string {
	switch k {
	case openerIf:
		return "IF"
	case openerWhile:
		return "WHILE"
	case openerBegin:
		return "BEGIN"
	}
	return "unknown"
}

// terminator is the PostgreSQL-side closer emitted for the matching END.
func (k openerKind) terminator() string {
	switch k {
	case openerIf:
		return "END IF;"
	case openerWhile:
		return "END LOOP;"
	default:
		return "END;"
	}
}

// blockFrame records one open control-flow block.
type blockFrame struct {
	kind openerKind
	line int
}

// blockMatcher pairs T-SQL BEGIN...END blocks with the correct PostgreSQL
// terminators. Its stack is scoped to exactly one conversion run; it is
// never shared across files.
type blockMatcher struct {
	stack []blockFrame
	errs  []*StructuralError

	// pending holds an IF/WHILE line whose BEGIN may follow on the next
	// line. If the next unit is not a bare BEGIN, the held line is handed
	// back to the rewriter as an ordinary statement.
	pending       *StatementUnit
	pendingKind   openerKind
	pendingCond   string
	pendingIndent string
}

func newBlockMatcher() *blockMatcher {
	return &blockMatcher{}
}

func (m *blockMatcher) depth() int { return len(m.stack) }

// Feed processes one statement unit. handled reports whether the unit was a
// control-flow line consumed by the matcher; when false the caller must
// rewrite the unit itself. Returned lines may include the flushed output of
// a previously held IF/WHILE line.
func (m *blockMatcher) Feed(u StatementUnit, rw *rewriter) (lines []string, diags []Diagnostic, handled bool) {
	if m.pending != nil {
		if reBareBegin.MatchString(u.Text) {
			// Opener spread over two lines: IF <cond> / BEGIN.
			ol, od := m.open(m.pendingKind, m.pendingCond, m.pendingIndent, m.pending.Line, rw)
			m.pending = nil
			return append(lines, ol...), append(diags, od...), true
		}
		// The held line was an ordinary statement after all.
		held := *m.pending
		m.pending = nil
		hl, hd := rw.RewriteStatement(held)
		lines = append(lines, hl)
		diags = append(diags, hd...)
	}

	switch {
	case reIfBeginEndLine.MatchString(u.Text):
		sm := reIfBeginEndLine.FindStringSubmatch(u.Text)
		bl, bd := m.inlineBlock(u, openerIf, sm[1], sm[2], sm[3], rw)
		return append(lines, bl...), append(diags, bd...), true

	case reWhileBeginEndLine.MatchString(u.Text):
		sm := reWhileBeginEndLine.FindStringSubmatch(u.Text)
		bl, bd := m.inlineBlock(u, openerWhile, sm[1], sm[2], sm[3], rw)
		return append(lines, bl...), append(diags, bd...), true

	case reIfBegin.MatchString(u.Text):
		sm := reIfBegin.FindStringSubmatch(u.Text)
		ol, od := m.open(openerIf, sm[2], sm[1], u.Line, rw)
		return append(lines, ol...), append(diags, od...), true

	case reWhileBegin.MatchString(u.Text):
		sm := reWhileBegin.FindStringSubmatch(u.Text)
		ol, od := m.open(openerWhile, sm[2], sm[1], u.Line, rw)
		return append(lines, ol...), append(diags, od...), true

	case reBareBegin.MatchString(u.Text):
		m.stack = append(m.stack, blockFrame{kind: openerBegin, line: u.Line})
		lines = append(lines, indentOf(u.Text)+"BEGIN")
		diags = append(diags, Diagnostic{
			Line: u.Line, Category: CategoryControlFlowKeyword,
			Status: StatusConverted, Note: "BEGIN block opened",
		})
		return lines, diags, true

	case reBareEnd.MatchString(u.Text):
		cl, cd := m.closeBlock(u)
		return append(lines, cl...), append(diags, cd...), true

	case reObjectIDDrop.MatchString(u.Text):
		// IF OBJECT_ID(...) DROP TABLE is a single-statement rewrite, not
		// a block opener.
		return lines, diags, false

	case reIfOnly.MatchString(u.Text):
		sm := reIfOnly.FindStringSubmatch(u.Text)
		m.hold(u, openerIf, sm[2], sm[1])
		return lines, diags, true

	case reWhileOnly.MatchString(u.Text):
		sm := reWhileOnly.FindStringSubmatch(u.Text)
		m.hold(u, openerWhile, sm[2], sm[1])
		return lines, diags, true
	}

	return lines, diags, false
}

// Finish flushes any held opener line and reports still-open blocks as
// structural errors.
func (m *blockMatcher) Finish(rw *rewriter) (lines []string, diags []Diagnostic) {
	if m.pending != nil {
		held := *m.pending
		m.pending = nil
		hl, hd := rw.RewriteStatement(held)
		lines = append(lines, hl)
		diags = append(diags, hd...)
	}
	for i := len(m.stack) - 1; i >= 0; i-- {
		f := m.stack[i]
		m.errs = append(m.errs, &StructuralError{
			Line: f.line,
			Msg:  fmt.Sprintf("unbalanced block: %s opened at line %d never closed", f.kind, f.line),
		})
	}
	return lines, diags
}

func (m *blockMatcher) hold(u StatementUnit, kind openerKind, cond, indent string) {
	held := u
	m.pending = &held
	m.pendingKind = kind
	m.pendingCond = cond
	m.pendingIndent = indent
}

// open emits the PL/pgSQL opener for an IF/WHILE + BEGIN and pushes a frame.
// The condition text goes through the rewriter first.
func (m *blockMatcher) open(kind openerKind, cond, indent string, line int, rw *rewriter) ([]string, []Diagnostic) {
	conv, _, condDiags := rw.RewriteExpression(cond, line)

	var head string
	switch kind {
	case openerIf:
		head = indent + "IF " + conv + " THEN"
	case openerWhile:
		head = indent + "WHILE " + conv + " LOOP"
	}
	m.stack = append(m.stack, blockFrame{kind: kind, line: line})

	diags := append(condDiags, Diagnostic{
		Line: line, Category: CategoryControlFlowKeyword,
		Status: StatusConverted,
		Note:   fmt.Sprintf("%s ... BEGIN block opened", kind),
	})
	return []string{head}, diags
}

// closeBlock handles a bare END line: pop the innermost frame and emit its
// terminator, or record an unmatched-END structural error.
func (m *blockMatcher) closeBlock(u StatementUnit) ([]string, []Diagnostic) {
	indent := indentOf(u.Text)
	if len(m.stack) == 0 {
		m.errs = append(m.errs, &StructuralError{Line: u.Line, Msg: "unmatched END"})
		return []string{u.Text}, []Diagnostic{{
			Line: u.Line, Category: CategoryControlFlowKeyword,
			Status: StatusPassthrough, Note: "END with no open block",
		}}
	}
	f := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return []string{indent + f.kind.terminator()}, []Diagnostic{{
		Line: u.Line, Category: CategoryControlFlowKeyword,
		Status: StatusConverted,
		Note:   fmt.Sprintf("END closes %s from line %d", f.kind, f.line),
	}}
}

// inlineBlock converts a one-line IF/WHILE ... BEGIN <body> END statement
// into a three-line PL/pgSQL block. The stack is not involved: the block
// opens and closes within the same unit.
func (m *blockMatcher) inlineBlock(u StatementUnit, kind openerKind, indent, cond, body string, rw *rewriter) ([]string, []Diagnostic) {
	conv, _, diags := rw.RewriteExpression(cond, u.Line)

	bodyOut, bodyDiags := rw.RewriteStatement(StatementUnit{Text: body, Line: u.Line})
	diags = append(diags, bodyDiags...)

	var head string
	switch kind {
	case openerIf:
		head = indent + "IF " + conv + " THEN"
	case openerWhile:
		head = indent + "WHILE " + conv + " LOOP"
	}
	diags = append(diags, Diagnostic{
		Line: u.Line, Category: CategoryControlFlowKeyword,
		Status: StatusConverted,
		Note:   fmt.Sprintf("inline %s ... BEGIN ... END block", kind),
	})

	return []string{
		head,
		indent + "    " + strings.TrimSpace(bodyOut),
		indent + kind.terminator(),
	}, diags
}

func indentOf(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

package convert

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// RuleCategory is the closed set of rewrite rule categories.
type RuleCategory int

const (
	CategoryNone RuleCategory = iota
	CategoryTypeMapping
	CategoryFunctionMapping
	CategorySystemVariableMapping
	CategoryOperatorMapping
	CategoryTempTableNaming
	CategoryControlFlowKeyword
	CategoryCastConvert
)

func (c RuleCategory) String() string {
	switch c {
	case CategoryTypeMapping:
		return "TypeMapping"
	case CategoryFunctionMapping:
		return "FunctionMapping"
	case CategorySystemVariableMapping:
		return "SystemVariableMapping"
	case CategoryOperatorMapping:
		return "OperatorMapping"
	case CategoryTempTableNaming:
		return "TempTableNaming"
	case CategoryControlFlowKeyword:
		return "ControlFlowKeyword"
	case CategoryCastConvert:
		return "CastConvert"
	}
	return "general"
}

// ConversionRule is one compiled source-pattern -> replacement mapping.
// Rules are immutable after loading.
type ConversionRule struct {
	Category    RuleCategory
	Pattern     *regexp.Regexp
	Replacement string
	Priority    int

	// token is the literal T-SQL form for token-based rules ("INT",
	// "GETDATE()"); empty for free-form regex rules.
	token string
}

// RuleTables holds the loaded rule set, sorted per category by priority and
// declaration order, so first-match-wins is deterministic.
type RuleTables struct {
	byCategory map[RuleCategory][]*ConversionRule
}

// ── YAML schema ───────────────────────────────────────────────────────────────

type rulesFile struct {
	Rules ruleSets `yaml:"rules"`
}

type ruleSets struct {
	Types     []tokenRule   `yaml:"types"`
	Functions []patternRule `yaml:"functions"`
	System    []tokenRule   `yaml:"system"`
	Casts     []patternRule `yaml:"casts"`
	Temp      []patternRule `yaml:"temp"`
}

// tokenRule maps a literal T-SQL token (possibly multi-word, e.g.
// "INT IDENTITY(1,1)") to its PostgreSQL form.
type tokenRule struct {
	TSQL     string `yaml:"tsql"`
	PG       string `yaml:"pg"`
	Priority int    `yaml:"priority"`
}

// patternRule maps a full regular expression to a replacement template.
type patternRule struct {
	Pattern  string `yaml:"pattern"`
	Replace  string `yaml:"replace"`
	Priority int    `yaml:"priority"`
}

// ── Loading ───────────────────────────────────────────────────────────────────

var defaultTables = sync.OnceValues(func() (*RuleTables, error) {
	return LoadRuleTables(defaultRulesYAML)
})

// DefaultRuleTables returns the process-wide rule set parsed from the
// embedded rules.yaml. Loaded once, read-only afterwards.
func DefaultRuleTables() (*RuleTables, error) {
	return defaultTables()
}

// LoadRuleTables parses a YAML rules document and compiles every rule.
func LoadRuleTables(data []byte) (*RuleTables, error) {
	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rules yaml: %w", err)
	}

	t := &RuleTables{byCategory: map[RuleCategory][]*ConversionRule{}}

	for _, r := range rf.Rules.Types {
		rule, err := compileTokenRule(CategoryTypeMapping, r)
		if err != nil {
			return nil, err
		}
		t.byCategory[CategoryTypeMapping] = append(t.byCategory[CategoryTypeMapping], rule)
	}
	for _, r := range rf.Rules.System {
		rule, err := compileTokenRule(CategorySystemVariableMapping, r)
		if err != nil {
			return nil, err
		}
		t.byCategory[CategorySystemVariableMapping] = append(t.byCategory[CategorySystemVariableMapping], rule)
	}
	pats := []struct {
		cat   RuleCategory
		rules []patternRule
	}{
		{CategoryFunctionMapping, rf.Rules.Functions},
		{CategoryCastConvert, rf.Rules.Casts},
		{CategoryTempTableNaming, rf.Rules.Temp},
	}
	for _, p := range pats {
		for _, r := range p.rules {
			rule, err := compilePatternRule(p.cat, r)
			if err != nil {
				return nil, err
			}
			t.byCategory[p.cat] = append(t.byCategory[p.cat], rule)
		}
	}

	// Stable sort keeps declaration order among equal priorities.
	for cat := range t.byCategory {
		rules := t.byCategory[cat]
		sort.SliceStable(rules, func(i, j int) bool {
			return rules[i].Priority < rules[j].Priority
		})
	}

	return t, nil
}

func compileTokenRule(cat RuleCategory, r tokenRule) (*ConversionRule, error) {
	if r.TSQL == "" {
		return nil, fmt.Errorf("%s rule with empty tsql token", cat)
	}
	re, err := regexp.Compile(tokenPattern(r.TSQL))
	if err != nil {
		return nil, fmt.Errorf("compiling %s rule %q: %w", cat, r.TSQL, err)
	}
	return &ConversionRule{
		Category:    cat,
		Pattern:     re,
		Replacement: r.PG,
		Priority:    priorityOrDefault(r.Priority),
		token:       r.TSQL,
	}, nil
}

func compilePatternRule(cat RuleCategory, r patternRule) (*ConversionRule, error) {
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling %s rule %q: %w", cat, r.Pattern, err)
	}
	return &ConversionRule{
		Category:    cat,
		Pattern:     re,
		Replacement: r.Replace,
		Priority:    priorityOrDefault(r.Priority),
	}, nil
}

func priorityOrDefault(p int) int {
	if p == 0 {
		return 50
	}
	return p
}

// tokenPattern builds a case-insensitive regex for a literal token.
// Word boundaries are only anchored next to word characters, so tokens like
// "@@ROWCOUNT" or "GETDATE()" stay matchable. Runs of spaces match any
// whitespace, which lets multi-word tokens like "INT IDENTITY(1,1)" survive
// uneven formatting.
func tokenPattern(token string) string {
	quoted := regexp.QuoteMeta(token)
	quoted = strings.ReplaceAll(quoted, " ", `\s+`)

	pat := "(?i)"
	if isWordByte(token[0]) {
		pat += `\b`
	}
	pat += quoted
	if isWordByte(token[len(token)-1]) {
		pat += `\b`
	}
	return pat
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// ── Access ────────────────────────────────────────────────────────────────────

// Rules returns the sorted rules for a category. The returned slice must not
// be modified.
func (t *RuleTables) Rules(cat RuleCategory) []*ConversionRule {
	return t.byCategory[cat]
}

// Lookup resolves a single token against a category, case-insensitively for
// T-SQL keywords. It returns the replacement for the first rule whose
// pattern matches the whole token.
func (t *RuleTables) Lookup(cat RuleCategory, token string) (string, bool) {
	for _, rule := range t.byCategory[cat] {
		loc := rule.Pattern.FindStringSubmatchIndex(token)
		if loc == nil || loc[0] != 0 || loc[1] != len(token) {
			continue
		}
		return string(rule.Pattern.ExpandString(nil, rule.Replacement, token, loc)), true
	}
	return "", false
}

// Apply runs every rule of a category over s in priority order, replacing
// all occurrences. It reports whether anything changed.
func (t *RuleTables) Apply(cat RuleCategory, s string) (string, bool) {
	changed := false
	for _, rule := range t.byCategory[cat] {
		out := rule.Pattern.ReplaceAllString(s, rule.Replacement)
		if out != s {
			changed = true
			s = out
		}
	}
	return s, changed
}

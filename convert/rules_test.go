package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRuleTablesLoad(t *testing.T) {
	tables, err := DefaultRuleTables()
	require.NoError(t, err)
	require.NotNil(t, tables)

	assert.NotEmpty(t, tables.Rules(CategoryTypeMapping))
	assert.NotEmpty(t, tables.Rules(CategoryFunctionMapping))
	assert.NotEmpty(t, tables.Rules(CategorySystemVariableMapping))
	assert.NotEmpty(t, tables.Rules(CategoryCastConvert))
	assert.NotEmpty(t, tables.Rules(CategoryTempTableNaming))
}

func TestLookup(t *testing.T) {
	tables, err := DefaultRuleTables()
	require.NoError(t, err)

	tests := []struct {
		name     string
		category RuleCategory
		token    string
		want     string
		found    bool
	}{
		{"type mapping", CategoryTypeMapping, "INT", "INTEGER", true},
		{"case insensitive keyword", CategoryTypeMapping, "int", "INTEGER", true},
		{"multi token type", CategoryTypeMapping, "INT IDENTITY(1,1)", "SERIAL", true},
		{"datetime", CategoryTypeMapping, "DATETIME", "TIMESTAMP", true},
		{"system function", CategorySystemVariableMapping, "GETDATE()", "CURRENT_TIMESTAMP", true},
		{"system variable", CategorySystemVariableMapping, "@@ROWCOUNT", "GET DIAGNOSTICS row_count = ROW_COUNT", true},
		{"function with args", CategoryFunctionMapping, "ISNULL(a, 'x')", "COALESCE(a, 'x')", true},
		{"no partial token match", CategoryTypeMapping, "INTO", "", false},
		{"unknown token", CategoryTypeMapping, "JSONB", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := tables.Lookup(tt.category, tt.token)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Applying a rule to already-converted text must be a no-op, otherwise the
// category ordering could double-rewrite substrings.
func TestApplyIdempotent(t *testing.T) {
	tables, err := DefaultRuleTables()
	require.NoError(t, err)

	tests := []struct {
		category  RuleCategory
		converted string
	}{
		{CategoryTypeMapping, "var INTEGER"},
		{CategoryTypeMapping, "d TIMESTAMP"},
		{CategoryTypeMapping, "id SERIAL"},
		{CategorySystemVariableMapping, "SELECT CURRENT_TIMESTAMP"},
		{CategoryFunctionMapping, "COALESCE(a, b)"},
		{CategoryFunctionMapping, "LENGTH(name)"},
		{CategoryCastConvert, "value::INTEGER"},
		{CategoryTempTableNaming, "SELECT * FROM tempTable_temp"},
	}
	for _, tt := range tests {
		out, changed := tables.Apply(tt.category, tt.converted)
		assert.False(t, changed, "rule in %s should not fire on %q", tt.category, tt.converted)
		assert.Equal(t, tt.converted, out)
	}
}

func TestApplyPriorityOrder(t *testing.T) {
	tables, err := DefaultRuleTables()
	require.NoError(t, err)

	// The higher-priority multi-token rule must win over the bare INT rule.
	out, changed := tables.Apply(CategoryTypeMapping, "id INT IDENTITY(1,1)")
	assert.True(t, changed)
	assert.Equal(t, "id SERIAL", out)

	// DATETIME2 must not be mangled by the DATETIME rule.
	out, _ = tables.Apply(CategoryTypeMapping, "d DATETIME2")
	assert.Equal(t, "d TIMESTAMP", out)
}

func TestLoadRuleTablesOverride(t *testing.T) {
	yaml := []byte(`
rules:
  types:
    - tsql: XML
      pg: TEXT
`)
	tables, err := LoadRuleTables(yaml)
	require.NoError(t, err)

	got, found := tables.Lookup(CategoryTypeMapping, "XML")
	assert.True(t, found)
	assert.Equal(t, "TEXT", got)

	// Override tables only contain what they declare.
	_, found = tables.Lookup(CategoryTypeMapping, "INT")
	assert.False(t, found)
}

func TestLoadRuleTablesBadPattern(t *testing.T) {
	yaml := []byte(`
rules:
  functions:
    - pattern: '(['
      replace: x
`)
	_, err := LoadRuleTables(yaml)
	require.Error(t, err)
}

package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyKinds(t *testing.T) {
	tables, err := DefaultRuleTables()
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		want StatementKind
	}{
		{"blank", "   ", KindBlank},
		{"comment", "-- converted by hand", KindComment},
		{"declaration", "DECLARE @var INT", KindDeclaration},
		{"select assignment", "SELECT @maxId = MAX(Id) FROM Users", KindAssignment},
		{"set assignment", "SET @counter = @counter + 1", KindAssignment},
		{"subquery assignment", "SELECT @var = (SELECT MAX(col) FROM t)", KindAssignment},
		{"if begin", "IF @x > 0 BEGIN", KindControlFlow},
		{"while begin", "WHILE @x < 10 BEGIN", KindControlFlow},
		{"bare begin", "BEGIN", KindControlFlow},
		{"bare end", "END", KindControlFlow},
		{"plain select", "SELECT * FROM Users", KindGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tables.Classify(StatementUnit{Text: tt.text, Line: 1})
			assert.Equal(t, tt.want, c.Kind)
		})
	}
}

// A SELECT @var = <scalar-subquery> must classify as an assignment even
// though the right-hand side is itself a parenthesized SELECT.
func TestClassifySubqueryAssignmentNotGeneric(t *testing.T) {
	tables, err := DefaultRuleTables()
	require.NoError(t, err)

	c := tables.Classify(StatementUnit{Text: "SELECT @var = (SELECT MAX(col) FROM t)", Line: 1})
	assert.Equal(t, KindAssignment, c.Kind)
}

func TestClassifyMatchRanges(t *testing.T) {
	tables, err := DefaultRuleTables()
	require.NoError(t, err)

	text := "SELECT ISNULL(@var, GETDATE()) FROM #work"
	c := tables.Classify(StatementUnit{Text: text, Line: 1})

	cats := c.Categories()
	assert.Contains(t, cats, CategoryFunctionMapping)
	assert.Contains(t, cats, CategorySystemVariableMapping)
	assert.Contains(t, cats, CategoryTempTableNaming)

	for _, m := range c.Matches {
		require.GreaterOrEqual(t, m.Start, 0)
		require.LessOrEqual(t, m.End, len(text))
		require.Less(t, m.Start, m.End)
	}

	// The temp-table match must point at the actual #work token.
	var tempMatch *Match
	for i := range c.Matches {
		if c.Matches[i].Category == CategoryTempTableNaming {
			tempMatch = &c.Matches[i]
		}
	}
	require.NotNil(t, tempMatch)
	assert.Equal(t, "#work", text[tempMatch.Start:tempMatch.End])
}

// Classification is a pure function of the text and the rule tables; a
// statement classifies identically no matter how often or in what order it
// is inspected.
func TestClassifyPure(t *testing.T) {
	tables, err := DefaultRuleTables()
	require.NoError(t, err)

	u := StatementUnit{Text: "IF @x > 0 BEGIN", Line: 3}
	first := tables.Classify(u)
	tables.Classify(StatementUnit{Text: "END", Line: 4})
	second := tables.Classify(u)

	assert.Equal(t, first.Kind, second.Kind)
	assert.Equal(t, first.Matches, second.Matches)
}

package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCorpusSize(t *testing.T) {
	assert.Len(t, BuiltinCorpus(), 17)
}

// Every builtin corpus case must pass against the embedded rule tables.
func TestBuiltinCorpusPasses(t *testing.T) {
	c := newTestConverter(t)

	results, summary := RunCorpus(c, BuiltinCorpus())
	for _, r := range results {
		assert.True(t, r.Passed, "%s: got %q, want %q", r.Case.Name, r.Actual, r.Case.Expected)
	}
	assert.Equal(t, summary.Total, summary.Passed)
}

func TestRunCorpusSummary(t *testing.T) {
	c := newTestConverter(t)

	cases := []TestCase{
		{Name: "pass", Category: "functions", Input: "SELECT GETDATE()", Expected: "SELECT CURRENT_TIMESTAMP"},
		{Name: "fail", Category: "functions", Input: "SELECT GETDATE()", Expected: "SELECT now()"},
		{Name: "other", Category: "variables", Input: "DECLARE @x INT", Expected: "DECLARE x INTEGER;"},
	}
	results, summary := RunCorpus(c, cases)

	require.Len(t, results, 3)
	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
	assert.True(t, results[2].Passed)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Passed)
	require.Contains(t, summary.ByCategory, "functions")
	require.Contains(t, summary.ByCategory, "variables")
	assert.Equal(t, &CategoryCount{Passed: 1, Total: 2}, summary.ByCategory["functions"])
	assert.Equal(t, &CategoryCount{Passed: 1, Total: 1}, summary.ByCategory["variables"])
}

// Expected strings are compared after trimming outer whitespace only.
func TestRunCorpusTrimsOuterWhitespace(t *testing.T) {
	c := newTestConverter(t)

	_, summary := RunCorpus(c, []TestCase{
		{Name: "padded", Category: "variables", Input: "DECLARE @x INT", Expected: "  DECLARE x INTEGER;\n"},
	})
	assert.Equal(t, 1, summary.Passed)
}

package convert

import "strings"

// TestCase is one (input, expected output) pair of the validation corpus.
type TestCase struct {
	Name     string
	Category string
	Input    string
	Expected string
}

// TestRunResult is the outcome of one corpus case.
type TestRunResult struct {
	Case   TestCase
	Actual string
	Passed bool
}

// CategoryCount tallies corpus results for one category.
type CategoryCount struct {
	Passed int
	Total  int
}

// CorpusSummary aggregates a corpus run.
type CorpusSummary struct {
	Total      int
	Passed     int
	ByCategory map[string]*CategoryCount
}

// RunCorpus converts every case and compares against the expected output.
// Comparison ignores leading and trailing whitespace only; interior
// structure must match exactly.
func RunCorpus(c *Converter, cases []TestCase) ([]TestRunResult, CorpusSummary) {
	results := make([]TestRunResult, 0, len(cases))
	summary := CorpusSummary{ByCategory: map[string]*CategoryCount{}}

	for _, tc := range cases {
		actual := c.ConvertText(tc.Input).Output
		passed := strings.TrimSpace(actual) == strings.TrimSpace(tc.Expected)

		results = append(results, TestRunResult{Case: tc, Actual: actual, Passed: passed})

		summary.Total++
		cc := summary.ByCategory[tc.Category]
		if cc == nil {
			cc = &CategoryCount{}
			summary.ByCategory[tc.Category] = cc
		}
		cc.Total++
		if passed {
			summary.Passed++
			cc.Passed++
		}
	}
	return results, summary
}

// BuiltinCorpus returns the 17-case validation corpus this converter is
// graded against.
func BuiltinCorpus() []TestCase {
	return []TestCase{
		{
			Name:     "Simple Variable Declaration",
			Category: "variables",
			Input:    "DECLARE @var INT",
			Expected: "DECLARE var INTEGER;",
		},
		{
			Name:     "Variable Declaration with Initialization",
			Category: "variables",
			Input:    "DECLARE @counter INT = 1",
			Expected: "DECLARE counter INTEGER := 1;",
		},
		{
			Name:     "Multiple Variable Declaration",
			Category: "variables",
			Input:    "DECLARE @var1 INT, @var2 VARCHAR(50)",
			Expected: "DECLARE\n    var1 INTEGER;\n    var2 VARCHAR(50);",
		},
		{
			Name:     "Simple SELECT Assignment",
			Category: "assignment",
			Input:    "SELECT @var = value FROM source",
			Expected: "SELECT value INTO var FROM source;",
		},
		{
			Name:     "SELECT Assignment with Function",
			Category: "assignment",
			Input:    "SELECT @maxId = MAX(Id) FROM Users",
			Expected: "SELECT MAX(Id) INTO maxId FROM Users;",
		},
		{
			Name:     "IF Statement with BEGIN/END",
			Category: "control_flow",
			Input:    "IF @count > 0 BEGIN PRINT 'Found' END",
			Expected: "IF count > 0 THEN\n    PRINT 'Found'\nEND IF;",
		},
		{
			Name:     "WHILE Loop",
			Category: "control_flow",
			Input:    "WHILE @counter <= 10 BEGIN SET @counter = @counter + 1 END",
			Expected: "WHILE counter <= 10 LOOP\n    counter := counter + 1;\nEND LOOP;",
		},
		{
			Name:     "ISNULL Function",
			Category: "functions",
			Input:    "SELECT ISNULL(@var, 'default')",
			Expected: "SELECT COALESCE(var, 'default')",
		},
		{
			Name:     "GETDATE Function",
			Category: "functions",
			Input:    "SELECT GETDATE()",
			Expected: "SELECT CURRENT_TIMESTAMP",
		},
		{
			Name:     "LEN Function",
			Category: "functions",
			Input:    "SELECT LEN(@name)",
			Expected: "SELECT LENGTH(name)",
		},
		{
			Name:     "String Concatenation",
			Category: "strings",
			Input:    "SELECT 'Hello ' + @name",
			Expected: "SELECT 'Hello ' || name",
		},
		{
			Name:     "Complex String Concatenation",
			Category: "strings",
			Input:    "INSERT INTO log VALUES ('Error: ' + CONVERT(VARCHAR, @error))",
			Expected: "INSERT INTO log VALUES ('Error: ' || error::TEXT)",
		},
		{
			Name:     "Data Type Conversion",
			Category: "datatypes",
			Input:    "DECLARE @date DATETIME, @flag BIT",
			Expected: "DECLARE\n    date TIMESTAMP;\n    flag BOOLEAN;",
		},
		{
			Name:     "System Functions",
			Category: "system",
			Input:    "SELECT @@ROWCOUNT",
			Expected: "SELECT GET DIAGNOSTICS row_count = ROW_COUNT",
		},
		{
			Name:     "Temp Table Reference",
			Category: "temp_tables",
			Input:    "SELECT * FROM #tempTable",
			Expected: "SELECT * FROM tempTable_temp",
		},
		{
			Name:     "CONVERT Function",
			Category: "casting",
			Input:    "CONVERT(VARCHAR, @id)",
			Expected: "id::TEXT",
		},
		{
			Name:     "CAST Function",
			Category: "casting",
			Input:    "CAST(@value AS INT)",
			Expected: "value::INTEGER",
		},
	}
}

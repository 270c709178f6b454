package convert

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Converting the same input twice yields byte-identical output and
// diagnostics, within one process and across converter instances.
func TestDeterminism(t *testing.T) {
	input := strings.Join([]string{
		"DECLARE @count INT = 0",
		"WHILE @count < 10 BEGIN",
		"    SET @count = @count + 1",
		"    SELECT @msg = 'at ' + CONVERT(VARCHAR, @count)",
		"END",
	}, "\n")

	c1 := newTestConverter(t)
	c2 := newTestConverter(t)

	first := c1.ConvertText(input)
	second := c1.ConvertText(input)
	third := c2.ConvertText(input)

	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, first.Output, third.Output)
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
	assert.Equal(t, first.Confidence, third.Confidence)
}

// Converting already-converted output again must not change it.
func TestConvertTwiceStable(t *testing.T) {
	c := newTestConverter(t)

	inputs := []string{
		"DECLARE @var INT",
		"SELECT GETDATE()",
		"SELECT @maxId = MAX(Id) FROM Users",
		"SELECT ISNULL(@var, 'default')",
		"SELECT * FROM #tempTable",
	}
	for _, input := range inputs {
		once := c.ConvertText(input).Output
		twice := c.ConvertText(once).Output
		assert.Equal(t, once, twice, "double conversion of %q drifted", input)
	}
}

func TestConfidenceGrades(t *testing.T) {
	c := newTestConverter(t)

	tests := []struct {
		name  string
		input string
		want  Confidence
	}{
		{"all converted", "SELECT GETDATE()", ConfidenceHigh},
		{"passthrough present", "MERGE INTO t USING s ON a = b", ConfidencePartial},
		{"structural error", "END", ConfidenceLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ConvertText(tt.input).Confidence)
		})
	}
}

func TestConvertFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, err := New(WithFs(fs))
	require.NoError(t, err)

	in := "/work/proc.sql"
	out := "/work/proc-postgresql.sql"
	require.NoError(t, afero.WriteFile(fs, in, []byte("DECLARE @var INT\n"), 0o644))

	res, err := c.ConvertFile(in, out, false)
	require.NoError(t, err)
	assert.Equal(t, ConfidenceHigh, res.Confidence)

	written, err := afero.ReadFile(fs, out)
	require.NoError(t, err)
	assert.Equal(t, "DECLARE var INTEGER;\n", string(written))
}

func TestConvertFilePreviewWritesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, err := New(WithFs(fs))
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/in.sql", []byte("SELECT GETDATE()"), 0o644))

	res, err := c.ConvertFile("/in.sql", "/out.sql", true)
	require.NoError(t, err)
	assert.Equal(t, "SELECT CURRENT_TIMESTAMP", res.Output)

	exists, err := afero.Exists(fs, "/out.sql")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestConvertFileMissingInput(t *testing.T) {
	c, err := New(WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)

	_, err = c.ConvertFile("/nope.sql", "/out.sql", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading input file")
}

// A structural error aborts the write for that file and surfaces as an
// error, while the result still carries the diagnostics.
func TestConvertFileUnbalancedBlock(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, err := New(WithFs(fs))
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/bad.sql", []byte("IF @x > 0 BEGIN\nSELECT 1\n"), 0o644))

	res, err := c.ConvertFile("/bad.sql", "/bad-out.sql", false)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, ConfidenceLow, res.Confidence)

	exists, _ := afero.Exists(fs, "/bad-out.sql")
	assert.False(t, exists)
}

// One bad file in a directory never aborts the batch: the other files
// convert and the failure is reported per file.
func TestConvertDirectoryPartialFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, err := New(WithFs(fs))
	require.NoError(t, err)

	good := "DECLARE @var INT\n"
	for _, name := range []string{"a.sql", "b.sql", "c.sql", "d.sql"} {
		require.NoError(t, afero.WriteFile(fs, filepath.Join("/batch", name), []byte(good), 0o644))
	}
	require.NoError(t, afero.WriteFile(fs, "/batch/broken.sql", []byte("WHILE @x < 1 BEGIN\nSELECT 1\n"), 0o644))
	// Non-SQL files are ignored.
	require.NoError(t, afero.WriteFile(fs, "/batch/readme.txt", []byte("notes"), 0o644))

	batch, err := c.ConvertDirectory("/batch", "/out", false)
	require.NoError(t, err)

	assert.Equal(t, 4, batch.Converted)
	assert.Equal(t, 1, batch.Failed)
	require.Len(t, batch.Files, 5)

	for _, fr := range batch.Files {
		if strings.Contains(fr.Input, "broken") {
			require.Error(t, fr.Err)
			assert.Equal(t, ConfidenceLow, fr.Result.Confidence)
			continue
		}
		require.NoError(t, fr.Err)
		written, err := afero.ReadFile(fs, fr.Output)
		require.NoError(t, err)
		assert.Equal(t, "DECLARE var INTEGER;\n", string(written))
	}

	// Output naming follows the <stem>-postgresql.sql convention.
	assert.Equal(t, filepath.Join("/out", "a-postgresql.sql"), batch.Files[0].Output)
}

func TestConvertDirectoryMissing(t *testing.T) {
	c, err := New(WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)

	_, err = c.ConvertDirectory("/absent", "/out", false)
	require.Error(t, err)
}

func TestCRLFInputNormalized(t *testing.T) {
	c := newTestConverter(t)

	res := c.ConvertText("DECLARE @a INT\r\nSELECT GETDATE()")
	assert.Equal(t, "DECLARE a INTEGER;\nSELECT CURRENT_TIMESTAMP", res.Output)
}

func TestEmptyInput(t *testing.T) {
	c := newTestConverter(t)

	res := c.ConvertText("")
	assert.Equal(t, "", res.Output)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
}

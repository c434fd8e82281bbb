package csvparser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/ginjaninja78/patient-import/internal/config"
)

func defaultSettings() config.CSVSettings {
	return config.Default().CSVSettings
}

func TestParseString(t *testing.T) {
	text := "Patient ID,Name,Age\n" +
		"PX-AB12,Jane Doe,41\n" +
		"\n" +
		",,\n" +
		"PX-CD3,\"Smith, John\",7\n" +
		"PX-EF4,Short\n"

	data, err := ParseString(text, defaultSettings())
	require.NoError(t, err)

	assert.Equal(t, []string{"Patient ID", "Name", "Age"}, data.Headers)
	require.Equal(t, 3, data.RowCount)
	assert.Equal(t, 3, data.ColumnCount)

	assert.Equal(t, "Jane Doe", data.Rows[0].Get("Name"))
	assert.Equal(t, 2, data.Rows[0].LineNumber)
	assert.Equal(t, "Smith, John", data.Rows[1].Get("Name"))
	assert.Equal(t, 5, data.Rows[1].LineNumber)
	assert.Equal(t, "", data.Rows[2].Get("Age"))
	assert.Equal(t, "PX-EF4", data.Rows[2].Get("Patient ID"))
}

func TestParse_UnbalancedQuotesIsParseFailure(t *testing.T) {
	_, err := ParseString("ID,Name\n1,\"Jane\n2,Joe\n", defaultSettings())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParseFailure))

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Error(), "parse failure")

	_, err = ParseString("ID,Name\n1,Ja\"ne\n", defaultSettings())
	assert.ErrorIs(t, err, ErrParseFailure)
}

func TestParse_EmptyFile(t *testing.T) {
	_, err := ParseString("\n\n", defaultSettings())
	assert.ErrorIs(t, err, ErrParseFailure)
}

func TestParse_HeadersCleaned(t *testing.T) {
	data, err := ParseString(" ID ,,Name,name\n1,x,a,b\n", defaultSettings())
	require.NoError(t, err)

	assert.Equal(t, []string{"ID", "Column_2", "Name", "name_2"}, data.Headers)
	assert.Equal(t, "b", data.Rows[0].Get("name_2"))
}

func TestParse_DelimiterAndBOM(t *testing.T) {
	settings := defaultSettings()
	settings.Delimiter = "semicolon"

	data, err := ParseString("\ufeffID;Name\nPX-AB1;Ann\n", settings)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Name"}, data.Headers)
	assert.Equal(t, "Ann", data.Rows[0].Get("Name"))
}

func TestParseFile_Windows1252(t *testing.T) {
	encoded, err := charmap.Windows1252.NewEncoder().String("ID,Name\nPX-AB1,Zoë Müller\n")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "legacy.csv")
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0o644))

	settings := defaultSettings()
	settings.Encoding = "Windows-1252"

	data, err := ParseFile(path, settings)
	require.NoError(t, err)
	assert.Equal(t, path, data.SourceFile)
	assert.Equal(t, "Zoë Müller", data.Rows[0].Get("Name"))
}

func TestParse_UnsupportedEncoding(t *testing.T) {
	settings := defaultSettings()
	settings.Encoding = "EBCDIC"

	_, err := ParseString("ID\n1\n", settings)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrParseFailure))
}

func TestDelimiter(t *testing.T) {
	assert.Equal(t, '\t', Delimiter("tab"))
	assert.Equal(t, '|', Delimiter("pipe"))
	assert.Equal(t, ';', Delimiter(";"))
	assert.Equal(t, ',', Delimiter(""))
	assert.Equal(t, ':', Delimiter(":"))
	assert.Equal(t, '§', Delimiter("§"))
	assert.Equal(t, '¦', Delimiter("¦"))
	assert.Equal(t, ',', Delimiter("comma"))
	assert.Equal(t, ',', Delimiter("colon"), "unknown names are not truncated to their first rune")
	assert.Equal(t, ',', Delimiter("\xff"))
}

func TestCleanHeaders_SuffixNeverCollides(t *testing.T) {
	assert.Equal(t, []string{"Name", "Name_3", "Name_2"}, CleanHeaders([]string{"Name", "Name", "Name_2"}))
	assert.Equal(t, []string{"Column_2", "Column_2_2", "ID"}, CleanHeaders([]string{"Column_2", "", "ID"}))

	data, err := ParseString("Name,Name,Name_2\nAnn,Bell,Cole\n", defaultSettings())
	require.NoError(t, err)
	assert.Equal(t, "Ann", data.Rows[0].Get("Name"))
	assert.Equal(t, "Bell", data.Rows[0].Get("Name_3"))
	assert.Equal(t, "Cole", data.Rows[0].Get("Name_2"))
}

package report

import (
	"context"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/patient-import/internal/config"
	"github.com/ginjaninja78/patient-import/internal/csvparser"
	"github.com/ginjaninja78/patient-import/internal/importer"
	"github.com/ginjaninja78/patient-import/internal/repository"
	"github.com/ginjaninja78/patient-import/internal/types"
)

const input = `Patient ID,Full Name,Transaction History,Promotional
PX-AB12,Ann Bell,TX25-04-9,
PX-CD3,Carl Dunn,TX25-04-9,
PX-EF4,Eve Ford,TX25-05-1,yes
PX-EF4,Eve Ford,TX25-05-1,yes
`

func analysis(t *testing.T) *importer.Analysis {
	t.Helper()
	data, err := csvparser.ParseString(input, config.CSVSettings{})
	require.NoError(t, err)

	n := 0
	engine := importer.NewEngine(importer.WithIDGenerator(func() string {
		n++
		return "id-" + strings.Repeat("x", n)
	}))
	repo := repository.NewMemoryStore(types.PatientRecord{ID: "old", Code: "PX-AB-0000012"})
	a, err := engine.Analyze(context.Background(), data, repo)
	require.NoError(t, err)
	return a
}

func TestGenerate_Structure(t *testing.T) {
	a := analysis(t)
	out, err := GenerateWithOptions(a, Options{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		GeneratedAt:           time.Date(2025, 4, 15, 9, 30, 0, 0, time.UTC),
		Selected:              []int{2, 3},
		Commit: &importer.CommitResult{
			Written:  1,
			Failures: []importer.CommitFailure{{Index: 3, Code: "PX-EF-0000004", Err: errors.New("locked")}},
		},
	})
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, xml.Header))
	assert.Contains(t, text, `generated="2025-04-15T09:30:00Z"`)
	assert.Contains(t, text, `<summary rows="4" duplicates="1" promotional="1" conflicts="1"`)
	assert.Contains(t, text, `<transactionGroup code="TX25-04-00009" status="conflict">`)
	assert.Contains(t, text, `<transactionGroup code="TX25-05-00001" status="bundle">`)
	assert.Contains(t, text, `<member n="4" code="PX-EF-0000004" role="promotional"></member>`)
	assert.Contains(t, text, `<sourceHint promotional="true"></sourceHint>`)
	assert.Contains(t, text, `<commit written="1" failed="1">`)
	assert.Contains(t, text, `<failure n="4" code="PX-EF-0000004">locked</failure>`)

	var doc document
	require.NoError(t, xml.Unmarshal(out, &doc))
	require.Len(t, doc.Patients, 4)
	assert.True(t, doc.Patients[0].Duplicate)
	assert.False(t, doc.Patients[0].Selected)
	assert.True(t, doc.Patients[2].Selected)
	assert.True(t, doc.Patients[3].Promotional)
	assert.Equal(t, "TX25-05-00001", doc.Patients[3].GroupID)
	assert.Equal(t, []string{"TX25-05-00001"}, doc.Patients[3].Txs)
	assert.Equal(t, 5, doc.Patients[3].Line)

	var rules []string
	for _, is := range doc.Patients[0].Issues {
		rules = append(rules, is.Rule)
	}
	assert.Contains(t, rules, "duplicate")
	assert.Contains(t, rules, "conflict")
}

func TestGenerate_DefaultsAndNoCommit(t *testing.T) {
	out, err := Generate(analysis(t))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<commit")
	assert.NotContains(t, string(out), `selected="true"`)
}

func TestSummary(t *testing.T) {
	a := analysis(t)
	out := Summary(a, &importer.CommitResult{Written: 3})

	assert.Contains(t, out, "Total records: 4")
	assert.Contains(t, out, "Transaction conflicts: 1")
	assert.Contains(t, out, "Codes repeated within the file: 1")
	assert.Contains(t, out, "[WARNING] Row 2, Field 'patient_id': patient code already exists")
	assert.Contains(t, out, "Committed: 3")
	assert.NotContains(t, out, "Failed:")
}

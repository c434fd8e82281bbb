package sample

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/patient-import/internal/codes"
	"github.com/ginjaninja78/patient-import/internal/config"
	"github.com/ginjaninja78/patient-import/internal/csvparser"
	"github.com/ginjaninja78/patient-import/internal/importer"
	"github.com/ginjaninja78/patient-import/internal/repository"
)

func generate(t *testing.T, opts Options) (string, Stats) {
	t.Helper()
	var buf bytes.Buffer
	stats, err := Generate(&buf, opts)
	require.NoError(t, err)
	return buf.String(), stats
}

func TestGenerate_Deterministic(t *testing.T) {
	opts := Options{Rows: 25, Seed: 11, PromoRate: 0.2, ConflictRate: 0.1}
	a, _ := generate(t, opts)
	b, _ := generate(t, opts)
	assert.Equal(t, a, b)

	c, _ := generate(t, Options{Rows: 25, Seed: 12, PromoRate: 0.2, ConflictRate: 0.1})
	assert.NotEqual(t, a, c)
}

func TestGenerate_AnalysisMatchesStats(t *testing.T) {
	for _, opts := range []Options{
		{Rows: 80, Seed: 3, PromoRate: 0.25, ConflictRate: 0.15},
		{Rows: 80, Seed: 5, PromoRate: 0.25, ConflictRate: 0.15, LegacyCodes: true},
		{Rows: 80, Seed: 9, PromoRate: 0.25, ConflictRate: 0.15, Style: StyleSplit},
	} {
		text, stats := generate(t, opts)

		data, err := csvparser.ParseString(text, config.CSVSettings{})
		require.NoError(t, err)
		require.Equal(t, opts.Rows, data.RowCount)

		a, err := importer.NewEngine().Analyze(context.Background(), data, repository.NewMemoryStore())
		require.NoError(t, err)

		assert.Equal(t, stats.Bundles, a.Stats.Promotional, "seed %d", opts.Seed)
		assert.Equal(t, stats.Conflicts, a.Stats.Conflicts, "seed %d", opts.Seed)
		assert.Zero(t, a.Stats.Errors, "seed %d", opts.Seed)
		assert.Equal(t, stats.Bundles+stats.Patients, stats.Rows)

		for i, rec := range a.Records {
			assert.True(t, codes.IsCanonicalPatientCode(rec.Code), "row %d: %s", i, rec.Code)
			assert.NotEmpty(t, rec.Transactions, "row %d", i)
			assert.NotZero(t, rec.Age, "row %d", i)
		}
	}
}

func TestGenerate_RejectsBadOptions(t *testing.T) {
	var buf bytes.Buffer
	_, err := Generate(&buf, Options{Rows: -1})
	assert.Error(t, err)

	_, err = Generate(&buf, Options{Rows: 1, PromoRate: 0.8, ConflictRate: 0.5})
	assert.Error(t, err)

	_, err = Generate(&buf, Options{Rows: 1, Style: "fancy"})
	assert.Error(t, err)
}

func TestGenerate_ZeroRows(t *testing.T) {
	text, stats := generate(t, Options{Seed: 1})
	assert.Zero(t, stats.Rows)
	assert.Equal(t, 1, bytes.Count([]byte(text), []byte("\n")))
}

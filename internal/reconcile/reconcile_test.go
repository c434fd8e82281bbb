package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/patient-import/internal/types"
)

func rec(code string, txs ...string) types.PatientRecord {
	return types.PatientRecord{Code: code, FirstName: "Pat", LastName: "Doe", Transactions: txs}
}

func TestDetectDuplicates(t *testing.T) {
	records := []types.PatientRecord{
		rec("PX-JD-0000001"),
		rec("PX-JD-0000002"),
	}
	before := append([]types.PatientRecord(nil), records...)

	dups := DetectDuplicates(records, []string{"PX-JD-0000001"})

	assert.True(t, dups.Has(0))
	assert.False(t, dups.Has(1))
	assert.Equal(t, before, records, "detection must not modify records")
}

func TestDetectDuplicates_EmptySnapshot(t *testing.T) {
	dups := DetectDuplicates([]types.PatientRecord{rec("PX-JD-0000001")}, nil)
	assert.Empty(t, dups)
}

func TestBatchCodeCollisions(t *testing.T) {
	got := BatchCodeCollisions([]types.PatientRecord{
		rec("PX-AA-0000001"),
		rec("PX-BB-0000001"),
		rec("PX-AA-0000001"),
		rec(""),
		rec(""),
	})
	assert.Equal(t, map[string][]int{"PX-AA-0000001": {0, 2}}, got)
}

func TestGroupTransactions(t *testing.T) {
	groups := GroupTransactions([]types.PatientRecord{
		rec("PX-AA-0000001", "TX25-04-00001", "TX25-04-00002"),
		rec("PX-AA-0000001", "TX25-04-00002"),
		rec("PX-BB-0000001"),
	})

	assert.Equal(t, map[string][]int{
		"TX25-04-00001": {0},
		"TX25-04-00002": {0, 1},
	}, groups)
}

func TestClassifyPromotions_SingleOwner(t *testing.T) {
	records := []types.PatientRecord{
		rec("PX-AA-0000001", "TX25-04-00009"),
		rec("PX-AA-0000001", "TX25-04-00009"),
		rec("PX-AA-0000001", "TX25-04-00009"),
	}

	c := ClassifyPromotions(records)

	assert.False(t, records[0].IsPromotionalItem)
	assert.Empty(t, records[0].PromotionalGroupID)
	for _, i := range []int{1, 2} {
		assert.True(t, records[i].IsPromotionalItem, "row %d", i)
		assert.Equal(t, "TX25-04-00009", records[i].PromotionalGroupID, "row %d", i)
	}
	assert.Equal(t, []int{1, 2}, c.PromotionalIndices.Sorted())
	assert.Empty(t, c.Conflicts)
	assert.Equal(t, []int{0, 1, 2}, c.Groups["TX25-04-00009"])
}

func TestClassifyPromotions_CrossPatientConflict(t *testing.T) {
	records := []types.PatientRecord{
		rec("PX-AA-0000001", "TX25-04-00009"),
		rec("PX-AA-0000001", "TX25-04-00009"),
		rec("PX-BB-0000002", "TX25-04-00009"),
	}

	c := ClassifyPromotions(records)

	for i := range records {
		assert.False(t, records[i].IsPromotionalItem, "row %d", i)
		assert.Empty(t, records[i].PromotionalGroupID, "row %d", i)
	}
	assert.Empty(t, c.PromotionalIndices)
	require.Len(t, c.Conflicts, 1)
	assert.Equal(t, types.Conflict{
		Code:         "TX25-04-00009",
		Indices:      []int{0, 1, 2},
		PatientCodes: []string{"PX-AA-0000001", "PX-BB-0000002"},
	}, c.Conflicts[0])
}

func TestClassifyPromotions_ConflictDoesNotBlockOtherGroups(t *testing.T) {
	records := []types.PatientRecord{
		rec("PX-AA-0000001", "TX25-04-00002"),
		rec("PX-BB-0000001", "TX25-04-00002"),
		rec("PX-CC-0000001", "TX25-04-00001"),
		rec("PX-CC-0000001", "TX25-04-00001"),
	}

	c := ClassifyPromotions(records)

	assert.Equal(t, []int{3}, c.PromotionalIndices.Sorted())
	require.Len(t, c.Conflicts, 1)
	assert.Equal(t, "TX25-04-00002", c.Conflicts[0].Code)
}

func TestClassifyPromotions_ConflictMemberNeverMarked(t *testing.T) {
	records := []types.PatientRecord{
		rec("PX-AA-0000001", "TX25-04-00001"),
		rec("PX-AA-0000001", "TX25-04-00001", "TX25-04-00002"),
		rec("PX-BB-0000001", "TX25-04-00002"),
	}

	c := ClassifyPromotions(records)

	require.Len(t, c.Conflicts, 1)
	assert.Equal(t, "TX25-04-00002", c.Conflicts[0].Code)
	assert.Equal(t, []int{1, 2}, c.Conflicts[0].Indices)
	assert.Empty(t, c.PromotionalIndices.Sorted())
	for i, r := range records {
		assert.False(t, r.IsPromotionalItem, "row %d", i)
		assert.Empty(t, r.PromotionalGroupID, "row %d", i)
	}
}

func TestClassifyPromotions_ConflictsSortedByCode(t *testing.T) {
	records := []types.PatientRecord{
		rec("PX-AA-0000001", "TX25-04-00003", "TX25-04-00001"),
		rec("PX-BB-0000001", "TX25-04-00003", "TX25-04-00001"),
	}

	c := ClassifyPromotions(records)

	require.Len(t, c.Conflicts, 2)
	assert.Equal(t, "TX25-04-00001", c.Conflicts[0].Code)
	assert.Equal(t, "TX25-04-00003", c.Conflicts[1].Code)
}

func TestClassifyPromotions_SingletonsUnmarked(t *testing.T) {
	records := []types.PatientRecord{
		rec("PX-AA-0000001", "TX25-04-00001"),
		rec("PX-AA-0000001", "TX25-04-00002"),
	}

	c := ClassifyPromotions(records)

	assert.Empty(t, c.PromotionalIndices)
	assert.False(t, records[1].IsPromotionalItem)
}

func TestClassifyPromotions_ResetsStaleFlags(t *testing.T) {
	records := []types.PatientRecord{
		rec("PX-AA-0000001", "TX25-04-00009"),
		rec("PX-AA-0000001", "TX25-04-00009"),
	}
	ClassifyPromotions(records)
	require.True(t, records[1].IsPromotionalItem)

	// An edit moves row 1 to another patient; the bundle becomes a conflict.
	records[1].Code = "PX-BB-0000001"
	c := ClassifyPromotions(records)

	assert.False(t, records[1].IsPromotionalItem)
	assert.Empty(t, records[1].PromotionalGroupID)
	assert.Len(t, c.Conflicts, 1)
}

func TestClassifyPromotions_IgnoresSourceHints(t *testing.T) {
	r := rec("PX-AA-0000001", "TX25-04-00001")
	r.PromotionalHint = true
	r.HintGroupID = "BUNDLE-7"
	records := []types.PatientRecord{r}

	ClassifyPromotions(records)

	assert.False(t, records[0].IsPromotionalItem)
	assert.True(t, records[0].PromotionalHint)
	assert.Equal(t, "BUNDLE-7", records[0].HintGroupID)
}

func TestHumanSummary(t *testing.T) {
	records := []types.PatientRecord{
		rec("PX-AA-0000001", "TX25-04-00009"),
		rec("PX-AA-0000001", "TX25-04-00009"),
		rec("PX-BB-0000001", "TX25-04-00001"),
		rec("PX-CC-0000001", "TX25-04-00001"),
	}
	c := ClassifyPromotions(records)
	out := HumanSummary(records, types.NewIndexSet(2), c)

	assert.Contains(t, out, "Total records: 4")
	assert.Contains(t, out, "Duplicates of existing records: 1")
	assert.Contains(t, out, "- row 2: PX-AA-0000001 in TX25-04-00009")
	assert.Contains(t, out, "- TX25-04-00001 rows=3,4 patients=PX-BB-0000001,PX-CC-0000001")
}

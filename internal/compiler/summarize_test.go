package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

var summaryTable = Table{
	"department": {Path: "departmentId", Type: report.TypeDepartment},
	"start_date": {Path: "startDate", Type: report.TypeDate},
	"salary":     {Path: "salary", Type: report.TypeNumber},
	"skills":     {Path: "skills", Type: report.TypeMultiSelect, Array: true},
	"bonus":      {Path: "bonus", Type: report.TypeNumber, Permission: report.PermViewCompensation},
}

func keysOf(d bson.D) []string {
	keys := make([]string, 0, len(d))
	for _, e := range d {
		keys = append(keys, e.Key)
	}
	return keys
}

func sampleSummary(t *testing.T, bins map[string]Bins) Summary {
	t.Helper()
	specs := []report.SummarizeSpec{
		{Type: report.TypeDepartment, Name: "Department"},
		{Type: report.TypeDate, Name: "Start Date", Selection: report.SelectionQuarter},
		{Type: report.TypeNumber, Name: "Salary", Selection: "5"},
	}
	aggs := []report.AggregationOperationSpec{
		{Operation: report.OpCount},
		{Type: report.TypeNumber, Name: "Salary", Operation: report.OpSum},
		{Type: report.TypeMultiSelect, Name: "Skills", Operation: report.OpConcatenate},
	}
	s, err := Summarize(specs, aggs, TableResolver(summaryTable), bins, Access{})
	require.NoError(t, err)
	return s
}

func TestSummarize_Fold(t *testing.T) {
	s := sampleSummary(t, map[string]Bins{"salary": ManualBins(0, 97, 5)})

	assert.Equal(t, []string{"department", "start_date", "salary"}, keysOf(s.ID))
	assert.Equal(t, []string{"__by_start_date", "__by_salary"}, keysOf(s.PreGroup))
	assert.Equal(t, []string{"count", "salary_sum", "skills_concatenate"}, keysOf(s.Accumulators))
	assert.Equal(t, []string{"skills_concatenate", "skills_concatenate_distinct"}, keysOf(s.PostGroup))
	assert.Empty(t, s.Pending)
	require.Len(t, s.Probes, 1)
	assert.Equal(t, BucketProbe{Slot: "salary", Path: "salary", Count: 5}, s.Probes[0])

	// Each slot defaults to "" when null.
	assert.Equal(t, bson.D{{Key: "$ifNull", Value: bson.A{"$departmentId", ""}}}, s.ID[0].Value)
	assert.Equal(t, bson.D{{Key: "$ifNull", Value: bson.A{"$__by_start_date", ""}}}, s.ID[1].Value)

	assert.Equal(t, []string{"$addFields", "$group", "$addFields"}, s.Stages().Ops())
}

func TestSummarize_SortKeys(t *testing.T) {
	s := sampleSummary(t, map[string]Bins{"salary": ManualBins(0, 97, 5)})

	key, ok := s.SortKey("Start Date")
	require.True(t, ok)
	assert.Equal(t, "_id.start_date", key.Path)
	assert.False(t, key.Array, "date reductions are scalar")

	key, ok = s.SortKey("skills")
	require.True(t, ok)
	assert.Equal(t, "skills_concatenate_distinct", key.Path)
	assert.False(t, key.Array, "distinct counts are scalar")

	key, ok = s.SortKey("Salary")
	require.True(t, ok)
	assert.Equal(t, "_id.salary", key.Path, "summarized slot wins over aggregation column")

	key, ok = s.SortKey("count")
	require.True(t, ok)
	assert.Equal(t, "count", key.Path)

	_, ok = s.SortKey("Title")
	assert.False(t, ok)
}

func TestSummarize_RawArraySlotKeepsArray(t *testing.T) {
	specs := []report.SummarizeSpec{
		{Type: report.TypeMultiSelect, Name: "Skills"},
		{Type: report.TypeMultiSelect, Name: "Languages", Category: report.CategoryCustom},
	}
	resolve := TableResolver(summaryTable)
	s, err := Summarize(specs, nil, resolve, nil, Access{})
	require.NoError(t, err)

	key, ok := s.SortKey("Skills")
	require.True(t, ok)
	assert.Equal(t, SortKey{Path: "_id.skills", Array: true}, key)

	key, ok = s.SortKey("Languages")
	require.True(t, ok)
	assert.Equal(t, "Languages", key.Custom)
	assert.True(t, key.Array)
}

func TestSummarize_Access(t *testing.T) {
	byDept := []report.SummarizeSpec{{Type: report.TypeDepartment, Name: "Department"}}
	tests := []struct {
		name      string
		specs     []report.SummarizeSpec
		aggs      []report.AggregationOperationSpec
		access    Access
		forbidden bool
	}{
		{
			name:      "grouping on a permissioned field",
			specs:     []report.SummarizeSpec{{Type: report.TypeNumber, Name: "Bonus"}},
			forbidden: true,
		},
		{
			name:      "averaging a permissioned field",
			specs:     byDept,
			aggs:      []report.AggregationOperationSpec{{Type: report.TypeNumber, Name: "Bonus", Operation: report.OpAverage}},
			forbidden: true,
		},
		{
			name:      "concatenating a permissioned field",
			specs:     byDept,
			aggs:      []report.AggregationOperationSpec{{Type: report.TypeNumber, Name: "Bonus", Operation: report.OpConcatenate}},
			forbidden: true,
		},
		{
			name:   "permission granted",
			specs:  byDept,
			aggs:   []report.AggregationOperationSpec{{Type: report.TypeNumber, Name: "Bonus", Operation: report.OpMaximum}},
			access: Access{Permissions: report.NewPermissions(report.PermViewCompensation)},
		},
		{
			name:      "custom field outside the allow-list",
			specs:     []report.SummarizeSpec{{Type: report.TypeText, Name: "Shirt Size", Category: report.CategoryCustom}},
			access:    Access{Gate: CustomFieldGate([]string{"Team"})},
			forbidden: true,
		},
		{
			name:   "custom field on the allow-list",
			specs:  []report.SummarizeSpec{{Type: report.TypeText, Name: "Team", Category: report.CategoryCustom}},
			access: Access{Gate: CustomFieldGate([]string{"Team"})},
		},
		{
			name:   "count reads no field",
			specs:  byDept,
			aggs:   []report.AggregationOperationSpec{{Operation: report.OpCount}},
			access: Access{Gate: CustomFieldGate([]string{"Team"})},
		},
	}
	resolve := TableResolver(summaryTable)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Summarize(tt.specs, tt.aggs, resolve, nil, tt.access)
			if tt.forbidden {
				require.Error(t, err)
				assert.True(t, report.IsForbiddenField(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSummarize_PendingBins(t *testing.T) {
	s := sampleSummary(t, nil)
	require.Len(t, s.Pending, 1)
	assert.Equal(t, 5, s.Pending[0].Count)
}

func TestSummarize_AutomaticSelection(t *testing.T) {
	specs := []report.SummarizeSpec{{Type: report.TypeNumber, Name: "Salary", Selection: report.SelectionAutomatic}}
	s, err := Summarize(specs, nil, TableResolver(summaryTable), nil, Access{})
	require.NoError(t, err)
	require.Len(t, s.Pending, 1)
	assert.True(t, s.Pending[0].Automatic())
}

func TestSummarize_DefaultCount(t *testing.T) {
	specs := []report.SummarizeSpec{{Type: report.TypeDepartment, Name: "Department"}}
	s, err := Summarize(specs, nil, TableResolver(summaryTable), nil, Access{})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}, s.Accumulators)
	assert.Equal(t, []string{"$group"}, s.Stages().Ops())
}

func TestSummarize_NumericAccumulatorsCoalesce(t *testing.T) {
	specs := []report.SummarizeSpec{{Type: report.TypeDepartment, Name: "Department"}}
	aggs := []report.AggregationOperationSpec{
		{Type: report.TypeNumber, Name: "Salary", Operation: report.OpAverage},
		{Type: report.TypeNumber, Name: "Salary", Operation: report.OpMaximum},
	}
	s, err := Summarize(specs, aggs, TableResolver(summaryTable), nil, Access{})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "$avg", Value: NullCoalesce("salary")}}, s.Accumulators[0].Value)
	assert.Equal(t, bson.D{{Key: "$max", Value: NullCoalesce("salary")}}, s.Accumulators[1].Value)

	key, _ := s.SortKey("Salary")
	assert.Equal(t, "salary_average", key.Path, "first aggregation of a field is its sort column")
}

func TestSummarize_Errors(t *testing.T) {
	_, err := Summarize([]report.SummarizeSpec{{Type: report.TypeText, Name: "Nickname"}}, nil, TableResolver(summaryTable), nil, Access{})
	assert.Equal(t, report.ErrCodeUnknownField, report.CodeOf(err))

	_, err = Summarize([]report.SummarizeSpec{{Type: report.TypeDate, Name: "Start Date", Selection: "weekly"}}, nil, TableResolver(summaryTable), nil, Access{})
	assert.Equal(t, report.ErrCodeInvalidRequest, report.CodeOf(err))

	_, err = Summarize(nil, []report.AggregationOperationSpec{{Name: "Salary", Operation: "median"}}, TableResolver(summaryTable), nil, Access{})
	assert.Equal(t, report.ErrCodeInvalidRequest, report.CodeOf(err))
}

func TestDateReduction(t *testing.T) {
	year := DateReduction("startDate", report.SelectionYear)
	cond := year[0].Value.(bson.A)
	assert.Equal(t, bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: "$startDate"}}, "date"}}}, cond[0])
	assert.Equal(t, bson.D{{Key: "$toString", Value: bson.D{{Key: "$year", Value: "$startDate"}}}}, cond[1])
	assert.Equal(t, "", cond[2])

	month := DateReduction("startDate", report.SelectionMonth)
	assert.Equal(t, bson.D{{Key: "$dateToString", Value: bson.D{
		{Key: "format", Value: "%Y-%m"},
		{Key: "date", Value: "$startDate"},
	}}}, month[0].Value.(bson.A)[1])

	quarter := DateReduction("startDate", report.SelectionQuarter)
	concat := quarter[0].Value.(bson.A)[1].(bson.D)
	assert.Equal(t, "$concat", concat[0].Key)
	assert.Equal(t, "-Q", concat[0].Value.(bson.A)[1])
}

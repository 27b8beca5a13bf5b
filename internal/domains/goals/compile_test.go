package goals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/compiler"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/pipeline"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

func env() compiler.Env {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	return compiler.Env{Now: func() time.Time { return now }}
}

func request(filters ...report.FilterGroup) *report.ReportQueryRequest {
	return &report.ReportQueryRequest{
		Domain:    report.DomainGoals,
		CompanyID: primitive.NewObjectID(),
		Filters:   filters,
	}
}

func clause(field string, typ report.FieldType, cmp report.Comparator, v any) report.FieldFilter {
	return report.FieldFilter{Field: field, Category: report.CategoryStandard, Type: typ, Comparator: cmp, Value: report.RawValue{V: v}}
}

func TestCompile_CalculatedFilterFollowsDerivation(t *testing.T) {
	req := request(
		report.FilterGroup{clause("Status", report.TypeSingleSelect, report.CmpEq, "open")},
		report.FilterGroup{clause("Current Progress", report.TypeNumber, report.CmpGte, 50)},
	)

	plan, err := Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"$match", "$addFields", "$match",
		"$sort", "$skip", "$limit", "$addFields",
	}, plan.Pipeline.Ops())

	assert.Equal(t, pipeline.Match{Filter: bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "companyId", Value: req.CompanyID}},
		bson.D{{Key: "status", Value: "open"}},
	}}}}, plan.Pipeline[0])
	assert.Equal(t, pipeline.AddFields{Fields: bson.D{{Key: ProgressField, Value: Progress()}}}, plan.Pipeline[1])
	assert.Equal(t, pipeline.Match{Filter: bson.D{{Key: ProgressField, Value: bson.D{{Key: "$gte", Value: 50.0}}}}}, plan.Pipeline[2])
}

func TestCompile_NoCalculatedMatchWithoutFilter(t *testing.T) {
	plan, err := Compile(request(), env())
	require.NoError(t, err)
	assert.Equal(t, []string{"$match", "$addFields", "$sort", "$skip", "$limit", "$addFields"}, plan.Pipeline.Ops())
	assert.Equal(t, []string{"$match", "$addFields"}, plan.Filter.Ops())
}

func TestCompile_PrivateGoalRedaction(t *testing.T) {
	req := request()
	plan, err := Compile(req, env())
	require.NoError(t, err)
	last := plan.Pipeline[len(plan.Pipeline)-1].(pipeline.AddFields)
	assert.Equal(t, bson.D{
		compiler.RedactWhen("description", "isPrivate"),
		compiler.RedactWhen("notes", "isPrivate"),
	}, last.Fields)

	req.Permissions = report.NewPermissions(report.PermViewPrivateGoals)
	plan, err = Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, []string{"$match", "$addFields", "$sort", "$skip", "$limit"}, plan.Pipeline.Ops())
}

func TestCompile_OwnerSortAndSummary(t *testing.T) {
	req := request()
	req.Sorts = []report.SortSpec{{Name: "Owner", Direction: report.SortAsc, Type: report.TypePeople}}
	plan, err := Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "owners.name", Value: 1}}, plan.Sort)

	req = request()
	req.SummarizeBy = []report.SummarizeSpec{{Name: "Status", Type: report.TypeSingleSelect}}
	req.Aggregations = []report.AggregationOperationSpec{{Name: "Current Progress", Type: report.TypeNumber, Operation: report.OpAverage}}
	req.Sorts = []report.SortSpec{{Name: "Current Progress", Direction: report.SortDesc, Type: report.TypeNumber}}
	plan, err = Compile(req, env())
	require.NoError(t, err)
	require.True(t, plan.Ready())
	assert.Equal(t, []string{"$match", "$addFields", "$group", "$sort", "$skip", "$limit"}, plan.Pipeline.Ops())
	assert.Equal(t, bson.D{{Key: "current_progress_average", Value: -1}}, plan.Sort)
}

func TestProgress(t *testing.T) {
	cond := Progress()[0]
	assert.Equal(t, "$cond", cond.Key)
	branches := cond.Value.(bson.A)
	require.Len(t, branches, 3)
	assert.Nil(t, branches[1], "no target means no progress")
}

func TestCompile_SummaryRedactsPrivateGoals(t *testing.T) {
	req := request()
	req.SummarizeBy = []report.SummarizeSpec{{Name: "Status", Type: report.TypeSingleSelect}}
	req.Aggregations = []report.AggregationOperationSpec{{Name: "Description", Type: report.TypeText, Operation: report.OpConcatenate}}

	plan, err := Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, []string{"$match", "$addFields"}, plan.Filter.Ops())
	assert.Equal(t, pipeline.AddFields{Fields: bson.D{
		{Key: ProgressField, Value: Progress()},
		compiler.RedactWhen("description", privateFlag),
		compiler.RedactWhen("notes", privateFlag),
	}}, plan.Filter[1], "private text is blanked before grouping")

	req.Permissions = report.NewPermissions(report.PermViewPrivateGoals)
	plan, err = Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, pipeline.AddFields{Fields: bson.D{{Key: ProgressField, Value: Progress()}}}, plan.Filter[1])
}

func TestCompile_SummarySortOnTwoArraySlots(t *testing.T) {
	req := request()
	req.SummarizeBy = []report.SummarizeSpec{
		{Name: "Owner", Type: report.TypePeople},
		{Name: "Category", Type: report.TypeGoalCategories},
	}
	req.Sorts = []report.SortSpec{
		{Name: "Owner", Direction: report.SortAsc, Type: report.TypePeople},
		{Name: "Category", Direction: report.SortAsc, Type: report.TypeGoalCategories},
	}
	_, err := Compile(req, env())
	require.Error(t, err)
	assert.True(t, report.IsInvalidSort(err))

	req.Sorts = req.Sorts[:1]
	plan, err := Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "_id.owner", Value: 1}}, plan.Sort)
}

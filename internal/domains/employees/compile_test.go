package employees

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

var now = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func env() compiler.Env {
	return compiler.Env{Now: func() time.Time { return now }}
}

func request(filters ...report.FilterGroup) *report.ReportQueryRequest {
	return &report.ReportQueryRequest{
		Domain:    report.DomainEmployees,
		CompanyID: primitive.NewObjectID(),
		Filters:   filters,
	}
}

func clause(field string, typ report.FieldType, cmp report.Comparator, v any) report.FieldFilter {
	return report.FieldFilter{Field: field, Category: report.CategoryStandard, Type: typ, Comparator: cmp, Value: report.RawValue{V: v}}
}

func TestCompile_DeactivatedAsOf(t *testing.T) {
	req := request(report.FilterGroup{
		clause("Activation Status", report.TypeSingleSelect, report.CmpEq, "Deactivated"),
	})
	req.AsOf = time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)

	plan, err := Compile(req, env())
	require.NoError(t, err)
	require.True(t, plan.Ready())

	assert.Equal(t, "employeeHistory", plan.Collection)
	assert.Equal(t, []string{
		"$match", "$sort", "$group", "$replaceRoot", "$match",
		"$sort", "$skip", "$limit", "$project",
	}, plan.Pipeline.Ops())

	first := plan.Pipeline[0].(pipeline.Match)
	assert.Equal(t, bson.D{
		{Key: "companyId", Value: req.CompanyID},
		{Key: "effectiveDate", Value: bson.D{{Key: "$lte", Value: req.AsOf}}},
	}, first.Filter, "population is bounded by the as-of date")

	status := plan.Pipeline[4].(pipeline.Match)
	assert.Equal(t, bson.D{{Key: "activationStatus", Value: "Deactivated"}}, status.Filter,
		"status applies after the latest snapshot is chosen")
}

func TestCompile_MainMatchFollowsSnapshot(t *testing.T) {
	req := request(report.FilterGroup{clause("Title", report.TypeText, report.CmpEq, "CTO")})

	plan, err := Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"$match", "$sort", "$group", "$replaceRoot", "$match",
		"$sort", "$skip", "$limit", "$project",
	}, plan.Pipeline.Ops())

	first := plan.Pipeline[0].(pipeline.Match)
	assert.Equal(t, bson.D{{Key: "$lte", Value: now}}, first.Filter[1].Value, "as-of defaults to now")
	assert.Equal(t, pipeline.Match{Filter: bson.D{{Key: "title", Value: "CTO"}}}, plan.Pipeline[4])
}

func TestCompile_DirectReportsOnlyWhenReferenced(t *testing.T) {
	plan, err := Compile(request(), env())
	require.NoError(t, err)
	assert.NotContains(t, plan.Pipeline.Ops(), "$lookup")

	req := request(report.FilterGroup{clause("Has Direct Reports", report.TypeBoolean, report.CmpEq, true)})
	plan, err = Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"$match", "$sort", "$group", "$replaceRoot",
		"$lookup", "$addFields", "$project", "$match",
		"$sort", "$skip", "$limit", "$project",
	}, plan.Pipeline.Ops())
	assert.Equal(t, pipeline.Match{Filter: bson.D{{Key: "hasDirectReports", Value: true}}}, plan.Pipeline[7])
}

func TestCompile_Projection(t *testing.T) {
	req := request()
	plan, err := Compile(req, env())
	require.NoError(t, err)
	last := plan.Pipeline[len(plan.Pipeline)-1].(pipeline.Project)
	assert.Equal(t, bson.D{
		{Key: "birthDate", Value: 0},
		{Key: "personalEmail", Value: 0},
		{Key: "salary", Value: 0},
	}, last.Fields)

	req.Permissions = report.NewPermissions(report.PermViewPersonal, report.PermViewCompensation)
	e := env()
	e.VisibleCustomFields = []string{"shirt_size"}
	plan, err = Compile(req, e)
	require.NoError(t, err)
	ops := plan.Pipeline.Ops()
	assert.Equal(t, "$addFields", ops[len(ops)-1], "nothing hidden, custom attributes filtered")
}

func TestCompile_MultiValuedSortRejected(t *testing.T) {
	req := request()
	req.Sorts = []report.SortSpec{
		{Name: "Department", Direction: report.SortAsc, Type: report.TypeDepartment},
		{Name: "Pending Approvals", Direction: report.SortDesc, Type: report.TypeCount},
	}
	_, err := Compile(req, env())
	require.Error(t, err)
	assert.True(t, report.IsInvalidSort(err))

	req.Sorts = req.Sorts[:1]
	plan, err := Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "groups.name", Value: 1}}, plan.Sort)
}

func TestCompile_PageSizeClamped(t *testing.T) {
	req := request()
	req.Page, req.PageSize = 3, 10000
	plan, err := Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, int64(MaxPageSize), plan.Limit)
	assert.Equal(t, int64(2*MaxPageSize), plan.Skip)

	e := env()
	e.MaxPageSize = 100
	plan, err = Compile(req, e)
	require.NoError(t, err)
	assert.Equal(t, int64(100), plan.Limit)
}

func TestCompile_UnknownField(t *testing.T) {
	req := request(report.FilterGroup{clause("Shoe Size", report.TypeNumber, report.CmpEq, 9)})
	_, err := Compile(req, env())
	require.Error(t, err)
	assert.Equal(t, report.ErrCodeUnknownField, report.CodeOf(err))
}

func TestCompile_InvalidRequest(t *testing.T) {
	req := request()
	req.CompanyID = primitive.NilObjectID
	_, err := Compile(req, env())
	require.Error(t, err)
	assert.Equal(t, report.ErrCodeInvalidRequest, report.CodeOf(err))
}

func TestCompile_SummaryWaitsForBuckets(t *testing.T) {
	req := request()
	req.Permissions = report.NewPermissions(report.PermViewCompensation)
	req.SummarizeBy = []report.SummarizeSpec{{Name: "Salary", Type: report.TypeNumber, Selection: "5"}}

	plan, err := Compile(req, env())
	require.NoError(t, err)
	assert.False(t, plan.Ready())
	assert.Nil(t, plan.Pipeline)
	require.Len(t, plan.Pending, 1)
	assert.Equal(t, "salary", plan.Pending[0].Slot)

	e := env()
	e.Bins = map[string]compiler.Bins{"salary": compiler.ManualBins(0, 100, 5)}
	plan, err = Compile(req, e)
	require.NoError(t, err)
	require.True(t, plan.Ready())
	assert.Equal(t, []string{
		"$match", "$sort", "$group", "$replaceRoot",
		"$addFields", "$group", "$sort", "$skip", "$limit",
	}, plan.Pipeline.Ops(), "summary rows are not projected")
}

func TestCompile_SummaryFieldPermissions(t *testing.T) {
	req := request()
	req.SummarizeBy = []report.SummarizeSpec{{Name: "Department", Type: report.TypeDepartment}}
	req.Aggregations = []report.AggregationOperationSpec{{Name: "Salary", Type: report.TypeNumber, Operation: report.OpAverage}}

	_, err := Compile(req, env())
	require.Error(t, err)
	assert.True(t, report.IsForbiddenField(err), "averaging salary needs view_compensation")

	req.Permissions = report.NewPermissions(report.PermViewCompensation)
	plan, err := Compile(req, env())
	require.NoError(t, err)
	assert.True(t, plan.Ready())

	req = request()
	req.SummarizeBy = []report.SummarizeSpec{{Name: "Birth Date", Type: report.TypeDate, Selection: report.SelectionYear}}
	_, err = Compile(req, env())
	assert.True(t, report.IsForbiddenField(err), "grouping by birth date needs view_personal")

	req = request()
	req.SummarizeBy = []report.SummarizeSpec{{Name: "Shirt Size", Category: report.CategoryCustom, Type: report.TypeText}}
	e := env()
	e.VisibleCustomFields = []string{"Team"}
	_, err = Compile(req, e)
	assert.True(t, report.IsForbiddenField(err), "custom fields outside the allow-list cannot be grouped")

	req.SummarizeBy[0].Name = "Team"
	_, err = Compile(req, e)
	assert.NoError(t, err)
}

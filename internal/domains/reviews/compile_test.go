package reviews

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

func request(perms ...string) *report.ReportQueryRequest {
	return &report.ReportQueryRequest{
		Domain:      report.DomainReviews,
		CompanyID:   primitive.NewObjectID(),
		Permissions: report.NewPermissions(perms...),
	}
}

func answerFilter() report.FilterGroup {
	return report.FilterGroup{{
		Field: "q1", Category: report.CategoryQuestion, Type: report.TypeNumber,
		Comparator: report.CmpGte, Value: report.RawValue{V: 4},
	}}
}

func TestResolve_Question(t *testing.T) {
	f, ok := Resolve("65f0c0ffee", report.CategoryQuestion, report.TypeMultiSelect)
	require.True(t, ok)
	assert.Equal(t, "answers.65f0c0ffee", f.Path)
	assert.True(t, f.Array)

	_, ok = Resolve("nope", report.CategoryStandard, report.TypeText)
	assert.False(t, ok)
}

func TestCompile_AnswersHiddenWithoutPermission(t *testing.T) {
	req := request()
	req.Filters = []report.FilterGroup{answerFilter()}

	plan, err := Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, []string{"$match", "$sort", "$skip", "$limit", "$project"}, plan.Pipeline.Ops())
	assert.Equal(t, pipeline.Match{Filter: bson.D{{Key: "companyId", Value: req.CompanyID}}}, plan.Pipeline[0],
		"question filters are dropped")
	assert.Equal(t, pipeline.Project{Fields: bson.D{{Key: "answers", Value: 0}}}, plan.Pipeline[4])
}

func TestCompile_RedactedAnswers(t *testing.T) {
	req := request(report.PermViewReviewAnswers)
	req.Filters = []report.FilterGroup{answerFilter()}

	plan, err := Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, []string{"$match", "$sort", "$skip", "$limit", "$addFields"}, plan.Pipeline.Ops())

	match := plan.Pipeline[0].(pipeline.Match)
	assert.Equal(t, "$and", match.Filter[0].Key)
	assert.Contains(t, match.Filter[0].Value.(bson.A), bson.D{{Key: "answers.q1", Value: bson.D{{Key: "$gte", Value: 4.0}}}})

	added := plan.Pipeline[4].(pipeline.AddFields)
	assert.Equal(t, bson.D{compiler.RedactWhen("answers", "isRedacted")}, added.Fields)

	req.Permissions = report.NewPermissions(report.PermViewReviewAnswers, report.PermViewRedacted)
	plan, err = Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, []string{"$match", "$sort", "$skip", "$limit"}, plan.Pipeline.Ops())
}

func TestCompile_PageSizeDefaultMax(t *testing.T) {
	req := request()
	req.PageSize = 1000
	plan, err := Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, int64(MaxPageSize), plan.Limit)
	assert.Equal(t, "reviews", plan.Collection)
}

func TestCompile_SubjectSort(t *testing.T) {
	req := request()
	req.Sorts = []report.SortSpec{
		{Name: "Subject", Direction: report.SortAsc, Type: report.TypeSubject},
		{Name: "Due Date", Direction: report.SortDesc, Type: report.TypeDate},
	}
	plan, err := Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, bson.D{
		{Key: "subjects.name", Value: 1},
		{Key: "dueDate", Value: -1},
	}, plan.Sort, "one array key alongside a scalar key is allowed")
}

func TestCompile_SummaryAnswersNeedPermission(t *testing.T) {
	req := request()
	req.SummarizeBy = []report.SummarizeSpec{{Name: "Cycle", Type: report.TypeCycle}}
	req.Aggregations = []report.AggregationOperationSpec{{
		Name: "q1", Category: report.CategoryQuestion, Type: report.TypeText, Operation: report.OpConcatenate,
	}}

	_, err := Compile(req, env())
	require.Error(t, err)
	assert.True(t, report.IsForbiddenField(err))

	req.Permissions = report.NewPermissions(report.PermViewReviewAnswers)
	plan, err := Compile(req, env())
	require.NoError(t, err)
	require.Equal(t, []string{"$match", "$addFields"}, plan.Filter.Ops())
	assert.Equal(t, pipeline.AddFields{Fields: bson.D{compiler.RedactWhen("answers", "isRedacted")}}, plan.Filter[1],
		"redacted answers are removed before grouping")

	req.Permissions = report.NewPermissions(report.PermViewReviewAnswers, report.PermViewRedacted)
	plan, err = Compile(req, env())
	require.NoError(t, err)
	assert.Equal(t, []string{"$match"}, plan.Filter.Ops())
}

func TestCompile_SummarySortOnMultiValuedAnswer(t *testing.T) {
	req := request(report.PermViewReviewAnswers)
	req.SummarizeBy = []report.SummarizeSpec{
		{Name: "Subject", Type: report.TypeSubject},
		{Name: "q2", Category: report.CategoryQuestion, Type: report.TypeMultiSelect},
	}
	req.Sorts = []report.SortSpec{
		{Name: "Subject", Direction: report.SortAsc, Type: report.TypeSubject},
		{Name: "q2", Category: report.CategoryQuestion, Direction: report.SortDesc, Type: report.TypeMultiSelect},
	}
	_, err := Compile(req, env())
	require.Error(t, err)
	assert.True(t, report.IsInvalidSort(err))
}

package domains

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/compiler"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

func TestCompile_Dispatch(t *testing.T) {
	for _, d := range report.ValidDomains {
		t.Run(string(d), func(t *testing.T) {
			plan, err := Compile(&report.ReportQueryRequest{Domain: d, CompanyID: primitive.NewObjectID()}, compiler.Env{})
			require.NoError(t, err)
			assert.Equal(t, d, plan.Domain)
			assert.Equal(t, int64(compiler.DefaultPageSize), plan.Limit)
			assert.Positive(t, MaxPageSize(d))
		})
	}
}

func TestCompile_UnknownDomain(t *testing.T) {
	_, err := Compile(&report.ReportQueryRequest{Domain: "payroll"}, compiler.Env{})
	require.Error(t, err)
	assert.Equal(t, report.ErrCodeInvalidRequest, report.CodeOf(err))

	_, err = Fields("payroll")
	assert.Error(t, err)
}

func TestCompile_WrapsDomainErrors(t *testing.T) {
	req := &report.ReportQueryRequest{
		Domain:    report.DomainGoals,
		CompanyID: primitive.NewObjectID(),
		Sorts:     []report.SortSpec{{Name: "Nope", Direction: report.SortAsc, Type: report.TypeText}},
	}
	_, err := Compile(req, compiler.Env{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile goals report")
	assert.Equal(t, report.ErrCodeUnknownField, report.CodeOf(err))
}

func TestFields(t *testing.T) {
	table, err := Fields(report.DomainEmployees)
	require.NoError(t, err)
	f, ok := table.Lookup("Start Date")
	require.True(t, ok)
	assert.Equal(t, "startDate", f.Path)
}

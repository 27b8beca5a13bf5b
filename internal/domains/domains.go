// Package domains maps a report domain to its compiler and field table.
package domains

import (
	"fmt"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/compiler"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/domains/employees"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/domains/goals"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/domains/reviews"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// CompileFunc compiles one request for a fixed domain.
type CompileFunc func(req *report.ReportQueryRequest, env compiler.Env) (*compiler.Plan, error)

type entry struct {
	compile CompileFunc
	fields  compiler.Table
	resolve compiler.Resolver
	maxPage int
}

var registry = map[report.Domain]entry{
	report.DomainEmployees: {employees.Compile, employees.Fields, employees.Resolve, employees.MaxPageSize},
	report.DomainReviews:   {reviews.Compile, reviews.Fields, reviews.Resolve, reviews.MaxPageSize},
	report.DomainGoals:     {goals.Compile, goals.Fields, goals.Resolve, goals.MaxPageSize},
}

func lookup(d report.Domain) (entry, error) {
	e, ok := registry[d]
	if !ok {
		return entry{}, report.NewError(report.ErrCodeInvalidRequest, "domain", "unknown domain %q", d)
	}
	return e, nil
}

// Compile dispatches req to its domain compiler.
func Compile(req *report.ReportQueryRequest, env compiler.Env) (*compiler.Plan, error) {
	e, err := lookup(req.Domain)
	if err != nil {
		return nil, err
	}
	plan, err := e.compile(req, env)
	if err != nil {
		return nil, fmt.Errorf("compile %s report: %w", req.Domain, err)
	}
	return plan, nil
}

// Fields returns the standard field table of a domain.
func Fields(d report.Domain) (compiler.Table, error) {
	e, err := lookup(d)
	if err != nil {
		return nil, err
	}
	return e.fields, nil
}

// Resolver returns the field resolver of a domain.
func Resolver(d report.Domain) (compiler.Resolver, error) {
	e, err := lookup(d)
	if err != nil {
		return nil, err
	}
	return e.resolve, nil
}

// MaxPageSize is the built-in page size bound of a domain.
func MaxPageSize(d report.Domain) int {
	return registry[d].maxPage
}

package compiler

import (
	"strings"
	"time"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/pipeline"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// Prepared is the domain-independent front half of compilation.
type Prepared struct {
	Groups     []report.FilterGroup
	Gate       Gate
	Translator *Translator
}

// Prepare validates req, normalizes its filters and builds the custom-field
// gate and translator. asOf anchors relative dates.
func Prepare(req *report.ReportQueryRequest, env Env, asOf time.Time) (Prepared, error) {
	if errs := ValidateRequest(req); len(errs) > 0 {
		return Prepared{}, RequestError(errs)
	}
	groups, err := Normalize(req.Filters, report.MalformedFilter)
	if err != nil {
		return Prepared{}, err
	}
	return Prepared{
		Groups:     groups,
		Gate:       CustomFieldGate(env.VisibleCustomFields),
		Translator: env.Translator(asOf),
	}, nil
}

// RequestError folds validation errors into one client-facing error.
func RequestError(errs []ValidationError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return &report.Error{
		Code:    report.ErrCodeInvalidRequest,
		Field:   errs[0].Field,
		Message: strings.Join(msgs, "; "),
		Err:     errs[0],
	}
}

// Assemble appends the shared tail to plan.Filter: summary stages, sort,
// pagination and, in detail view, projection. Sort validity is checked even
// while bucket probes are pending; the pipeline itself is only built once
// every probe is resolved.
func Assemble(plan *Plan, req *report.ReportQueryRequest, env Env, resolve Resolver, projection pipeline.Pipeline) error {
	plan.View = req.View()

	var summary *Summary
	if plan.View == report.ViewSummary {
		access := Access{Permissions: req.Permissions, Gate: CustomFieldGate(env.VisibleCustomFields)}
		s, err := Summarize(req.SummarizeBy, req.Aggregations, resolve, env.Bins, access)
		if err != nil {
			return err
		}
		plan.Probes, plan.Pending = s.Probes, s.Pending
		summary = &s
	}

	sortDoc, keys, err := TranslateSort(req.Sorts, DomainSortResolver(resolve, summary), plan.View)
	if err != nil {
		return err
	}
	if err := ValidateSort(keys, env.ArrayCustomFields); err != nil {
		return err
	}
	plan.Sort = sortDoc
	plan.Skip, plan.Limit = Paginate(req.Page, req.PageSize, env.MaxPageSize, env.DefaultPageSize)

	if len(plan.Pending) > 0 {
		plan.Pipeline = nil
		return nil
	}

	p := make(pipeline.Pipeline, 0, len(plan.Filter)+8)
	p = append(p, plan.Filter...)
	if summary != nil {
		p = append(p, summary.Stages()...)
	}
	p = append(p,
		pipeline.Sort{Keys: sortDoc},
		pipeline.Skip{N: plan.Skip},
		pipeline.Limit{N: plan.Limit},
	)
	if plan.View == report.ViewDetail {
		p = p.Append(projection...)
	}
	plan.Pipeline = p
	return nil
}

// AsOf returns the request's as-of instant, or now.
func AsOf(req *report.ReportQueryRequest, env Env) time.Time {
	if !req.AsOf.IsZero() {
		return req.AsOf.UTC()
	}
	return env.Clock()().UTC()
}

// References reports whether any filter, sort, summary or aggregation of
// req names the field key.
func References(req *report.ReportQueryRequest, key string) bool {
	for _, g := range req.Filters {
		for _, f := range g {
			if f.Key() == key {
				return true
			}
		}
	}
	for _, s := range req.Sorts {
		if report.FieldKey(s.Name) == key {
			return true
		}
	}
	for _, s := range req.SummarizeBy {
		if report.FieldKey(s.Name) == key {
			return true
		}
	}
	for _, a := range req.Aggregations {
		if report.FieldKey(a.Name) == key {
			return true
		}
	}
	return false
}

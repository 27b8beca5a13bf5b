package employees

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/compiler"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/pipeline"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/snapshot"
)

// Compile builds the employee report pipeline:
//
//	snapshot as of D (+ activation status) → direct reports → filters →
//	summary → sort → skip/limit → projection
//
// Activation-status groups are evaluated on the resolved snapshot, so an
// employee deactivated before D and re-activated after D still counts as
// Deactivated.
func Compile(req *report.ReportQueryRequest, env compiler.Env) (*compiler.Plan, error) {
	if env.MaxPageSize == 0 {
		env.MaxPageSize = MaxPageSize
	}
	asOf := compiler.AsOf(req, env)
	prep, err := compiler.Prepare(req, env, asOf)
	if err != nil {
		return nil, err
	}

	statusGroups, rest := compiler.SplitGroups(prep.Groups, func(f report.FieldFilter) bool {
		return f.Category == report.CategoryStandard && f.Key() == statusKey
	})
	status, err := compiler.BuildMatch(statusGroups, Resolve, prep.Gate, prep.Translator)
	if err != nil {
		return nil, err
	}
	match, err := compiler.BuildMatch(rest, Resolve, prep.Gate, prep.Translator)
	if err != nil {
		return nil, err
	}

	filter := snapshot.Stages(req.CompanyID, asOf, status)
	if compiler.References(req, "has_direct_reports") {
		filter = append(filter, snapshot.DirectReportsStages(req.CompanyID, asOf)...)
	}
	if match != nil {
		filter = filter.Append(pipeline.Match{Filter: match})
	}

	plan := &compiler.Plan{
		RequestID:  req.RequestID,
		Domain:     report.DomainEmployees,
		Collection: snapshot.Collection,
		Filter:     filter,
	}
	if err := compiler.Assemble(plan, req, env, Resolve, projection(req.Permissions, env.VisibleCustomFields)); err != nil {
		return nil, err
	}
	return plan, nil
}

func projection(perms report.Permissions, visible []string) pipeline.Pipeline {
	var p pipeline.Pipeline
	if len(visible) > 0 {
		p = append(p, pipeline.AddFields{Fields: bson.D{compiler.VisibleCustomAttributes(visible)}})
	}
	if hidden := compiler.HiddenFields(Fields, perms); hidden != nil {
		p = append(p, pipeline.Project{Fields: hidden})
	}
	return p
}

package goals

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/compiler"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/pipeline"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// Compile builds the goal report pipeline:
//
//	base match → derive currentProgress → calculated match → summary →
//	sort → skip/limit → projection
func Compile(req *report.ReportQueryRequest, env compiler.Env) (*compiler.Plan, error) {
	if env.MaxPageSize == 0 {
		env.MaxPageSize = MaxPageSize
	}
	prep, err := compiler.Prepare(req, env, env.Clock()().UTC())
	if err != nil {
		return nil, err
	}

	calculated, base := compiler.SplitGroups(prep.Groups, isCalculated)
	baseMatch, err := compiler.BuildMatch(base, Resolve, prep.Gate, prep.Translator)
	if err != nil {
		return nil, err
	}
	calcMatch, err := compiler.BuildMatch(calculated, Resolve, prep.Gate, prep.Translator)
	if err != nil {
		return nil, err
	}

	derived := bson.D{{Key: ProgressField, Value: Progress()}}
	// Summaries group before the projection, so private text is blanked here.
	if req.IsSummary() && !req.Permissions.Has(report.PermViewPrivateGoals) {
		derived = append(derived, redactions()...)
	}
	filter := pipeline.Pipeline{
		pipeline.Match{Filter: compiler.And(bson.D{{Key: "companyId", Value: req.CompanyID}}, baseMatch)},
		pipeline.AddFields{Fields: derived},
	}
	if calcMatch != nil {
		filter = filter.Append(pipeline.Match{Filter: calcMatch})
	}

	plan := &compiler.Plan{
		RequestID:  req.RequestID,
		Domain:     report.DomainGoals,
		Collection: Collection,
		Filter:     filter,
	}
	if err := compiler.Assemble(plan, req, env, Resolve, projection(req.Permissions, env.VisibleCustomFields)); err != nil {
		return nil, err
	}
	return plan, nil
}

// Progress is value as a percentage of target, null when there is no
// target.
func Progress() bson.D {
	return bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$target", 0}}}, 0}}},
		nil,
		bson.D{{Key: "$multiply", Value: bson.A{
			bson.D{{Key: "$divide", Value: bson.A{"$value", "$target"}}},
			100,
		}}},
	}}}
}

func isCalculated(f report.FieldFilter) bool {
	if f.Category != report.CategoryStandard && f.Category != "" {
		return false
	}
	field, ok := Fields.Lookup(f.Field)
	return ok && field.Calculated
}

func projection(perms report.Permissions, visible []string) pipeline.Pipeline {
	added := bson.D{}
	if len(visible) > 0 {
		added = append(added, compiler.VisibleCustomAttributes(visible))
	}
	if !perms.Has(report.PermViewPrivateGoals) {
		added = append(added, redactions()...)
	}

	var p pipeline.Pipeline
	if len(added) > 0 {
		p = append(p, pipeline.AddFields{Fields: added})
	}
	if hidden := compiler.HiddenFields(Fields, perms); hidden != nil {
		p = append(p, pipeline.Project{Fields: hidden})
	}
	return p
}

func redactions() bson.D {
	out := make(bson.D, 0, len(redacted))
	for _, path := range redacted {
		out = append(out, compiler.RedactWhen(path, privateFlag))
	}
	return out
}

package reviews

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/compiler"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/pipeline"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// Compile builds the review report pipeline. Question filters are only
// honored when the caller can view answers.
func Compile(req *report.ReportQueryRequest, env compiler.Env) (*compiler.Plan, error) {
	if env.MaxPageSize == 0 {
		env.MaxPageSize = MaxPageSize
	}
	prep, err := compiler.Prepare(req, env, env.Clock()().UTC())
	if err != nil {
		return nil, err
	}

	gate := prep.Gate
	if !req.Permissions.Has(report.PermViewReviewAnswers) {
		gate = func(f report.FieldFilter) bool {
			return f.Category != report.CategoryQuestion && prep.Gate(f)
		}
	}
	match, err := compiler.BuildMatch(prep.Groups, Resolve, gate, prep.Translator)
	if err != nil {
		return nil, err
	}

	filter := pipeline.Pipeline{pipeline.Match{Filter: compiler.And(
		bson.D{{Key: "companyId", Value: req.CompanyID}},
		match,
	)}}
	// Summaries group before the projection runs, so redacted answers are
	// blanked ahead of $group.
	if req.IsSummary() && redactsAnswers(req.Permissions) {
		filter = filter.Append(pipeline.AddFields{Fields: bson.D{compiler.RedactWhen(answersPath, redactedFlag)}})
	}

	plan := &compiler.Plan{
		RequestID:  req.RequestID,
		Domain:     report.DomainReviews,
		Collection: Collection,
		Filter:     filter,
	}
	if err := compiler.Assemble(plan, req, env, Resolve, projection(req.Permissions, env.VisibleCustomFields)); err != nil {
		return nil, err
	}
	return plan, nil
}

// projection hides answers without view_answers and blanks redacted
// answers without view_redacted.
func projection(perms report.Permissions, visible []string) pipeline.Pipeline {
	var p pipeline.Pipeline
	added := bson.D{}
	if len(visible) > 0 {
		added = append(added, compiler.VisibleCustomAttributes(visible))
	}
	if redactsAnswers(perms) {
		added = append(added, compiler.RedactWhen(answersPath, redactedFlag))
	}
	if len(added) > 0 {
		p = append(p, pipeline.AddFields{Fields: added})
	}

	hidden := compiler.HiddenFields(Fields, perms)
	if !perms.Has(report.PermViewReviewAnswers) {
		hidden = append(hidden, bson.E{Key: answersPath, Value: 0})
	}
	if len(hidden) > 0 {
		p = append(p, pipeline.Project{Fields: hidden})
	}
	return p
}

func redactsAnswers(perms report.Permissions) bool {
	return perms.Has(report.PermViewReviewAnswers) && !perms.Has(report.PermViewRedacted)
}

package compiler

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/calendar"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/pipeline"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// DefaultPageSize applies when neither the request nor Env sets one.
const DefaultPageSize = 50

// Env carries everything a domain compiler needs besides the request.
// All of it is resolved before compilation starts.
type Env struct {
	Now      func() time.Time
	Calendar calendar.Shifter
	// Timezone is the default zone of relative dates. Empty means UTC.
	Timezone string

	// VisibleCustomFields is the permission-derived allow-list.
	VisibleCustomFields []string
	// ArrayCustomFields names custom fields stored as arrays.
	ArrayCustomFields map[string]bool
	// Bins holds resolved bucketing keyed by summary slot.
	Bins map[string]Bins

	MaxPageSize     int
	DefaultPageSize int
}

// Clock returns Env.Now or time.Now.
func (e Env) Clock() func() time.Time {
	if e.Now != nil {
		return e.Now
	}
	return time.Now
}

// Translator builds the comparator translator for a request.
func (e Env) Translator(asOf time.Time) *Translator {
	return &Translator{Now: e.Clock(), AsOf: asOf, Calendar: e.Calendar, Timezone: e.Timezone}
}

// Plan is a compiled request.
type Plan struct {
	RequestID  string
	Domain     report.Domain
	Collection string
	View       report.View

	// Filter is the population prefix shared by bucket probes and Pipeline.
	Filter pipeline.Pipeline
	// Pipeline is the full pipeline. Nil while Pending is non-empty.
	Pipeline pipeline.Pipeline

	Probes  []BucketProbe
	Pending []BucketProbe

	Sort  bson.D
	Skip  int64
	Limit int64
}

// Ready reports whether every bucket probe has been resolved.
func (p *Plan) Ready() bool {
	return len(p.Pending) == 0 && p.Pipeline != nil
}

// ProbePipeline returns the pipeline that answers probe.
func (p *Plan) ProbePipeline(probe BucketProbe) pipeline.Pipeline {
	out := make(pipeline.Pipeline, 0, len(p.Filter)+2)
	out = append(out, p.Filter...)
	return append(out, probe.Stages()...)
}

// CountPipeline is the count-only variant of the plan.
func (p *Plan) CountPipeline() pipeline.Pipeline {
	return pipeline.CountOnly(p.Pipeline)
}

// Paginate turns a 1-based page and a requested size into skip and limit.
// The size is clamped to max when max is positive.
func Paginate(page, pageSize, max, def int) (skip, limit int64) {
	if page < 1 {
		page = 1
	}
	if def <= 0 {
		def = DefaultPageSize
	}
	if pageSize <= 0 {
		pageSize = def
	}
	if max > 0 && pageSize > max {
		pageSize = max
	}
	return int64(page-1) * int64(pageSize), int64(pageSize)
}

// HiddenFields lists table paths whose permission perms lacks, as a
// $project exclusion body. Nil when nothing is hidden.
func HiddenFields(t Table, perms report.Permissions) bson.D {
	var hidden []string
	for _, f := range t {
		if f.Permission != "" && !perms.Has(f.Permission) {
			hidden = append(hidden, f.Path)
		}
	}
	if len(hidden) == 0 {
		return nil
	}
	sort.Strings(hidden)
	out := make(bson.D, 0, len(hidden))
	for _, p := range hidden {
		out = append(out, bson.E{Key: p, Value: 0})
	}
	return out
}

// VisibleCustomAttributes rewrites the custom attribute map down to the
// allow-list.
func VisibleCustomAttributes(allowed []string) bson.E {
	names := make(bson.A, 0, len(allowed))
	for _, n := range allowed {
		names = append(names, n)
	}
	return bson.E{Key: "customAttributes", Value: bson.D{{Key: "$arrayToObject", Value: bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: bson.D{{Key: "$objectToArray", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$customAttributes", bson.D{}}}}}}},
		{Key: "cond", Value: bson.D{{Key: "$in", Value: bson.A{"$$this.k", names}}}},
	}}}}}}
}

// RedactWhen removes the field at path on rows where flag is true.
func RedactWhen(path, flag string) bson.E {
	return bson.E{Key: path, Value: bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{"$" + flag, true}}},
		"$$REMOVE",
		"$" + path,
	}}}}
}

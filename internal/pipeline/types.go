package pipeline

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Stage is one pipeline step. Sealed: only this package implements it.
type Stage interface {
	stageNode()
	// Op returns the stage operator, e.g. "$match".
	Op() string
}

// Match filters documents.
type Match struct {
	Filter bson.D
}

func (Match) stageNode() {}
func (Match) Op() string { return "$match" }

// AddFields derives new fields from existing ones.
type AddFields struct {
	Fields bson.D
}

func (AddFields) stageNode() {}
func (AddFields) Op() string { return "$addFields" }

// Project reshapes documents.
type Project struct {
	Fields bson.D
}

func (Project) stageNode() {}
func (Project) Op() string { return "$project" }

// Group collapses documents sharing ID into one, computing Accumulators.
// ID is any expression: a field path string, a bson.D of slots, or nil.
type Group struct {
	ID           any
	Accumulators bson.D
}

func (Group) stageNode() {}
func (Group) Op() string { return "$group" }

// Sort orders documents. Keys iterate in significance order.
type Sort struct {
	Keys bson.D
}

func (Sort) stageNode() {}
func (Sort) Op() string { return "$sort" }

// Skip drops the first N documents.
type Skip struct {
	N int64
}

func (Skip) stageNode() {}
func (Skip) Op() string { return "$skip" }

// Limit keeps at most N documents.
type Limit struct {
	N int64
}

func (Limit) stageNode() {}
func (Limit) Op() string { return "$limit" }

// Count replaces the stream with a single {Field: n} document.
type Count struct {
	Field string
}

func (Count) stageNode() {}
func (Count) Op() string { return "$count" }

// Lookup joins documents from another collection through a sub-pipeline.
type Lookup struct {
	From     string
	Let      bson.D
	Pipeline Pipeline
	As       string
}

func (Lookup) stageNode() {}
func (Lookup) Op() string { return "$lookup" }

// ReplaceRoot promotes an embedded document to the top level.
type ReplaceRoot struct {
	NewRoot any
}

func (ReplaceRoot) stageNode() {}
func (ReplaceRoot) Op() string { return "$replaceRoot" }

// BucketAuto distributes documents into Buckets evenly filled ranges.
type BucketAuto struct {
	GroupBy any
	Buckets int
	Output  bson.D
}

func (BucketAuto) stageNode() {}
func (BucketAuto) Op() string { return "$bucketAuto" }

// Unwind emits one document per element of the array at Path.
type Unwind struct {
	Path                       string
	PreserveNullAndEmptyArrays bool
}

func (Unwind) stageNode() {}
func (Unwind) Op() string { return "$unwind" }

// Pipeline is an ordered list of stages.
type Pipeline []Stage

// Ops returns the stage operators in order.
func (p Pipeline) Ops() []string {
	ops := make([]string, 0, len(p))
	for _, s := range p {
		ops = append(ops, s.Op())
	}
	return ops
}

// Append returns p with stages appended, skipping nil stages and empty
// $match stages.
func (p Pipeline) Append(stages ...Stage) Pipeline {
	for _, s := range stages {
		if s == nil {
			continue
		}
		if m, ok := s.(Match); ok && len(m.Filter) == 0 {
			continue
		}
		p = append(p, s)
	}
	return p
}

// Index returns the position of the first stage with operator op, or -1.
func (p Pipeline) Index(op string) int {
	for i, s := range p {
		if s.Op() == op {
			return i
		}
	}
	return -1
}

// SortKeys returns the keys of the last $sort stage, or nil.
func (p Pipeline) SortKeys() bson.D {
	for i := len(p) - 1; i >= 0; i-- {
		if s, ok := p[i].(Sort); ok {
			return s.Keys
		}
	}
	return nil
}

// CountOnly derives the count variant of p: pagination is stripped, stages
// that cannot change the row count are trimmed from the tail, and a
// terminal {$count: "count"} is appended. p itself is not modified.
func CountOnly(p Pipeline) Pipeline {
	out := make(Pipeline, 0, len(p)+1)
	for _, s := range p {
		switch s.(type) {
		case Skip, Limit:
			continue
		}
		out = append(out, s)
	}
trim:
	for len(out) > 0 {
		switch out[len(out)-1].(type) {
		case Sort, Project, AddFields:
			out = out[:len(out)-1]
		default:
			break trim
		}
	}
	return append(out, Count{Field: CountField})
}

// CountField is the field name the count-only variant reports under.
const CountField = "count"

// Package snapshot resolves versioned employee history to the state each
// employee was in as of a reference instant.
//
// History records carry an effective date and an update time. The snapshot
// of an employee at D is the record with the greatest effective date not
// after D, ties broken by the latest update.
package snapshot

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/pipeline"
)

// Collection holds employee history records.
const Collection = "employeeHistory"

// Document fields the resolver depends on.
const (
	FieldCompany       = "companyId"
	FieldEmployee      = "employeeId"
	FieldEffectiveDate = "effectiveDate"
	FieldUpdatedAt     = "updatedAt"
	FieldStatus        = "activationStatus"
	FieldManager       = "managerId"
	FieldDirectReports = "hasDirectReports"
)

// Activation statuses.
const (
	StatusActive      = "Active"
	StatusDeactivated = "Deactivated"
)

// Stages returns the stages that reduce the history collection to one
// snapshot per employee as of asOf. A non-empty status filter is applied to
// the resolved snapshot, never to the raw history.
func Stages(companyID primitive.ObjectID, asOf time.Time, status bson.D) pipeline.Pipeline {
	p := pipeline.Pipeline{
		pipeline.Match{Filter: bson.D{
			{Key: FieldCompany, Value: companyID},
			{Key: FieldEffectiveDate, Value: bson.D{{Key: "$lte", Value: asOf}}},
		}},
	}
	p = append(p, latestPerEmployee()...)
	return p.Append(pipeline.Match{Filter: status})
}

func latestPerEmployee() pipeline.Pipeline {
	return pipeline.Pipeline{
		pipeline.Sort{Keys: bson.D{
			{Key: FieldEmployee, Value: 1},
			{Key: FieldEffectiveDate, Value: -1},
			{Key: FieldUpdatedAt, Value: -1},
		}},
		pipeline.Group{
			ID:           "$" + FieldEmployee,
			Accumulators: bson.D{{Key: "doc", Value: bson.D{{Key: "$first", Value: "$$ROOT"}}}},
		},
		pipeline.ReplaceRoot{NewRoot: "$doc"},
	}
}

// DirectReportsStages derives hasDirectReports on each snapshot: true when
// another employee's as-of snapshot names it as manager and is Active.
func DirectReportsStages(companyID primitive.ObjectID, asOf time.Time) pipeline.Pipeline {
	sub := pipeline.Pipeline{
		pipeline.Match{Filter: bson.D{
			{Key: FieldCompany, Value: companyID},
			{Key: FieldEffectiveDate, Value: bson.D{{Key: "$lte", Value: asOf}}},
		}},
	}
	sub = append(sub, latestPerEmployee()...)
	sub = append(sub,
		pipeline.Match{Filter: bson.D{{Key: "$expr", Value: bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{"$" + FieldManager, "$$eid"}}},
			bson.D{{Key: "$ne", Value: bson.A{"$" + FieldEmployee, "$$eid"}}},
			bson.D{{Key: "$eq", Value: bson.A{"$" + FieldStatus, StatusActive}}},
		}}}}}},
		pipeline.Limit{N: 1},
		pipeline.Project{Fields: bson.D{{Key: "_id", Value: 1}}},
	)

	return pipeline.Pipeline{
		pipeline.Lookup{
			From:     Collection,
			Let:      bson.D{{Key: "eid", Value: "$" + FieldEmployee}},
			Pipeline: sub,
			As:       "_directReports",
		},
		pipeline.AddFields{Fields: bson.D{{Key: FieldDirectReports, Value: bson.D{
			{Key: "$gt", Value: bson.A{bson.D{{Key: "$size", Value: "$_directReports"}}, 0}},
		}}}},
		pipeline.Project{Fields: bson.D{{Key: "_directReports", Value: 0}}},
	}
}

// Record is one history entry, used by the in-memory resolver.
type Record struct {
	EmployeeID    string
	EffectiveDate time.Time
	UpdatedAt     time.Time
	Status        string
	ManagerID     string
	Fields        map[string]any
}

// Resolve is the in-memory equivalent of Stages. keep, when non-nil,
// filters resolved snapshots. Results are ordered by employee id.
func Resolve(history []Record, asOf time.Time, keep func(Record) bool) []Record {
	latest := make(map[string]Record)
	for _, r := range history {
		if r.EffectiveDate.After(asOf) {
			continue
		}
		cur, ok := latest[r.EmployeeID]
		if !ok || newer(r, cur) {
			latest[r.EmployeeID] = r
		}
	}

	out := make([]Record, 0, len(latest))
	for _, r := range latest {
		if keep == nil || keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}

func newer(a, b Record) bool {
	if !a.EffectiveDate.Equal(b.EffectiveDate) {
		return a.EffectiveDate.After(b.EffectiveDate)
	}
	return a.UpdatedAt.After(b.UpdatedAt)
}

// WithStatus keeps snapshots whose activation status is status.
func WithStatus(status string) func(Record) bool {
	return func(r Record) bool { return r.Status == status }
}

// HasDirectReports reports whether any other employee's snapshot as of
// asOf names id as manager and is Active.
func HasDirectReports(history []Record, asOf time.Time, id string) bool {
	for _, r := range Resolve(history, asOf, WithStatus(StatusActive)) {
		if r.EmployeeID != id && r.ManagerID == id {
			return true
		}
	}
	return false
}

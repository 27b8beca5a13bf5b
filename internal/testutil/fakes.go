package testutil

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// Call records one Aggregate invocation.
type Call struct {
	Collection string
	Pipeline   mongo.Pipeline
}

// Ops lists the stage operators of the recorded pipeline.
func (c Call) Ops() []string {
	ops := make([]string, 0, len(c.Pipeline))
	for _, stage := range c.Pipeline {
		if len(stage) > 0 {
			ops = append(ops, stage[0].Key)
		}
	}
	return ops
}

// FakeExecutor answers aggregations from memory.
//
// Respond, when set, decides every answer; otherwise Rows and Err are
// returned as-is.
type FakeExecutor struct {
	Rows    []bson.M
	Err     error
	Respond func(collection string, p mongo.Pipeline) ([]bson.M, error)

	mu     sync.Mutex
	calls  []Call
	closed bool
}

// Aggregate records the call and returns the canned answer.
func (f *FakeExecutor) Aggregate(ctx context.Context, collection string, p mongo.Pipeline) ([]bson.M, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Collection: collection, Pipeline: p})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Respond != nil {
		return f.Respond(collection, p)
	}
	return f.Rows, f.Err
}

// Close marks the executor closed.
func (f *FakeExecutor) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeExecutor) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Calls returns the recorded calls in arrival order.
func (f *FakeExecutor) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// FakeMetadata serves custom-field metadata from maps.
type FakeMetadata struct {
	// Visible lists allowed custom fields per visibility level.
	Visible map[report.Visibility][]string
	// Kinds maps custom field name to its declared type.
	Kinds map[string]report.FieldType
	Err   error
}

// VisibleCustomFields returns Visible[visibility].
func (f *FakeMetadata) VisibleCustomFields(_ context.Context, _ primitive.ObjectID, visibility report.Visibility) ([]string, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Visible[visibility], nil
}

// CustomFieldsByKind keeps the names whose kind is one of kinds.
func (f *FakeMetadata) CustomFieldsByKind(_ context.Context, _ primitive.ObjectID, kinds []report.FieldType, names []string) ([]string, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	var out []string
	for _, name := range names {
		kind, ok := f.Kinds[name]
		if !ok {
			continue
		}
		for _, k := range kinds {
			if k == kind {
				out = append(out, name)
				break
			}
		}
	}
	return out, nil
}

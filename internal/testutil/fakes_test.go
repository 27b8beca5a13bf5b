package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

func TestFixedClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)
	assert.Equal(t, start, c.Now())
	c.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), c.Now())
	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestFixedIDGenerator(t *testing.T) {
	assert.Equal(t, "test-request", NewFixedIDGenerator("").Generate())
	assert.Equal(t, "r-1", NewFixedIDGenerator("r-1").Generate())
}

func TestFakeExecutor(t *testing.T) {
	f := &FakeExecutor{Rows: []bson.M{{"count": 3}}}
	p := mongo.Pipeline{{{Key: "$match", Value: bson.D{}}}, {{Key: "$count", Value: "count"}}}

	rows, err := f.Aggregate(context.Background(), "goals", p)
	require.NoError(t, err)
	assert.Equal(t, f.Rows, rows)

	calls := f.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "goals", calls[0].Collection)
	assert.Equal(t, []string{"$match", "$count"}, calls[0].Ops())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Aggregate(ctx, "goals", p)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFakeMetadata(t *testing.T) {
	m := &FakeMetadata{
		Visible: map[report.Visibility][]string{report.VisibilityPublic: {"shirt_size"}},
		Kinds:   map[string]report.FieldType{"tags": report.TypeMultiSelect, "shirt_size": report.TypeText},
	}
	company := primitive.NewObjectID()

	visible, err := m.VisibleCustomFields(context.Background(), company, report.VisibilityPublic)
	require.NoError(t, err)
	assert.Equal(t, []string{"shirt_size"}, visible)

	arrays, err := m.CustomFieldsByKind(context.Background(), company,
		[]report.FieldType{report.TypeMultiSelect, report.TypePeople}, []string{"tags", "shirt_size", "unknown"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tags"}, arrays)

	m.Err = errors.New("down")
	_, err = m.VisibleCustomFields(context.Background(), company, report.VisibilityPublic)
	assert.Error(t, err)
}

package querymongo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/pipeline"
)

func TestCompileStage(t *testing.T) {
	tests := []struct {
		name  string
		stage pipeline.Stage
		want  bson.D
	}{
		{
			name:  "match",
			stage: pipeline.Match{Filter: bson.D{{Key: "a", Value: 1}}},
			want:  bson.D{{Key: "$match", Value: bson.D{{Key: "a", Value: 1}}}},
		},
		{
			name: "group puts _id first",
			stage: pipeline.Group{
				ID:           "$dept",
				Accumulators: bson.D{{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}}},
			},
			want: bson.D{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$dept"},
				{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
			}}},
		},
		{
			name:  "skip",
			stage: pipeline.Skip{N: 30},
			want:  bson.D{{Key: "$skip", Value: int64(30)}},
		},
		{
			name:  "count",
			stage: pipeline.Count{Field: "count"},
			want:  bson.D{{Key: "$count", Value: "count"}},
		},
		{
			name:  "replaceRoot",
			stage: pipeline.ReplaceRoot{NewRoot: "$doc"},
			want:  bson.D{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$doc"}}}},
		},
		{
			name:  "unwind",
			stage: pipeline.Unwind{Path: "tags", PreserveNullAndEmptyArrays: true},
			want: bson.D{{Key: "$unwind", Value: bson.D{
				{Key: "path", Value: "$tags"},
				{Key: "preserveNullAndEmptyArrays", Value: true},
			}}},
		},
		{
			name:  "bucketAuto without output",
			stage: pipeline.BucketAuto{GroupBy: "$salary", Buckets: 10},
			want: bson.D{{Key: "$bucketAuto", Value: bson.D{
				{Key: "groupBy", Value: "$salary"},
				{Key: "buckets", Value: 10},
			}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompileStage(tt.stage)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileStage_Nil(t *testing.T) {
	_, err := CompileStage(nil)
	assert.Error(t, err)
}

func TestCompile_Lookup(t *testing.T) {
	p := pipeline.Pipeline{
		pipeline.Lookup{
			From: "employeeHistory",
			Let:  bson.D{{Key: "eid", Value: "$employeeId"}},
			Pipeline: pipeline.Pipeline{
				pipeline.Limit{N: 1},
			},
			As: "reports",
		},
	}

	got, err := Compile(p)
	require.NoError(t, err)
	require.Len(t, got, 1)

	body, ok := got[0][0].Value.(bson.D)
	require.True(t, ok)
	keys := make([]string, 0, len(body))
	for _, e := range body {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"from", "let", "pipeline", "as"}, keys)
}

func TestCompile_NestedNilFails(t *testing.T) {
	p := pipeline.Pipeline{pipeline.Lookup{From: "x", As: "y", Pipeline: pipeline.Pipeline{nil}}}
	_, err := Compile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage 0")
}

func TestMarshalExtJSON(t *testing.T) {
	p := pipeline.Pipeline{
		pipeline.Match{Filter: bson.D{{Key: "status", Value: "Active"}}},
		pipeline.Limit{N: 5},
	}

	data, err := MarshalExtJSON(p, false)
	require.NoError(t, err)

	var stages []map[string]any
	require.NoError(t, json.Unmarshal(data, &stages))
	require.Len(t, stages, 2)
	assert.Equal(t, map[string]any{"status": "Active"}, stages[0]["$match"])
	assert.EqualValues(t, 5, stages[1]["$limit"])

	pretty, err := MarshalExtJSON(p, true)
	require.NoError(t, err)
	assert.Contains(t, string(pretty), "\n  ")
}

func TestMarshalExtJSON_Empty(t *testing.T) {
	data, err := MarshalExtJSON(nil, false)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

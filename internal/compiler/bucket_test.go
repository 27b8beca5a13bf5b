package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		min, max float64
		k        int
		want     []float64
	}{
		{"ceil max", 0, 97, 5, []float64{0, 20, 40, 60, 80, 100}},
		{"floor min", 3, 97, 5, []float64{0, 20, 40, 60, 80, 100}},
		{"both adjusted", 12, 47, 5, []float64{10, 18, 26, 34, 42, 50}},
		{"divisible max gets one more width", 0, 100, 5, []float64{0, 24, 48, 72, 96, 120}},
		{"single bin", 0, 7, 1, []float64{0, 14}},
		{"negative min", -7, 9, 4, []float64{-8, -3, 2, 7, 12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Boundaries(tt.min, tt.max, tt.k))
		})
	}
}

func TestBoundaries_EqualWidthAndSpan(t *testing.T) {
	cases := []struct {
		min, max float64
		k        int
	}{
		{0, 97, 5}, {-7, 9, 4}, {13, 1000, 7}, {0.5, 3.2, 2},
	}
	for _, c := range cases {
		edges := Boundaries(c.min, c.max, c.k)
		require.Len(t, edges, c.k+1)
		assert.LessOrEqual(t, edges[0], c.min)
		assert.Greater(t, edges[c.k], c.max)
		width := edges[1] - edges[0]
		for i := 1; i < len(edges); i++ {
			assert.InDelta(t, width, edges[i]-edges[i-1], 1e-9)
		}
	}
}

func TestBoundaries_InvalidCount(t *testing.T) {
	assert.Nil(t, Boundaries(0, 10, 0))
}

func TestBins_Labels(t *testing.T) {
	manual := ManualBins(0, 97, 5)
	assert.Equal(t, []string{"0-20", "20-40", "40-60", "60-80", "80-100"}, manual.Labels())

	lo := 10.0
	auto := Bins{Auto: []AutoBucket{{Max: 10}, {Min: &lo, Max: 20.5}}}
	assert.Equal(t, []string{"<10", "10-20.5"}, auto.Labels())

	assert.Nil(t, Bins{}.Labels())
}

func TestBins_AssignManual(t *testing.T) {
	expr := ManualBins(0, 97, 5).Assign("salary")
	cond, ok := expr.(bson.D)
	require.True(t, ok)
	require.Equal(t, "$cond", cond[0].Key)

	parts := cond[0].Value.(bson.A)
	require.Len(t, parts, 3)
	assert.Equal(t, NoneBucket, parts[2])

	pick := parts[1].(bson.D)
	assert.Equal(t, "$arrayElemAt", pick[0].Key)
	labels := pick[0].Value.(bson.A)[0].(bson.A)
	assert.Equal(t, bson.A{"0-20", "20-40", "40-60", "60-80", "80-100"}, labels)
}

func TestBins_AssignAuto(t *testing.T) {
	lo := 10.0
	expr := Bins{Auto: []AutoBucket{{Max: 10}, {Min: &lo, Max: 20}}}.Assign("salary")
	sw := expr.(bson.D)
	require.Equal(t, "$switch", sw[0].Key)
	body := sw[0].Value.(bson.D)
	assert.Len(t, body[0].Value.(bson.A), 2)
	assert.Equal(t, bson.E{Key: "default", Value: NoneBucket}, body[1])
}

func TestBins_AssignEmpty(t *testing.T) {
	assert.Equal(t, NoneBucket, Bins{}.Assign("salary"))
}

func TestBucketProbe_Stages(t *testing.T) {
	manual := BucketProbe{Slot: "salary", Path: "salary", Count: 5}
	assert.False(t, manual.Automatic())
	assert.Equal(t, []string{"$group"}, manual.Stages().Ops())

	auto := BucketProbe{Slot: "salary", Path: "salary"}
	assert.True(t, auto.Automatic())
	assert.Equal(t, []string{"$match", "$bucketAuto"}, auto.Stages().Ops())
}

func TestBucketProbe_BinsFromProbe(t *testing.T) {
	manual := BucketProbe{Slot: "salary", Path: "salary", Count: 5}
	bins, err := manual.BinsFromProbe([]bson.M{{"_id": nil, "min": int32(0), "max": 97.0}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 20, 40, 60, 80, 100}, bins.Edges)

	bins, err = manual.BinsFromProbe(nil)
	require.NoError(t, err)
	assert.Equal(t, Bins{}, bins)

	auto := BucketProbe{Slot: "salary", Path: "salary"}
	bins, err = auto.BinsFromProbe([]bson.M{
		{"_id": bson.M{"min": nil, "max": 10.0}, "count": int32(3)},
		{"_id": bson.D{{Key: "min", Value: 10.0}, {Key: "max", Value: int64(20)}}, "count": int32(4)},
		{"_id": bson.M{"min": nil, "max": nil}, "count": int32(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"<10", "10-20"}, bins.Labels())

	_, err = auto.BinsFromProbe([]bson.M{{"count": 1}})
	assert.Error(t, err)
}

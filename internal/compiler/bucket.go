package compiler

import (
	"fmt"
	"math"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/pipeline"
)

// NoneBucket labels values outside every boundary, and missing values.
const NoneBucket = "None"

// AutoBucketCount is the number of quantile buckets requested in automatic
// mode.
const AutoBucketCount = 10

// Boundaries computes k+1 evenly spaced histogram edges covering
// [min, max]. A min not divisible by k is floored to a multiple of k. A max
// not divisible by k is ceiled to one; a divisible max gets one more bin
// width so the top edge stays exclusive.
func Boundaries(min, max float64, k int) []float64 {
	if k <= 0 {
		return nil
	}
	kf := float64(k)
	lo := min
	if math.Mod(lo, kf) != 0 {
		lo = math.Floor(lo/kf) * kf
	}
	hi := max
	if math.Mod(hi, kf) != 0 {
		hi = math.Ceil(hi/kf) * kf
	} else {
		hi += (hi - lo) / kf
	}
	if hi <= lo {
		hi = lo + kf
	}

	width := (hi - lo) / kf
	edges := make([]float64, k+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[k] = hi
	return edges
}

// Bins is the resolved bucketing of one summarized field.
type Bins struct {
	// Edges are the explicit boundaries of manual mode.
	Edges []float64
	// Auto holds the probed ranges of automatic mode.
	Auto []AutoBucket
}

// AutoBucket is one range returned by a $bucketAuto probe. Min is nil when
// the lower edge is unknown.
type AutoBucket struct {
	Min *float64
	Max float64
}

// ManualBins builds manual-mode bins from a probed min and max.
func ManualBins(min, max float64, k int) Bins {
	return Bins{Edges: Boundaries(min, max, k)}
}

// Labels returns the display label of every bucket, without "None".
func (b Bins) Labels() []string {
	if len(b.Auto) > 0 {
		labels := make([]string, 0, len(b.Auto))
		for _, a := range b.Auto {
			if a.Min == nil {
				labels = append(labels, "<"+formatEdge(a.Max))
				continue
			}
			labels = append(labels, formatEdge(*a.Min)+"-"+formatEdge(a.Max))
		}
		return labels
	}
	if len(b.Edges) < 2 {
		return nil
	}
	labels := make([]string, 0, len(b.Edges)-1)
	for i := 0; i+1 < len(b.Edges); i++ {
		labels = append(labels, formatEdge(b.Edges[i])+"-"+formatEdge(b.Edges[i+1]))
	}
	return labels
}

func formatEdge(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Assign returns the expression mapping the value at path to its bucket
// label. Empty bins map everything to "None".
func (b Bins) Assign(path string) any {
	ref := "$" + path
	isNumber := bson.D{{Key: "$isNumber", Value: ref}}

	if len(b.Auto) > 0 {
		labels := b.Labels()
		branches := make(bson.A, 0, len(b.Auto))
		for i, a := range b.Auto {
			upper := "$lt"
			if i == len(b.Auto)-1 {
				upper = "$lte"
			}
			conds := bson.A{isNumber, bson.D{{Key: upper, Value: bson.A{ref, a.Max}}}}
			if a.Min != nil {
				conds = append(conds, bson.D{{Key: "$gte", Value: bson.A{ref, *a.Min}}})
			}
			branches = append(branches, bson.D{
				{Key: "case", Value: bson.D{{Key: "$and", Value: conds}}},
				{Key: "then", Value: labels[i]},
			})
		}
		return bson.D{{Key: "$switch", Value: bson.D{
			{Key: "branches", Value: branches},
			{Key: "default", Value: NoneBucket},
		}}}
	}

	if len(b.Edges) < 2 {
		return NoneBucket
	}
	lo := b.Edges[0]
	hi := b.Edges[len(b.Edges)-1]
	width := b.Edges[1] - b.Edges[0]
	labels := make(bson.A, 0, len(b.Edges)-1)
	for _, l := range b.Labels() {
		labels = append(labels, l)
	}

	index := bson.D{{Key: "$toInt", Value: bson.D{{Key: "$floor", Value: bson.D{{Key: "$divide", Value: bson.A{
		bson.D{{Key: "$subtract", Value: bson.A{ref, lo}}},
		width,
	}}}}}}}
	inRange := bson.D{{Key: "$and", Value: bson.A{
		isNumber,
		bson.D{{Key: "$gte", Value: bson.A{ref, lo}}},
		bson.D{{Key: "$lt", Value: bson.A{ref, hi}}},
	}}}
	return bson.D{{Key: "$cond", Value: bson.A{
		inRange,
		bson.D{{Key: "$arrayElemAt", Value: bson.A{labels, index}}},
		NoneBucket,
	}}}
}

// BucketProbe describes the pre-query needed to bucket one summarized
// field. It runs over the filtered, pre-group population.
type BucketProbe struct {
	// Slot is the summary slot the bins belong to.
	Slot string
	Path string
	// Count is the requested bin count; zero means automatic.
	Count int
}

// Automatic reports whether the probe is a quantile probe.
func (p BucketProbe) Automatic() bool {
	return p.Count == 0
}

// Stages returns the probe stages to append after the filter prefix.
func (p BucketProbe) Stages() pipeline.Pipeline {
	ref := "$" + p.Path
	if p.Automatic() {
		return pipeline.Pipeline{
			pipeline.Match{Filter: bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: p.Path, Value: bson.D{{Key: "$type", Value: "number"}}}},
				bson.D{{Key: p.Path, Value: nil}},
			}}}},
			pipeline.BucketAuto{GroupBy: ref, Buckets: AutoBucketCount},
		}
	}
	return pipeline.Pipeline{
		pipeline.Group{ID: nil, Accumulators: bson.D{
			{Key: "min", Value: bson.D{{Key: "$min", Value: ref}}},
			{Key: "max", Value: bson.D{{Key: "$max", Value: ref}}},
		}},
	}
}

// BinsFromProbe turns probe rows into Bins. A manual probe over an empty
// population yields no bins; every value then lands in "None".
func (p BucketProbe) BinsFromProbe(rows []bson.M) (Bins, error) {
	if p.Automatic() {
		buckets := make([]AutoBucket, 0, len(rows))
		for _, row := range rows {
			id, ok := asMap(row["_id"])
			if !ok {
				return Bins{}, fmt.Errorf("bucket probe %s: missing _id range", p.Slot)
			}
			max, ok := number(id["max"])
			if !ok {
				// Only nulls in this range; they fall into "None".
				continue
			}
			b := AutoBucket{Max: max}
			if min, ok := number(id["min"]); ok {
				b.Min = &min
			}
			buckets = append(buckets, b)
		}
		return Bins{Auto: buckets}, nil
	}

	if len(rows) == 0 {
		return Bins{}, nil
	}
	min, okMin := number(rows[0]["min"])
	max, okMax := number(rows[0]["max"])
	if !okMin || !okMax {
		return Bins{}, nil
	}
	return ManualBins(min, max, p.Count), nil
}

// asMap accepts the document shapes the driver may decode into.
func asMap(v any) (bson.M, bool) {
	switch d := v.(type) {
	case bson.M:
		return d, true
	case map[string]any:
		return d, true
	case bson.D:
		m := make(bson.M, len(d))
		for _, e := range d {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Package querymongo lowers pipeline.Pipeline values to MongoDB aggregation
// pipelines.
package querymongo

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/pipeline"
)

// Compile converts every stage of p to its bson.D form.
func Compile(p pipeline.Pipeline) (mongo.Pipeline, error) {
	out := make(mongo.Pipeline, 0, len(p))
	for i, s := range p {
		doc, err := CompileStage(s)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		out = append(out, doc)
	}
	return out, nil
}

// CompileStage converts a single stage into a one-key bson.D.
func CompileStage(s pipeline.Stage) (bson.D, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot compile nil stage")
	}

	switch stage := s.(type) {
	case pipeline.Match:
		return wrap(stage, stage.Filter), nil
	case pipeline.AddFields:
		return wrap(stage, stage.Fields), nil
	case pipeline.Project:
		return wrap(stage, stage.Fields), nil
	case pipeline.Group:
		body := make(bson.D, 0, len(stage.Accumulators)+1)
		body = append(body, bson.E{Key: "_id", Value: stage.ID})
		body = append(body, stage.Accumulators...)
		return wrap(stage, body), nil
	case pipeline.Sort:
		return wrap(stage, stage.Keys), nil
	case pipeline.Skip:
		return wrap(stage, stage.N), nil
	case pipeline.Limit:
		return wrap(stage, stage.N), nil
	case pipeline.Count:
		return wrap(stage, stage.Field), nil
	case pipeline.Lookup:
		sub, err := Compile(stage.Pipeline)
		if err != nil {
			return nil, fmt.Errorf("$lookup pipeline: %w", err)
		}
		body := bson.D{{Key: "from", Value: stage.From}}
		if len(stage.Let) > 0 {
			body = append(body, bson.E{Key: "let", Value: stage.Let})
		}
		body = append(body,
			bson.E{Key: "pipeline", Value: sub},
			bson.E{Key: "as", Value: stage.As},
		)
		return wrap(stage, body), nil
	case pipeline.ReplaceRoot:
		return wrap(stage, bson.D{{Key: "newRoot", Value: stage.NewRoot}}), nil
	case pipeline.BucketAuto:
		body := bson.D{
			{Key: "groupBy", Value: stage.GroupBy},
			{Key: "buckets", Value: stage.Buckets},
		}
		if len(stage.Output) > 0 {
			body = append(body, bson.E{Key: "output", Value: stage.Output})
		}
		return wrap(stage, body), nil
	case pipeline.Unwind:
		return wrap(stage, bson.D{
			{Key: "path", Value: "$" + stage.Path},
			{Key: "preserveNullAndEmptyArrays", Value: stage.PreserveNullAndEmptyArrays},
		}), nil
	default:
		return nil, fmt.Errorf("unsupported stage type: %T", s)
	}
}

func wrap(s pipeline.Stage, body any) bson.D {
	return bson.D{{Key: s.Op(), Value: body}}
}

// MarshalExtJSON renders p as a relaxed extended-JSON array, one element
// per stage. When indent is true the output is pretty-printed.
func MarshalExtJSON(p pipeline.Pipeline, indent bool) ([]byte, error) {
	compiled, err := Compile(p)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, doc := range compiled {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			return nil, fmt.Errorf("marshal stage %d: %w", i, err)
		}
		buf.Write(data)
	}
	buf.WriteByte(']')

	if !indent {
		return buf.Bytes(), nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indent pipeline: %w", err)
	}
	return pretty.Bytes(), nil
}

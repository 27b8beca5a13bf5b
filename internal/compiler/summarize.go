package compiler

import (
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/pipeline"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// DistinctSuffix names the distinct-count column of a concatenation.
const DistinctSuffix = "_distinct"

// Summary is the grouping plan of a summary view, built by folding every
// SummarizeSpec and AggregationOperationSpec into it.
type Summary struct {
	// PreGroup derives grouping values before $group.
	PreGroup bson.D
	// ID holds one slot per SummarizeSpec.
	ID bson.D
	// Accumulators compute one column per aggregation.
	Accumulators bson.D
	// PostGroup flattens concatenations and records distinct counts.
	PostGroup bson.D
	// Slots maps a summarized field key to its _id slot.
	Slots map[string]string
	// ArraySlots marks slots grouped on array-backed storage; CustomSlots
	// names the custom field behind a raw slot so metadata can decide.
	ArraySlots  map[string]bool
	CustomSlots map[string]string
	// Columns maps an aggregated field key to its sortable output column.
	Columns map[string]string
	// Probes lists every bucketed field; Pending those still lacking bins.
	Probes  []BucketProbe
	Pending []BucketProbe
}

// Stages returns the grouping stages. It must not be called while probes
// are pending.
func (s Summary) Stages() pipeline.Pipeline {
	var p pipeline.Pipeline
	if len(s.PreGroup) > 0 {
		p = append(p, pipeline.AddFields{Fields: s.PreGroup})
	}
	p = append(p, pipeline.Group{ID: s.ID, Accumulators: s.Accumulators})
	if len(s.PostGroup) > 0 {
		p = append(p, pipeline.AddFields{Fields: s.PostGroup})
	}
	return p
}

// SortKey resolves a sort name against the summary output: summarized
// fields sort by their _id slot, aggregated fields by their column. Slots
// grouped on raw array values keep their array-ness so multi-valued sorts
// are still caught. Direction is left to the caller.
func (s Summary) SortKey(name string) (SortKey, bool) {
	key := report.FieldKey(name)
	if slot, ok := s.Slots[key]; ok {
		return SortKey{Path: "_id." + slot, Array: s.ArraySlots[slot], Custom: s.CustomSlots[slot]}, true
	}
	if col, ok := s.Columns[key]; ok {
		return SortKey{Path: col}, true
	}
	return SortKey{}, false
}

// Access decides which resolved fields a summary may read.
type Access struct {
	Permissions report.Permissions
	// Gate admits custom fields; nil admits every field.
	Gate Gate
}

// Check rejects a field whose permission the caller lacks, or a custom
// field the gate would drop from a filter.
func (a Access) Check(name string, category report.Category, f Field) error {
	if f.Permission != "" && !a.Permissions.Has(f.Permission) {
		return report.NewError(report.ErrCodeForbiddenField, name, "%q requires %s", name, f.Permission)
	}
	if a.Gate != nil && !a.Gate(report.FieldFilter{Field: name, Category: category}) {
		return report.NewError(report.ErrCodeForbiddenField, name, "custom field %q is not visible", name)
	}
	return nil
}

// Summarize folds specs and aggs into a Summary. bins holds resolved
// bucketing per slot; bucketed slots without bins are reported as pending.
// Every field read goes through access first.
func Summarize(specs []report.SummarizeSpec, aggs []report.AggregationOperationSpec, resolve Resolver, bins map[string]Bins, access Access) (Summary, error) {
	acc := Summary{
		Slots:       make(map[string]string),
		Columns:     make(map[string]string),
		ArraySlots:  make(map[string]bool),
		CustomSlots: make(map[string]string),
	}
	var err error
	for _, spec := range specs {
		if acc, err = foldDimension(acc, spec, resolve, bins, access); err != nil {
			return Summary{}, err
		}
	}
	for _, agg := range aggs {
		if acc, err = foldAggregation(acc, agg, resolve, access); err != nil {
			return Summary{}, err
		}
	}
	if len(acc.Accumulators) == 0 {
		acc.Accumulators = bson.D{{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}
		acc.Columns["count"] = "count"
	}
	return acc, nil
}

func resolveSummaryField(name string, category report.Category, typ report.FieldType, resolve Resolver, access Access) (Field, error) {
	if category == "" {
		category = report.CategoryStandard
	}
	f, ok := resolve(name, category, typ)
	if !ok {
		return Field{}, report.NewError(report.ErrCodeUnknownField, name, "unknown %s field %q", category, name)
	}
	if err := access.Check(name, category, f); err != nil {
		return Field{}, err
	}
	return f, nil
}

func foldDimension(acc Summary, spec report.SummarizeSpec, resolve Resolver, bins map[string]Bins, access Access) (Summary, error) {
	field, err := resolveSummaryField(spec.Name, spec.Category, spec.Type, resolve, access)
	if err != nil {
		return acc, err
	}

	slot := report.FieldKey(spec.Name)
	if _, taken := acc.Slots[slot]; taken {
		slot = fmt.Sprintf("%s_%d", slot, len(acc.ID))
	}
	ref := "$" + field.Path
	var value any = ref

	switch sel := spec.Selection; {
	case sel == report.SelectionYear || sel == report.SelectionQuarter || sel == report.SelectionMonth:
		derived := "__by_" + slot
		acc.PreGroup = append(acc.PreGroup, bson.E{Key: derived, Value: DateReduction(field.Path, sel)})
		value = "$" + derived
	case sel == report.SelectionAutomatic || isBinCount(sel):
		probe := BucketProbe{Slot: slot, Path: field.Path}
		if sel != report.SelectionAutomatic {
			probe.Count, _ = strconv.Atoi(sel)
		}
		acc.Probes = append(acc.Probes, probe)
		b, ok := bins[slot]
		if !ok {
			acc.Pending = append(acc.Pending, probe)
		}
		derived := "__by_" + slot
		acc.PreGroup = append(acc.PreGroup, bson.E{Key: derived, Value: b.Assign(field.Path)})
		value = "$" + derived
	case sel == "":
		acc.ArraySlots[slot] = field.Array
		if spec.Category == report.CategoryCustom {
			acc.CustomSlots[slot] = spec.Name
		}
	default:
		return acc, report.NewError(report.ErrCodeInvalidRequest, spec.Name, "unsupported selection %q", sel)
	}

	acc.ID = append(acc.ID, bson.E{Key: slot, Value: bson.D{{Key: "$ifNull", Value: bson.A{value, ""}}}})
	acc.Slots[report.FieldKey(spec.Name)] = slot
	return acc, nil
}

func isBinCount(sel string) bool {
	n, err := strconv.Atoi(sel)
	return err == nil && n > 0
}

// DateReduction reduces the date at path to a year, "YYYY-Qn" or "YYYY-MM"
// string. Non-date values reduce to "".
func DateReduction(path, selection string) bson.D {
	ref := "$" + path
	year := bson.D{{Key: "$toString", Value: bson.D{{Key: "$year", Value: ref}}}}

	var reduced any
	switch selection {
	case report.SelectionQuarter:
		quarter := bson.D{{Key: "$toString", Value: bson.D{{Key: "$ceil", Value: bson.D{{Key: "$divide", Value: bson.A{
			bson.D{{Key: "$month", Value: ref}}, 3,
		}}}}}}}
		reduced = bson.D{{Key: "$concat", Value: bson.A{year, "-Q", quarter}}}
	case report.SelectionMonth:
		reduced = bson.D{{Key: "$dateToString", Value: bson.D{
			{Key: "format", Value: "%Y-%m"},
			{Key: "date", Value: ref},
		}}}
	default:
		reduced = year
	}

	return bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: ref}}, "date"}}},
		reduced,
		"",
	}}}
}

var accumulatorOps = map[report.Operation]string{
	report.OpSum:     "$sum",
	report.OpAverage: "$avg",
	report.OpMinimum: "$min",
	report.OpMaximum: "$max",
}

// AggregationKey is the output column of an aggregation.
func AggregationKey(agg report.AggregationOperationSpec) string {
	if agg.Name == "" {
		return string(agg.Operation)
	}
	return report.FieldKey(agg.Name) + "_" + string(agg.Operation)
}

func foldAggregation(acc Summary, agg report.AggregationOperationSpec, resolve Resolver, access Access) (Summary, error) {
	key := AggregationKey(agg)
	column := key

	switch agg.Operation {
	case report.OpCount:
		acc.Accumulators = append(acc.Accumulators, bson.E{Key: key, Value: bson.D{{Key: "$sum", Value: 1}}})
	case report.OpSum, report.OpAverage, report.OpMinimum, report.OpMaximum:
		field, err := resolveSummaryField(agg.Name, agg.Category, agg.Type, resolve, access)
		if err != nil {
			return acc, err
		}
		acc.Accumulators = append(acc.Accumulators, bson.E{Key: key, Value: bson.D{
			{Key: accumulatorOps[agg.Operation], Value: NullCoalesce(field.Path)},
		}})
	case report.OpConcatenate:
		field, err := resolveSummaryField(agg.Name, agg.Category, agg.Type, resolve, access)
		if err != nil {
			return acc, err
		}
		acc.Accumulators = append(acc.Accumulators, bson.E{Key: key, Value: bson.D{{Key: "$push", Value: "$" + field.Path}}})
		flat := flatten("$" + key)
		acc.PostGroup = append(acc.PostGroup,
			bson.E{Key: key, Value: flat},
			bson.E{Key: key + DistinctSuffix, Value: bson.D{{Key: "$size", Value: bson.D{{Key: "$setUnion", Value: bson.A{flat, bson.A{}}}}}}},
		)
		column = key + DistinctSuffix
	default:
		return acc, report.NewError(report.ErrCodeInvalidRequest, agg.Name, "unsupported operation %q", agg.Operation)
	}

	if agg.Name != "" {
		if _, taken := acc.Columns[report.FieldKey(agg.Name)]; !taken {
			acc.Columns[report.FieldKey(agg.Name)] = column
		}
	} else {
		acc.Columns[key] = column
	}
	return acc, nil
}

// NullCoalesce treats "" and missing values at path as null so they do not
// corrupt numeric accumulators.
func NullCoalesce(path string) bson.D {
	ref := "$" + path
	return bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{ref, ""}}},
		nil,
		bson.D{{Key: "$ifNull", Value: bson.A{ref, nil}}},
	}}}
}

// flatten concatenates pushed values into one array; scalar members are
// wrapped, null members skipped.
func flatten(ref string) bson.D {
	return bson.D{{Key: "$reduce", Value: bson.D{
		{Key: "input", Value: ref},
		{Key: "initialValue", Value: bson.A{}},
		{Key: "in", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
			"$$value",
			bson.D{{Key: "$switch", Value: bson.D{
				{Key: "branches", Value: bson.A{
					bson.D{
						{Key: "case", Value: bson.D{{Key: "$isArray", Value: "$$this"}}},
						{Key: "then", Value: "$$this"},
					},
					bson.D{
						{Key: "case", Value: bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$$this", nil}}}, nil}}}},
						{Key: "then", Value: bson.A{}},
					},
				}},
				{Key: "default", Value: bson.A{"$$this"}},
			}}},
		}}}},
	}}}
}

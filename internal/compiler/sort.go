package compiler

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// SortKey is one resolved sort key.
type SortKey struct {
	Path      string
	Direction int
	// Array marks keys known to be backed by array storage.
	Array bool
	// Custom is the custom field name behind the key, if any. Whether it is
	// array-backed is decided from metadata during validation.
	Custom string
}

// SortResolver resolves one SortSpec for a view.
type SortResolver func(spec report.SortSpec, view report.View) (SortKey, error)

// DefaultSort is the sort applied when a request names none.
func DefaultSort() bson.D {
	return bson.D{{Key: "_id", Value: -1}}
}

// TranslateSort resolves specs in order. The returned document iterates in
// input order; a repeated path keeps its first position.
func TranslateSort(specs []report.SortSpec, resolve SortResolver, view report.View) (bson.D, []SortKey, error) {
	if len(specs) == 0 {
		return DefaultSort(), nil, nil
	}

	doc := make(bson.D, 0, len(specs))
	keys := make([]SortKey, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		key, err := resolve(spec, view)
		if err != nil {
			return nil, nil, err
		}
		if seen[key.Path] {
			continue
		}
		seen[key.Path] = true
		doc = append(doc, bson.E{Key: key.Path, Value: key.Direction})
		keys = append(keys, key)
	}
	return doc, keys, nil
}

// Direction converts asc/desc to 1/-1. Anything but desc sorts ascending.
func Direction(d report.SortDirection) int {
	if strings.EqualFold(string(d), string(report.SortDesc)) {
		return -1
	}
	return 1
}

// ValidateSort rejects a multi-key sort with more than one array-backed
// key. arrayCustom names the custom fields metadata reports as
// array-typed.
func ValidateSort(keys []SortKey, arrayCustom map[string]bool) error {
	if len(keys) <= 1 {
		return nil
	}
	var arrays []string
	for _, k := range keys {
		if k.Array || (k.Custom != "" && arrayCustom[k.Custom]) {
			arrays = append(arrays, k.Path)
		}
	}
	if len(arrays) > 1 {
		return report.NewError(report.ErrCodeInvalidSort, strings.Join(arrays, ","),
			"cannot sort by more than one multi-valued field at a time (%s)", strings.Join(arrays, ", "))
	}
	return nil
}

// DomainSortResolver builds the usual resolver: summary views sort by the
// summary output, detail views by the resolved field (SortPath when set,
// with spec.FieldPath appended as a sub-path).
func DomainSortResolver(resolve Resolver, summary *Summary) SortResolver {
	return func(spec report.SortSpec, view report.View) (SortKey, error) {
		dir := Direction(spec.Direction)
		category := spec.Category
		if category == "" {
			category = report.CategoryStandard
		}

		if view == report.ViewSummary {
			if summary == nil {
				return SortKey{}, report.NewError(report.ErrCodeInvalidSort, spec.Name, "summary sort without a summary")
			}
			key, ok := summary.SortKey(spec.Name)
			if !ok {
				return SortKey{}, report.NewError(report.ErrCodeInvalidSort, spec.Name,
					"%q is neither summarized nor aggregated", spec.Name)
			}
			key.Direction = dir
			return key, nil
		}

		field, ok := resolve(spec.Name, category, spec.Type)
		if !ok {
			return SortKey{}, report.NewError(report.ErrCodeUnknownField, spec.Name, "unknown %s field %q", category, spec.Name)
		}
		path := field.Path
		if field.SortPath != "" {
			path = field.SortPath
		}
		if len(spec.FieldPath) > 0 {
			path = path + "." + strings.Join(spec.FieldPath, ".")
		}

		key := SortKey{Path: path, Direction: dir, Array: field.Array}
		if category == report.CategoryCustom {
			key.Custom = spec.Name
		}
		return key, nil
	}
}

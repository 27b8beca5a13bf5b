package compiler

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// Gate decides whether a clause may be queried at all. Clauses it rejects
// are dropped without error.
type Gate func(f report.FieldFilter) bool

// AllowAll is the gate that rejects nothing.
func AllowAll(report.FieldFilter) bool { return true }

// CustomFieldGate admits custom fields named in allowed. An empty allow-list
// admits everything; non-custom clauses always pass.
func CustomFieldGate(allowed []string) Gate {
	if len(allowed) == 0 {
		return AllowAll
	}
	set := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		set[report.FieldKey(name)] = struct{}{}
	}
	return func(f report.FieldFilter) bool {
		if f.Category != report.CategoryCustom {
			return true
		}
		_, ok := set[f.Key()]
		return ok
	}
}

// BuildMatch compiles groups into one $match body: clauses within a group
// are OR'd, groups are AND'd. It returns nil when nothing constrains the
// match.
func BuildMatch(groups []report.FilterGroup, resolve Resolver, gate Gate, tr *Translator) (bson.D, error) {
	fragments, err := GroupFragments(groups, resolve, gate, tr)
	if err != nil {
		return nil, err
	}
	return And(fragments...), nil
}

// GroupFragments compiles each group to one fragment, skipping groups that
// end up without constraints.
func GroupFragments(groups []report.FilterGroup, resolve Resolver, gate Gate, tr *Translator) ([]bson.D, error) {
	if gate == nil {
		gate = AllowAll
	}
	if tr == nil {
		tr = &Translator{}
	}

	var out []bson.D
	for _, group := range groups {
		kept, _ := PartitionHomogeneous(group)

		var ors []bson.D
		for _, f := range kept {
			if !gate(f) {
				continue
			}
			field, ok := resolve(f.Field, f.Category, f.Type)
			if !ok {
				return nil, report.NewError(report.ErrCodeUnknownField, f.Field,
					"unknown %s field %q", f.Category, f.Field)
			}
			frag, err := tr.Translate(field, f)
			if err != nil {
				return nil, err
			}
			if frag != nil {
				ors = append(ors, frag)
			}
		}

		if frag := Or(ors...); frag != nil {
			out = append(out, frag)
		}
	}
	return out, nil
}

// Or combines fragments with $or; a single fragment passes through.
func Or(frags ...bson.D) bson.D {
	return combine("$or", frags)
}

// And combines fragments with $and; a single fragment passes through.
func And(frags ...bson.D) bson.D {
	return combine("$and", frags)
}

func combine(op string, frags []bson.D) bson.D {
	var live bson.A
	var last bson.D
	for _, f := range frags {
		if len(f) == 0 {
			continue
		}
		live = append(live, f)
		last = f
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return last
	}
	return bson.D{{Key: op, Value: live}}
}

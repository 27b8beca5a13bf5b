package compiler

import "github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"

// PartitionHomogeneous splits group into the clauses sharing the first
// clause's (type, field, category) and the rest. Only kept clauses take
// part in the OR; dropped ones are discarded without error.
func PartitionHomogeneous(group report.FilterGroup) (kept, dropped report.FilterGroup) {
	if len(group) == 0 {
		return nil, nil
	}
	first := group[0]
	for _, f := range group {
		if f.SameShape(first) {
			kept = append(kept, f)
		} else {
			dropped = append(dropped, f)
		}
	}
	return kept, dropped
}

// SplitGroups separates groups whose first clause satisfies pred from the
// rest, preserving order in both.
func SplitGroups(groups []report.FilterGroup, pred func(report.FieldFilter) bool) (matched, rest []report.FilterGroup) {
	for _, g := range groups {
		if len(g) > 0 && pred(g[0]) {
			matched = append(matched, g)
		} else {
			rest = append(rest, g)
		}
	}
	return matched, rest
}

package harness

import (
	"fmt"
	"slices"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/compiler"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// AssertionError describes one failed expectation.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against result and returns
// one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	if a.Type == AssertErrorCode {
		return assertErrorCode(result.Err, a)
	}
	if result.Err != nil {
		return &AssertionError{Type: a.Type, Expected: "a compiled plan", Actual: result.Err.Error()}
	}
	plan := result.Plan

	switch a.Type {
	case AssertStageOrder:
		return assertStageOrder(plan, a)
	case AssertContainsStage:
		return assertContainsStage(plan, a)
	case AssertSortKeys:
		return assertSortKeys(plan, a)
	case AssertPagination:
		return assertPagination(plan, a)
	case AssertCollection:
		if plan.Collection != a.Collection {
			return &AssertionError{Type: a.Type, Expected: a.Collection, Actual: plan.Collection}
		}
		return nil
	case AssertPendingProbes:
		got := PendingSlots(plan)
		if !slices.Equal(got, a.Slots) {
			return &AssertionError{Type: a.Type, Expected: list(a.Slots), Actual: list(got)}
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// Stages returns the stage operators of the plan: the full pipeline when
// ready, otherwise the population prefix.
func Stages(plan *compiler.Plan) []string {
	if plan.Ready() {
		return plan.Pipeline.Ops()
	}
	return plan.Filter.Ops()
}

// SortKeys renders a sort document as "path:direction" pairs.
func SortKeys(sort bson.D) []string {
	keys := make([]string, 0, len(sort))
	for _, e := range sort {
		keys = append(keys, fmt.Sprintf("%s:%v", e.Key, e.Value))
	}
	return keys
}

// PendingSlots lists the summary slots still waiting on bucket probes.
func PendingSlots(plan *compiler.Plan) []string {
	slots := make([]string, 0, len(plan.Pending))
	for _, p := range plan.Pending {
		slots = append(slots, p.Slot)
	}
	return slots
}

func assertStageOrder(plan *compiler.Plan, a Assertion) error {
	got := Stages(plan)
	if !slices.Equal(got, a.Stages) {
		return &AssertionError{Type: a.Type, Expected: list(a.Stages), Actual: list(got)}
	}
	return nil
}

func assertContainsStage(plan *compiler.Plan, a Assertion) error {
	got := Stages(plan)
	if !slices.Contains(got, a.Stage) {
		return &AssertionError{Type: a.Type, Expected: "stage " + a.Stage, Actual: list(got)}
	}
	return nil
}

func assertSortKeys(plan *compiler.Plan, a Assertion) error {
	got := SortKeys(plan.Sort)
	if !slices.Equal(got, a.Keys) {
		return &AssertionError{Type: a.Type, Expected: list(a.Keys), Actual: list(got)}
	}
	return nil
}

func assertPagination(plan *compiler.Plan, a Assertion) error {
	if a.Skip != nil && *a.Skip != plan.Skip {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("skip %d", *a.Skip), Actual: fmt.Sprintf("skip %d", plan.Skip)}
	}
	if a.Limit != nil && *a.Limit != plan.Limit {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("limit %d", *a.Limit), Actual: fmt.Sprintf("limit %d", plan.Limit)}
	}
	return nil
}

func assertErrorCode(err error, a Assertion) error {
	if err == nil {
		return &AssertionError{Type: a.Type, Expected: a.Code, Actual: "compiled without error"}
	}
	if got := string(report.CodeOf(err)); got != a.Code {
		return &AssertionError{Type: a.Type, Expected: a.Code, Actual: err.Error()}
	}
	return nil
}

func list(items []string) string {
	return "[" + strings.Join(items, " ") + "]"
}

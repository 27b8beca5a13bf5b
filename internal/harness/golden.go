package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// Summary renders the outcome of a run as stable text for golden
// comparison. Only the plan's shape is rendered; filter values carry
// generated ids and instants that would churn the snapshot.
func Summary(name string, result *Result) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	if result.Err != nil {
		code := string(report.CodeOf(result.Err))
		if code == "" {
			code = "ERROR"
		}
		fmt.Fprintf(&buf, "error: %s\n", code)
		return buf.Bytes()
	}

	plan := result.Plan
	fmt.Fprintf(&buf, "domain: %s\n", plan.Domain)
	fmt.Fprintf(&buf, "collection: %s\n", plan.Collection)
	fmt.Fprintf(&buf, "view: %s\n", plan.View)
	if plan.Ready() {
		buf.WriteString("stages:\n")
	} else {
		buf.WriteString("filter:\n")
	}
	for _, op := range Stages(plan) {
		fmt.Fprintf(&buf, "  %s\n", op)
	}
	fmt.Fprintf(&buf, "sort: %s\n", strings.Join(SortKeys(plan.Sort), " "))
	fmt.Fprintf(&buf, "skip: %d\n", plan.Skip)
	fmt.Fprintf(&buf, "limit: %d\n", plan.Limit)
	if pending := PendingSlots(plan); len(pending) > 0 {
		fmt.Fprintf(&buf, "pending: %s\n", strings.Join(pending, " "))
	}
	return buf.Bytes()
}

// RunWithGolden runs a scenario, fails t on any assertion error and
// compares its Summary with testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Summary(scenario.Name, result))
	return nil
}

// CompareGolden compares actual with dir/{name}.golden outside of go
// test. With update set the file is rewritten instead. A missing golden
// file is reported as a mismatch.
func CompareGolden(dir, name string, actual []byte, update bool) (bool, error) {
	path := filepath.Join(dir, name+".golden")
	if update {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, actual, 0o644); err != nil {
			return false, fmt.Errorf("write golden file: %w", err)
		}
		return true, nil
	}

	expected, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read golden file: %w", err)
	}
	return bytes.Equal(expected, actual), nil
}

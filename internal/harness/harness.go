package harness

import (
	"fmt"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/domains"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/testutil"
)

// Run compiles the scenario's request and evaluates its assertions.
//
// A returned error means the scenario itself could not be run (its request
// does not decode). Compilation errors are part of the Result and are only
// a failure when no error_code assertion expects them.
func Run(scenario *Scenario) (*Result, error) {
	req, err := scenario.DecodeRequest()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	clock := testutil.NewFixedClock(scenario.Clock())
	env := scenario.Env.CompilerEnv(clock.Now)

	result := NewResult()
	result.Plan, result.Err = domains.Compile(req, env)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	if result.Err != nil && !expectsError(scenario.Assertions) {
		result.AddError(fmt.Sprintf("unexpected compile error: %v", result.Err))
	}
	return result, nil
}

func expectsError(assertions []Assertion) bool {
	for _, a := range assertions {
		if a.Type == AssertErrorCode {
			return true
		}
	}
	return false
}

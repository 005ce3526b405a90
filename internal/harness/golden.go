package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/wastelog/internal/waste"
)

// Snapshot returns the canonical JSON encoding of a scenario trace.
// Identical runs produce byte-identical snapshots.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, step := range result.Trace {
		m := map[string]any{
			"step":    step.Step,
			"op":      step.Op,
			"outcome": step.Outcome,
		}
		if step.ID != "" {
			m["id"] = step.ID
		}
		if len(step.Args) > 0 {
			m["args"] = step.Args
		}
		if step.Result != nil {
			m["result"] = step.Result
		}
		trace[i] = m
	}

	return waste.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"trace":         trace,
	})
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}

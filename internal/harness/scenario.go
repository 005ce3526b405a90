package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one scripted run against a fresh service.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Owner is the caller identity for every step. Default: "harness".
	Owner string `yaml:"owner,omitempty"`

	// IDs are handed out to create steps in order. When empty, ids are
	// entry-1, entry-2, ...
	IDs []string `yaml:"ids,omitempty"`

	// Clock configures the deterministic clock.
	Clock ClockConfig `yaml:"clock,omitempty"`

	// MaxEntries caps the store size. Zero means unlimited.
	MaxEntries int `yaml:"max_entries,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ClockConfig sets the first timestamp and the increment per clock read.
type ClockConfig struct {
	Start int64 `yaml:"start"`
	Step  int64 `yaml:"step"`
}

// Step invokes one service operation.
type Step struct {
	// Op is the operation name, e.g. "create" or "recycle".
	Op string `yaml:"op"`

	// ID is the target entry for operations that take one.
	ID string `yaml:"id,omitempty"`

	// Args carries the payload fields (create, update) or
	// recycledQuantity (recycle).
	Args map[string]any `yaml:"args,omitempty"`

	// Expect validates the outcome. If nil, the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Error is the expected error kind, e.g. "NOT_FOUND". Empty means success.
	Error string `yaml:"error,omitempty"`

	// Result contains expected fields of the returned entry or stats.
	// Subset match: only listed fields are compared.
	Result map[string]any `yaml:"result,omitempty"`

	// Count is the expected length of a list result.
	Count *int `yaml:"count,omitempty"`
}

// Assertion validates events or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Events is the expected relative order (event_order).
	Events []string `yaml:"events,omitempty"`

	// Event is the event type to count (event_count).
	Event string `yaml:"event,omitempty"`

	// Count is the expected number (event_count, entry_count).
	Count int `yaml:"count,omitempty"`

	// ID is the entry to inspect (final_state, absent).
	ID string `yaml:"id,omitempty"`

	// Expect contains expected entry fields (final_state). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertEventOrder = "event_order"
	AssertEventCount = "event_count"
	AssertFinalState = "final_state"
	AssertAbsent     = "absent"
	AssertEntryCount = "entry_count"
)

// Operation names accepted in steps.
const (
	OpCreate       = "create"
	OpGet          = "get"
	OpList         = "list"
	OpUpdate       = "update"
	OpDelete       = "delete"
	OpVerify       = "verify"
	OpListVerified = "list_verified"
	OpRecycle      = "recycle"
	OpStats        = "stats"
)

var opsWithID = map[string]bool{
	OpGet:     true,
	OpUpdate:  true,
	OpDelete:  true,
	OpVerify:  true,
	OpRecycle: true,
}

var knownOps = map[string]bool{
	OpCreate:       true,
	OpGet:          true,
	OpList:         true,
	OpUpdate:       true,
	OpDelete:       true,
	OpVerify:       true,
	OpListVerified: true,
	OpRecycle:      true,
	OpStats:        true,
}

var knownEvents = map[string]bool{
	"created":  true,
	"updated":  true,
	"verified": true,
	"recycled": true,
	"deleted":  true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Clock.Step < 0 {
		return fmt.Errorf("clock.step must be non-negative")
	}

	if s.MaxEntries < 0 {
		return fmt.Errorf("max_entries must be non-negative")
	}

	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if !knownOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if opsWithID[step.Op] && step.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for %s", i, step.Op)
		}
		if step.Expect != nil && step.Expect.Count != nil && *step.Expect.Count < 0 {
			return fmt.Errorf("steps[%d].expect: count must be non-negative", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
		for _, ev := range a.Events {
			if !knownEvents[ev] {
				return fmt.Errorf("assertions[%d]: unknown event %q", index, ev)
			}
		}
	case AssertEventCount:
		if !knownEvents[a.Event] {
			return fmt.Errorf("assertions[%d]: unknown event %q for event_count", index, a.Event)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertFinalState:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertAbsent:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for absent", index)
		}
	case AssertEntryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for entry_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

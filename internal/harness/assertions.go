package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/wastelog/internal/events"
	"github.com/roach88/wastelog/internal/store"
)

// AssertionContext gives assertions access to the final store.
type AssertionContext struct {
	Store store.EntryStore
	Ctx   context.Context
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Events   []events.Type // Published events for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Events) > 0 {
		fmt.Fprintf(&buf, "\nPublished events:\n")
		for i, ev := range e.Events {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, ev)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertEventOrder:
			err = assertEventOrder(result.Events, a)
		case AssertEventCount:
			err = assertEventCount(result.Events, a)
		case AssertFinalState:
			err = assertFinalState(actx, a)
		case AssertAbsent:
			err = assertAbsent(actx, a)
		case AssertEntryCount:
			err = assertEntryCount(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertEventOrder checks the listed events appear in this relative order.
// Events don't need to be consecutive.
func assertEventOrder(published []events.Type, a Assertion) error {
	pos := 0
	for _, want := range a.Events {
		idx := slices.Index(published[pos:], events.Type(want))
		if idx < 0 {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual:   fmt.Sprintf("%s not found after position %d", want, pos),
				Events:   published,
			}
		}
		pos += idx + 1
	}
	return nil
}

// assertEventCount checks an event type was published exactly Count times.
func assertEventCount(published []events.Type, a Assertion) error {
	count := 0
	for _, ev := range published {
		if ev == events.Type(a.Event) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s events", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d events", count),
			Events:   published,
		}
	}
	return nil
}

// assertFinalState checks the stored entry matches the expected fields.
func assertFinalState(actx *AssertionContext, a Assertion) error {
	e, ok, err := actx.Store.Get(actx.Ctx, a.ID)
	if err != nil {
		return fmt.Errorf("load %s: %w", a.ID, err)
	}
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("entry %s", a.ID),
			Actual:   "entry not found",
		}
	}
	if mismatch := matchFields(e.Fields(), a.Expect); mismatch != "" {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("entry %s with %v", a.ID, a.Expect),
			Actual:   mismatch,
		}
	}
	return nil
}

// assertAbsent checks nothing is stored under the id.
func assertAbsent(actx *AssertionContext, a Assertion) error {
	_, ok, err := actx.Store.Get(actx.Ctx, a.ID)
	if err != nil {
		return fmt.Errorf("load %s: %w", a.ID, err)
	}
	if ok {
		return &AssertionError{
			Type:     AssertAbsent,
			Expected: fmt.Sprintf("no entry %s", a.ID),
			Actual:   "entry present",
		}
	}
	return nil
}

// assertEntryCount checks the number of stored entries.
func assertEntryCount(actx *AssertionContext, a Assertion) error {
	all, err := actx.Store.Values(actx.Ctx)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	if len(all) != a.Count {
		return &AssertionError{
			Type:     AssertEntryCount,
			Expected: fmt.Sprintf("%d entries", a.Count),
			Actual:   fmt.Sprintf("%d entries", len(all)),
		}
	}
	return nil
}

// matchFields compares expected against actual with subset semantics and
// returns a description of the first mismatch, or "".
// An expected null matches an absent field.
func matchFields(actual, expected map[string]any) string {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		want := expected[k]
		got, present := actual[k]
		if want == nil {
			if present {
				return fmt.Sprintf("field %s: expected absent, got %v", k, got)
			}
			continue
		}
		if !present {
			return fmt.Sprintf("field %s: expected %v, got absent", k, want)
		}
		if !valuesEqual(got, want) {
			return fmt.Sprintf("field %s: expected %v, got %v", k, want, got)
		}
	}
	return ""
}

// valuesEqual compares values with numeric normalization: YAML decodes
// whole numbers as int, entry fields hold float64 and int64.
func valuesEqual(actual, expected any) bool {
	if af, ok := toFloat(actual); ok {
		ef, ok := toFloat(expected)
		return ok && af == ef
	}
	return actual == expected
}

package harness

import (
	"github.com/roach88/wastelog/internal/events"
)

// Outcome of a successful step in the trace.
const OutcomeOK = "ok"

// TraceStep records one executed step. Result holds canonical-encodable
// values only: entry field maps, lists of them, or the stats map.
type TraceStep struct {
	Step    int            `json:"step"`
	Op      string         `json:"op"`
	ID      string         `json:"id,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome"`
	Result  any            `json:"result,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one entry per executed step, in order.
	Trace []TraceStep `json:"trace"`

	// Events lists the change events the service published, in order.
	Events []events.Type `json:"events"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceStep{},
		Events: []events.Type{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step to the trace.
func (r *Result) AddStep(step TraceStep) {
	r.Trace = append(r.Trace, step)
}

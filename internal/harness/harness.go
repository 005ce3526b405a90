package harness

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/wastelog/internal/events"
	"github.com/roach88/wastelog/internal/identity"
	"github.com/roach88/wastelog/internal/idgen"
	"github.com/roach88/wastelog/internal/service"
	"github.com/roach88/wastelog/internal/store"
	"github.com/roach88/wastelog/internal/testutil"
	"github.com/roach88/wastelog/internal/waste"
)

// DefaultOwner is the caller identity when a scenario names none.
const DefaultOwner = "harness"

// Harness executes scenario steps against a real service instance.
type Harness struct {
	svc    *service.Service
	store  *store.Memory
	fixed  *idgen.FixedGenerator // nil when ids are sequential
	events *events.Recorder
	logger *slog.Logger
}

// New builds a harness with a fresh in-memory store configured from the
// scenario's owner, ids, clock and limits.
func New(scenario *Scenario) *Harness {
	limits := store.DefaultLimits()
	limits.MaxEntries = scenario.MaxEntries
	st := store.NewMemory(limits)

	owner := scenario.Owner
	if owner == "" {
		owner = DefaultOwner
	}

	h := &Harness{
		store:  st,
		events: events.NewRecorder(),
		logger: testutil.DiscardLogger(),
	}

	var ids idgen.Generator = testutil.NewSequentialIDs("entry")
	if len(scenario.IDs) > 0 {
		h.fixed = idgen.NewFixedGenerator(scenario.IDs...)
		ids = h.fixed
	}

	clk := testutil.NewDeterministicClock(
		waste.Timestamp(scenario.Clock.Start),
		waste.Timestamp(scenario.Clock.Step),
	)

	h.svc = service.New(st, clk, identity.Static(owner), ids,
		service.WithLogger(h.logger),
		service.WithPublisher(h.events),
	)
	return h
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh in-memory store. An error is returned only
// when the scenario itself is unusable (bad arguments, exhausted ids);
// failed expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	h := New(scenario)
	defer h.store.Close()

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}
	result.Events = h.events.Types()

	actx := &AssertionContext{Store: h.store, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) runStep(ctx context.Context, i int, step Step, result *Result) error {
	value, opErr, err := h.execute(ctx, step)
	if err != nil {
		return err
	}

	ts := TraceStep{
		Step:    i + 1,
		Op:      step.Op,
		ID:      step.ID,
		Args:    step.Args,
		Outcome: OutcomeOK,
	}
	if opErr != nil {
		ts.Outcome = string(waste.KindOf(opErr))
		if ts.Outcome == "" {
			return fmt.Errorf("unclassified error: %w", opErr)
		}
	} else {
		ts.Result = canonicalResult(value)
	}
	result.AddStep(ts)

	for _, msg := range checkExpect(i, step, ts) {
		result.AddError(msg)
	}

	h.logger.Info("step completed",
		"step", i+1,
		"op", step.Op,
		"id", step.ID,
		"outcome", ts.Outcome,
	)
	return nil
}

// execute runs one operation. opErr is the service's answer; err means the
// step could not be run at all.
func (h *Harness) execute(ctx context.Context, step Step) (value any, opErr, err error) {
	switch step.Op {
	case OpCreate:
		p, err := payloadFromArgs(step.Args)
		if err != nil {
			return nil, nil, err
		}
		if h.fixed != nil && h.fixed.Remaining() == 0 {
			return nil, nil, fmt.Errorf("scenario ids exhausted")
		}
		value, opErr = h.svc.Create(ctx, p)
	case OpGet:
		value, opErr = h.svc.Get(ctx, step.ID)
	case OpList:
		value, opErr = h.svc.ListAll(ctx)
	case OpUpdate:
		p, err := payloadFromArgs(step.Args)
		if err != nil {
			return nil, nil, err
		}
		value, opErr = h.svc.Update(ctx, step.ID, p)
	case OpDelete:
		value, opErr = h.svc.Delete(ctx, step.ID)
	case OpVerify:
		value, opErr = h.svc.Verify(ctx, step.ID)
	case OpListVerified:
		value, opErr = h.svc.ListVerified(ctx)
	case OpRecycle:
		raw, ok := step.Args["recycledQuantity"]
		if !ok {
			return nil, nil, fmt.Errorf("args.recycledQuantity is required")
		}
		amount, ok := toFloat(raw)
		if !ok {
			return nil, nil, fmt.Errorf("args.recycledQuantity: expected number, got %T", raw)
		}
		value, opErr = h.svc.Recycle(ctx, step.ID, amount)
	case OpStats:
		value, opErr = h.svc.Stats(ctx)
	default:
		return nil, nil, fmt.Errorf("unknown op %q", step.Op)
	}
	return value, opErr, nil
}

// payloadFromArgs converts YAML args to a payload. Absent numeric fields
// stay absent so validation sees them as missing.
func payloadFromArgs(args map[string]any) (waste.Payload, error) {
	var p waste.Payload
	for k, v := range args {
		switch k {
		case "wasteType", "location":
			s, ok := v.(string)
			if !ok {
				return waste.Payload{}, fmt.Errorf("args.%s: expected string, got %T", k, v)
			}
			if k == "wasteType" {
				p.WasteType = s
			} else {
				p.Location = s
			}
		case "quantity", "recycledQuantity":
			f, ok := toFloat(v)
			if !ok {
				return waste.Payload{}, fmt.Errorf("args.%s: expected number, got %T", k, v)
			}
			if k == "quantity" {
				p.Quantity = waste.Some(f)
			} else {
				p.RecycledQuantity = waste.Some(f)
			}
		default:
			return waste.Payload{}, fmt.Errorf("args.%s: unknown field", k)
		}
	}
	return p, nil
}

// toFloat accepts the numeric types yaml.v3 produces. The strings ".nan"
// and ".inf" decode to float64 already.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return math.NaN(), false
	}
}

// canonicalResult converts a service return value into canonical-encodable
// form.
func canonicalResult(v any) any {
	switch r := v.(type) {
	case waste.Entry:
		return r.Fields()
	case []waste.Entry:
		out := make([]any, len(r))
		for i, e := range r {
			out[i] = e.Fields()
		}
		return out
	case service.Stats:
		return statsFields(r)
	default:
		return nil
	}
}

func statsFields(s service.Stats) map[string]any {
	return map[string]any{
		"entries":             s.Entries,
		"verified":            s.Verified,
		"outstandingQuantity": s.Outstanding,
		"recycledQuantity":    s.Recycled,
	}
}

// checkExpect compares a step's outcome with its expect clause.
func checkExpect(i int, step Step, ts TraceStep) []string {
	want := OutcomeOK
	if step.Expect != nil && step.Expect.Error != "" {
		want = step.Expect.Error
	}
	if ts.Outcome != want {
		return []string{fmt.Sprintf("step %d (%s): expected outcome %s, got %s", i+1, step.Op, want, ts.Outcome)}
	}
	if step.Expect == nil || ts.Outcome != OutcomeOK {
		return nil
	}

	var errs []string
	if step.Expect.Count != nil {
		list, ok := ts.Result.([]any)
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("step %d (%s): count applies to list results only", i+1, step.Op))
		case len(list) != *step.Expect.Count:
			errs = append(errs, fmt.Sprintf("step %d (%s): expected %d entries, got %d", i+1, step.Op, *step.Expect.Count, len(list)))
		}
	}
	if len(step.Expect.Result) > 0 {
		fields, ok := ts.Result.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("step %d (%s): result applies to single results only", i+1, step.Op))
		} else if mismatch := matchFields(fields, step.Expect.Result); mismatch != "" {
			errs = append(errs, fmt.Sprintf("step %d (%s): %s", i+1, step.Op, mismatch))
		}
	}
	return errs
}

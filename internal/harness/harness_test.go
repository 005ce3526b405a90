package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wastelog/internal/events"
)

func mustParse(t *testing.T, yaml string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)
	return s
}

func TestRun_ShippedScenariosPass(t *testing.T) {
	for _, name := range []string{"plastic_site_a", "update_preserves_identity"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario("../../testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_PlasticSiteAEvents(t *testing.T) {
	s, err := LoadScenario("../../testdata/scenarios/plastic_site_a.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t,
		[]events.Type{events.Created, events.Recycled, events.Verified, events.Deleted},
		result.Events)
	require.Len(t, result.Trace, 8)
	assert.Equal(t, "OVER_RECYCLE", result.Trace[2].Outcome)
	assert.Nil(t, result.Trace[2].Result)
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("../../testdata/scenarios/plastic_site_a.yaml")
	require.NoError(t, err)

	r1, err := Run(s)
	require.NoError(t, err)
	r2, err := Run(s)
	require.NoError(t, err)

	b1, err := Snapshot(s.Name, r1)
	require.NoError(t, err)
	b2, err := Snapshot(s.Name, r2)
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))
}

func TestRun_ReportsUnexpectedOutcome(t *testing.T) {
	s := mustParse(t, `
name: wrong_expectation
description: "get on an empty store"
steps:
  - op: get
    id: nope
  - op: create
    args: { wasteType: paper, quantity: 1, location: x }
    expect:
      error: NOT_FOUND
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "step 1 (get): expected outcome ok, got NOT_FOUND")
	assert.Contains(t, result.Errors[1], "step 2 (create): expected outcome NOT_FOUND, got ok")
}

func TestRun_ReportsResultMismatch(t *testing.T) {
	s := mustParse(t, `
name: mismatch
description: "quantity mismatch"
steps:
  - op: create
    args: { wasteType: paper, quantity: 1, location: x }
    expect:
      result: { quantity: 2 }
  - op: list
    expect:
      count: 3
  - op: list
    expect:
      result: { quantity: 1 }
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "field quantity: expected 2, got 1")
	assert.Contains(t, result.Errors[1], "expected 3 entries, got 1")
	assert.Contains(t, result.Errors[2], "result applies to single results only")
}

func TestRun_SequentialIDsAndDefaultOwner(t *testing.T) {
	s := mustParse(t, `
name: defaults
description: "default owner and ids"
steps:
  - op: create
    args: { wasteType: paper, quantity: 1, location: x }
    expect:
      result: { id: entry-1, owner: harness, createdAt: 1 }
  - op: create
    args: { wasteType: paper, quantity: 1, location: x }
    expect:
      result: { id: entry-2, createdAt: 2 }
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_IdentityCollisionFromFixedIDs(t *testing.T) {
	s := mustParse(t, `
name: collision
description: "fixed ids repeat"
ids: [same, same]
steps:
  - op: create
    args: { wasteType: paper, quantity: 1, location: x }
  - op: create
    args: { wasteType: glass, quantity: 9, location: y }
    expect:
      error: IDENTITY_COLLISION
assertions:
  - type: final_state
    id: same
    expect: { wasteType: paper, quantity: 1 }
  - type: event_count
    event: created
    count: 1
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_StorageFailureFromCapacity(t *testing.T) {
	s := mustParse(t, `
name: capacity
description: "store full"
max_entries: 1
steps:
  - op: create
    args: { wasteType: paper, quantity: 1, location: x }
  - op: create
    args: { wasteType: paper, quantity: 1, location: x }
    expect:
      error: STORAGE_FAILURE
assertions:
  - type: entry_count
    count: 1
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ScenarioErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "ids exhausted",
			yaml: `
name: n
description: d
ids: [only]
steps:
  - op: create
    args: { wasteType: paper, quantity: 1, location: x }
  - op: create
    args: { wasteType: paper, quantity: 1, location: x }
`,
			wantErr: "step 2 (create): scenario ids exhausted",
		},
		{
			name: "bad quantity type",
			yaml: `
name: n
description: d
steps:
  - op: create
    args: { wasteType: paper, quantity: lots, location: x }
`,
			wantErr: "args.quantity: expected number, got string",
		},
		{
			name: "unknown arg",
			yaml: `
name: n
description: d
steps:
  - op: create
    args: { wasteType: paper, quantity: 1, location: x, colour: red }
`,
			wantErr: "args.colour: unknown field",
		},
		{
			name: "recycle without amount",
			yaml: `
name: n
description: d
steps:
  - op: recycle
    id: x
`,
			wantErr: "args.recycledQuantity is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(mustParse(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPayloadFromArgs_MissingQuantity(t *testing.T) {
	p, err := payloadFromArgs(map[string]any{"wasteType": "paper", "location": "x"})
	require.NoError(t, err)
	assert.False(t, p.Quantity.IsSome())
}

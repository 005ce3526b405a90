// Package harness runs YAML scenarios against the waste entry service.
//
// Each scenario executes on a fresh in-memory store with a deterministic
// clock and id generator, so the same scenario always produces the same
// trace and can be compared against a golden file.
//
// # Scenario Format
//
//	name: plastic_site_a
//	description: "Create, recycle, verify and delete one entry"
//	owner: alice
//	ids: [e-1]
//	clock: { start: 1000, step: 100 }
//	steps:
//	  - op: create
//	    args: { wasteType: plastic, quantity: 100, location: siteA }
//	    expect:
//	      result: { quantity: 100 }
//	  - op: recycle
//	    id: e-1
//	    args: { recycledQuantity: 70 }
//	    expect:
//	      error: OVER_RECYCLE
//	assertions:
//	  - type: event_order
//	    events: [created, deleted]
//	  - type: final_state
//	    id: e-1
//	    expect: { isVerified: true }
//
// # Operations
//
// create, get, list, update, delete, verify, list_verified, recycle, stats.
// Steps without an expect clause must succeed.
//
// # Assertion Types
//
//   - event_order: the listed change events appear in this relative order
//   - event_count: a change event type was published exactly N times
//   - final_state: the stored entry matches the expected fields (subset)
//   - absent: no entry is stored under the id
//   - entry_count: the store holds exactly N entries
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/plastic_site_a.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness

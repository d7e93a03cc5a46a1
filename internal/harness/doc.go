// Package harness provides conformance testing for endpoint rule sets.
//
// The harness loads a rules directory, sends each scenario case through the
// compiled endpoint and checks the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: create_user
//	description: "What this scenario validates"
//	rules: ../rules
//	endpoint: createUser
//	cases:
//	  - name: trims the name
//	    payload: { name: "  Ann " }
//	    expect:
//	      output: { n: Ann }
//	  - name: keeps email when valid
//	    payload: { name: Ann, email: ann@example.com }
//	    expect:
//	      contains: { email: ann@example.com }
//	      absent: [tags]
//	  - name: rejects a blank name
//	    payload: { name: "" }
//	    expect:
//	      error: { code: VALIDATION, message: required }
//
// Unknown fields are rejected so typos fail loudly.
//
// # Deterministic Testing
//
// Each scenario runs against a fresh in-memory run log with sequential run
// IDs and a logical clock (testutil), so snapshots are byte-identical across
// runs and can be compared with golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/users.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness

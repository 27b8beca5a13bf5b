// Package harness runs report compilation scenarios.
//
// A scenario pairs one report request with the plan it must compile to.
// Scenarios are YAML files:
//
//	name: deactivated_as_of
//	description: "Deactivated employees as of mid April"
//	now: "2024-07-01T12:00:00Z"
//	env:
//	  visible_custom_fields: [Shirt Size]
//	  bins:
//	    salary: { min: 0, max: 100, count: 5 }
//	request:
//	  domain: employees
//	  companyId: "65f000000000000000000001"
//	  asOf: "2024-04-15"
//	  filters:
//	    - - field: Activation Status
//	        type: single_select
//	        comparator: eq
//	        value: Deactivated
//	assertions:
//	  - type: stage_order
//	    stages: [$match, $sort, $group, $replaceRoot, $match]
//	  - type: pagination
//	    skip: 0
//	    limit: 50
//
// # Assertion Types
//
//   - stage_order: the pipeline's stage operators, exactly and in order
//   - contains_stage: the pipeline has at least one stage of this operator
//   - sort_keys: the final sort as "path:direction" pairs, in order
//   - pagination: skip and limit
//   - collection: the collection the plan reads
//   - pending_probes: the summary slots still waiting on bucket probes
//   - error_code: compilation fails with this report error code
//
// Compilation runs against a frozen clock, so a scenario produces the same
// plan on every run. [Summary] renders that plan for golden comparison.
package harness

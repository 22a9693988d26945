// Package harness runs workflow scenarios against a fresh engine.
//
// A scenario seeds members, projects and tasks, then drives the engine
// through a flow of operations with a fixed clock. Each step records a trace
// event; assertions check the trace and the final state.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: approval_flow
//	description: "A task moves through review to approval"
//	now: 2026-03-02T09:00:00Z
//	organization: acme
//	members:
//	  - {id: alice, name: Alice}
//	tasks:
//	  - {key: design, title: Design, time_tracking: true, budget_hours: 10}
//	flow:
//	  - as: alice
//	    transition: {task: design, to: in_progress}
//	  - log_time: {task: design, hours: 2.5}
//	  - transition: {task: design, to: approved}
//	    expect: {outcome: INVALID_TRANSITION}
//	assertions:
//	  - type: task_status
//	    task: design
//	    status: in_progress
//
// Tasks are referred to by key. Successors spawned by recurrence get the key
// of their parent with a "+next" suffix.
//
// # Flow Operations
//
// Each step sets exactly one of: transition, delegate, log_time,
// add_prerequisite, add_linked, remove_edge, update, comment, tick, advance.
// A step without expect must succeed; expect.outcome names an error code
// when the step must fail.
//
// # Assertion Types
//
//   - trace_contains: an event with the given op (and task) succeeded
//   - trace_order: ops appear in the given order
//   - trace_count: op appears exactly N times
//   - task_status: a task ends in the given status
//   - history_actions: a task's history has exactly these actions
//   - history_verifies: a task's hash chain verifies
//   - time_spent: a task's time spent equals hours
//   - project_stats: a project's roll-up has the expected values
//   - task_count: the organization holds exactly N tasks
//   - final_state: a row in a table matches expected columns
//
// # Deterministic Testing
//
// Scenarios run on an in-memory store with a fixed clock and sequential ids,
// so traces are identical across runs and can be compared to golden files
// under testdata/golden.
package harness

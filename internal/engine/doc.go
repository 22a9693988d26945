// Package engine implements the task workflow core.
//
// The engine owns every rule that spans more than one row: the status state
// machine, the prerequisite graph, the time ledger, delegation, recurrence and
// project roll-ups. It reads and writes through internal/store and never
// touches SQL directly.
//
// ARCHITECTURE:
//
// Every mutating operation is one store transaction:
//  1. Read the task inside the transaction
//  2. Validate the request against the task's current state
//  3. Write the new state guarded by the task's version
//  4. Append exactly one history entry
//
// Any error rolls the transaction back, so a failed call leaves the task in its
// pre-operation state.
//
// Collaborator calls (notifications, attachment uploads, recurrence spawning)
// happen after commit. Their failures are returned as warnings on the result
// and never fail the primary operation.
//
// Actor and organization are passed explicitly on every call as ir.Actor.
// A task belonging to another organization is reported as not found.
//
// Time comes from an injected Clock. Nothing in this package starts timers;
// recurrence catch-up is driven by calling Tick.
package engine

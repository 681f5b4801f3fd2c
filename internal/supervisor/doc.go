// Package supervisor drives a mission: it decides when to plan, runs the
// planner off the processing goroutine, installs results and sequences the
// destinations.
//
// # Why Supervisor Exists
//
// Every input of the system (pose, odometry, map fragments, cost reports,
// destinations, operator overrides) can change the answer to "which route
// should the vehicle follow". The supervisor is the single place where those
// inputs are applied and the single writer of the road network, the cost
// overlay and the goal queue. Nothing else mutates mission state.
//
// # How It Works
//
// Run selects over all input feeds, a periodic tick, a periodic cost prune
// and the planning mailbox. Each event is applied with Apply and followed by
// a Step, which:
//  1. Takes a finished planning result from the mailbox, discarding it unless
//     it answers the newest outstanding request.
//  2. Flags a stale pose.
//  3. Evaluates the state machine. Triggers are level-based: they are
//     re-checked on every step, so nothing is missed between ticks.
//
// Planning requests carry a monotonically increasing ID. A new request
// supersedes the outstanding one: the worker cancels it and any result it
// still produces is dropped. At most one request is ever outstanding.
//
// # States
//
//	WAITING_FOR_MAP -> WAITING_FOR_GOAL -> PLANNING -> FOLLOWING -> DWELL -> PLANNING ...
//	PLANNING -> PLANNING_FAILED -> PLANNING (after backoff or new data)
//	DWELL -> AWAITING_DESTINATIONS (final destination without cyclic repeat)
//	any -> AWAITING_DESTINATIONS (destinations file rejected)
package supervisor

// Package engine implements per-agent turn execution and event dispatch.
//
// Each agent runs its own goroutine and talks to the host through a Peer.
// The agent side is a Controller: it stages commands, commits them, turns
// the host's per-tick results into events, and delivers those events to the
// agent's handlers in priority order.
//
// ARCHITECTURE:
//
// Lock-step ticks:
// The host waits at a barrier until every live agent commits or its turn
// budget runs out. A tick without a commit is a skipped turn; the agent
// receives a critical SkippedTurn event and, after MaxSkippedTurns in a row,
// is removed for the round with a Death event.
//
// Event processing, once per commit:
//  1. Results for every tick since the last commit are turned into events
//     (Status first) and merged into the agent's Queue.
//  2. Stale non-critical events are pruned.
//  3. Registered Conditions are tested in registration order; each true one
//     yields a Custom event.
//  4. The dispatcher delivers events in Compare order.
//
// Interruption:
// A handler runs with its event's priority as the current top priority.
// Commits made inside the handler process events again. A pending event with
// a higher priority is delivered nested; an event at or above the top while
// the top class is interruptible abandons the running handler. Abandonment
// unwinds the handler's stack and delivery continues with the highest
// pending event.
//
// Everything a Controller owns (queue, staged commands, condition registry)
// is touched only by the agent's goroutine. The Peer is the only type shared
// with the host.
package engine

// Package event defines the notifications an agent receives about a tick.
//
// This package contains the event model only: kinds, payloads, the ordering
// rule, capability-gated dispatch and the wire encoding. The engine package
// owns queues and delivery; event imports nothing internal.
//
// Key constraints:
//   - An Event's time and priority freeze when it enters a queue.
//   - Priorities live in [0,99]; 100 (system-critical) and -1 (terminal)
//     are reserved for critical kinds and cannot be assigned.
//   - Ordering is total: time asc, priority desc, kind tiebreak, then
//     enqueue sequence.
//   - Paint, Message and Custom events never leave the process.
package event

// Package store provides the SQLite battle journal.
//
// The journal is append-only:
//   - battles: one row per battle, with its configuration and, once
//     finished, its result
//   - deliveries: every event handed to an agent handler, in delivery
//     order per agent and round
//
// # Ordering
//
// Deliveries are keyed by (battle_id, round, agent, seq) where seq is the
// agent queue's sequence number. Reads always ORDER BY round, agent, seq,
// so a journal reads back identically regardless of how the agent
// goroutines interleaved their writes.
//
// Events that cannot be serialized (Paint, Custom, Message) are not
// journaled.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

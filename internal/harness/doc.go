// Package harness runs battle scenarios for conformance testing.
//
// A scenario is a YAML file describing scripted agents, the outcomes a
// scripted physics model reports on given ticks, input to inject, and
// assertions over the resulting delivery trace. Each scenario runs a real
// battle with real controllers; only the physics is scripted. The trace
// is journaled to an in-memory store, so journal assertions read back
// what the store recorded.
//
// Traces are ordered by round, then agent, then delivery order, which
// makes them deterministic for a given scenario and suitable for golden
// file comparison (see RunWithGolden).
//
// Every run also checks the trace against the delivery invariants in
// CheckInvariants.
package harness

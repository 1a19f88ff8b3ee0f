// Package physics simulates the battlefield the engine's agents act in.
//
// Kinematic is the reference model: bodies with velocity, headings and
// energy, radar sweeps, projectiles and collisions. Scripted replays
// hand-written outcomes and records the commands it was given, for tests
// and harness scenarios.
//
// Angles are in degrees, headings clockwise from north, and y grows
// northwards.
package physics

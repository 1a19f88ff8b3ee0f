// Package config loads battle files.
//
// A battle file is YAML or CUE. Both are checked against the embedded
// #Battle schema (schema.cue) and then against the rules the schema cannot
// express: unique agent names, known event kinds, parseable durations.
// The result can be turned into battle entrants, physics spawns and
// battle options.
package config

// Package battle is the host side of the engine: it runs rounds, drives
// every agent in lock-step through its engine.Peer, and feeds commands to
// a Physics model.
//
// One host tick:
//
//  1. Wait, up to the turn budget, for every live agent to commit.
//  2. Count a skipped turn for each agent that did not; remove agents
//     that reached the skipped-turn limit.
//  3. Step the physics with the commands that arrived.
//  4. Deliver each agent its outcome plus skipped-turn, team-message and
//     input events. Agents that died are halted with a Death event.
//
// A round ends when at most one agent is left or MaxTicks is reached.
// Survivors are halted with Win, RoundEnded and, after the last round,
// BattleEnded.
package battle

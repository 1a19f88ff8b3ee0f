package engine

import (
	"errors"
	"fmt"
)

// Default limits.
const (
	// DefaultMaxSkippedTurns is the number of consecutive skipped turns that
	// removes an agent for the round.
	DefaultMaxSkippedTurns = 30

	// DefaultMaxSkippedTurnsIO applies to agents flagged as doing file I/O.
	DefaultMaxSkippedTurnsIO = 240

	// DefaultCallBudget is the number of staged calls allowed between commits.
	DefaultCallBudget = 10000
)

// SkipQuota counts consecutive skipped turns for one agent.
//
// The host calls Skip for every tick the agent failed to commit and Reset
// whenever a commit arrives. Skip returns SkippedTurnsExceededError on the
// tick the consecutive count reaches the limit, never earlier.
type SkipQuota struct {
	limit       int
	consecutive int
	total       int
}

// NewSkipQuota creates a quota that trips at limit consecutive skips.
func NewSkipQuota(limit int) *SkipQuota {
	return &SkipQuota{limit: limit}
}

// Skip records a skipped turn.
func (q *SkipQuota) Skip(agent string, tick int64) error {
	q.consecutive++
	q.total++
	if q.consecutive >= q.limit {
		return &SkippedTurnsExceededError{
			Agent: agent,
			Tick:  tick,
			Turns: q.consecutive,
			Limit: q.limit,
		}
	}
	return nil
}

// Reset clears the consecutive count after a commit.
func (q *SkipQuota) Reset() {
	q.consecutive = 0
}

func (q *SkipQuota) Consecutive() int { return q.consecutive }
func (q *SkipQuota) Total() int       { return q.total }
func (q *SkipQuota) Limit() int       { return q.limit }

// SkippedTurnsExceededError is returned when an agent reaches the
// consecutive skipped-turn limit. It is fatal to the agent for the round
// and to nothing else.
type SkippedTurnsExceededError struct {
	Agent string
	Tick  int64
	Turns int
	Limit int
}

// Error implements the error interface.
func (e *SkippedTurnsExceededError) Error() string {
	return fmt.Sprintf("agent %s skipped %d consecutive turns at tick %d (limit %d)",
		e.Agent, e.Turns, e.Tick, e.Limit)
}

// IsSkippedTurnsExceeded returns true if the error is a
// SkippedTurnsExceededError. Uses errors.As to handle wrapped errors.
func IsSkippedTurnsExceeded(err error) bool {
	var se *SkippedTurnsExceededError
	return errors.As(err, &se)
}

// callBudget limits staged calls between commits.
type callBudget struct {
	limit int
	used  int
}

func (b *callBudget) use() (int, bool) {
	b.used++
	return b.used, b.limit <= 0 || b.used <= b.limit
}

func (b *callBudget) reset() { b.used = 0 }

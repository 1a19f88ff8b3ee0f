package engine

import (
	"time"

	"github.com/roach88/arena/internal/event"
)

// DeliveryPolicy decides whether a non-critical event is still worth
// delivering. Critical events bypass the policy.
//
// Begin is called at the start of every processing pass with the current
// tick. Admit returns false and a drop reason to discard an event.
type DeliveryPolicy interface {
	Begin(tick int64)
	Admit(e *event.Event) (bool, string)
}

// StalePolicy drops events that waited MaxAge ticks or more.
type StalePolicy struct {
	MaxAge int64
	tick   int64
}

// NewStalePolicy returns the default policy, aged at MaxEventStack.
func NewStalePolicy() *StalePolicy {
	return &StalePolicy{MaxAge: MaxEventStack}
}

func (p *StalePolicy) Begin(tick int64) { p.tick = tick }

func (p *StalePolicy) Admit(e *event.Event) (bool, string) {
	if e.Time() > p.tick-p.MaxAge {
		return true, ""
	}
	return false, DropStale
}

// BudgetPolicy drops events once a processing pass has run longer than
// Budget. Now defaults to time.Now.
type BudgetPolicy struct {
	Budget time.Duration
	Now    func() time.Time
	start  time.Time
}

func (p *BudgetPolicy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *BudgetPolicy) Begin(int64) { p.start = p.now() }

func (p *BudgetPolicy) Admit(*event.Event) (bool, string) {
	if p.now().Sub(p.start) > p.Budget {
		return false, DropBudget
	}
	return true, ""
}

// Policies combines policies; an event must pass all of them.
type Policies []DeliveryPolicy

func (ps Policies) Begin(tick int64) {
	for _, p := range ps {
		p.Begin(tick)
	}
}

func (ps Policies) Admit(e *event.Event) (bool, string) {
	for _, p := range ps {
		if ok, reason := p.Admit(e); !ok {
			return false, reason
		}
	}
	return true, ""
}

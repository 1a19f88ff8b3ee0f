package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingAgent struct {
	NopBasic
	NopAdvanced
	NopTeam
	seen []Kind
}

func (r *recordingAgent) OnHitWall(e *Event, _ HitWall)         { r.seen = append(r.seen, e.Kind()) }
func (r *recordingAgent) OnDeath(e *Event)                      { r.seen = append(r.seen, e.Kind()) }
func (r *recordingAgent) OnSkippedTurn(e *Event, _ SkippedTurn) { r.seen = append(r.seen, e.Kind()) }
func (r *recordingAgent) OnCustom(e *Event, _ Custom)           { r.seen = append(r.seen, e.Kind()) }
func (r *recordingAgent) OnMessage(e *Event, m Message) {
	r.seen = append(r.seen, e.Kind())
}

func TestDispatchRespectsCapabilities(t *testing.T) {
	agent := &recordingAgent{}
	basicOnly := HandlerSet{Caps: CapBasic, Basic: agent}

	assert.True(t, New(HitWall{}).Dispatch(basicOnly))
	assert.False(t, New(SkippedTurn{}).Dispatch(basicOnly), "SkippedTurn needs Advanced")
	assert.False(t, New(Custom{}).Dispatch(basicOnly), "Custom needs Advanced")
	assert.False(t, New(Message{}).Dispatch(basicOnly), "Message needs Team")
	assert.Equal(t, []Kind{KindHitWall}, agent.seen)

	agent.seen = nil
	full := HandlerSet{Caps: CapBasic | CapAdvanced | CapTeam, Basic: agent, Advanced: agent, Team: agent}
	for _, p := range []Payload{SkippedTurn{Turn: 3}, Custom{}, Message{Sender: "b"}, Death{}} {
		assert.True(t, New(p).Dispatch(full))
	}
	assert.Equal(t, []Kind{KindSkippedTurn, KindCustom, KindMessage, KindDeath}, agent.seen)
}

func TestDispatchNeedsHandlerAndBit(t *testing.T) {
	agent := &recordingAgent{}
	noHandler := HandlerSet{Caps: CapBasic | CapAdvanced, Basic: agent}
	assert.False(t, New(SkippedTurn{}).Dispatch(noHandler))

	noBit := HandlerSet{Caps: CapBasic, Basic: agent, Advanced: agent}
	assert.False(t, New(SkippedTurn{}).Dispatch(noBit))
}

func TestCapabilityString(t *testing.T) {
	assert.Equal(t, "none", Capability(0).String())
	assert.Equal(t, "basic|advanced", (CapBasic | CapAdvanced).String())
	assert.True(t, CapAll.Has(CapTeam|CapPaint))
	assert.False(t, CapBasic.Has(0))
}

package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

// defaultCaps is every handler group the scripted agent implements.
const defaultCaps = event.CapBasic | event.CapAdvanced | event.CapInteractive | event.CapTeam

func parseCapabilities(names []string) (event.Capability, error) {
	if len(names) == 0 {
		return defaultCaps, nil
	}
	var caps event.Capability
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "basic":
			caps |= event.CapBasic
		case "advanced":
			caps |= event.CapAdvanced
		case "interactive":
			caps |= event.CapInteractive
		case "team":
			caps |= event.CapTeam
		default:
			return 0, fmt.Errorf("unknown capability %q", n)
		}
	}
	return caps, nil
}

// scriptedAgent plays an AgentSpec. It implements every handler group so
// the declared capabilities alone decide what it receives.
type scriptedAgent struct {
	spec     AgentSpec
	caps     event.Capability
	handlers map[event.Kind][]Step
	rec      *traceRecorder

	ctx context.Context
	c   *engine.Controller
}

func newScriptedAgent(spec AgentSpec, rec *traceRecorder) (*scriptedAgent, error) {
	caps, err := parseCapabilities(spec.Capabilities)
	if err != nil {
		return nil, err
	}
	a := &scriptedAgent{
		spec:     spec,
		caps:     caps,
		handlers: make(map[event.Kind][]Step, len(spec.Handlers)),
		rec:      rec,
	}
	for name, steps := range spec.Handlers {
		k, err := event.ParseKind(name)
		if err != nil {
			return nil, err
		}
		a.handlers[k] = steps
	}
	return a, nil
}

func (a *scriptedAgent) Capabilities() event.Capability { return a.caps }

func (a *scriptedAgent) Run(ctx context.Context, c *engine.Controller) error {
	a.ctx, a.c = ctx, c
	return a.run(a.spec.Script)
}

func (a *scriptedAgent) run(steps []Step) error {
	for _, st := range steps {
		if err := a.step(st); err != nil {
			return fmt.Errorf("step %s: %w", st.Do, err)
		}
	}
	return nil
}

func (a *scriptedAgent) step(st Step) error {
	c := a.c
	switch st.Do {
	case StepExecute:
		n := max(st.Count, 1)
		for i := 0; i < n; i++ {
			if err := c.Execute(); err != nil {
				return err
			}
		}
		return nil
	case StepSetMove:
		return c.SetMove(st.Value)
	case StepSetTurnBody:
		return c.SetTurnBody(st.Value)
	case StepSetFire:
		return c.SetFire(st.Value)
	case StepScan:
		return c.Scan()
	case StepRescan:
		return c.Rescan()
	case StepSend:
		return c.SendMessage(st.To, []byte(st.Data))
	case StepBroadcast:
		return c.BroadcastMessage([]byte(st.Data))
	case StepDebug:
		return c.SetDebugProperty(st.Key, st.Data)
	case StepPriority:
		k, err := event.ParseKind(st.Kind)
		if err != nil {
			return err
		}
		return c.SetEventPriority(k, st.Priority)
	case StepInterruptible:
		return c.SetInterruptible(st.On)
	case StepAddCondition:
		tick := st.Tick
		opts := []engine.ConditionOption{engine.WithName(st.Name)}
		if st.Priority != 0 {
			opts = append(opts, engine.WithPriority(st.Priority))
		}
		return c.AddCustomEvent(engine.NewCondition(func() bool { return c.Time() == tick }, opts...))
	case StepWaitFor:
		tick := st.Tick
		return c.WaitFor(engine.NewCondition(func() bool { return c.Time() >= tick }))
	case StepStall:
		<-a.ctx.Done()
		return nil
	case StepNote:
		a.rec.note(c.Round(), a.spec.Name, c.Time(), st.Data)
		return nil
	}
	return fmt.Errorf("unknown step %q", st.Do)
}

// react runs the handler steps for e's kind. Failures are logged to the
// agent console; the handler keeps going.
func (a *scriptedAgent) react(e *event.Event) {
	for _, st := range a.handlers[e.Kind()] {
		if err := a.step(st); err != nil {
			a.c.Logger().Warn("handler step failed", "kind", e.Kind().String(), "step", st.Do, "error", err)
		}
	}
}

func (a *scriptedAgent) OnStatus(e *event.Event, _ event.Status)                                   { a.react(e) }
func (a *scriptedAgent) OnScannedAgent(e *event.Event, _ event.ScannedAgent)                       { a.react(e) }
func (a *scriptedAgent) OnHitWall(e *event.Event, _ event.HitWall)                                 { a.react(e) }
func (a *scriptedAgent) OnHitAgent(e *event.Event, _ event.HitAgent)                               { a.react(e) }
func (a *scriptedAgent) OnHitObstacle(e *event.Event, _ event.HitObstacle)                         { a.react(e) }
func (a *scriptedAgent) OnHitByProjectile(e *event.Event, _ event.HitByProjectile)                 { a.react(e) }
func (a *scriptedAgent) OnProjectileHit(e *event.Event, _ event.ProjectileHit)                     { a.react(e) }
func (a *scriptedAgent) OnProjectileHitProjectile(e *event.Event, _ event.ProjectileHitProjectile) { a.react(e) }
func (a *scriptedAgent) OnProjectileMissed(e *event.Event, _ event.ProjectileMissed)               { a.react(e) }
func (a *scriptedAgent) OnAgentDeath(e *event.Event, _ event.AgentDeath)                           { a.react(e) }
func (a *scriptedAgent) OnDeath(e *event.Event)                                                    { a.react(e) }
func (a *scriptedAgent) OnWin(e *event.Event)                                                      { a.react(e) }
func (a *scriptedAgent) OnRoundEnded(e *event.Event, _ event.RoundEnded)                           { a.react(e) }
func (a *scriptedAgent) OnBattleEnded(e *event.Event, _ event.BattleEnded)                         { a.react(e) }

func (a *scriptedAgent) OnCustom(e *event.Event, _ event.Custom)               { a.react(e) }
func (a *scriptedAgent) OnSkippedTurn(e *event.Event, _ event.SkippedTurn)     { a.react(e) }
func (a *scriptedAgent) OnScannedObject(e *event.Event, _ event.ScannedObject) { a.react(e) }

func (a *scriptedAgent) OnKeyPressed(e *event.Event, _ event.Key)        { a.react(e) }
func (a *scriptedAgent) OnKeyReleased(e *event.Event, _ event.Key)       { a.react(e) }
func (a *scriptedAgent) OnKeyTyped(e *event.Event, _ event.Key)          { a.react(e) }
func (a *scriptedAgent) OnMouseClicked(e *event.Event, _ event.Mouse)    { a.react(e) }
func (a *scriptedAgent) OnMouseDragged(e *event.Event, _ event.Mouse)    { a.react(e) }
func (a *scriptedAgent) OnMouseEntered(e *event.Event, _ event.Mouse)    { a.react(e) }
func (a *scriptedAgent) OnMouseExited(e *event.Event, _ event.Mouse)     { a.react(e) }
func (a *scriptedAgent) OnMouseMoved(e *event.Event, _ event.Mouse)      { a.react(e) }
func (a *scriptedAgent) OnMousePressed(e *event.Event, _ event.Mouse)    { a.react(e) }
func (a *scriptedAgent) OnMouseReleased(e *event.Event, _ event.Mouse)   { a.react(e) }
func (a *scriptedAgent) OnMouseWheelMoved(e *event.Event, _ event.Mouse) { a.react(e) }

func (a *scriptedAgent) OnMessage(e *event.Event, _ event.Message) { a.react(e) }

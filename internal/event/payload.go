package event

// Payload is the kind-specific body of an Event.
type Payload interface {
	Kind() Kind
}

// Status is the per-tick snapshot of the agent's own state. Angles are in
// degrees, headings measured clockwise from north.
type Status struct {
	Round              int     `json:"round"`
	X                  float64 `json:"x"`
	Y                  float64 `json:"y"`
	Heading            float64 `json:"heading"`
	GunHeading         float64 `json:"gun_heading"`
	RadarHeading       float64 `json:"radar_heading"`
	Velocity           float64 `json:"velocity"`
	Energy             float64 `json:"energy"`
	GunHeat            float64 `json:"gun_heat"`
	DistanceRemaining  float64 `json:"distance_remaining"`
	BodyTurnRemaining  float64 `json:"body_turn_remaining"`
	GunTurnRemaining   float64 `json:"gun_turn_remaining"`
	RadarTurnRemaining float64 `json:"radar_turn_remaining"`
	Others             int     `json:"others"`
}

// ScannedAgent reports another agent swept by the radar. Bearing is relative
// to the scanner's body heading.
type ScannedAgent struct {
	Name     string  `json:"name"`
	Energy   float64 `json:"energy"`
	Bearing  float64 `json:"bearing"`
	Distance float64 `json:"distance"`
	Heading  float64 `json:"heading"`
	Velocity float64 `json:"velocity"`
}

// ScannedObject reports a non-agent object swept by the radar.
type ScannedObject struct {
	ID       string  `json:"id"`
	Bearing  float64 `json:"bearing"`
	Distance float64 `json:"distance"`
	Heading  float64 `json:"heading"`
	Velocity float64 `json:"velocity"`
}

type HitWall struct {
	Bearing float64 `json:"bearing"`
}

// HitAgent reports a collision. AtFault is set when this agent was moving
// into the other one.
type HitAgent struct {
	Name    string  `json:"name"`
	Bearing float64 `json:"bearing"`
	Energy  float64 `json:"energy"`
	AtFault bool    `json:"at_fault"`
}

type HitObstacle struct {
	Obstacle string  `json:"obstacle"`
	Bearing  float64 `json:"bearing"`
}

// Projectile is a snapshot of a fired projectile.
type Projectile struct {
	ID      int     `json:"id"`
	Owner   string  `json:"owner"`
	Victim  string  `json:"victim,omitempty"`
	Power   float64 `json:"power"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
	Active  bool    `json:"active"`
}

type HitByProjectile struct {
	Bearing    float64    `json:"bearing"`
	Projectile Projectile `json:"projectile"`
}

type ProjectileHit struct {
	Victim       string     `json:"victim"`
	VictimEnergy float64    `json:"victim_energy"`
	Projectile   Projectile `json:"projectile"`
}

type ProjectileHitProjectile struct {
	Projectile Projectile `json:"projectile"`
	Hit        Projectile `json:"hit"`
}

type ProjectileMissed struct {
	Projectile Projectile `json:"projectile"`
}

// AgentDeath reports that another agent died.
type AgentDeath struct {
	Name string `json:"name"`
}

// CustomSource is the condition that produced a Custom event. Handlers may
// compare it against the value they registered.
type CustomSource interface {
	Name() string
	Priority() int
	Test() bool
}

type Custom struct {
	Condition CustomSource `json:"-"`
}

// Death is delivered to an agent that died or was removed.
type Death struct{}

type Win struct{}

type RoundEnded struct {
	Round      int   `json:"round"`
	Turns      int64 `json:"turns"`
	TotalTurns int64 `json:"total_turns"`
}

type BattleEnded struct {
	Aborted bool `json:"aborted"`
	Rank    int  `json:"rank"`
	Rounds  int  `json:"rounds"`
}

// SkippedTurn is raised for a tick in which the agent committed nothing.
type SkippedTurn struct {
	Turn int64 `json:"turn"`
}

// Graphics is the drawing surface handed to Paint handlers.
type Graphics interface {
	DrawLine(x1, y1, x2, y2 float64)
	DrawCircle(x, y, r float64)
	DrawText(text string, x, y float64)
}

type Paint struct {
	Graphics Graphics `json:"-"`
}

// Key carries a keyboard input.
type Key struct {
	Code      int  `json:"code"`
	Char      rune `json:"char"`
	Modifiers int  `json:"modifiers"`
}

// Mouse carries a pointer input in battlefield coordinates.
type Mouse struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Button        int     `json:"button"`
	ClickCount    int     `json:"click_count"`
	WheelRotation int     `json:"wheel_rotation"`
	Modifiers     int     `json:"modifiers"`
}

type (
	KeyPressed      struct{ Key }
	KeyReleased     struct{ Key }
	KeyTyped        struct{ Key }
	MouseClicked    struct{ Mouse }
	MouseDragged    struct{ Mouse }
	MouseEntered    struct{ Mouse }
	MouseExited     struct{ Mouse }
	MouseMoved      struct{ Mouse }
	MousePressed    struct{ Mouse }
	MouseReleased   struct{ Mouse }
	MouseWheelMoved struct{ Mouse }
)

// Message is a team message. Data is owned by the receiving agent.
type Message struct {
	Sender string `json:"sender"`
	Data   []byte `json:"data"`
}

func (Status) Kind() Kind                  { return KindStatus }
func (ScannedAgent) Kind() Kind            { return KindScannedAgent }
func (ScannedObject) Kind() Kind           { return KindScannedObject }
func (HitWall) Kind() Kind                 { return KindHitWall }
func (HitAgent) Kind() Kind                { return KindHitAgent }
func (HitObstacle) Kind() Kind             { return KindHitObstacle }
func (HitByProjectile) Kind() Kind         { return KindHitByProjectile }
func (ProjectileHit) Kind() Kind           { return KindProjectileHit }
func (ProjectileHitProjectile) Kind() Kind { return KindProjectileHitProjectile }
func (ProjectileMissed) Kind() Kind        { return KindProjectileMissed }
func (AgentDeath) Kind() Kind              { return KindAgentDeath }
func (Custom) Kind() Kind                  { return KindCustom }
func (Death) Kind() Kind                   { return KindDeath }
func (Win) Kind() Kind                     { return KindWin }
func (RoundEnded) Kind() Kind              { return KindRoundEnded }
func (BattleEnded) Kind() Kind             { return KindBattleEnded }
func (SkippedTurn) Kind() Kind             { return KindSkippedTurn }
func (Paint) Kind() Kind                   { return KindPaint }
func (KeyPressed) Kind() Kind              { return KindKeyPressed }
func (KeyReleased) Kind() Kind             { return KindKeyReleased }
func (KeyTyped) Kind() Kind                { return KindKeyTyped }
func (MouseClicked) Kind() Kind            { return KindMouseClicked }
func (MouseDragged) Kind() Kind            { return KindMouseDragged }
func (MouseEntered) Kind() Kind            { return KindMouseEntered }
func (MouseExited) Kind() Kind             { return KindMouseExited }
func (MouseMoved) Kind() Kind              { return KindMouseMoved }
func (MousePressed) Kind() Kind            { return KindMousePressed }
func (MouseReleased) Kind() Kind           { return KindMouseReleased }
func (MouseWheelMoved) Kind() Kind         { return KindMouseWheelMoved }
func (Message) Kind() Kind                 { return KindMessage }

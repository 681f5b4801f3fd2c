package feed

// Channels is an in-process hub implementing every source interface.
// Transports push into it with the Send methods; the supervisor reads from
// it. Sends block when the buffer is full so producers feel backpressure.
type Channels struct {
	poses     chan PoseEvent
	statuses  chan StatusEvent
	maps      chan MapEvent
	goals     chan GoalEvent
	costs     chan CostEvent
	overrides chan OverrideEvent
}

// NewChannels creates a hub whose channels hold up to buffer events each.
func NewChannels(buffer int) *Channels {
	if buffer < 1 {
		buffer = 1
	}
	return &Channels{
		poses:     make(chan PoseEvent, buffer),
		statuses:  make(chan StatusEvent, buffer),
		maps:      make(chan MapEvent, buffer),
		goals:     make(chan GoalEvent, buffer),
		costs:     make(chan CostEvent, buffer),
		overrides: make(chan OverrideEvent, buffer),
	}
}

func (c *Channels) Poses() <-chan PoseEvent         { return c.poses }
func (c *Channels) Statuses() <-chan StatusEvent    { return c.statuses }
func (c *Channels) MapEvents() <-chan MapEvent      { return c.maps }
func (c *Channels) GoalEvents() <-chan GoalEvent    { return c.goals }
func (c *Channels) Costs() <-chan CostEvent         { return c.costs }
func (c *Channels) Overrides() <-chan OverrideEvent { return c.overrides }
func (c *Channels) SendPose(e PoseEvent)            { c.poses <- e }
func (c *Channels) SendStatus(e StatusEvent)        { c.statuses <- e }
func (c *Channels) SendMap(e MapEvent)              { c.maps <- e }
func (c *Channels) SendGoal(e GoalEvent)            { c.goals <- e }
func (c *Channels) SendCost(e CostEvent)            { c.costs <- e }
func (c *Channels) SendOverride(e OverrideEvent)    { c.overrides <- e }

// Sources returns the hub wired into every input slot.
func (c *Channels) Sources() Sources {
	return Sources{Pose: c, Status: c, Map: c, Goals: c, Costs: c, Overrides: c}
}

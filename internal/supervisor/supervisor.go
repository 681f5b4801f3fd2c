package supervisor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/specialistvlad/globalplanner/internal/costoverlay"
	"github.com/specialistvlad/globalplanner/internal/ctxlog"
	"github.com/specialistvlad/globalplanner/internal/feed"
	"github.com/specialistvlad/globalplanner/internal/genlog"
	"github.com/specialistvlad/globalplanner/internal/geom"
	"github.com/specialistvlad/globalplanner/internal/goals"
	"github.com/specialistvlad/globalplanner/internal/planner"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
	"github.com/specialistvlad/globalplanner/internal/worker"
)

// Planner is the route generator the supervisor dispatches to.
type Planner interface {
	Generate(ctx context.Context, req planner.Request) ([]planner.CandidatePath, error)
}

// Reloader re-reads file-backed inputs on operator request. Implementations
// parse off the processing goroutine and feed the result back as events.
type Reloader interface {
	ReloadDestinations(ctx context.Context) error
	ReloadMap(ctx context.Context) error
}

// Deps are the components the supervisor owns or publishes through.
type Deps struct {
	Assembler *roadnet.Assembler
	Costs     *costoverlay.Store
	Goals     *goals.Manager
	Planner   Planner
	Sink      feed.OutputSink
	// GenLog and Reloader are optional.
	GenLog   genlog.Store
	Reloader Reloader
}

// Options tune the supervisor.
type Options struct {
	MissionID         string
	Params            planner.Params
	ReplanDistance    float64
	ReplanTime        time.Duration
	ArrivalTolerance  float64
	StalePoseTimeout  time.Duration
	FailureBackoff    time.Duration
	MinReplanInterval time.Duration
	Tick              time.Duration
	PruneInterval     time.Duration
	HMI               bool
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// DefaultOptions returns the default tuning.
func DefaultOptions() Options {
	return Options{
		Params:            planner.DefaultParams(),
		ReplanDistance:    30,
		ReplanTime:        5 * time.Second,
		ArrivalTolerance:  2,
		StalePoseTimeout:  2 * time.Second,
		FailureBackoff:    2 * time.Second,
		MinReplanInterval: time.Second,
		Tick:              100 * time.Millisecond,
		PruneInterval:     time.Second,
	}
}

// statusFreshness is how recent odometry must be to take over distance
// integration from pose displacement.
const statusFreshness = time.Second

// maxStatusGap bounds the interval integrated between two odometry samples.
const maxStatusGap = time.Second

// planBasis records the inputs a plan was computed from.
type planBasis struct {
	mapVersion  uint64
	costVersion uint64
	goalIndex   int
}

type request struct {
	id       uint64
	trigger  string
	basis    planBasis
	start    geom.Pose
	goal     geom.Pose
	issuedAt time.Time
}

// View is a read-only snapshot of the mission.
type View struct {
	State       State
	GoalIndex   int
	Generation  uint64
	Paths       []planner.CandidatePath
	LastFailure string
	Paused      bool
	PoseStale   bool
	Traveled    float64
	Outstanding uint64
	Requests    uint64
}

// Supervisor is the mission state machine.
type Supervisor struct {
	deps Deps
	opts Options
	now  func() time.Time

	mailbox   *worker.Mailbox[[]planner.CandidatePath]
	worker    *worker.Worker[planner.Request, []planner.CandidatePath]
	startOnce sync.Once
	limiter   *rate.Limiter

	mu sync.RWMutex

	state       State
	lastFailure string
	paused      bool

	pose       geom.Pose
	havePose   bool
	poseStale  bool
	lastPoseAt time.Time

	haveStatus      bool
	lastStatusAt    time.Time
	lastStatusStamp time.Time
	traveled        float64

	requestSeq  uint64
	outstanding *request
	lastPlanAt  time.Time
	generation  uint64
	paths       []planner.CandidatePath
	planned     planBasis

	failedAt    time.Time
	failedBasis planBasis
	dwellUntil  time.Time

	lastStatus *feed.MissionStatus
}

// New creates a supervisor in WAITING_FOR_MAP.
func New(deps Deps, opts Options) *Supervisor {
	def := DefaultOptions()
	if opts.ReplanDistance <= 0 {
		opts.ReplanDistance = def.ReplanDistance
	}
	if opts.ReplanTime <= 0 {
		opts.ReplanTime = def.ReplanTime
	}
	if opts.ArrivalTolerance <= 0 {
		opts.ArrivalTolerance = def.ArrivalTolerance
	}
	if opts.StalePoseTimeout <= 0 {
		opts.StalePoseTimeout = def.StalePoseTimeout
	}
	if opts.FailureBackoff <= 0 {
		opts.FailureBackoff = def.FailureBackoff
	}
	if opts.Tick <= 0 {
		opts.Tick = def.Tick
	}
	if opts.PruneInterval <= 0 {
		opts.PruneInterval = def.PruneInterval
	}
	limit := rate.Inf
	if opts.MinReplanInterval > 0 {
		limit = rate.Every(opts.MinReplanInterval)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Supervisor{
		deps:    deps,
		opts:    opts,
		now:     now,
		mailbox: worker.NewMailbox[[]planner.CandidatePath](),
		limiter: rate.NewLimiter(limit, 1),
		state:   StateWaitingForMap,
	}
	s.worker = worker.New[planner.Request, []planner.CandidatePath](deps.Planner.Generate, s.mailbox)
	return s
}

// Start launches the planning worker. It is idempotent; Run calls it.
func (s *Supervisor) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.worker.Run(ctxlog.WithComponent(ctx, "planner-worker"))
	})
}

// Run processes events until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context, src feed.Sources) error {
	ctx = ctxlog.WithComponent(ctx, "supervisor")
	logger := ctxlog.FromContext(ctx)
	logger.Info("🧭 Mission supervisor started.", "mission", s.opts.MissionID)
	s.Start(ctx)

	var (
		poses     <-chan feed.PoseEvent
		statuses  <-chan feed.StatusEvent
		maps      <-chan feed.MapEvent
		goalEvs   <-chan feed.GoalEvent
		costs     <-chan feed.CostEvent
		overrides <-chan feed.OverrideEvent
	)
	if src.Pose != nil {
		poses = src.Pose.Poses()
	}
	if src.Status != nil {
		statuses = src.Status.Statuses()
	}
	if src.Map != nil {
		maps = src.Map.MapEvents()
	}
	if src.Goals != nil {
		goalEvs = src.Goals.GoalEvents()
	}
	if src.Costs != nil {
		costs = src.Costs.Costs()
	}
	if src.Overrides != nil {
		overrides = src.Overrides.Overrides()
	}

	tick := time.NewTicker(s.opts.Tick)
	defer tick.Stop()
	prune := time.NewTicker(s.opts.PruneInterval)
	defer prune.Stop()

	s.Step(ctx)
	for {
		select {
		case <-ctx.Done():
			s.worker.Cancel()
			logger.Info("Mission supervisor stopped.")
			return nil
		case ev, ok := <-poses:
			if !ok {
				poses = nil
				continue
			}
			s.Apply(ctx, ev)
		case ev, ok := <-statuses:
			if !ok {
				statuses = nil
				continue
			}
			s.Apply(ctx, ev)
		case ev, ok := <-maps:
			if !ok {
				maps = nil
				continue
			}
			s.Apply(ctx, ev)
		case ev, ok := <-goalEvs:
			if !ok {
				goalEvs = nil
				continue
			}
			s.Apply(ctx, ev)
		case ev, ok := <-costs:
			if !ok {
				costs = nil
				continue
			}
			s.Apply(ctx, ev)
		case ev, ok := <-overrides:
			if !ok {
				overrides = nil
				continue
			}
			s.Apply(ctx, ev)
		case <-s.mailbox.Ready():
		case <-tick.C:
		case <-prune.C:
			s.Prune(ctx)
		}
		s.Step(ctx)
	}
}

// Snapshot returns the current mission view.
func (s *Supervisor) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := View{
		State:       s.state,
		GoalIndex:   s.deps.Goals.Index(),
		Generation:  s.generation,
		Paths:       s.paths,
		LastFailure: s.lastFailure,
		Paused:      s.paused,
		PoseStale:   s.poseStale,
		Traveled:    s.traveled,
		Requests:    s.requestSeq,
	}
	if s.outstanding != nil {
		v.Outstanding = s.outstanding.id
	}
	return v
}

// Status returns the externally published status.
func (s *Supervisor) Status() feed.MissionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked(s.now())
}

func (s *Supervisor) statusLocked(now time.Time) feed.MissionStatus {
	return feed.MissionStatus{
		MissionID:    s.opts.MissionID,
		State:        s.state.String(),
		GoalIndex:    s.deps.Goals.Index(),
		Destinations: len(s.deps.Goals.Destinations()),
		Generation:   s.generation,
		LastFailure:  s.lastFailure,
		Paused:       s.paused,
		PoseStale:    s.poseStale,
		MapUsable:    s.deps.Assembler.Usable(),
		Stamp:        now,
	}
}

// Package matching ranks eligible pilots and drones for a single mission.
// Each mission is ranked independently; no joint optimisation is attempted.
package matching

import (
	"sort"
	"time"

	"github.com/kilianp07/droneops/core/eligibility"
	"github.com/kilianp07/droneops/core/logger"
	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/core/scoring"
)

// DefaultMaxRejections bounds the diagnostics returned with a result.
const DefaultMaxRejections = 5

// Candidate is an eligible resource with its score.
type Candidate struct {
	ResourceID    string             `json:"resource_id"`
	Name          string             `json:"name"`
	Kind          model.ResourceKind `json:"-"`
	Score         scoring.Breakdown  `json:"score"`
	EstimatedCost float64            `json:"estimated_cost"`
	LocationMatch bool               `json:"location_match"`
}

// Rejection explains why a resource was filtered out.
type Rejection struct {
	ResourceID string               `json:"resource_id"`
	Failed     []eligibility.Result `json:"failed"`
	Reason     string               `json:"reason"`
}

// Result is the ranked candidate list for one mission. An empty Candidates
// slice means no resource qualified; Rejections then explains why.
type Result struct {
	MissionID  string             `json:"mission_id"`
	Kind       model.ResourceKind `json:"-"`
	Candidates []Candidate        `json:"candidates"`
	Rejections []Rejection        `json:"rejections,omitempty"`
}

// Empty reports whether no resource qualified.
func (r Result) Empty() bool { return len(r.Candidates) == 0 }

// Top returns the best candidate, if any.
func (r Result) Top() (Candidate, bool) {
	if r.Empty() {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

// Option tunes a single match call.
type Option func(*options)

type options struct {
	exclude  map[string]struct{}
	bookings []model.Mission
}

// Exclude drops the given resource ids before evaluation.
func Exclude(ids ...string) Option {
	return func(o *options) {
		for _, id := range ids {
			if id != "" {
				o.exclude[id] = struct{}{}
			}
		}
	}
}

// WithBookings enables the booking gate against the given mission set.
func WithBookings(missions []model.Mission) Option {
	return func(o *options) {
		o.bookings = missions
		if o.bookings == nil {
			o.bookings = []model.Mission{}
		}
	}
}

// Engine filters, scores and ranks resources.
type Engine struct {
	scorer        scoring.Scorer
	maxRejections int
	log           logger.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxRejections sets how many rejected resources are reported.
func WithMaxRejections(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRejections = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine returns an engine using scorer.
func NewEngine(scorer scoring.Scorer, opts ...EngineOption) *Engine {
	e := &Engine{scorer: scorer, maxRejections: DefaultMaxRejections, log: logger.NopLogger{}}
	for _, o := range opts {
		o(e)
	}
	return e
}

type evaluated struct {
	report eligibility.Report
	cand   Candidate
}

// MatchPilots ranks the pool of pilots for m.
func (e *Engine) MatchPilots(m model.Mission, pool []model.Pilot, opts ...Option) Result {
	start := time.Now()
	o := buildOptions(opts)
	var evals []evaluated
	for _, p := range pool {
		if _, skip := o.exclude[p.ID]; skip {
			continue
		}
		rep := eligibility.CheckPilot(p, m, o.bookings)
		ev := evaluated{report: rep}
		if rep.Passed() {
			ev.cand = Candidate{
				ResourceID:    p.ID,
				Name:          p.Name,
				Kind:          model.KindPilot,
				Score:         e.scorer.Pilot(p, m),
				EstimatedCost: rep.Cost,
				LocationMatch: rep.LocationMatch(),
			}
		}
		evals = append(evals, ev)
	}
	res := e.rank(m.ID, model.KindPilot, evals)
	e.observe(res, time.Since(start))
	return res
}

// MatchDrones ranks the pool of drones for m. Weather coverage is a hard gate.
func (e *Engine) MatchDrones(m model.Mission, pool []model.Drone, opts ...Option) Result {
	start := time.Now()
	o := buildOptions(opts)
	var evals []evaluated
	for _, d := range pool {
		if _, skip := o.exclude[d.ID]; skip {
			continue
		}
		rep := eligibility.CheckDrone(d, m, o.bookings)
		ev := evaluated{report: rep}
		if rep.Passed() {
			ev.cand = Candidate{
				ResourceID:    d.ID,
				Name:          d.Model,
				Kind:          model.KindDrone,
				Score:         e.scorer.Drone(d, m),
				EstimatedCost: rep.Cost,
				LocationMatch: rep.LocationMatch(),
			}
		}
		evals = append(evals, ev)
	}
	res := e.rank(m.ID, model.KindDrone, evals)
	e.observe(res, time.Since(start))
	return res
}

func buildOptions(opts []Option) options {
	o := options{exclude: map[string]struct{}{}}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func (e *Engine) rank(missionID string, kind model.ResourceKind, evals []evaluated) Result {
	res := Result{MissionID: missionID, Kind: kind, Candidates: []Candidate{}}
	var rejected []eligibility.Report
	for _, ev := range evals {
		if ev.report.Passed() {
			res.Candidates = append(res.Candidates, ev.cand)
		} else {
			rejected = append(rejected, ev.report)
		}
	}
	sort.SliceStable(res.Candidates, func(i, j int) bool {
		a, b := res.Candidates[i], res.Candidates[j]
		if a.Score.Total != b.Score.Total {
			return a.Score.Total > b.Score.Total
		}
		if a.EstimatedCost != b.EstimatedCost {
			return a.EstimatedCost < b.EstimatedCost
		}
		return a.ResourceID < b.ResourceID
	})

	// closest to passing first
	sort.SliceStable(rejected, func(i, j int) bool {
		fi, fj := len(rejected[i].Failures()), len(rejected[j].Failures())
		if fi != fj {
			return fi < fj
		}
		return rejected[i].ResourceID < rejected[j].ResourceID
	})
	if len(rejected) > e.maxRejections {
		rejected = rejected[:e.maxRejections]
	}
	for _, r := range rejected {
		res.Rejections = append(res.Rejections, Rejection{
			ResourceID: r.ResourceID,
			Failed:     r.Failures(),
			Reason:     r.Reason(),
		})
	}
	if res.Empty() {
		e.log.Infof("matching: no %s qualifies for mission %s (%d rejected)", kind, missionID, len(rejected))
	} else {
		e.log.Debugw("matching: ranked candidates", map[string]any{
			"mission":    missionID,
			"kind":       kind.String(),
			"candidates": len(res.Candidates),
			"top":        res.Candidates[0].ResourceID,
		})
	}
	return res
}

func (e *Engine) observe(res Result, d time.Duration) {
	kind := res.Kind.String()
	matchLatency.WithLabelValues(kind).Observe(d.Seconds())
	candidatesReturned.WithLabelValues(kind).Add(float64(len(res.Candidates)))
	if res.Empty() {
		emptyMatches.WithLabelValues(kind).Inc()
	}
}

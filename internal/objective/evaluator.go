package objective

import (
	"github.com/robolab-sim/engine/internal/geo"

	"gonum.org/v1/gonum/spatial/r3"
)

// Completion reports one objective reaching its threshold.
type Completion struct {
	ObjectiveID string
	Progress    float64
}

// Result is what an Update or MarkCompleted call produced. Completed is in
// criterion order; ChallengeCompleted is true on exactly one call per load.
type Result struct {
	ChallengeID        string
	Completed          []Completion
	ChallengeCompleted bool
}

// Empty reports whether nothing completed.
func (r Result) Empty() bool {
	return len(r.Completed) == 0 && !r.ChallengeCompleted
}

type tracker struct {
	criterion Criterion
	progress  float64
	done      bool
}

// Evaluator accumulates signed progress for the objectives of one loaded
// challenge. It is not safe for concurrent use.
type Evaluator struct {
	challengeID string
	trackers    []*tracker
	byID        map[string]*tracker
	finished    bool
}

// NewEvaluator returns an evaluator with no challenge loaded.
func NewEvaluator() *Evaluator {
	return &Evaluator{byID: make(map[string]*tracker)}
}

// Load replaces the tracked criteria and resets all progress. Duplicate
// objective ids keep the first criterion.
func (e *Evaluator) Load(challengeID string, criteria []Criterion) {
	e.challengeID = challengeID
	e.trackers = make([]*tracker, 0, len(criteria))
	e.byID = make(map[string]*tracker, len(criteria))
	e.finished = false
	for _, c := range criteria {
		if _, dup := e.byID[c.ObjectiveID]; dup {
			continue
		}
		t := &tracker{criterion: c}
		e.trackers = append(e.trackers, t)
		e.byID[c.ObjectiveID] = t
	}
}

// Reset zeroes progress and completion for the loaded criteria.
func (e *Evaluator) Reset() {
	e.Load(e.challengeID, e.Criteria())
}

// ChallengeID is the id passed to the last Load.
func (e *Evaluator) ChallengeID() string {
	return e.challengeID
}

// Criteria returns the loaded criteria in order.
func (e *Evaluator) Criteria() []Criterion {
	out := make([]Criterion, len(e.trackers))
	for i, t := range e.trackers {
		out[i] = t.criterion
	}
	return out
}

// Update feeds one tick of committed motion. delta is the position change
// and yawDelta the unwrapped rotation in radians.
func (e *Evaluator) Update(delta r3.Vec, yawDelta float64) Result {
	res := Result{ChallengeID: e.challengeID}
	dyawDeg := geo.RadToDeg(yawDelta)
	for _, t := range e.trackers {
		if t.done {
			continue
		}
		t.progress += t.criterion.contribution(delta.X, delta.Z, dyawDeg)
		if t.criterion.Kind != KindNone && t.progress >= t.criterion.Threshold {
			t.done = true
			res.Completed = append(res.Completed, Completion{ObjectiveID: t.criterion.ObjectiveID, Progress: t.progress})
		}
	}
	res.ChallengeCompleted = e.checkFinished()
	return res
}

// MarkCompleted finishes an objective regardless of its criterion. It
// returns false when the id is unknown or already complete.
func (e *Evaluator) MarkCompleted(objectiveID string) (Result, bool) {
	res := Result{ChallengeID: e.challengeID}
	t, ok := e.byID[objectiveID]
	if !ok || t.done {
		return res, false
	}
	t.done = true
	res.Completed = []Completion{{ObjectiveID: objectiveID, Progress: t.progress}}
	res.ChallengeCompleted = e.checkFinished()
	return res, true
}

func (e *Evaluator) checkFinished() bool {
	if e.finished || len(e.trackers) == 0 {
		return false
	}
	for _, t := range e.trackers {
		if !t.done {
			return false
		}
	}
	e.finished = true
	return true
}

// Progress returns the accumulated magnitude for an objective.
func (e *Evaluator) Progress(objectiveID string) float64 {
	if t, ok := e.byID[objectiveID]; ok {
		return t.progress
	}
	return 0
}

// Completed reports whether an objective has completed.
func (e *Evaluator) Completed(objectiveID string) bool {
	t, ok := e.byID[objectiveID]
	return ok && t.done
}

// CompletedIDs lists completed objectives in criterion order.
func (e *Evaluator) CompletedIDs() []string {
	var ids []string
	for _, t := range e.trackers {
		if t.done {
			ids = append(ids, t.criterion.ObjectiveID)
		}
	}
	return ids
}

// Finished reports whether every objective of the loaded challenge is complete.
func (e *Evaluator) Finished() bool {
	return e.finished
}

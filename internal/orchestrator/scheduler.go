package orchestrator

import (
	"container/heap"
	"math/rand"
	"sort"
	"sync"

	"github.com/tobiasfw/sagan/internal/orchestrator/policy"
	"github.com/tobiasfw/sagan/pkg/models"
)

// Priority formula weights. The category, urgency, interest, and
// external-judgment terms always sum to at most 1 before jitter; the
// final score is clamped to [0, 1] regardless.
const (
	categoryWeight = 0.3
	urgencyWeight  = 0.3
	interestWeight = 0.2
	judgmentWeight = 0.2

	// judgmentBonus is the fixed bonus applied when an external
	// recommendation names the candidate's category.
	judgmentBonus = 0.3
)

// categoryWeights is the fixed category preference lookup.
var categoryWeights = map[models.TaskCategory]float64{
	models.CategoryCompleteWork: 0.9,
	models.CategoryAdvanceItem:  0.7,
	models.CategoryPipelineFill: 0.6,
	models.CategoryMaintenance:  0.3,
}

// Scheduler assigns a bounded priority to each task candidate and
// returns a total order. Given the same candidate list and jitter seed
// the ranking is reproducible: ties keep insertion order.
type Scheduler struct {
	// policy holds the jitter bound and candidate cap.
	policy *policy.Config
	// rng produces tie-breaking jitter. Seeded, so runs are reproducible.
	rng *rand.Rand
	// recommended is the externally recommended category, if any.
	recommended models.TaskCategory
	// mu protects rng and recommended.
	mu sync.Mutex
}

// NewScheduler creates a Scheduler with the given policy and jitter seed.
func NewScheduler(p *policy.Config, seed int64) *Scheduler {
	if p == nil {
		p = policy.Default()
	}
	return &Scheduler{
		policy: p,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// SetRecommendedCategory records an external recommendation. Candidates
// in the matching category receive the fixed judgment bonus. An empty
// category clears the recommendation.
func (s *Scheduler) SetRecommendedCategory(cat models.TaskCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recommended = cat
}

// Score computes the candidate's priority in [0, 1]:
// 0.3*category + 0.3*urgency + 0.2*interest + 0.2*judgment + jitter.
// Interest rescales net upvotes from an assumed [-5, +5] range.
func (s *Scheduler) Score(c *models.TaskCandidate) float64 {
	s.mu.Lock()
	recommended := s.recommended
	jitter := s.rng.Float64() * s.policy.Scheduler.JitterBound
	s.mu.Unlock()

	score := categoryWeight * categoryWeights[c.Category]
	score += urgencyWeight * clamp01(c.Urgency)
	score += interestWeight * normalizeInterest(c.Interest)
	if recommended != "" && c.Category == recommended {
		score += judgmentWeight * judgmentBonus
	}
	score += jitter

	return clamp01(score)
}

// normalizeInterest rescales net upvotes from [-5, +5] into [0, 1],
// clamping values outside the assumed range.
func normalizeInterest(net int) float64 {
	return clamp01((float64(net) + 5) / 10)
}

// Rank assigns priorities and returns candidates in descending priority
// order, capped at the policy's candidate limit. The cap is enforced
// with a min-heap so a superlinear candidate pool never gets fully
// sorted: low scorers fall out as soon as they are beaten.
func (s *Scheduler) Rank(candidates []*models.TaskCandidate) []*models.TaskCandidate {
	limit := s.policy.Scheduler.CandidateCap

	h := &candidateHeap{}
	heap.Init(h)
	for i, c := range candidates {
		c.Priority = s.Score(c)
		heap.Push(h, rankedCandidate{candidate: c, order: i})
		if h.Len() > limit {
			dropped := heap.Pop(h).(rankedCandidate)
			debugLog("[scheduler] dropped candidate %s (%s) at priority %.3f: over cap %d", dropped.candidate.ID, dropped.candidate.Type, dropped.candidate.Priority, limit)
		}
	}

	kept := make([]rankedCandidate, 0, h.Len())
	for h.Len() > 0 {
		kept = append(kept, heap.Pop(h).(rankedCandidate))
	}

	// Descending by priority; insertion order breaks ties so a fixed
	// candidate list and seed always rank identically.
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].candidate.Priority != kept[j].candidate.Priority {
			return kept[i].candidate.Priority > kept[j].candidate.Priority
		}
		return kept[i].order < kept[j].order
	})

	out := make([]*models.TaskCandidate, len(kept))
	for i, rc := range kept {
		out[i] = rc.candidate
	}
	debugLog("[scheduler] ranked %d of %d candidates", len(out), len(candidates))
	return out
}

// rankedCandidate pairs a candidate with its insertion order for
// deterministic tie-breaking.
type rankedCandidate struct {
	candidate *models.TaskCandidate
	order     int
}

// candidateHeap is a min-heap by priority. The lowest-priority
// candidate sits at the root so it can be evicted cheaply when the heap
// exceeds the cap. Ties evict the later insertion first, preserving the
// stable-order guarantee for kept candidates.
type candidateHeap []rankedCandidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].candidate.Priority != h[j].candidate.Priority {
		return h[i].candidate.Priority < h[j].candidate.Priority
	}
	return h[i].order > h[j].order
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x interface{}) {
	*h = append(*h, x.(rankedCandidate))
}

func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

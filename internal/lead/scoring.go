// AngelaMos | 2026
// scoring.go

package lead

import (
	"math"
	"sort"
	"time"
)

const (
	minScore = 0
	maxScore = 100
)

// Scorer derives a lead score from its activity trail. The result depends
// only on the trail and the configured weights.
type Scorer struct {
	weights  map[string]float64
	halfLife time.Duration
}

func NewScorer(weights map[string]float64, halfLife time.Duration) *Scorer {
	w := make(map[string]float64, len(weights))
	for k, v := range weights {
		w[k] = math.Max(0, v)
	}
	return &Scorer{weights: w, halfLife: halfLife}
}

// Weight looks up "type:outcome" first and falls back to "type".
func (s *Scorer) Weight(activityType, outcome string) float64 {
	if outcome != "" {
		if w, ok := s.weights[activityType+":"+outcome]; ok {
			return w
		}
	}
	return s.weights[activityType]
}

// Score sums each activity's weight halved once per half-life of age. Age
// is measured from the newest activity in the trail, not the wall clock, so
// rescoring an unchanged trail always yields the same value.
func (s *Scorer) Score(trail []Activity) int {
	if len(trail) == 0 {
		return minScore
	}

	ordered := make([]Activity, len(trail))
	copy(ordered, trail)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].OccurredAt.Equal(ordered[j].OccurredAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].OccurredAt.Before(ordered[j].OccurredAt)
	})

	newest := ordered[len(ordered)-1].OccurredAt

	var total float64
	for _, a := range ordered {
		total += s.Weight(a.Type, a.Outcome) * s.decay(newest.Sub(a.OccurredAt))
	}

	return clamp(int(math.Round(total)))
}

func (s *Scorer) decay(age time.Duration) float64 {
	if age <= 0 || s.halfLife <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/float64(s.halfLife))
}

func clamp(score int) int {
	switch {
	case score < minScore:
		return minScore
	case score > maxScore:
		return maxScore
	}
	return score
}

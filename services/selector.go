package services

import (
	"math/rand"
	"sort"
	"time"

	"github.com/pricescrub/pricescrub-api/models"
)

// ============================================================================
// CANDIDATE SELECTOR
// Bounds the set sent to the (costly, rate-limited) enrichment stage. This is
// a cost-control heuristic, not a ranking guarantee: the AI stage and the
// decision engine do the real quality judgment.
// ============================================================================

type CandidateSelector struct {
	Budget int
	rnd    *rand.Rand
}

// NewCandidateSelector builds a selector. Pass a rand.Source to make the
// random-fill pool reproducible in tests; nil seeds from the clock.
func NewCandidateSelector(budget int, src rand.Source) *CandidateSelector {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &CandidateSelector{Budget: budget, rnd: rand.New(src)}
}

// Select keeps only strictly-positive-priced listings and, when they exceed
// the budget, downselects: the top 60% of the budget by discount below the
// median (clamped to [0, 0.85]), the bottom-priced 25%, and a random sample
// of the rest, deduplicated by id. Within budget the priced set passes
// through unchanged.
func (s *CandidateSelector) Select(listings []models.Offer) []models.Offer {
	priced := make([]models.Offer, 0, len(listings))
	for _, l := range listings {
		if l.Price != nil && *l.Price > 0 {
			priced = append(priced, l)
		}
	}

	if len(priced) <= s.Budget {
		return priced
	}

	prices := make([]float64, len(priced))
	for i, l := range priced {
		prices[i] = *l.Price
	}
	sort.Float64s(prices)

	mid := len(prices) / 2
	var median float64
	if len(prices)%2 == 0 {
		median = (prices[mid-1] + prices[mid]) / 2
	} else {
		median = prices[mid]
	}

	score := func(p float64) float64 {
		if median <= 0 {
			return 0
		}
		disc := (median - p) / median
		if disc < 0 {
			return 0
		}
		if disc > 0.85 {
			return 0.85
		}
		return disc
	}

	scored := append([]models.Offer(nil), priced...)
	sort.SliceStable(scored, func(i, j int) bool {
		return score(*scored[i].Price) > score(*scored[j].Price)
	})

	undervaluedN := s.Budget * 60 / 100
	cheapestN := s.Budget * 25 / 100

	topUndervalued := scored[:undervaluedN]

	cheapest := append([]models.Offer(nil), priced...)
	sort.SliceStable(cheapest, func(i, j int) bool {
		return *cheapest[i].Price < *cheapest[j].Price
	})
	cheapest = cheapest[:cheapestN]

	taken := make(map[string]bool, s.Budget)
	out := make([]models.Offer, 0, s.Budget)
	add := func(pool []models.Offer, limit int) {
		for _, l := range pool {
			if limit >= 0 && len(out) >= limit {
				return
			}
			if taken[l.ID] {
				continue
			}
			taken[l.ID] = true
			out = append(out, l)
		}
	}

	add(topUndervalued, -1)
	add(cheapest, -1)

	var remaining []models.Offer
	for _, l := range priced {
		if !taken[l.ID] {
			remaining = append(remaining, l)
		}
	}
	s.rnd.Shuffle(len(remaining), func(i, j int) {
		remaining[i], remaining[j] = remaining[j], remaining[i]
	})
	add(remaining, s.Budget)

	return out
}

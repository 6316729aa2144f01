package services

import (
	"sort"
	"strings"

	"github.com/pricescrub/pricescrub-api/models"
)

// ============================================================================
// STATISTICS ENGINE
// Price distribution summaries over three partitions of the listing set —
// overall, by source, by normalized product title — plus a per-listing
// discount percentage against the applicable group median.
// ============================================================================

type StatsService struct{}

func NewStatsService() *StatsService { return &StatsService{} }

// NormalizeProductKey lower-cases and collapses whitespace so that repeated
// runs over the same titles always produce identical groupings.
func NormalizeProductKey(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// ComputePriceStats returns min/max/mean/median over values, all nil when the
// set is empty. Median uses the average-of-two-middles rule for even sizes.
func (s *StatsService) ComputePriceStats(values []float64) models.PriceStats {
	if len(values) == 0 {
		return models.PriceStats{}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	mid := len(sorted) / 2
	var median float64
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	return models.PriceStats{
		Min:     models.Float(sorted[0]),
		Max:     models.Float(sorted[len(sorted)-1]),
		Average: models.Float(sum / float64(len(sorted))),
		Median:  models.Float(median),
	}
}

// TrimmedMean drops the lowest and highest frac of the sorted values before
// averaging, to blunt outlier sensitivity in small title-level groups.
// Returns nil when trimming leaves nothing.
func (s *StatsService) TrimmedMean(values []float64, frac float64) *float64 {
	if len(values) == 0 {
		return nil
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	cut := int(float64(len(sorted)) * frac)
	trimmed := sorted[cut : len(sorted)-cut]
	if len(trimmed) == 0 {
		return nil
	}

	var sum float64
	for _, v := range trimmed {
		sum += v
	}
	return models.Float(sum / float64(len(trimmed)))
}

// Analyze computes the three-partition breakdown and a per-listing MarketStats
// overlay keyed by offer id. The product-level median is the preferred
// discount baseline; the source-level median is the fallback when a listing
// has no priced product peer group of size > 1. Discounts are nil when no
// baseline exists or the baseline median is zero.
func (s *StatsService) Analyze(offers []models.Offer) (*models.PriceStatsBreakdown, map[string]models.MarketStats) {
	var overall []float64
	bySource := map[string][]float64{}
	byProduct := map[string][]float64{}

	for _, o := range offers {
		if o.Price == nil {
			continue
		}
		p := *o.Price
		overall = append(overall, p)
		bySource[o.Source] = append(bySource[o.Source], p)
		byProduct[NormalizeProductKey(o.Title)] = append(byProduct[NormalizeProductKey(o.Title)], p)
	}

	breakdown := &models.PriceStatsBreakdown{
		Overall:   s.ComputePriceStats(overall),
		BySource:  map[string]models.PriceStats{},
		ByProduct: map[string]models.PriceStats{},
	}
	for src, vals := range bySource {
		breakdown.BySource[src] = s.ComputePriceStats(vals)
	}
	for key, vals := range byProduct {
		stats := s.ComputePriceStats(vals)
		stats.TrimmedAverage = s.TrimmedMean(vals, 0.2)
		breakdown.ByProduct[key] = stats
	}

	market := make(map[string]models.MarketStats, len(offers))
	for _, o := range offers {
		ms := models.MarketStats{}

		key := NormalizeProductKey(o.Title)
		if stats, ok := breakdown.ByProduct[key]; ok {
			ms.ProductStats = &stats
		}

		if o.Price != nil {
			if len(byProduct[key]) > 1 {
				ms.DiscountPctVsProductMedian = discountPct(*o.Price, ms.ProductStats)
				ms.DiscountPctVsMedian = ms.DiscountPctVsProductMedian
			} else if srcStats, ok := breakdown.BySource[o.Source]; ok {
				ms.DiscountPctVsMedian = discountPct(*o.Price, &srcStats)
			}
		}

		market[o.ID] = ms
	}

	return breakdown, market
}

func discountPct(price float64, stats *models.PriceStats) *float64 {
	if stats == nil || stats.Median == nil || *stats.Median == 0 {
		return nil
	}
	return models.Float((*stats.Median - price) / *stats.Median * 100)
}

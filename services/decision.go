package services

import (
	"sort"

	"github.com/pricescrub/pricescrub-api/config"
	"github.com/pricescrub/pricescrub-api/models"
)

// ============================================================================
// DECISION ENGINE
// Merges enrichment onto candidates, computes final economics and applies the
// conjunctive filter chain that decides what is shown as a deal.
// ============================================================================

type DecisionService struct {
	Cfg *config.Config
}

func NewDecisionService(cfg *config.Config) *DecisionService {
	return &DecisionService{Cfg: cfg}
}

// Analyze merges AI rows and market stats onto candidates and computes fees,
// shipping, profit and ROI. Candidates with no enrichment row or a nil
// true-value estimate are dropped: they cannot be priced, so they cannot be
// judged. The AI estimate lands in AIEstimatedValue and never replaces the
// observed market stats.
func (s *DecisionService) Analyze(candidates []models.Offer, ai map[string]models.AiRow, market map[string]models.MarketStats) []models.EnrichedOffer {
	analyzed := make([]models.EnrichedOffer, 0, len(candidates))

	for _, l := range candidates {
		row, ok := ai[l.ID]
		if !ok || row.TrueMarketPrice == nil || l.Price == nil {
			continue
		}

		price := *l.Price
		trueValue := *row.TrueMarketPrice
		fees := price * s.Cfg.FeeRate
		ship := s.Cfg.ShippingEstimate
		profit := trueValue - price - fees - ship

		e := models.EnrichedOffer{
			Offer:             l,
			EstimatedFees:     models.Float(fees),
			EstimatedShipping: models.Float(ship),
			EstimatedProfit:   models.Float(profit),

			AICategory:  row.Category,
			AIBrand:     row.Brand,
			AIModel:     row.Model,
			AIVariant:   row.Variant,
			AISize:      row.Size,
			AIGender:    row.Gender,
			AICondition: row.Condition,
			AIHasBox:    row.HasBox,
			AIKey:       row.Key,
			AINotes:     row.Notes,

			AIEstimatedValue: models.Float(trueValue),
			AIPriceRangeLow:  row.PriceRangeLow,
			AIPriceRangeHigh: row.PriceRangeHigh,
			AIConfidence:     row.Confidence,

			AIMaxBuyPrice:     row.MaxBuyPrice,
			AIDemandLabel:     row.DemandLabel,
			AIDemandScore:     row.DemandScore,
			AISellTimeLabel:   row.SellTimeLabel,
			AISellTimeDaysMin: row.SellTimeDaysMin,
			AISellTimeDaysMax: row.SellTimeDaysMax,

			AIIgnore:           row.Ignore,
			AIRiskLevel:        row.RiskLevel,
			AIBlockFromResults: row.BlockFromResults,
			AIWarnings:         row.Warnings,
			AIExplanation:      row.Explanation,
		}

		if price > 0 {
			e.ProfitMarginPct = models.Float(profit / price * 100)
		}

		if ms, ok := market[l.ID]; ok {
			e.ProductMarketStats = ms.ProductStats
			e.DiscountPctVsProductMedian = ms.DiscountPctVsProductMedian
			e.DiscountPctVsMedian = ms.DiscountPctVsMedian
		}

		analyzed = append(analyzed, e)
	}

	return analyzed
}

// FilterDeals applies the conjunctive threshold chain and sorts the survivors
// by ROI descending. Every condition only ever excludes, so loosening any
// threshold can only grow the result.
func (s *DecisionService) FilterDeals(analyzed []models.EnrichedOffer) []models.EnrichedOffer {
	deals := make([]models.EnrichedOffer, 0, len(analyzed))

	for _, l := range analyzed {
		if l.AIBlockFromResults || l.AIIgnore {
			continue
		}
		if l.AIRiskLevel != nil && *l.AIRiskLevel == "high" {
			continue
		}

		confidence := 0.0
		if l.AIConfidence != nil {
			confidence = *l.AIConfidence
		}
		if confidence < s.Cfg.MinConfidence {
			continue
		}

		trueValue := 0.0
		if l.AIEstimatedValue != nil {
			trueValue = *l.AIEstimatedValue
		}
		minProfit := s.Cfg.MinProfitHighValue
		if trueValue < s.Cfg.LowValueCutoff {
			minProfit = s.Cfg.MinProfitLowValue
		}

		if l.EstimatedProfit == nil || *l.EstimatedProfit < minProfit {
			continue
		}
		if l.ProfitMarginPct == nil || *l.ProfitMarginPct < s.Cfg.MinROIPct {
			continue
		}

		// The model's cap on what the listing is worth paying, with slack
		// that tightens to zero at high confidence.
		if l.AIMaxBuyPrice != nil && l.Price != nil {
			slack := s.Cfg.MaxBuySlack
			if confidence >= s.Cfg.HighConfidence {
				slack = 0
			}
			if *l.Price > *l.AIMaxBuyPrice+slack {
				continue
			}
		}

		deals = append(deals, l)
	}

	sortByROIDesc(deals)
	return deals
}

// SelectListings returns the deals when any exist, otherwise the top analyzed
// listings by ROI as a best-effort list so a strict filter never empties an
// otherwise successful response. The caller reports dealsCount = 0 to keep
// the two outcomes distinguishable.
func (s *DecisionService) SelectListings(analyzed, deals []models.EnrichedOffer) []models.EnrichedOffer {
	if len(deals) > 0 {
		return deals
	}

	fallback := append([]models.EnrichedOffer(nil), analyzed...)
	sortByROIDesc(fallback)
	if len(fallback) > s.Cfg.FallbackTopN {
		fallback = fallback[:s.Cfg.FallbackTopN]
	}
	return fallback
}

func sortByROIDesc(list []models.EnrichedOffer) {
	roi := func(l models.EnrichedOffer) float64 {
		if l.ProfitMarginPct == nil {
			return -999
		}
		return *l.ProfitMarginPct
	}
	sort.SliceStable(list, func(i, j int) bool {
		return roi(list[i]) > roi(list[j])
	})
}

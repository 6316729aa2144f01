package services

import (
	"math"
	"testing"

	"github.com/pricescrub/pricescrub-api/models"
)

func aiRow(id string, trueValue, confidence float64) models.AiRow {
	return models.AiRow{
		ID:              id,
		TrueMarketPrice: models.Float(trueValue),
		Confidence:      models.Float(confidence),
	}
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

// Three listings at 13% fees / $12 shipping: profits -5, -81.5 and 62.
// Only the third clears the profit and ROI thresholds.
func TestDecisionExampleScenario(t *testing.T) {
	svc := NewDecisionService(testConfig())

	candidates := []models.Offer{
		pricedOffer("fb-1", "a", "Facebook Marketplace", 100),
		pricedOffer("fb-2", "b", "Facebook Marketplace", 150),
		pricedOffer("fb-3", "c", "Facebook Marketplace", 200),
	}
	boxed := aiRow("fb-3", 300, 0.9)
	boxed.HasBox = models.Bool(true)
	ai := map[string]models.AiRow{
		"fb-1": aiRow("fb-1", 120, 0.9),
		"fb-2": aiRow("fb-2", 100, 0.9),
		"fb-3": boxed,
	}

	analyzed := svc.Analyze(candidates, ai, nil)
	if len(analyzed) != 3 {
		t.Fatalf("analyzed: got %d, want 3", len(analyzed))
	}

	wantProfits := map[string]float64{"fb-1": -5, "fb-2": -81.5, "fb-3": 62}
	for _, l := range analyzed {
		if !approx(*l.EstimatedProfit, wantProfits[l.ID]) {
			t.Errorf("%s profit: got %.2f, want %.2f", l.ID, *l.EstimatedProfit, wantProfits[l.ID])
		}
	}

	deals := svc.FilterDeals(analyzed)
	if len(deals) != 1 || deals[0].ID != "fb-3" {
		t.Fatalf("deals: got %v, want only fb-3", ids(deals))
	}
	if !approx(*deals[0].ProfitMarginPct, 31) {
		t.Errorf("fb-3 ROI: got %.2f, want 31", *deals[0].ProfitMarginPct)
	}
	if deals[0].AIHasBox == nil || !*deals[0].AIHasBox {
		t.Error("hasBox flag should carry through to the enriched listing")
	}
}

func ids(list []models.EnrichedOffer) []string {
	out := make([]string, len(list))
	for i, l := range list {
		out[i] = l.ID
	}
	return out
}

func TestAnalyzeDropsUnenriched(t *testing.T) {
	svc := NewDecisionService(testConfig())

	candidates := []models.Offer{
		pricedOffer("fb-1", "no ai row", "Facebook Marketplace", 100),
		pricedOffer("fb-2", "nil true value", "Facebook Marketplace", 100),
	}
	ai := map[string]models.AiRow{
		"fb-2": {ID: "fb-2", Confidence: models.Float(0.9)},
	}

	analyzed := svc.Analyze(candidates, ai, nil)
	if len(analyzed) != 0 {
		t.Errorf("listings without a usable true value cannot be judged, got %v", ids(analyzed))
	}
}

func TestAnalyzeKeepsAIValueSeparateFromMarketStats(t *testing.T) {
	svc := NewDecisionService(testConfig())

	productStats := models.PriceStats{Median: models.Float(500), Average: models.Float(480)}
	candidates := []models.Offer{pricedOffer("fb-1", "x", "Facebook Marketplace", 100)}
	ai := map[string]models.AiRow{"fb-1": aiRow("fb-1", 300, 0.9)}
	market := map[string]models.MarketStats{
		"fb-1": {ProductStats: &productStats},
	}

	analyzed := svc.Analyze(candidates, ai, market)
	l := analyzed[0]
	if *l.AIEstimatedValue != 300 {
		t.Errorf("AI value: got %.2f, want 300", *l.AIEstimatedValue)
	}
	if *l.ProductMarketStats.Average != 480 {
		t.Error("observed market average must never be overwritten by the AI estimate")
	}
}

func TestFilterDealsRiskAndBlockGates(t *testing.T) {
	svc := NewDecisionService(testConfig())

	base := func(id string) models.EnrichedOffer {
		return models.EnrichedOffer{
			Offer:            pricedOffer(id, "x", "eBay", 100),
			EstimatedProfit:  models.Float(60),
			ProfitMarginPct:  models.Float(60),
			AIEstimatedValue: models.Float(200),
			AIConfidence:     models.Float(0.9),
		}
	}

	blocked := base("eb-1")
	blocked.AIBlockFromResults = true
	ignored := base("eb-2")
	ignored.AIIgnore = true
	risky := base("eb-3")
	risky.AIRiskLevel = models.Str("high")
	timid := base("eb-4")
	timid.AIConfidence = models.Float(0.2)
	clean := base("eb-5")

	deals := svc.FilterDeals([]models.EnrichedOffer{blocked, ignored, risky, timid, clean})
	if len(deals) != 1 || deals[0].ID != "eb-5" {
		t.Errorf("only the clean listing should pass, got %v", ids(deals))
	}
}

func TestFilterDealsMaxBuySlack(t *testing.T) {
	svc := NewDecisionService(testConfig())

	// priced above the AI cap, but within the low-confidence slack
	withinSlack := models.EnrichedOffer{
		Offer:            pricedOffer("eb-1", "x", "eBay", 105),
		EstimatedProfit:  models.Float(60),
		ProfitMarginPct:  models.Float(57),
		AIEstimatedValue: models.Float(200),
		AIConfidence:     models.Float(0.5),
		AIMaxBuyPrice:    models.Float(100),
	}
	// same listing at high confidence: slack tightens to zero
	overCap := withinSlack
	overCap.Offer = pricedOffer("eb-2", "x", "eBay", 105)
	overCap.AIConfidence = models.Float(0.9)

	deals := svc.FilterDeals([]models.EnrichedOffer{withinSlack, overCap})
	if len(deals) != 1 || deals[0].ID != "eb-1" {
		t.Errorf("slack must tighten at high confidence, got %v", ids(deals))
	}
}

func TestFilterDealsPriceTieredMinProfit(t *testing.T) {
	svc := NewDecisionService(testConfig())

	// value below the cutoff: $15 profit clears the $10 tier
	low := models.EnrichedOffer{
		Offer:            pricedOffer("eb-1", "x", "eBay", 30),
		EstimatedProfit:  models.Float(15),
		ProfitMarginPct:  models.Float(50),
		AIEstimatedValue: models.Float(61),
		AIConfidence:     models.Float(0.9),
	}
	// value above the cutoff: $15 profit misses the $25 tier
	high := models.EnrichedOffer{
		Offer:            pricedOffer("eb-2", "x", "eBay", 100),
		EstimatedProfit:  models.Float(15),
		ProfitMarginPct:  models.Float(15),
		AIEstimatedValue: models.Float(140),
		AIConfidence:     models.Float(0.9),
	}

	deals := svc.FilterDeals([]models.EnrichedOffer{low, high})
	if len(deals) != 1 || deals[0].ID != "eb-1" {
		t.Errorf("minimum profit must follow the value tier, got %v", ids(deals))
	}
}

func TestFilterDealsMonotoneInThresholds(t *testing.T) {
	cfg := testConfig()
	strict := NewDecisionService(cfg)

	looseCfg := *cfg
	looseCfg.MinConfidence = 0.1
	looseCfg.MinROIPct = 1
	loose := NewDecisionService(&looseCfg)

	var analyzed []models.EnrichedOffer
	confs := []float64{0.2, 0.5, 0.8}
	rois := []float64{5, 20, 80}
	for i := range confs {
		analyzed = append(analyzed, models.EnrichedOffer{
			Offer:            pricedOffer(ids3(i), "x", "eBay", 100),
			EstimatedProfit:  models.Float(rois[i]),
			ProfitMarginPct:  models.Float(rois[i]),
			AIEstimatedValue: models.Float(200),
			AIConfidence:     models.Float(confs[i]),
		})
	}

	if len(loose.FilterDeals(analyzed)) < len(strict.FilterDeals(analyzed)) {
		t.Error("loosening conjunctive thresholds must never shrink the deals list")
	}
}

func ids3(i int) string {
	return []string{"eb-1", "eb-2", "eb-3"}[i]
}

func TestFilterDealsSortedByROI(t *testing.T) {
	svc := NewDecisionService(testConfig())

	mk := func(id string, roi float64) models.EnrichedOffer {
		return models.EnrichedOffer{
			Offer:            pricedOffer(id, "x", "eBay", 100),
			EstimatedProfit:  models.Float(roi),
			ProfitMarginPct:  models.Float(roi),
			AIEstimatedValue: models.Float(300),
			AIConfidence:     models.Float(0.9),
		}
	}

	deals := svc.FilterDeals([]models.EnrichedOffer{mk("eb-1", 30), mk("eb-2", 90), mk("eb-3", 60)})
	want := []string{"eb-2", "eb-3", "eb-1"}
	for i, id := range want {
		if deals[i].ID != id {
			t.Fatalf("sort order: got %v, want %v", ids(deals), want)
		}
	}
}

func TestSelectListingsFallback(t *testing.T) {
	svc := NewDecisionService(testConfig())

	analyzed := []models.EnrichedOffer{
		{
			Offer:            pricedOffer("eb-1", "x", "eBay", 100),
			EstimatedProfit:  models.Float(-5),
			ProfitMarginPct:  models.Float(-5),
			AIEstimatedValue: models.Float(120),
			AIConfidence:     models.Float(0.9),
		},
	}

	got := svc.SelectListings(analyzed, nil)
	if len(got) == 0 {
		t.Fatal("non-empty analyzed set must yield a non-empty best-effort list")
	}

	deals := []models.EnrichedOffer{analyzed[0]}
	if got := svc.SelectListings(analyzed, deals); len(got) != 1 {
		t.Error("with deals present, deals are returned as-is")
	}
}

func TestSelectListingsFallbackCapped(t *testing.T) {
	cfg := testConfig()
	cfg.FallbackTopN = 3
	svc := NewDecisionService(cfg)

	var analyzed []models.EnrichedOffer
	for i := 0; i < 10; i++ {
		analyzed = append(analyzed, models.EnrichedOffer{
			Offer:           pricedOffer(ids3(i%3)+"x", "x", "eBay", 100),
			ProfitMarginPct: models.Float(float64(i)),
		})
	}

	if got := svc.SelectListings(analyzed, nil); len(got) != 3 {
		t.Errorf("fallback must cap at FallbackTopN, got %d", len(got))
	}
}

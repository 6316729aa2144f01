package services

import (
	"testing"

	"github.com/pricescrub/pricescrub-api/models"
)

func pricedOffer(id, title, source string, price float64) models.Offer {
	return models.Offer{
		ID:     id,
		Title:  title,
		URL:    "https://example.com/" + id,
		Source: source,
		Price:  models.Float(price),
	}
}

func TestComputePriceStatsOdd(t *testing.T) {
	svc := NewStatsService()
	stats := svc.ComputePriceStats([]float64{200, 100, 150})
	if *stats.Median != 150 {
		t.Errorf("median: got %.2f, want 150", *stats.Median)
	}
	if *stats.Average != 150 {
		t.Errorf("average: got %.2f, want 150", *stats.Average)
	}
	if *stats.Min != 100 || *stats.Max != 200 {
		t.Errorf("min/max: got %.2f/%.2f, want 100/200", *stats.Min, *stats.Max)
	}
}

func TestComputePriceStatsEven(t *testing.T) {
	svc := NewStatsService()
	stats := svc.ComputePriceStats([]float64{10, 20, 30, 40})
	if *stats.Median != 25 {
		t.Errorf("even median: got %.2f, want 25", *stats.Median)
	}
	if *stats.Average != 25 {
		t.Errorf("average: got %.2f, want 25", *stats.Average)
	}
}

func TestComputePriceStatsOrdering(t *testing.T) {
	svc := NewStatsService()
	stats := svc.ComputePriceStats([]float64{7, 3, 99, 12, 5})
	if !(*stats.Min <= *stats.Median && *stats.Median <= *stats.Max) {
		t.Errorf("expected min <= median <= max, got %v <= %v <= %v",
			*stats.Min, *stats.Median, *stats.Max)
	}
}

func TestComputePriceStatsEmpty(t *testing.T) {
	svc := NewStatsService()
	stats := svc.ComputePriceStats(nil)
	if stats.Median != nil || stats.Average != nil || stats.Min != nil || stats.Max != nil {
		t.Error("empty input should yield all-nil stats")
	}
}

func TestNormalizeProductKey(t *testing.T) {
	a := NormalizeProductKey("  Nike  Air Max 90 ")
	b := NormalizeProductKey("nike air\tmax 90")
	if a != b {
		t.Errorf("normalization should be case/whitespace-insensitive: %q vs %q", a, b)
	}
	if a != "nike air max 90" {
		t.Errorf("got %q", a)
	}
}

func TestTrimmedMean(t *testing.T) {
	svc := NewStatsService()
	// 10 values, 20% trim drops the 2 lowest and 2 highest
	got := svc.TrimmedMean([]float64{1, 2, 10, 10, 10, 10, 10, 10, 500, 1000}, 0.2)
	if got == nil || *got != 10 {
		t.Fatalf("trimmed mean: got %v, want 10", got)
	}
	if svc.TrimmedMean(nil, 0.2) != nil {
		t.Error("empty input should yield nil")
	}
}

func TestAnalyzePartitions(t *testing.T) {
	svc := NewStatsService()
	offers := []models.Offer{
		pricedOffer("fb-1", "Nike Air Max 90", "Facebook Marketplace", 100),
		pricedOffer("fb-2", "nike  air max 90", "Facebook Marketplace", 200),
		pricedOffer("eb-1", "PS5 Console", "eBay", 400),
	}

	breakdown, market := svc.Analyze(offers)

	if len(breakdown.BySource) != 2 {
		t.Errorf("bySource groups: got %d, want 2", len(breakdown.BySource))
	}
	if len(breakdown.ByProduct) != 2 {
		t.Errorf("byProduct groups (normalized): got %d, want 2", len(breakdown.ByProduct))
	}
	if *breakdown.Overall.Median != 200 {
		t.Errorf("overall median: got %.2f, want 200", *breakdown.Overall.Median)
	}

	// fb-1 has a priced product peer group of size 2, median 150
	ms := market["fb-1"]
	if ms.DiscountPctVsProductMedian == nil {
		t.Fatal("fb-1 should have a product-median discount")
	}
	want := (150.0 - 100.0) / 150.0 * 100
	if *ms.DiscountPctVsProductMedian != want {
		t.Errorf("fb-1 discount: got %.4f, want %.4f", *ms.DiscountPctVsProductMedian, want)
	}
}

func TestAnalyzeSourceFallback(t *testing.T) {
	svc := NewStatsService()
	offers := []models.Offer{
		pricedOffer("eb-1", "Unique Item A", "eBay", 100),
		pricedOffer("eb-2", "Unique Item B", "eBay", 300),
	}

	_, market := svc.Analyze(offers)

	ms := market["eb-1"]
	if ms.DiscountPctVsProductMedian != nil {
		t.Error("no product peer group, product discount should be nil")
	}
	if ms.DiscountPctVsMedian == nil {
		t.Fatal("expected source-median fallback discount")
	}
	// source median 200, price 100 → 50% below
	if *ms.DiscountPctVsMedian != 50 {
		t.Errorf("source fallback discount: got %.2f, want 50", *ms.DiscountPctVsMedian)
	}
}

func TestAnalyzeZeroBaseline(t *testing.T) {
	svc := NewStatsService()
	offers := []models.Offer{
		pricedOffer("eb-1", "Free Thing", "eBay", 0),
	}

	_, market := svc.Analyze(offers)
	if market["eb-1"].DiscountPctVsMedian != nil {
		t.Error("zero baseline median must yield nil discount, not a division by zero")
	}
}

func TestAnalyzeUnpricedExcluded(t *testing.T) {
	svc := NewStatsService()
	offers := []models.Offer{
		{ID: "fb-1", Title: "No Price", Source: "Facebook Marketplace"},
	}

	breakdown, _ := svc.Analyze(offers)
	if breakdown.Overall.Median != nil {
		t.Error("group with zero priced members should yield all-nil stats")
	}
}

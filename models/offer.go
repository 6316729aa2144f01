package models

// ============================================================================
// OFFER PIPELINE SHAPES
// Offer is the canonical scraped listing. Later stages overlay fields onto it
// (MarketStats from the stats engine, AiRow from enrichment) instead of
// mutating it in place.
// ============================================================================

// PriceStats summarizes a price distribution. Every field is nil exactly when
// the input set was empty.
type PriceStats struct {
	Median  *float64 `json:"median"`
	Average *float64 `json:"average"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`

	// TrimmedAverage (20% trimmed mean) is populated only for per-product
	// groups, where a single outlier would otherwise dominate the mean.
	TrimmedAverage *float64 `json:"trimmedAverage,omitempty"`
}

// Offer is one scraped listing, canonicalized across sources.
//
// ID is `{source-prefix}-{native-id}` (fb-12345, eb-67890, rt-…) so listings
// from different sources with the same native id never collide. When the
// provider item carries no usable id a random token is used instead; offers
// are never persisted, so that is acceptable.
type Offer struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Price    *float64 `json:"price"`
	Currency *string  `json:"currency"`
	URL      string   `json:"url"`
	Source   string   `json:"source"`
	ImageURL *string  `json:"imageUrl,omitempty"`
	Location *string  `json:"location,omitempty"`

	// Raw keeps the original provider payload for debugging. It is never
	// shown to end users and never read past the ingestion boundary.
	Raw map[string]any `json:"raw,omitempty"`
}

// MarketStats is the statistics-engine overlay for one listing.
type MarketStats struct {
	ProductStats               *PriceStats
	DiscountPctVsProductMedian *float64
	DiscountPctVsMedian        *float64
}

// AiRow is one enrichment record for a listing, after the untrusted model
// output has been reconciled to a known listing id and every field has been
// type-checked. Pointer fields are nil when the model omitted the value or
// returned garbage for it.
type AiRow struct {
	ID string

	Category  *string
	Brand     *string
	Model     *string
	Variant   *string
	Size      *string
	Gender    *string
	Condition *string
	HasBox    *bool
	Key       *string
	Notes     *string

	TrueMarketPrice *float64
	PriceRangeLow   *float64
	PriceRangeHigh  *float64
	Confidence      *float64

	MaxBuyPrice *float64

	DemandLabel     *string // Low | Medium | High
	DemandScore     *float64
	SellTimeLabel   *string
	SellTimeDaysMin *float64
	SellTimeDaysMax *float64

	Ignore           bool
	RiskLevel        *string // low | medium | high
	BlockFromResults bool
	Warnings         []string
	Explanation      *string
}

// EnrichedOffer is an Offer overlaid with computed economics, market stats
// and AI judgment. This is the shape returned to the frontend.
type EnrichedOffer struct {
	Offer

	EstimatedFees     *float64 `json:"estimatedFees,omitempty"`
	EstimatedShipping *float64 `json:"estimatedShipping,omitempty"`
	EstimatedProfit   *float64 `json:"estimatedProfit,omitempty"`
	ProfitMarginPct   *float64 `json:"profitMarginPct,omitempty"`

	ProductMarketStats         *PriceStats `json:"productMarketStats,omitempty"`
	DiscountPctVsProductMedian *float64    `json:"discountPctVsProductMedian,omitempty"`
	DiscountPctVsMedian        *float64    `json:"discountPctVsMedian,omitempty"`

	AICategory  *string `json:"aiCategory,omitempty"`
	AIBrand     *string `json:"aiBrand,omitempty"`
	AIModel     *string `json:"aiModel,omitempty"`
	AIVariant   *string `json:"aiVariant,omitempty"`
	AISize      *string `json:"aiSize,omitempty"`
	AIGender    *string `json:"aiGender,omitempty"`
	AICondition *string `json:"aiCondition,omitempty"`
	AIHasBox    *bool   `json:"aiHasBox,omitempty"`
	AIKey       *string `json:"aiKey,omitempty"`
	AINotes     *string `json:"aiNotes,omitempty"`

	// AIEstimatedValue is the model's resale estimate. It is kept separate
	// from the observed market stats above and never overwrites them; the
	// decision engine chooses explicitly which one drives filtering.
	AIEstimatedValue *float64 `json:"aiEstimatedValue,omitempty"`
	AIPriceRangeLow  *float64 `json:"aiPriceRangeLow,omitempty"`
	AIPriceRangeHigh *float64 `json:"aiPriceRangeHigh,omitempty"`
	AIConfidence     *float64 `json:"aiConfidence,omitempty"`

	AIMaxBuyPrice     *float64 `json:"aiMaxBuyPrice,omitempty"`
	AIDemandLabel     *string  `json:"aiDemandLabel,omitempty"`
	AIDemandScore     *float64 `json:"aiDemandScore,omitempty"`
	AISellTimeLabel   *string  `json:"aiSellTimeLabel,omitempty"`
	AISellTimeDaysMin *float64 `json:"aiSellTimeDaysMin,omitempty"`
	AISellTimeDaysMax *float64 `json:"aiSellTimeDaysMax,omitempty"`

	AIIgnore           bool     `json:"aiIgnore"`
	AIRiskLevel        *string  `json:"aiRiskLevel,omitempty"`
	AIBlockFromResults bool     `json:"aiBlockFromResults"`
	AIWarnings         []string `json:"aiWarnings,omitempty"`
	AIExplanation      *string  `json:"aiExplanation,omitempty"`
}

// Float returns a pointer to v. Convenience for the nullable numeric fields.
func Float(v float64) *float64 { return &v }

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

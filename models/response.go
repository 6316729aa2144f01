package models

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query string `json:"query"`
	Site  string `json:"site"`
}

// PriceStatsBreakdown groups the statistics engine's three partitions.
type PriceStatsBreakdown struct {
	Overall   PriceStats            `json:"overall"`
	BySource  map[string]PriceStats `json:"bySource"`
	ByProduct map[string]PriceStats `json:"byProduct"`
}

// SearchResponse is the success body of POST /api/search.
//
// DealsCount stays present (and zero) when the deals filter matched nothing
// and Listings holds the best-effort fallback list, so the frontend can tell
// "real deals" from "closest we found".
type SearchResponse struct {
	Listings      []EnrichedOffer      `json:"listings"`
	AnalyzedCount *int                 `json:"analyzedCount,omitempty"`
	DealsCount    *int                 `json:"dealsCount,omitempty"`
	Issues        []string             `json:"issues,omitempty"`
	PriceStats    *PriceStatsBreakdown `json:"priceStats,omitempty"`
}

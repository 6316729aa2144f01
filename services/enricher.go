package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/pricescrub/pricescrub-api/config"
	"github.com/pricescrub/pricescrub-api/models"
	"github.com/pricescrub/pricescrub-api/utils"
)

// ============================================================================
// AI ENRICHMENT CLIENT
// Two logical passes over the same candidate batches: pricing/demand
// estimation and authenticity/risk judgment. They are data-independent, so
// they run concurrently; within a pass batches run sequentially unless
// ParallelAIBatches is set, since the provider may not tolerate parallel
// load. A failed batch degrades to "no enrichment" for its listings only.
// ============================================================================

// completionClient is the slice of OpenAIService the enricher needs; tests
// substitute a canned fake.
type completionClient interface {
	Configured() bool
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

type EnrichmentService struct {
	Cfg *config.Config
	AI  completionClient
}

func NewEnrichmentService(cfg *config.Config, ai completionClient) *EnrichmentService {
	return &EnrichmentService{Cfg: cfg, AI: ai}
}

// compactListing is what the model sees: display fields only, never internal
// ones. The id must be echoed back verbatim.
type compactListing struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Price    *float64 `json:"price"`
	Source   string   `json:"source"`
	Location *string  `json:"location"`
	URL      string   `json:"url"`
	ImageURL *string  `json:"imageUrl"`
}

// Enrich returns one AiRow per candidate the model produced a usable,
// reconcilable record for. The key set is always a subset of the candidate id
// set: a row whose id cannot be traced back to a candidate is discarded, never
// guessed onto an arbitrary listing. With no credential or no candidates it
// returns an empty map without any network call.
func (s *EnrichmentService) Enrich(ctx context.Context, candidates []models.Offer) map[string]models.AiRow {
	out := map[string]models.AiRow{}
	if !s.AI.Configured() || len(candidates) == 0 {
		return out
	}

	batches := chunkOffers(candidates, s.Cfg.AIBatchSize)

	var pricingRows, riskRows map[string]map[string]any
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pricingRows = s.runPass(ctx, "pricing", batches)
	}()
	go func() {
		defer wg.Done()
		riskRows = s.runPass(ctx, "risk", batches)
	}()
	wg.Wait()

	for id, row := range pricingRows {
		ai := models.AiRow{ID: id}
		applyPricingRow(row, &ai)
		out[id] = ai
	}
	for id, row := range riskRows {
		ai, ok := out[id]
		if !ok {
			ai = models.AiRow{ID: id}
		}
		applyRiskRow(row, &ai)
		out[id] = ai
	}

	return out
}

// runPass executes one prompt program over every batch and returns matched
// raw rows keyed by canonical listing id.
func (s *EnrichmentService) runPass(ctx context.Context, kind string, batches [][]models.Offer) map[string]map[string]any {
	out := map[string]map[string]any{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	process := func(batch []models.Offer) {
		rows := s.runBatch(ctx, kind, batch)
		mu.Lock()
		for id, row := range rows {
			out[id] = row
		}
		mu.Unlock()
	}

	for _, batch := range batches {
		if s.Cfg.ParallelAIBatches {
			wg.Add(1)
			go func(b []models.Offer) {
				defer wg.Done()
				process(b)
			}(batch)
		} else {
			process(batch)
		}
	}
	wg.Wait()

	return out
}

func (s *EnrichmentService) runBatch(ctx context.Context, kind string, batch []models.Offer) map[string]map[string]any {
	compact := make([]compactListing, len(batch))
	expected := make(map[string]bool, len(batch))
	for i, l := range batch {
		compact[i] = compactListing{
			ID:       l.ID,
			Title:    l.Title,
			Price:    l.Price,
			Source:   l.Source,
			Location: l.Location,
			URL:      l.URL,
			ImageURL: l.ImageURL,
		}
		expected[l.ID] = true
	}

	inputJSON, err := json.Marshal(compact)
	if err != nil {
		log.Printf("[Enricher] %s batch: failed to marshal input: %v", kind, err)
		return nil
	}

	var prompt string
	switch kind {
	case "pricing":
		prompt = s.buildPricingPrompt(string(inputJSON))
	case "risk":
		prompt = s.buildRiskPrompt(string(inputJSON))
	}

	raw, err := s.AI.CompleteJSON(ctx, systemPrompt, prompt)
	if err != nil {
		log.Printf("[Enricher] %s batch failed: %v", kind, err)
		return nil
	}

	items := utils.ExtractItemsArray(utils.SafeParseAny(raw))
	if len(items) == 0 {
		log.Printf("[Enricher] %s batch: no iterable items. Snippet: %s", kind, utils.Snippet(raw, 400))
		return nil
	}

	matched := reconcileRows(items, expected)

	log.Printf("[Enricher] %s batch: input=%d output=%d matched=%d",
		kind, len(batch), len(items), len(matched))
	if len(matched) == 0 && len(batch) > 0 {
		sample, _ := json.Marshal(items[0])
		log.Printf("[Enricher] %s batch matched=0. Sample expected: %s | Sample row: %s",
			kind, batch[0].ID, utils.Snippet(string(sample), 700))
	}

	return matched
}

const systemPrompt = "Return ONLY JSON. Must include an items array. Each item must include id copied EXACTLY from input."

func (s *EnrichmentService) buildPricingPrompt(inputJSON string) string {
	return fmt.Sprintf(`Return ONLY valid JSON with EXACT shape:
{"items":[{...},{...}]}

CRITICAL:
- Output one item per input listing.
- "items" MUST be an array.
- The field "id" MUST be copied EXACTLY from input "id". Do not change it.

For each listing:
- Extract category/brand/model/variant/size/gender/condition conservatively.
- Estimate trueMarketPrice (realistic resale sell price).
- priceRangeLow / priceRangeHigh.
- confidence (0..1).
- maxBuyPrice:
  If trueMarketPrice < %.0f -> target profit >= $%.0f after %.0f%% fees + $%.0f ship
  Else -> target profit >= $%.0f after %.0f%% fees + $%.0f ship
- demandLabel ("Low"|"Medium"|"High"), demandScore (0..1).
- sellTimeLabel plus sellTimeDaysMin / sellTimeDaysMax.
- key must be "<category>|<brand>|<model>|<variant>|<size>|<condition>"

Input:
%s`,
		s.Cfg.LowValueCutoff, s.Cfg.MinProfitLowValue, s.Cfg.FeeRate*100, s.Cfg.ShippingEstimate,
		s.Cfg.MinProfitHighValue, s.Cfg.FeeRate*100, s.Cfg.ShippingEstimate,
		inputJSON)
}

func (s *EnrichmentService) buildRiskPrompt(inputJSON string) string {
	return fmt.Sprintf(`Return ONLY valid JSON with EXACT shape:
{"items":[{...},{...}]}

CRITICAL:
- Output one item per input listing.
- "items" MUST be an array.
- The field "id" MUST be copied EXACTLY from input "id". Do not change it.

For each listing, judge authenticity and fraud risk:
- ignore: true when the listing is not a real item for sale (wanted ads, services, spam).
- riskLevel: "low"|"medium"|"high" likelihood of scam or counterfeit.
- blockFromResults: true when the listing should never be shown to buyers.
- warnings: short strings naming concrete red flags.
- explanation: one sentence justifying the judgment.

Input:
%s`, inputJSON)
}

// reconcileRows matches untrusted AI rows back to expected ids. Order of
// attempts: exact id match; same value under listingId / listing_id /
// originalId; a purely numeric value prefixed with each known source prefix.
// Anything else is dropped — a silent mismatch would corrupt pricing
// decisions downstream.
func reconcileRows(items []map[string]any, expected map[string]bool) map[string]map[string]any {
	out := map[string]map[string]any{}

	for _, row := range items {
		rid := firstID(row, "id", "listingId", "listing_id", "originalId")
		if rid == "" {
			continue
		}

		if expected[rid] {
			out[rid] = row
			continue
		}

		if isNumericID(rid) {
			for _, prefix := range SourcePrefixes {
				guess := prefix + "-" + rid
				if expected[guess] {
					row["id"] = guess
					out[guess] = row
					break
				}
			}
		}
	}

	return out
}

func firstID(row map[string]any, keys ...string) string {
	for _, key := range keys {
		if rid := utils.CoerceStringID(row[key]); rid != "" {
			return rid
		}
	}
	return ""
}

func isNumericID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// applyPricingRow coerces the value/demand fields out of an untrusted row.
// Wrong types become nil, never a zero that looks like data.
func applyPricingRow(row map[string]any, ai *models.AiRow) {
	ai.Category = utils.AsString(row["category"])
	ai.Brand = utils.AsString(row["brand"])
	ai.Model = utils.AsString(row["model"])
	ai.Variant = utils.AsString(row["variant"])
	ai.Size = utils.AsString(row["size"])
	ai.Gender = utils.AsString(row["gender"])
	ai.Condition = utils.AsString(row["condition"])
	ai.HasBox = utils.AsBool(row["hasBox"])
	if key := utils.AsString(row["key"]); key != nil {
		ai.Key = models.Str(NormalizeProductKey(*key))
	}
	ai.Notes = utils.AsString(row["notes"])

	ai.TrueMarketPrice = utils.AsNumber(row["trueMarketPrice"])
	ai.PriceRangeLow = utils.AsNumber(row["priceRangeLow"])
	ai.PriceRangeHigh = utils.AsNumber(row["priceRangeHigh"])
	ai.Confidence = utils.AsNumber(row["confidence"])
	ai.MaxBuyPrice = utils.AsNumber(row["maxBuyPrice"])

	if label := utils.AsString(row["demandLabel"]); label != nil {
		switch *label {
		case "Low", "Medium", "High":
			ai.DemandLabel = label
		}
	}
	ai.DemandScore = utils.AsNumber(row["demandScore"])
	ai.SellTimeLabel = utils.AsString(row["sellTimeLabel"])
	ai.SellTimeDaysMin = utils.AsNumber(row["sellTimeDaysMin"])
	ai.SellTimeDaysMax = utils.AsNumber(row["sellTimeDaysMax"])
}

// applyRiskRow coerces the authenticity fields. Booleans default to false on
// bad types so a garbled row can never block or ignore a listing by accident.
func applyRiskRow(row map[string]any, ai *models.AiRow) {
	if b := utils.AsBool(row["ignore"]); b != nil {
		ai.Ignore = *b
	}
	if level := utils.AsString(row["riskLevel"]); level != nil {
		switch strings.ToLower(*level) {
		case "low", "medium", "high":
			ai.RiskLevel = models.Str(strings.ToLower(*level))
		}
	}
	if b := utils.AsBool(row["blockFromResults"]); b != nil {
		ai.BlockFromResults = *b
	}
	ai.Warnings = utils.AsStringSlice(row["warnings"])
	ai.Explanation = utils.AsString(row["explanation"])
}

func chunkOffers(offers []models.Offer, size int) [][]models.Offer {
	if size <= 0 {
		size = len(offers)
	}
	var out [][]models.Offer
	for i := 0; i < len(offers); i += size {
		end := i + size
		if end > len(offers) {
			end = len(offers)
		}
		out = append(out, offers[i:end])
	}
	return out
}

package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/pricescrub/pricescrub-api/config"
	"github.com/pricescrub/pricescrub-api/models"
	"github.com/pricescrub/pricescrub-api/services"
)

// Enricher is the slice of the enrichment service the handler needs.
type Enricher interface {
	Enrich(ctx context.Context, candidates []models.Offer) map[string]models.AiRow
}

// SearchHandler runs the whole request pipeline:
// ingest → dedupe → stats → select → enrich → decide → respond.
// Everything is per-request; no state survives between calls.
type SearchHandler struct {
	Cfg       *config.Config
	Facebook  services.Scraper
	Ebay      services.Scraper
	NewRetail func(store string) services.Scraper
	Enricher  Enricher
	Selector  *services.CandidateSelector
	Stats     *services.StatsService
	Decision  *services.DecisionService
}

func NewSearchHandler(cfg *config.Config) *SearchHandler {
	apify := services.NewApifyService(cfg)
	return &SearchHandler{
		Cfg:      cfg,
		Facebook: services.NewFacebookScraper(cfg, apify),
		Ebay:     services.NewEbayScraper(cfg, apify),
		NewRetail: func(store string) services.Scraper {
			return services.NewRetailScraper(cfg, store)
		},
		Enricher: services.NewEnrichmentService(cfg, services.NewOpenAIService(cfg)),
		Selector: services.NewCandidateSelector(cfg.MaxAIListings, nil),
		Stats:    services.NewStatsService(),
		Decision: services.NewDecisionService(cfg),
	}
}

// HandleSearch serves POST /api/search.
//
// Expected failure modes (a source down, a bad AI batch) degrade to partial
// data under HTTP 200 with an issues entry; only input validation (400) and
// a truly unexpected panic (500) fail the request.
func (h *SearchHandler) HandleSearch(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Search] Unexpected error: %v", r)
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%v", r)})
		}
	}()

	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query"})
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query"})
		return
	}

	site := strings.TrimSpace(strings.ToLower(req.Site))
	if site == "" {
		site = "any"
	}

	ctx := c.Request.Context()
	listings, issues := h.ingest(ctx, query, site)

	// Keep only priced listings, then dedupe by canonical id, first one wins.
	priced := listings[:0]
	for _, l := range listings {
		if l.Price != nil && *l.Price > 0 {
			priced = append(priced, l)
		}
	}
	seen := make(map[string]bool, len(priced))
	deduped := make([]models.Offer, 0, len(priced))
	for _, l := range priced {
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		deduped = append(deduped, l)
	}
	listings = deduped

	bySourceCount := map[string]int{}
	for _, l := range listings {
		bySourceCount[l.Source]++
	}
	log.Printf("[Search] Ingest breakdown: %v, total: %d", bySourceCount, len(listings))

	if len(listings) == 0 {
		c.JSON(http.StatusOK, models.SearchResponse{
			Listings: []models.EnrichedOffer{},
			Issues:   append(issues, "No listings found."),
			PriceStats: &models.PriceStatsBreakdown{
				Overall:   h.Stats.ComputePriceStats(nil),
				BySource:  map[string]models.PriceStats{},
				ByProduct: map[string]models.PriceStats{},
			},
		})
		return
	}

	breakdown, market := h.Stats.Analyze(listings)

	candidates := h.Selector.Select(listings)
	if len(listings) > len(candidates) {
		issues = append(issues, fmt.Sprintf("Analyzed %d/%d listings for speed/cost.", len(candidates), len(listings)))
	}

	aiMap := h.Enricher.Enrich(ctx, candidates)

	analyzed := h.Decision.Analyze(candidates, aiMap, market)
	deals := h.Decision.FilterDeals(analyzed)
	toReturn := h.Decision.SelectListings(analyzed, deals)

	var aiValues []float64
	for _, l := range toReturn {
		if l.AIEstimatedValue != nil {
			aiValues = append(aiValues, *l.AIEstimatedValue)
		}
	}

	analyzedCount := len(analyzed)
	dealsCount := len(deals)

	resp := models.SearchResponse{
		Listings:      toReturn,
		AnalyzedCount: &analyzedCount,
		DealsCount:    &dealsCount,
		Issues:        issues,
		PriceStats: &models.PriceStatsBreakdown{
			Overall:   h.Stats.ComputePriceStats(aiValues),
			BySource:  breakdown.BySource,
			ByProduct: breakdown.ByProduct,
		},
	}

	log.Printf("[Search] Ingested: %d, AI analyzed: %d, Deals: %d", len(listings), analyzedCount, dealsCount)
	c.JSON(http.StatusOK, resp)
}

// ingest fans out to every scraper the site filter allows and fans back in.
// Each call is wrapped so one source failing, timing out or panicking becomes
// an issue string instead of cancelling its siblings.
func (h *SearchHandler) ingest(ctx context.Context, query, site string) ([]models.Offer, []string) {
	var scrapers []services.Scraper

	switch site {
	case "any":
		scrapers = append(scrapers, h.Facebook, h.Ebay)
		if h.Cfg.RetailAPIKey != "" {
			scrapers = append(scrapers, h.NewRetail(""))
		}
	case "facebook":
		scrapers = append(scrapers, h.Facebook)
	case "ebay":
		scrapers = append(scrapers, h.Ebay)
	case "retail":
		scrapers = append(scrapers, h.NewRetail(""))
	default:
		// any other value is treated as a retailer key for the retail path
		scrapers = append(scrapers, h.NewRetail(site))
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		listings []models.Offer
		issues   []string
	)

	for _, s := range scrapers {
		wg.Add(1)
		go func(s services.Scraper) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[Search] %s scraper panicked: %v", s.Name(), r)
					mu.Lock()
					issues = append(issues, fmt.Sprintf("%s scraper failed.", s.Name()))
					mu.Unlock()
				}
			}()

			offers, err := s.Scrape(ctx, query)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[Search] %s scrape failed: %v", s.Name(), err)
				issues = append(issues, fmt.Sprintf("%s scraper failed.", s.Name()))
				return
			}
			listings = append(listings, offers...)
		}(s)
	}
	wg.Wait()

	return listings, issues
}

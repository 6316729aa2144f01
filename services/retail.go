package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pricescrub/pricescrub-api/config"
	"github.com/pricescrub/pricescrub-api/models"
	"github.com/pricescrub/pricescrub-api/utils"
)

// RetailScraper covers the generic retail path through a shopping-search
// provider: one synchronous call returning shopping result objects, with an
// optional store filter. No job submission round trip here.
type RetailScraper struct {
	Cfg    *config.Config
	Store  string
	Client *http.Client
}

func NewRetailScraper(cfg *config.Config, store string) *RetailScraper {
	return &RetailScraper{
		Cfg:    cfg,
		Store:  strings.TrimSpace(store),
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *RetailScraper) Name() string {
	if s.Store != "" {
		return s.Store
	}
	return "Retail"
}

func (s *RetailScraper) Scrape(ctx context.Context, query string) ([]models.Offer, error) {
	if s.Cfg.RetailAPIKey == "" {
		return nil, fmt.Errorf("retail search provider not configured")
	}

	q := query
	if s.Store != "" {
		q = query + " " + s.Store
	}

	params := url.Values{}
	params.Set("engine", "google_shopping")
	params.Set("q", q)
	params.Set("api_key", s.Cfg.RetailAPIKey)

	searchURL := strings.TrimRight(s.Cfg.RetailBaseURL, "/") + "/search.json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create retail search request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retail search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("retail search failed (%d): %s",
			resp.StatusCode, utils.MaskSecrets(utils.Snippet(string(b), 300)))
	}

	var payload struct {
		ShoppingResults []map[string]any `json:"shopping_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse retail search response: %w", err)
	}

	items := payload.ShoppingResults
	if len(items) > s.Cfg.SourceItemCap {
		items = items[:s.Cfg.SourceItemCap]
	}

	offers := make([]models.Offer, 0, len(items))
	for _, item := range items {
		offers = append(offers, s.mapRetailItem(item))
	}

	log.Printf("[Ingest] %s: %d items", s.Name(), len(offers))
	return offers, nil
}

func (s *RetailScraper) mapRetailItem(item map[string]any) models.Offer {
	price := priceFrom(
		item["extracted_price"],
		item["price"],
	)

	native := nativeID(item["product_id"], item["position"], item["link"])

	title := stringFrom(item["title"])
	if title == "" {
		title = "Untitled"
	}

	source := stringFrom(item["source"])
	if source == "" {
		source = s.Name()
	}

	return models.Offer{
		ID:       canonicalID(PrefixRetail, native),
		Title:    title,
		Price:    price,
		Currency: models.Str("USD"),
		URL:      stringFrom(item["link"], item["product_link"]),
		Source:   source,
		ImageURL: pickImage(item),
		Location: nil,
		Raw:      item,
	}
}

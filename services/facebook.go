package services

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/pricescrub/pricescrub-api/config"
	"github.com/pricescrub/pricescrub-api/models"
)

// FacebookScraper ingests Facebook Marketplace listings through the scraping
// job provider.
type FacebookScraper struct {
	Cfg   *config.Config
	Apify *ApifyService
}

func NewFacebookScraper(cfg *config.Config, apify *ApifyService) *FacebookScraper {
	return &FacebookScraper{Cfg: cfg, Apify: apify}
}

func (s *FacebookScraper) Name() string { return "Facebook Marketplace" }

func (s *FacebookScraper) Scrape(ctx context.Context, query string) ([]models.Offer, error) {
	searchURL := "https://www.facebook.com/marketplace/search/?query=" + url.QueryEscape(query)

	input := map[string]any{
		"urls":                []string{searchURL},
		"deepScrape":          false,
		"maxItems":            s.Cfg.SourceItemCap,
		"maxItemsPerStartUrl": s.Cfg.SourceItemCap,
		"proxy":               map[string]any{"useApifyProxy": true, "countryCode": "US"},
	}

	items, err := s.Apify.RunTaskSync(ctx, s.Cfg.ApifyFBTaskID, input, s.Cfg.SourceItemCap)
	if err != nil {
		return nil, fmt.Errorf("facebook scrape: %w", err)
	}

	offers := make([]models.Offer, 0, len(items))
	for _, item := range items {
		offers = append(offers, mapFacebookItem(item))
	}

	log.Printf("[Ingest] Facebook Marketplace: %d items", len(offers))
	return offers, nil
}

// mapFacebookItem maps one provider-native marketplace item. Every field is
// best-effort; an item with no parsable price still maps, with Price nil.
func mapFacebookItem(item map[string]any) models.Offer {
	native := nativeID(item["id"], item["listing_id"], item["marketplace_listing_id"])

	price := priceFrom(
		dig(item, "listing_price", "amount"),
		dig(item, "price", "amount"),
		item["price_amount"],
		item["price"],
		dig(item, "formatted_price", "text"),
		item["listingPrice"],
	)

	title := stringFrom(item["custom_title"], item["marketplace_listing_title"], item["title"])
	if title == "" {
		title = "Untitled"
	}

	listingURL := ""
	if native != "" {
		listingURL = fmt.Sprintf("https://www.facebook.com/marketplace/item/%s/", native)
	} else if u := stringFrom(dig(item, "story", "url")); u != "" {
		listingURL = u
	}

	location := stringFrom(
		dig(item, "location_text", "text"),
		dig(item, "location", "reverse_geocode", "city"),
	)

	return models.Offer{
		ID:       canonicalID(PrefixFacebook, native),
		Title:    title,
		Price:    price,
		Currency: models.Str("USD"),
		URL:      listingURL,
		Source:   "Facebook Marketplace",
		ImageURL: pickImage(item),
		Location: strPtr(location),
		Raw:      item,
	}
}

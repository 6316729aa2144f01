package services

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/pricescrub/pricescrub-api/config"
	"github.com/pricescrub/pricescrub-api/models"
)

// EbayScraper ingests eBay search results through the scraping job provider.
type EbayScraper struct {
	Cfg   *config.Config
	Apify *ApifyService
}

func NewEbayScraper(cfg *config.Config, apify *ApifyService) *EbayScraper {
	return &EbayScraper{Cfg: cfg, Apify: apify}
}

func (s *EbayScraper) Name() string { return "eBay" }

func (s *EbayScraper) Scrape(ctx context.Context, query string) ([]models.Offer, error) {
	searchURL := "https://www.ebay.com/sch/i.html?_nkw=" + url.QueryEscape(query)

	input := map[string]any{
		"count":      s.Cfg.SourceItemCap,
		"deepScrape": false,
		"proxy":      map[string]any{"useApifyProxy": true, "countryCode": "US"},
		"startUrls":  []map[string]any{{"url": searchURL}},
	}

	items, err := s.Apify.RunTaskSync(ctx, s.Cfg.ApifyEbayTaskID, input, s.Cfg.SourceItemCap)
	if err != nil {
		return nil, fmt.Errorf("ebay scrape: %w", err)
	}

	offers := make([]models.Offer, 0, len(items))
	for _, item := range items {
		offers = append(offers, mapEbayItem(item))
	}

	log.Printf("[Ingest] eBay: %d items", len(offers))
	return offers, nil
}

func mapEbayItem(item map[string]any) models.Offer {
	price := priceFrom(
		dig(item, "price", "amount"),
		dig(item, "currentPrice", "value"),
		dig(item, "sellingStatus", "currentPrice", "value"),
		item["price"],
	)

	native := nativeID(
		item["id"], item["itemId"], item["listingId"],
		item["url"], item["viewItemURL"],
	)

	title := stringFrom(item["title"])
	if title == "" {
		title = "Untitled"
	}

	location := stringFrom(item["location"], item["sellerLocation"])

	return models.Offer{
		ID:       canonicalID(PrefixEbay, native),
		Title:    title,
		Price:    price,
		Currency: models.Str("USD"),
		URL:      stringFrom(item["viewItemURL"], item["url"], item["detailPageURL"]),
		Source:   "eBay",
		ImageURL: pickImage(item),
		Location: strPtr(location),
		Raw:      item,
	}
}

package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pricescrub/pricescrub-api/models"
)

// ============================================================================
// INGESTION ADAPTERS - shared contract and field extraction
// Provider items are loosely-typed JSON with many optional nested fields.
// Raw shapes never travel past this boundary: every adapter maps items into
// models.Offer with best-effort extraction and keeps the payload in Raw.
// ============================================================================

// Scraper is one ingestion source. Adapters are stateless; a failed or empty
// scrape returns an error that the caller records as an issue, never a reason
// to abort sibling sources.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context, query string) ([]models.Offer, error)
}

// Known id prefixes, used both when building canonical ids and when guessing
// a prefix for bare numeric ids in AI responses.
const (
	PrefixFacebook = "fb"
	PrefixEbay     = "eb"
	PrefixRetail   = "rt"
)

// SourcePrefixes lists every prefix an id reconciliation guess may try.
var SourcePrefixes = []string{PrefixFacebook, PrefixEbay, PrefixRetail}

// dig walks a nested path of object keys, returning nil as soon as a hop is
// missing or not an object.
func dig(item map[string]any, path ...string) any {
	var cur any = item
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

// parsePriceString strips everything but digits and the decimal point before
// parsing, so "$1,234.50" and "1234.50 USD" both come out as 1234.5.
func parsePriceString(s string) *float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &f
}

// priceFrom tries each candidate in priority order and stops at the first
// value that parses to a finite number. Candidates may be numbers, formatted
// price strings, or `{amount: ...}` objects. Returns nil when nothing parses;
// the offer is still mapped and dropped later, not here.
func priceFrom(candidates ...any) *float64 {
	for _, c := range candidates {
		switch v := c.(type) {
		case nil:
			continue
		case float64:
			return &v
		case string:
			if p := parsePriceString(v); p != nil {
				return p
			}
		case map[string]any:
			switch amt := v["amount"].(type) {
			case float64:
				return &amt
			case string:
				if p := parsePriceString(amt); p != nil {
					return p
				}
			}
		}
	}
	return nil
}

// stringFrom returns the first candidate that is a non-empty string.
func stringFrom(candidates ...any) string {
	for _, c := range candidates {
		if s, ok := c.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// nativeID extracts a provider-native identifier from the first candidate
// that is a non-empty string or a number.
func nativeID(candidates ...any) string {
	for _, c := range candidates {
		switch v := c.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// canonicalID namespaces a native id under the source prefix so equal native
// ids from different sources never collide. With no native id a random token
// is used; offers are never persisted, so uniqueness within one response is
// all that matters.
func canonicalID(prefix, native string) string {
	if native == "" {
		return prefix + "-" + uuid.NewString()
	}
	return prefix + "-" + native
}

// pickImage tries the image field shapes seen across providers.
func pickImage(item map[string]any) *string {
	candidates := []any{
		dig(item, "primary_listing_photo", "listing_image", "uri"),
		dig(item, "primary_listing_photo", "image", "uri"),
		firstPhotoURI(item),
		item["image"],
		item["imageUrl"],
		item["thumbnail"],
	}
	if s := stringFrom(candidates...); s != "" {
		return &s
	}
	return nil
}

func firstPhotoURI(item map[string]any) any {
	photos, ok := item["listing_photos"].([]any)
	if !ok || len(photos) == 0 {
		return nil
	}
	first, ok := photos[0].(map[string]any)
	if !ok {
		return nil
	}
	return dig(first, "image", "uri")
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

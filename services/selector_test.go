package services

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/pricescrub/pricescrub-api/models"
)

func manyOffers(n int) []models.Offer {
	offers := make([]models.Offer, n)
	for i := range offers {
		offers[i] = pricedOffer(
			fmt.Sprintf("fb-%d", i),
			fmt.Sprintf("Item %d", i),
			"Facebook Marketplace",
			float64(10+i),
		)
	}
	return offers
}

func TestSelectWithinBudgetPassesThrough(t *testing.T) {
	sel := NewCandidateSelector(100, rand.NewSource(1))
	offers := manyOffers(50)
	got := sel.Select(offers)
	if len(got) != 50 {
		t.Errorf("within budget: got %d, want 50 unchanged", len(got))
	}
}

func TestSelectDropsUnpriced(t *testing.T) {
	sel := NewCandidateSelector(100, rand.NewSource(1))
	offers := []models.Offer{
		{ID: "fb-1", Title: "no price", Source: "Facebook Marketplace"},
		pricedOffer("fb-2", "free", "Facebook Marketplace", 0),
		pricedOffer("fb-3", "ok", "Facebook Marketplace", 25),
	}
	got := sel.Select(offers)
	if len(got) != 1 || got[0].ID != "fb-3" {
		t.Errorf("only strictly-positive-priced listings qualify, got %v", got)
	}
}

func TestSelectRespectsBudget(t *testing.T) {
	sel := NewCandidateSelector(40, rand.NewSource(7))
	offers := manyOffers(500)

	got := sel.Select(offers)
	if len(got) > 40 {
		t.Fatalf("budget exceeded: got %d, cap 40", len(got))
	}

	input := map[string]bool{}
	for _, o := range offers {
		input[o.ID] = true
	}
	seen := map[string]bool{}
	for _, o := range got {
		if !input[o.ID] {
			t.Errorf("selected id %s not in input", o.ID)
		}
		if seen[o.ID] {
			t.Errorf("duplicate id %s in selection", o.ID)
		}
		seen[o.ID] = true
	}
}

func TestSelectFavorsUnderpriced(t *testing.T) {
	sel := NewCandidateSelector(10, rand.NewSource(3))

	offers := manyOffers(100)
	// one extreme bargain well below the median
	offers = append(offers, pricedOffer("fb-bargain", "Bargain", "Facebook Marketplace", 1))

	got := sel.Select(offers)
	found := false
	for _, o := range got {
		if o.ID == "fb-bargain" {
			found = true
		}
	}
	if !found {
		t.Error("the most undervalued listing should survive selection")
	}
}

func TestSelectDeterministicWithSeed(t *testing.T) {
	offers := manyOffers(300)

	a := NewCandidateSelector(50, rand.NewSource(42)).Select(offers)
	b := NewCandidateSelector(50, rand.NewSource(42)).Select(offers)

	if len(a) != len(b) {
		t.Fatalf("same seed, different sizes: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("same seed, different selection at %d: %s vs %s", i, a[i].ID, b[i].ID)
		}
	}
}

package constants

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Category
		matched bool
	}{
		{"exact invoice", "invoice", Invoice, true},
		{"exact marketplace", "marketplace_listing_screenshot", MarketplaceListing, true},
		{"uppercase", "INVOICE", Invoice, true},
		{"padded", "  chat_screenshot  ", ChatScreenshot, true},
		{"synonym receipt", "receipt", Invoice, true},
		{"synonym bill", "bill", Invoice, true},
		{"synonym listing", "listing", MarketplaceListing, true},
		{"synonym conversation", "conversation", ChatScreenshot, true},
		{"synonym webpage", "webpage", WebsiteScreenshot, true},
		{"exact other", "other", Other, true},
		{"unknown label", "tax_form", Other, false},
		{"empty input", "", Other, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, matched := Canonicalize(tt.input)
			if got != tt.want || matched != tt.matched {
				t.Errorf("Canonicalize(%q) = (%s, %v), want (%s, %v)",
					tt.input, got, matched, tt.want, tt.matched)
			}
		})
	}
}

func TestAsStringSliceContainsAllCategories(t *testing.T) {
	got := AsStringSlice()
	if len(got) != 5 {
		t.Fatalf("expected 5 categories, got %d", len(got))
	}
	seen := make(map[string]bool, len(got))
	for _, s := range got {
		seen[s] = true
	}
	for _, want := range []Category{Invoice, MarketplaceListing, ChatScreenshot, WebsiteScreenshot, Other} {
		if !seen[string(want)] {
			t.Errorf("taxonomy missing %s", want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status ProcessingStatus
		want   bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

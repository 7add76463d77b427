package constants

import (
	"strings"
)

// Category is the canonical document category produced by analysis.
type Category string

const (
	Invoice            Category = "invoice"
	MarketplaceListing Category = "marketplace_listing_screenshot"
	ChatScreenshot     Category = "chat_screenshot"
	WebsiteScreenshot  Category = "website_screenshot"
	Other              Category = "other"
)

var allCategories = []Category{
	Invoice,
	MarketplaceListing,
	ChatScreenshot,
	WebsiteScreenshot,
	Other,
}

// AsStringSlice returns the category taxonomy for prompt construction.
func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps a model-reported category onto the taxonomy.
// Anything it cannot place lands on Other. The second return reports
// whether the input matched.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Category{
		"receipt":             Invoice,
		"bill":                Invoice,
		"invoice_screenshot":  Invoice,
		"marketplace":         MarketplaceListing,
		"listing":             MarketplaceListing,
		"marketplace_listing": MarketplaceListing,
		"product_listing":     MarketplaceListing,
		"chat":                ChatScreenshot,
		"conversation":        ChatScreenshot,
		"messages":            ChatScreenshot,
		"website":             WebsiteScreenshot,
		"webpage":             WebsiteScreenshot,
		"web_page":            WebsiteScreenshot,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	// check if it matches any category string
	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}

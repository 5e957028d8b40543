package handlers

import (
	"strings"

	"github.com/wisehuang/geodine-ai/tools"
)

// Keyword heuristics used when AI parsing is disabled or fails.
var cuisineKeywords = map[string]string{
	"japanese":   "japanese restaurant",
	"sushi":      "japanese restaurant",
	"ramen":      "ramen",
	"chinese":    "chinese restaurant",
	"italian":    "italian restaurant",
	"pizza":      "pizza",
	"american":   "american restaurant",
	"burger":     "burger",
	"thai":       "thai restaurant",
	"korean":     "korean restaurant",
	"vegetarian": "vegetarian restaurant",
	"vegan":      "vegan restaurant",
	"coffee":     "cafe",
	"cafe":       "cafe",
	"tea":        "bubble tea",
	"dessert":    "dessert",
	"bakery":     "bakery",
	"bar":        "bar",
	"beer":       "bar",
}

// Bare requests with no cuisine at all ("food", "eat", "hungry") get a
// follow-up question instead of an unfiltered search.
var genericFoodTerms = map[string]bool{
	"food":       true,
	"eat":        true,
	"hungry":     true,
	"restaurant": true,
	"lunch":      true,
	"dinner":     true,
	"breakfast":  true,
}

// ParseSearchText extracts search parameters from free text with plain
// keyword matching.
func ParseSearchText(text string) *tools.SearchParams {
	lowered := strings.ToLower(text)
	params := &tools.SearchParams{PlaceType: "restaurant"}

	for keyword, query := range cuisineKeywords {
		if strings.Contains(lowered, keyword) {
			params.Keyword = query
			break
		}
	}

	switch {
	case strings.Contains(lowered, "cheap") || strings.Contains(lowered, "affordable") || strings.Contains(lowered, "budget"):
		params.PriceLevel = 1
	case strings.Contains(lowered, "luxury") || strings.Contains(lowered, "fancy") || strings.Contains(lowered, "fine dining"):
		params.PriceLevel = 4
	case strings.Contains(lowered, "expensive") || strings.Contains(lowered, "upscale"):
		params.PriceLevel = 3
	}

	if strings.Contains(lowered, "open now") || strings.Contains(lowered, "open right now") {
		params.OpenNow = true
	}

	return params
}

// IsGenericFoodRequest reports whether the text asks for food without
// naming any cuisine. The term lists are English-only: generic
// phrasing in other languages falls through to the parse path, where
// the AI parser (when enabled) still extracts the request.
func IsGenericFoodRequest(text string) bool {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if genericFoodTerms[lowered] {
		return true
	}
	for keyword := range cuisineKeywords {
		if strings.Contains(lowered, keyword) {
			return false
		}
	}
	words := strings.Fields(lowered)
	if len(words) > 6 {
		return false
	}
	for _, w := range words {
		if genericFoodTerms[strings.Trim(w, ".,!?")] {
			return true
		}
	}
	return false
}

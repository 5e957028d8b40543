package handlers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/wisehuang/geodine-ai/tools"
)

// buildPlacesCarousel renders recommendations as a LINE flex carousel,
// one bubble per place with photo, rating and a maps link.
func buildPlacesCarousel(selected []tools.SelectedPlace) (json.RawMessage, error) {
	bubbles := make([]map[string]any, 0, len(selected))
	for _, s := range selected {
		bubbles = append(bubbles, placeBubble(s))
	}
	return json.Marshal(map[string]any{
		"type":     "carousel",
		"contents": bubbles,
	})
}

func placeBubble(s tools.SelectedPlace) map[string]any {
	body := []map[string]any{
		{
			"type":   "text",
			"text":   s.Place.Name,
			"weight": "bold",
			"size":   "lg",
			"wrap":   true,
		},
	}

	if s.Place.Rating != nil {
		ratingText := fmt.Sprintf("⭐ %.1f", *s.Place.Rating)
		if s.Place.RatingCount > 0 {
			ratingText += fmt.Sprintf(" (%d reviews)", s.Place.RatingCount)
		}
		if s.Place.PriceLevel != nil {
			ratingText += " · " + strings.Repeat("$", *s.Place.PriceLevel)
		}
		body = append(body, map[string]any{
			"type":  "text",
			"text":  ratingText,
			"size":  "sm",
			"color": "#999999",
		})
	}
	if s.Place.Address != "" {
		body = append(body, map[string]any{
			"type":  "text",
			"text":  s.Place.Address,
			"size":  "sm",
			"color": "#666666",
			"wrap":  true,
		})
	}
	if s.Explanation != "" {
		body = append(body, map[string]any{
			"type": "text",
			"text": s.Explanation,
			"size": "sm",
			"wrap": true,
		})
	}
	if s.Highlight != "" {
		body = append(body, map[string]any{
			"type":  "text",
			"text":  "💡 " + s.Highlight,
			"size":  "xs",
			"color": "#1DB446",
			"wrap":  true,
		})
	}

	bubble := map[string]any{
		"type": "bubble",
		"body": map[string]any{
			"type":     "box",
			"layout":   "vertical",
			"spacing":  "sm",
			"contents": body,
		},
		"footer": map[string]any{
			"type":   "box",
			"layout": "vertical",
			"contents": []map[string]any{
				{
					"type":  "button",
					"style": "link",
					"action": map[string]any{
						"type":  "uri",
						"label": "Open in Maps",
						"uri":   mapsURL(s.Place),
					},
				},
			},
		},
	}
	if s.Place.PhotoURL != "" {
		bubble["hero"] = map[string]any{
			"type":        "image",
			"url":         s.Place.PhotoURL,
			"size":        "full",
			"aspectRatio": "20:13",
			"aspectMode":  "cover",
		}
	}
	return bubble
}

func mapsURL(p tools.Place) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("query", p.Name)
	if p.PlaceID != "" {
		q.Set("query_place_id", p.PlaceID)
	}
	return "https://www.google.com/maps/search/?" + q.Encode()
}

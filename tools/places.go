package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

const placesNearbyEndpoint = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"

// SearchParams describes one places search. PriceLevel 0 means unset.
type SearchParams struct {
	Location     *Coordinates
	LocationName string
	Keyword      string
	Radius       int
	PlaceType    string
	PriceLevel   int
	OpenNow      bool
	Language     string
}

// Coordinates mirrors the {lat,lng} shape of the Google Maps API.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is one search result.
type Place struct {
	Name        string   `json:"name"`
	PlaceID     string   `json:"place_id"`
	Address     string   `json:"address"`
	Rating      *float64 `json:"rating"`
	PriceLevel  *int     `json:"price_level"`
	RatingCount int      `json:"user_ratings_total"`
	PhotoURL    string   `json:"photo_url"`
}

// SearchPlaces queries the Google Places Nearby Search API. Callers
// treat any error as "no results" and apologize to the user.
func SearchPlaces(ctx context.Context, params *SearchParams) ([]Place, error) {
	apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY not set")
	}
	if params == nil || params.Location == nil {
		return nil, fmt.Errorf("search location is required")
	}

	q := url.Values{}
	q.Set("key", apiKey)
	q.Set("location", fmt.Sprintf("%f,%f", params.Location.Lat, params.Location.Lng))
	radius := params.Radius
	if radius <= 0 {
		radius = 1000
	}
	q.Set("radius", strconv.Itoa(radius))
	placeType := params.PlaceType
	if placeType == "" {
		placeType = "restaurant"
	}
	q.Set("type", placeType)
	if params.Keyword != "" {
		q.Set("keyword", params.Keyword)
	}
	if params.PriceLevel > 0 {
		q.Set("minprice", strconv.Itoa(params.PriceLevel))
		q.Set("maxprice", strconv.Itoa(params.PriceLevel))
	}
	if params.OpenNow {
		q.Set("opennow", "true")
	}
	if params.Language != "" {
		q.Set("language", params.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, placesNearbyEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("places api error: status=%d", resp.StatusCode)
	}

	var parsed struct {
		Status  string `json:"status"`
		Results []struct {
			Name       string   `json:"name"`
			PlaceID    string   `json:"place_id"`
			Vicinity   string   `json:"vicinity"`
			Rating     *float64 `json:"rating"`
			PriceLevel *int     `json:"price_level"`
			Ratings    int      `json:"user_ratings_total"`
			Photos     []struct {
				PhotoReference string `json:"photo_reference"`
			} `json:"photos"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if parsed.Status != "OK" && parsed.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("places api error: status=%s", parsed.Status)
	}

	places := make([]Place, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		p := Place{
			Name:        r.Name,
			PlaceID:     r.PlaceID,
			Address:     r.Vicinity,
			Rating:      r.Rating,
			PriceLevel:  r.PriceLevel,
			RatingCount: r.Ratings,
		}
		if len(r.Photos) > 0 {
			p.PhotoURL = fmt.Sprintf(
				"https://maps.googleapis.com/maps/api/place/photo?maxwidth=400&photoreference=%s&key=%s",
				r.Photos[0].PhotoReference, apiKey,
			)
		}
		places = append(places, p)
	}
	return places, nil
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const openMeteoEndpoint = "https://api.open-meteo.com/v1/forecast"

// Default location: Taipei, Taiwan.
const (
	DefaultLatitude     = 25.01
	DefaultLongitude    = 121.46
	DefaultTimezone     = "Asia/Taipei"
	DefaultLocationName = "Taipei, Taiwan"
)

// TodayWeather is today's slice of the Open-Meteo daily forecast.
type TodayWeather struct {
	Date          string
	TempMax       float64
	TempMin       float64
	Precipitation float64
	WeatherCode   int
	Sunrise       string
	Sunset        string
}

// GetTodayWeather fetches today's forecast for the given coordinates.
func GetTodayWeather(ctx context.Context, latitude, longitude float64) (*TodayWeather, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	params.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,weathercode,sunrise,sunset")
	params.Set("timezone", DefaultTimezone)
	params.Set("forecast_days", "7")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openMeteoEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("open-meteo error: status=%d", resp.StatusCode)
	}

	var parsed struct {
		Daily struct {
			Time          []string  `json:"time"`
			TempMax       []float64 `json:"temperature_2m_max"`
			TempMin       []float64 `json:"temperature_2m_min"`
			Precipitation []float64 `json:"precipitation_sum"`
			WeatherCode   []int     `json:"weathercode"`
			Sunrise       []string  `json:"sunrise"`
			Sunset        []string  `json:"sunset"`
		} `json:"daily"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Daily.Time) == 0 {
		return nil, fmt.Errorf("open-meteo: empty daily forecast")
	}

	w := &TodayWeather{Date: parsed.Daily.Time[0]}
	if len(parsed.Daily.TempMax) > 0 {
		w.TempMax = parsed.Daily.TempMax[0]
	}
	if len(parsed.Daily.TempMin) > 0 {
		w.TempMin = parsed.Daily.TempMin[0]
	}
	if len(parsed.Daily.Precipitation) > 0 {
		w.Precipitation = parsed.Daily.Precipitation[0]
	}
	if len(parsed.Daily.WeatherCode) > 0 {
		w.WeatherCode = parsed.Daily.WeatherCode[0]
	}
	if len(parsed.Daily.Sunrise) > 0 {
		w.Sunrise = parsed.Daily.Sunrise[0]
	}
	if len(parsed.Daily.Sunset) > 0 {
		w.Sunset = parsed.Daily.Sunset[0]
	}
	return w, nil
}

// WMO weather interpretation codes (WW).
var weatherDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Slight snow",
	73: "Moderate snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

var weatherEmojis = map[int]string{
	0:  "☀️",
	1:  "🌤️",
	2:  "⛅",
	3:  "☁️",
	45: "🌫️",
	48: "🌫️",
	51: "🌦️",
	53: "🌧️",
	55: "🌧️",
	61: "🌧️",
	63: "🌧️",
	65: "🌧️",
	71: "🌨️",
	73: "❄️",
	75: "❄️",
	77: "❄️",
	80: "🌦️",
	81: "🌧️",
	82: "⛈️",
	85: "🌨️",
	86: "❄️",
	95: "⛈️",
	96: "⛈️",
	99: "⛈️",
}

func WeatherDescription(code int) string {
	if d, ok := weatherDescriptions[code]; ok {
		return d
	}
	return "Unknown weather condition"
}

func WeatherEmoji(code int) string {
	if e, ok := weatherEmojis[code]; ok {
		return e
	}
	return "🌡️"
}

// FormatWeatherSummary renders a short user-facing weather summary.
func FormatWeatherSummary(w *TodayWeather) string {
	if w == nil {
		return "Unable to fetch weather data"
	}

	summary := fmt.Sprintf("%s %s\n\n", WeatherEmoji(w.WeatherCode), WeatherDescription(w.WeatherCode))
	summary += fmt.Sprintf("📅 Date: %s\n", w.Date)
	summary += fmt.Sprintf("🌡️ Temperature: %.1f°C - %.1f°C\n", w.TempMin, w.TempMax)
	if w.Precipitation > 0 {
		summary += fmt.Sprintf("💧 Precipitation: %.1f mm\n", w.Precipitation)
	}
	return summary
}

// OutfitContext describes the weather in terms useful to the image
// generation prompt ("cool weather (10-18°C), overcast, light rain possible").
func OutfitContext(w *TodayWeather) string {
	if w == nil {
		return "moderate weather conditions"
	}

	avg := (w.TempMax + w.TempMin) / 2
	var tempContext string
	switch {
	case avg < 10:
		tempContext = "cold weather (below 10°C)"
	case avg < 18:
		tempContext = "cool weather (10-18°C)"
	case avg < 25:
		tempContext = "mild weather (18-25°C)"
	case avg < 30:
		tempContext = "warm weather (25-30°C)"
	default:
		tempContext = "hot weather (above 30°C)"
	}

	var precipContext string
	switch {
	case w.Precipitation > 10:
		precipContext = ", heavy rain expected"
	case w.Precipitation > 5:
		precipContext = ", moderate rain expected"
	case w.Precipitation > 0:
		precipContext = ", light rain possible"
	}

	return fmt.Sprintf("%s, %s%s", tempContext, strings.ToLower(WeatherDescription(w.WeatherCode)), precipContext)
}

// LocationName resolves coordinates to a display name. Only the default
// location is recognized; everything else falls back to raw coordinates.
func LocationName(latitude, longitude float64) string {
	if abs(latitude-DefaultLatitude) < 0.1 && abs(longitude-DefaultLongitude) < 0.1 {
		return DefaultLocationName
	}
	return fmt.Sprintf("Location (%.2f, %.2f)", latitude, longitude)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

package tools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeatherDescription(t *testing.T) {
	assert.Equal(t, "Clear sky", WeatherDescription(0))
	assert.Equal(t, "Thunderstorm", WeatherDescription(95))
	assert.Equal(t, "Unknown weather condition", WeatherDescription(42))
}

func TestWeatherEmoji(t *testing.T) {
	assert.Equal(t, "☀️", WeatherEmoji(0))
	assert.Equal(t, "🌡️", WeatherEmoji(42))
}

func TestFormatWeatherSummary(t *testing.T) {
	w := &TodayWeather{Date: "2026-08-29", TempMax: 31.2, TempMin: 26.4, WeatherCode: 2}
	summary := FormatWeatherSummary(w)
	assert.Contains(t, summary, "Partly cloudy")
	assert.Contains(t, summary, "2026-08-29")
	assert.Contains(t, summary, "26.4°C - 31.2°C")
	assert.NotContains(t, summary, "Precipitation", "dry day omits the precipitation line")

	w.Precipitation = 3.5
	assert.Contains(t, FormatWeatherSummary(w), "3.5 mm")

	assert.Equal(t, "Unable to fetch weather data", FormatWeatherSummary(nil))
}

func TestOutfitContext(t *testing.T) {
	cases := []struct {
		min, max, precip float64
		want             []string
	}{
		{2, 8, 0, []string{"cold weather"}},
		{10, 16, 0, []string{"cool weather"}},
		{18, 24, 0, []string{"mild weather"}},
		{24, 30, 0, []string{"warm weather"}},
		{28, 36, 0, []string{"hot weather"}},
		{18, 24, 2, []string{"light rain possible"}},
		{18, 24, 7, []string{"moderate rain expected"}},
		{18, 24, 15, []string{"heavy rain expected"}},
	}
	for _, c := range cases {
		got := OutfitContext(&TodayWeather{TempMin: c.min, TempMax: c.max, Precipitation: c.precip, WeatherCode: 1})
		for _, want := range c.want {
			assert.True(t, strings.Contains(got, want), "OutfitContext(%v/%v/%v) = %q, want %q", c.min, c.max, c.precip, got, want)
		}
	}

	assert.Equal(t, "moderate weather conditions", OutfitContext(nil))
}

func TestLocationName(t *testing.T) {
	assert.Equal(t, DefaultLocationName, LocationName(DefaultLatitude, DefaultLongitude))
	assert.Equal(t, DefaultLocationName, LocationName(25.05, 121.5), "close enough to the default")
	assert.Equal(t, "Location (13.75, 100.50)", LocationName(13.75, 100.50))
}

package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSearchText(t *testing.T) {
	params := ParseSearchText("cheap japanese food open now")
	assert.Equal(t, "japanese restaurant", params.Keyword)
	assert.Equal(t, 1, params.PriceLevel)
	assert.True(t, params.OpenNow)
	assert.Equal(t, "restaurant", params.PlaceType)

	params = ParseSearchText("fancy italian dinner")
	assert.Equal(t, "italian restaurant", params.Keyword)
	assert.Equal(t, 4, params.PriceLevel)
	assert.False(t, params.OpenNow)

	params = ParseSearchText("coffee")
	assert.Equal(t, "cafe", params.Keyword)
	assert.Equal(t, 0, params.PriceLevel)
}

func TestParseSearchTextNoMatch(t *testing.T) {
	params := ParseSearchText("something to eat")
	assert.Empty(t, params.Keyword)
}

func TestIsGenericFoodRequest(t *testing.T) {
	assert.True(t, IsGenericFoodRequest("food"))
	assert.True(t, IsGenericFoodRequest("I'm hungry"))
	assert.True(t, IsGenericFoodRequest("lunch?"))
	assert.False(t, IsGenericFoodRequest("japanese food"))
	assert.False(t, IsGenericFoodRequest("cheap ramen near the station"))
	assert.False(t, IsGenericFoodRequest("what is the meaning of life"))
}

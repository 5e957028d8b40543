package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisehuang/geodine-ai/config"
	"github.com/wisehuang/geodine-ai/db"
	"github.com/wisehuang/geodine-ai/tools"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	db.AutoMigrate(database)
	return database
}

func restaurantHandler(t *testing.T, sender Sender, database *gorm.DB) *RestaurantHandler {
	t.Helper()
	cfg := &config.BotConfig{
		BotID:           "resto",
		BotType:         "restaurant",
		DefaultRadius:   1000,
		DefaultLanguage: "en",
		UseAIParsing:    false,
	}
	h := NewRestaurantHandler(cfg, sender, NewDedup(), database)
	// colaboradores externos viram stubs nos testes
	h.Classify = func(ctx context.Context, text string) (bool, string) { return true, "" }
	h.Detect = func(ctx context.Context, text string) string { return "en" }
	h.Translate = func(ctx context.Context, text, lang string) string { return text }
	h.Select = func(ctx context.Context, places []tools.Place, query string, max int, lang string) []tools.SelectedPlace {
		return nil
	}
	h.Search = func(ctx context.Context, params *tools.SearchParams) ([]tools.Place, error) {
		return nil, fmt.Errorf("search stub not configured")
	}
	return h
}

func textEvent(text string) TextEvent {
	return TextEvent{
		EventMeta: EventMeta{Type: "message", EventID: "e-" + text, ReplyToken: "rt", UserID: "U1"},
		Text:      text,
	}
}

func TestRestaurantGreeting(t *testing.T) {
	sender := &fakeSender{}
	h := restaurantHandler(t, sender, testDB(t))
	h.Classify = func(ctx context.Context, text string) (bool, string) {
		return true, "Hello! What would you like to eat?"
	}

	h.Handle(context.Background(), textEvent("hi"))

	require.Len(t, sender.replies, 1)
	assert.Contains(t, sender.replies[0][0].Text, "Hello!")
}

func TestRestaurantOffTopic(t *testing.T) {
	sender := &fakeSender{}
	h := restaurantHandler(t, sender, testDB(t))
	h.Classify = func(ctx context.Context, text string) (bool, string) { return false, "" }

	h.Handle(context.Background(), textEvent("what is the weather tomorrow"))

	require.Len(t, sender.replies, 1)
	assert.Contains(t, sender.replies[0][0].Text, "only help")
}

func TestRestaurantGenericRequestAsksForCuisine(t *testing.T) {
	sender := &fakeSender{}
	h := restaurantHandler(t, sender, testDB(t))

	h.Handle(context.Background(), textEvent("food"))

	require.Len(t, sender.replies, 1)
	assert.Contains(t, sender.replies[0][0].Text, "What type of food")
}

func TestRestaurantAsksForLocationWhenUnknown(t *testing.T) {
	sender := &fakeSender{}
	h := restaurantHandler(t, sender, testDB(t))

	h.Handle(context.Background(), textEvent("japanese ramen"))

	require.Len(t, sender.replies, 1)
	assert.Contains(t, sender.replies[0][0].Text, "location")
	assert.Empty(t, sender.pushes, "no search without a location")
}

func TestRestaurantSearchFlow(t *testing.T) {
	database := testDB(t)
	_, err := db.UpsertLocation(database, "U1", "resto", 25.03, 121.56, "Xinyi Rd", "Office")
	require.NoError(t, err)

	sender := &fakeSender{}
	h := restaurantHandler(t, sender, database)

	var gotParams *tools.SearchParams
	rating := 4.5
	h.Search = func(ctx context.Context, params *tools.SearchParams) ([]tools.Place, error) {
		gotParams = params
		return []tools.Place{
			{Name: "Ramen Alley", PlaceID: "p1", Address: "Lane 12", Rating: &rating},
			{Name: "Noodle House", PlaceID: "p2"},
		}, nil
	}

	h.Handle(context.Background(), textEvent("cheap ramen open now"))

	require.NotNil(t, gotParams)
	assert.Equal(t, "ramen", gotParams.Keyword)
	assert.Equal(t, 1, gotParams.PriceLevel)
	assert.True(t, gotParams.OpenNow)
	require.NotNil(t, gotParams.Location)
	assert.Equal(t, 25.03, gotParams.Location.Lat)
	assert.Equal(t, 1000, gotParams.Radius, "bot default radius applied")

	require.Len(t, sender.replies, 1, "ack reply before searching")
	assert.Contains(t, sender.replies[0][0].Text, "Searching")

	require.Len(t, sender.pushes, 1, "results pushed after the ack")
	msg := sender.pushes[0].Messages[0]
	assert.Equal(t, "flex", msg.Type)
	assert.Contains(t, string(msg.Contents), "Ramen Alley")
	assert.Contains(t, string(msg.Contents), "Noodle House")

	last, err := db.GetPreference(database, "U1", "resto", "last_cuisine")
	require.NoError(t, err)
	assert.Equal(t, "ramen", last, "successful search remembers the cuisine")
}

func TestRestaurantGenericRequestRecallsLastCuisine(t *testing.T) {
	database := testDB(t)
	require.NoError(t, db.SetPreference(database, "U1", "resto", "last_cuisine", "thai restaurant"))

	sender := &fakeSender{}
	h := restaurantHandler(t, sender, database)

	h.Handle(context.Background(), textEvent("food"))

	require.Len(t, sender.replies, 1)
	assert.Contains(t, sender.replies[0][0].Text, "thai restaurant")
}

func TestRestaurantNoResults(t *testing.T) {
	database := testDB(t)
	_, err := db.UpsertLocation(database, "U1", "resto", 25.03, 121.56, "", "")
	require.NoError(t, err)

	sender := &fakeSender{}
	h := restaurantHandler(t, sender, database)
	h.Search = func(ctx context.Context, params *tools.SearchParams) ([]tools.Place, error) {
		return nil, nil
	}

	h.Handle(context.Background(), textEvent("vegan dinner"))

	require.Len(t, sender.pushes, 1)
	assert.Contains(t, sender.pushes[0].Messages[0].Text, "couldn't find")
}

func TestRestaurantSearchError(t *testing.T) {
	database := testDB(t)
	_, err := db.UpsertLocation(database, "U1", "resto", 25.03, 121.56, "", "")
	require.NoError(t, err)

	sender := &fakeSender{}
	h := restaurantHandler(t, sender, database)
	h.Search = func(ctx context.Context, params *tools.SearchParams) ([]tools.Place, error) {
		return nil, fmt.Errorf("places api down")
	}

	h.Handle(context.Background(), textEvent("thai curry"))

	require.Len(t, sender.pushes, 1)
	assert.Contains(t, sender.pushes[0].Messages[0].Text, "search failed")
}

func TestRestaurantAIParsingFallsBackToKeywords(t *testing.T) {
	database := testDB(t)
	_, err := db.UpsertLocation(database, "U1", "resto", 25.03, 121.56, "", "")
	require.NoError(t, err)

	sender := &fakeSender{}
	h := restaurantHandler(t, sender, database)
	h.Cfg.UseAIParsing = true
	h.ParseAI = func(ctx context.Context, text string) (*tools.SearchParams, error) {
		return nil, fmt.Errorf("openai down")
	}

	var gotParams *tools.SearchParams
	h.Search = func(ctx context.Context, params *tools.SearchParams) ([]tools.Place, error) {
		gotParams = params
		return []tools.Place{{Name: "Sushi Bar", PlaceID: "p1"}}, nil
	}

	h.Handle(context.Background(), textEvent("sushi please"))

	require.NotNil(t, gotParams)
	assert.Equal(t, "japanese restaurant", gotParams.Keyword)
}

func TestRestaurantLocationEvent(t *testing.T) {
	database := testDB(t)
	sender := &fakeSender{}
	h := restaurantHandler(t, sender, database)

	h.Handle(context.Background(), LocationEvent{
		EventMeta: EventMeta{Type: "message", EventID: "e-loc", ReplyToken: "rt", UserID: "U1"},
		Latitude:  25.03,
		Longitude: 121.56,
		Address:   "Xinyi Rd",
		Title:     "Office",
	})

	require.Len(t, sender.replies, 1)
	assert.Contains(t, sender.replies[0][0].Text, "location saved")

	loc, err := db.GetLocation(database, "U1", "resto")
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, "Office", loc.LocationName)
}

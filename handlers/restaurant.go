package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/jinzhu/gorm"

	"github.com/wisehuang/geodine-ai/config"
	"github.com/wisehuang/geodine-ai/db"
	"github.com/wisehuang/geodine-ai/tools"
)

// Handler processes one webhook event for one bot.
type Handler interface {
	Handle(ctx context.Context, event Event)
}

// RestaurantHandler is the search-assistant conversation: free-text
// food requests answered with nearby place recommendations. Function
// fields wrap the outbound APIs so tests can stub them.
type RestaurantHandler struct {
	Cfg    *config.BotConfig
	Sender Sender
	Dedup  *Dedup
	DB     *gorm.DB

	Classify  func(ctx context.Context, text string) (bool, string)
	Detect    func(ctx context.Context, text string) string
	Translate func(ctx context.Context, text, lang string) string
	ParseAI   func(ctx context.Context, text string) (*tools.SearchParams, error)
	Search    func(ctx context.Context, params *tools.SearchParams) ([]tools.Place, error)
	Select    func(ctx context.Context, places []tools.Place, query string, max int, lang string) []tools.SelectedPlace
}

func NewRestaurantHandler(cfg *config.BotConfig, sender Sender, dedup *Dedup, database *gorm.DB) *RestaurantHandler {
	return &RestaurantHandler{
		Cfg:       cfg,
		Sender:    sender,
		Dedup:     dedup,
		DB:        database,
		Classify:  tools.ClassifyRestaurantIntent,
		Detect:    tools.DetectLanguage,
		Translate: tools.TranslateText,
		ParseAI:   tools.ParseRestaurantRequest,
		Search:    tools.SearchPlaces,
		Select:    tools.SelectPlaces,
	}
}

func (h *RestaurantHandler) Handle(ctx context.Context, event Event) {
	switch e := event.(type) {
	case TextEvent:
		h.handleText(ctx, e)
	case LocationEvent:
		h.handleLocation(ctx, e)
	case FollowEvent:
		h.deliver(ctx, e.EventMeta, "en",
			"Welcome! I'm a food & drink recommendation bot. Share your location and tell me what you're craving.")
	}
}

func (h *RestaurantHandler) handleText(ctx context.Context, event TextEvent) {
	lang := h.Cfg.DefaultLanguage
	if detected := h.Detect(ctx, event.Text); detected != "" {
		lang = detected
	}

	related, greeting := h.Classify(ctx, event.Text)
	if greeting != "" {
		h.deliver(ctx, event.EventMeta, lang, greeting)
		return
	}
	if !related {
		h.deliver(ctx, event.EventMeta, lang,
			"I'm a food & drink recommendation bot, so I can only help with finding restaurants, cafes and the like. What would you like to eat or drink?")
		return
	}

	if IsGenericFoodRequest(event.Text) {
		question := "What type of food or drink are you in the mood for? For example: japanese, italian, coffee, dessert..."
		if last, err := db.GetPreference(h.DB, event.UserID, h.Cfg.BotID, "last_cuisine"); err == nil && last != "" {
			question = fmt.Sprintf("What type of food or drink are you in the mood for? Last time you went for %s.", last)
		}
		h.deliver(ctx, event.EventMeta, lang, question)
		return
	}

	params := h.parseRequest(ctx, event.Text)
	params.Language = lang
	if params.Radius == 0 {
		params.Radius = h.Cfg.DefaultRadius
	}

	if params.Location == nil {
		coords, err := db.GetLocationForSearch(h.DB, event.UserID, h.Cfg.BotID)
		if err != nil {
			log.Printf("restaurant[%s]: location lookup failed: %v", h.Cfg.BotID, err)
		}
		if coords == nil {
			h.deliver(ctx, event.EventMeta, lang,
				"I need your location to search nearby. Please share it with the 📍 location button.")
			return
		}
		params.Location = &tools.Coordinates{Lat: coords.Lat, Lng: coords.Lng}
	}

	searching := "Searching for places near you..."
	if params.Keyword != "" {
		searching = fmt.Sprintf("Searching for %s near you...", params.Keyword)
	}
	h.deliver(ctx, event.EventMeta, lang, searching)

	places, err := h.Search(ctx, params)
	if err != nil {
		log.Printf("restaurant[%s]: search failed: %v", h.Cfg.BotID, err)
		h.push(ctx, event.UserID, lang, "Sorry, the search failed. Please try again in a moment.")
		return
	}
	if len(places) == 0 {
		h.push(ctx, event.UserID, lang, "I couldn't find anything matching that near you. Try a different cuisine or a wider area?")
		return
	}

	if params.Keyword != "" {
		if err := db.SetPreference(h.DB, event.UserID, h.Cfg.BotID, "last_cuisine", params.Keyword); err != nil {
			log.Printf("restaurant[%s]: preference save failed: %v", h.Cfg.BotID, err)
		}
	}

	selected := h.Select(ctx, places, event.Text, 3, lang)
	if len(selected) == 0 {
		max := 3
		if len(places) < max {
			max = len(places)
		}
		for _, p := range places[:max] {
			selected = append(selected, tools.SelectedPlace{Place: p})
		}
	}

	flex, err := buildPlacesCarousel(selected)
	if err != nil {
		log.Printf("restaurant[%s]: carousel build failed: %v", h.Cfg.BotID, err)
		h.push(ctx, event.UserID, lang, formatPlacesText(selected))
		return
	}
	if err := h.Sender.Push(ctx, event.UserID, []tools.Message{
		tools.FlexMessage("Restaurant recommendations", flex),
	}); err != nil {
		log.Printf("restaurant[%s]: results push failed: %v", h.Cfg.BotID, err)
	}
}

func (h *RestaurantHandler) handleLocation(ctx context.Context, event LocationEvent) {
	_, err := db.UpsertLocation(h.DB, event.UserID, h.Cfg.BotID,
		event.Latitude, event.Longitude, event.Address, event.Title)
	if err != nil {
		log.Printf("restaurant[%s]: location save failed: %v", h.Cfg.BotID, err)
		h.deliver(ctx, event.EventMeta, h.Cfg.DefaultLanguage,
			"Sorry, I couldn't save your location. Please try sharing it again.")
		return
	}

	h.deliver(ctx, event.EventMeta, h.Cfg.DefaultLanguage,
		"Got it, location saved! 📍 Now tell me what you'd like to eat or drink.")
}

// parseRequest prefers AI parsing when enabled and falls back to the
// keyword heuristics.
func (h *RestaurantHandler) parseRequest(ctx context.Context, text string) *tools.SearchParams {
	if h.Cfg.UseAIParsing {
		params, err := h.ParseAI(ctx, text)
		if err == nil && params != nil {
			return params
		}
		if err != nil {
			log.Printf("restaurant[%s]: AI parsing failed, using keywords: %v", h.Cfg.BotID, err)
		}
	}
	return ParseSearchText(text)
}

func (h *RestaurantHandler) deliver(ctx context.Context, meta EventMeta, lang, text string) {
	SafeDeliver(ctx, h.Sender, h.Dedup, meta, tools.TextMessage(h.Translate(ctx, text, lang)))
}

func (h *RestaurantHandler) push(ctx context.Context, userID, lang, text string) {
	if err := h.Sender.Push(ctx, userID, []tools.Message{tools.TextMessage(h.Translate(ctx, text, lang))}); err != nil {
		log.Printf("restaurant[%s]: push failed: %v", h.Cfg.BotID, err)
	}
}

func formatPlacesText(selected []tools.SelectedPlace) string {
	out := "Here's what I found:\n"
	for i, s := range selected {
		out += fmt.Sprintf("\n%d. %s", i+1, s.Place.Name)
		if s.Place.Rating != nil {
			out += fmt.Sprintf(" (⭐ %.1f)", *s.Place.Rating)
		}
		if s.Place.Address != "" {
			out += "\n   " + s.Place.Address
		}
		if s.Explanation != "" {
			out += "\n   " + s.Explanation
		}
	}
	return out
}

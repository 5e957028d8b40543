package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jinzhu/gorm"

	"github.com/wisehuang/geodine-ai/config"
	"github.com/wisehuang/geodine-ai/db"
	"github.com/wisehuang/geodine-ai/tools"
)

// WeatherHandler is the daily-recommendation conversation: on-demand
// weather reports and outfit-of-the-day suggestions with a generated
// image. Subscribers also receive the daily broadcast.
type WeatherHandler struct {
	Cfg    *config.BotConfig
	Sender Sender
	Dedup  *Dedup
	DB     *gorm.DB
	Images *tools.ImageGenerator

	Weather func(ctx context.Context, lat, lon float64) (*tools.TodayWeather, error)
}

func NewWeatherHandler(cfg *config.BotConfig, sender Sender, dedup *Dedup, database *gorm.DB, images *tools.ImageGenerator) *WeatherHandler {
	return &WeatherHandler{
		Cfg:     cfg,
		Sender:  sender,
		Dedup:   dedup,
		DB:      database,
		Images:  images,
		Weather: tools.GetTodayWeather,
	}
}

const outfitFollowUp = "✨ Here's your outfit recommendation!\n\n" +
	"👔 Style tip: Dress in layers and choose colors that match your mood!\n\n" +
	"💬 Want another recommendation? Just type 'outfit'!"

const weatherWelcome = "Hi! I send you the weather and an outfit-of-the-day suggestion every morning. 🌤️\n\n" +
	"You can also ask me anytime:\n" +
	"· \"weather\" for today's forecast\n" +
	"· \"outfit\" or \"ootd\" for an outfit suggestion\n" +
	"· share your location 📍 to get forecasts for where you are"

func (h *WeatherHandler) Handle(ctx context.Context, event Event) {
	switch e := event.(type) {
	case TextEvent:
		h.handleText(ctx, e)
	case LocationEvent:
		h.handleLocation(ctx, e)
	case FollowEvent:
		SafeDeliver(ctx, h.Sender, h.Dedup, e.EventMeta, tools.TextMessage(weatherWelcome))
	}
}

func (h *WeatherHandler) handleText(ctx context.Context, event TextEvent) {
	text := strings.ToLower(strings.TrimSpace(event.Text))

	switch {
	case text == "hi" || text == "hello" || text == "hey" || text == "help" || text == "start":
		SafeDeliver(ctx, h.Sender, h.Dedup, event.EventMeta, tools.TextMessage(weatherWelcome))

	case strings.Contains(text, "outfit") || strings.Contains(text, "ootd") || strings.Contains(text, "recommend"):
		h.sendOutfit(ctx, event.EventMeta)

	case strings.Contains(text, "weather") || strings.Contains(text, "forecast") || strings.Contains(text, "天氣"):
		h.sendWeather(ctx, event.EventMeta)

	default:
		SafeDeliver(ctx, h.Sender, h.Dedup, event.EventMeta, tools.TextMessage(
			"I didn't catch that. Try \"weather\" for the forecast or \"outfit\" for a suggestion. 🙂"))
	}
}

func (h *WeatherHandler) handleLocation(ctx context.Context, event LocationEvent) {
	_, err := db.UpsertLocation(h.DB, event.UserID, h.Cfg.BotID,
		event.Latitude, event.Longitude, event.Address, event.Title)
	if err != nil {
		log.Printf("weather[%s]: location save failed: %v", h.Cfg.BotID, err)
		SafeDeliver(ctx, h.Sender, h.Dedup, event.EventMeta, tools.TextMessage(
			"Sorry, I couldn't save your location. Please try sharing it again."))
		return
	}

	name := tools.LocationName(event.Latitude, event.Longitude)
	if event.Title != "" {
		name = event.Title
	}

	// confirma e já entrega a previsão do novo local
	weather, err := h.Weather(ctx, event.Latitude, event.Longitude)
	if err != nil {
		log.Printf("weather[%s]: forecast fetch failed: %v", h.Cfg.BotID, err)
		SafeDeliver(ctx, h.Sender, h.Dedup, event.EventMeta, tools.TextMessage(
			fmt.Sprintf("Location saved! 📍 Your forecasts will now use %s.", name)))
		return
	}

	SafeDeliver(ctx, h.Sender, h.Dedup, event.EventMeta,
		tools.TextMessage(fmt.Sprintf("Location saved! 📍 Your forecasts will now use %s.", name)),
		tools.TextMessage(fmt.Sprintf("Weather for %s\n\n%s", name, tools.FormatWeatherSummary(weather))))

	if h.Images == nil || event.UserID == "" {
		return
	}
	imageURL, err := h.Images.GenerateOutfitImage(ctx, weather, h.Cfg.ImagePromptTemplate)
	if err != nil {
		log.Printf("weather[%s]: image generation failed: %v", h.Cfg.BotID, err)
		return
	}
	outfit := []tools.Message{tools.ImageMessage(imageURL), tools.TextMessage(outfitFollowUp)}
	if err := h.Sender.Push(ctx, event.UserID, outfit); err != nil {
		log.Printf("weather[%s]: image push failed: %v", h.Cfg.BotID, err)
	}
}

func (h *WeatherHandler) sendWeather(ctx context.Context, meta EventMeta) {
	lat, lon, name := h.userCoordinates(meta.UserID)
	weather, err := h.Weather(ctx, lat, lon)
	if err != nil {
		log.Printf("weather[%s]: forecast fetch failed: %v", h.Cfg.BotID, err)
		SafeDeliver(ctx, h.Sender, h.Dedup, meta, tools.TextMessage(
			"Sorry, I couldn't fetch the forecast right now. Please try again later."))
		return
	}

	summary := fmt.Sprintf("Weather for %s\n\n%s", name, tools.FormatWeatherSummary(weather))
	SafeDeliver(ctx, h.Sender, h.Dedup, meta, tools.TextMessage(summary))
}

// sendOutfit replies with the forecast right away, then pushes the
// generated image when it is ready. Image failures degrade to a text
// apology; the forecast was already delivered.
func (h *WeatherHandler) sendOutfit(ctx context.Context, meta EventMeta) {
	lat, lon, name := h.userCoordinates(meta.UserID)
	weather, err := h.Weather(ctx, lat, lon)
	if err != nil {
		log.Printf("weather[%s]: forecast fetch failed: %v", h.Cfg.BotID, err)
		SafeDeliver(ctx, h.Sender, h.Dedup, meta, tools.TextMessage(
			"Sorry, I couldn't fetch the forecast right now. Please try again later."))
		return
	}

	intro := fmt.Sprintf("Weather for %s\n\n%sGenerating your outfit of the day, one moment... 🎨",
		name, tools.FormatWeatherSummary(weather))
	SafeDeliver(ctx, h.Sender, h.Dedup, meta, tools.TextMessage(intro))

	if h.Images == nil || meta.UserID == "" {
		return
	}
	imageURL, err := h.Images.GenerateOutfitImage(ctx, weather, h.Cfg.ImagePromptTemplate)
	if err != nil {
		log.Printf("weather[%s]: image generation failed: %v", h.Cfg.BotID, err)
		h.pushText(ctx, meta.UserID, "The outfit image didn't come out this time, sorry! The forecast above still has you covered. 🙏")
		return
	}
	outfit := []tools.Message{tools.ImageMessage(imageURL), tools.TextMessage(outfitFollowUp)}
	if err := h.Sender.Push(ctx, meta.UserID, outfit); err != nil {
		log.Printf("weather[%s]: image push failed: %v", h.Cfg.BotID, err)
	}
}

// userCoordinates returns the user's saved location, or the default
// location when none was shared.
func (h *WeatherHandler) userCoordinates(userID string) (lat, lon float64, name string) {
	lat, lon = tools.DefaultLatitude, tools.DefaultLongitude
	name = tools.DefaultLocationName

	if h.DB == nil || userID == "" {
		return
	}
	loc, err := db.GetLocation(h.DB, userID, h.Cfg.BotID)
	if err != nil {
		log.Printf("weather[%s]: location lookup failed: %v", h.Cfg.BotID, err)
		return
	}
	if loc == nil {
		return
	}
	lat, lon = loc.Latitude, loc.Longitude
	if loc.LocationName != "" {
		name = loc.LocationName
	} else {
		name = tools.LocationName(lat, lon)
	}
	return
}

func (h *WeatherHandler) pushText(ctx context.Context, userID, text string) {
	if err := h.Sender.Push(ctx, userID, []tools.Message{tools.TextMessage(text)}); err != nil {
		log.Printf("weather[%s]: push failed: %v", h.Cfg.BotID, err)
	}
}

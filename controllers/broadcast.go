package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"

	"github.com/wisehuang/geodine-ai/db"
	"github.com/wisehuang/geodine-ai/models"
	"github.com/wisehuang/geodine-ai/registry"
	"github.com/wisehuang/geodine-ai/workers"
)

// BroadcastController exposes the broadcast job over HTTP. Every route
// sits behind the X-API-Key middleware.
type BroadcastController struct {
	Service      *workers.BroadcastService
	Registry     *registry.Registry
	DB           *gorm.DB
	DefaultBotID string
	Schedule     string
}

type broadcastInput struct {
	BotID string `json:"bot_id"`
	// seconds between subscribers; 0 keeps the configured pacing
	DelayBetweenUsers float64 `json:"delay_between_users"`
}

type testBroadcastInput struct {
	BotID      string `json:"bot_id"`
	TestUserID string `json:"test_user_id" binding:"required"`
}

// broadcastResponse is the wire shape of a finished run. The field
// names are part of the public API contract.
type broadcastResponse struct {
	Status           string   `json:"status"`
	Message          string   `json:"message"`
	TotalSubscribers int      `json:"total_subscribers"`
	Successful       int      `json:"successful"`
	Failed           int      `json:"failed"`
	Errors           []string `json:"errors,omitempty"`
}

func newBroadcastResponse(result *workers.Result) *broadcastResponse {
	if result == nil {
		return nil
	}
	return &broadcastResponse{
		Status:           result.Status,
		Message:          fmt.Sprintf("Broadcast completed: %d/%d subscribers reached", result.Successful, result.Total),
		TotalSubscribers: result.Total,
		Successful:       result.Successful,
		Failed:           result.Failed,
		Errors:           result.Errors,
	}
}

// resolveWeatherBot maps the optional bot_id to a registered
// weather-kind bot, answering 404 itself when that fails.
func (b *BroadcastController) resolveWeatherBot(c *gin.Context, botID string) (*registry.Handle, bool) {
	if botID == "" {
		botID = b.DefaultBotID
	}
	handle := b.Registry.Get(botID)
	if handle == nil {
		RespondError(c, "unknown bot: "+botID, http.StatusNotFound)
		return nil, false
	}
	if handle.Config.BotType != models.BOT_TYPE_WEATHER {
		RespondError(c, "bot "+botID+" is not a weather bot", http.StatusNotFound)
		return nil, false
	}
	return handle, true
}

// TriggerDailyWeather handles POST /broadcast/daily-weather. The run is
// synchronous: the response carries the full accounting of the run.
func (b *BroadcastController) TriggerDailyWeather(c *gin.Context) {
	var input broadcastInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			RespondError(c, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	handle, ok := b.resolveWeatherBot(c, input.BotID)
	if !ok {
		return
	}

	delay := b.Service.Delay
	if input.DelayBetweenUsers > 0 {
		delay = time.Duration(input.DelayBetweenUsers * float64(time.Second))
	}

	result, err := b.Service.RunWithDelay(c.Request.Context(), handle.Config.BotID, delay)
	if err != nil {
		if errors.Is(err, workers.ErrAlreadyRunning) {
			RespondError(c, err.Error(), http.StatusConflict)
			return
		}
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, newBroadcastResponse(result))
}

// TriggerTest handles POST /broadcast/test: the daily pipeline for one
// explicit recipient.
func (b *BroadcastController) TriggerTest(c *gin.Context) {
	var input testBroadcastInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	handle, ok := b.resolveWeatherBot(c, input.BotID)
	if !ok {
		return
	}

	if err := b.Service.SendTest(c.Request.Context(), handle.Config.BotID, input.TestUserID); err != nil {
		log.Printf("broadcast: test send failed for %s: %v", input.TestUserID, err)
		RespondSuccess(c, gin.H{
			"success": false,
			"message": "Test broadcast failed. Check server logs for details.",
			"bot_id":  handle.Config.BotID,
		})
		return
	}
	RespondSuccess(c, gin.H{
		"success": true,
		"message": "Test broadcast sent successfully to user " + input.TestUserID,
		"bot_id":  handle.Config.BotID,
	})
}

// Status handles GET /broadcast/status/:botId: config summary,
// subscriber count and the last recorded run, if any.
func (b *BroadcastController) Status(c *gin.Context) {
	handle, ok := b.resolveWeatherBot(c, c.Param("botId"))
	if !ok {
		return
	}

	payload := gin.H{
		"bot_id":   handle.Config.BotID,
		"bot_name": handle.Config.Name,
		"bot_type": handle.Config.BotType,
		"schedule": b.Schedule,
		"last_run": b.Service.LastRun(handle.Config.BotID),
	}
	if b.DB != nil {
		subs, err := db.ListSubscribers(b.DB, handle.Config.BotID)
		if err != nil {
			RespondError(c, "failed to count subscribers: "+err.Error(), http.StatusInternalServerError)
			return
		}
		payload["subscriber_count"] = len(subs)
	}
	RespondSuccess(c, payload)
}

package controllers

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wisehuang/geodine-ai/handlers"
	"github.com/wisehuang/geodine-ai/registry"
	"github.com/wisehuang/geodine-ai/tools"
)

// Processing continues after the HTTP answer; this bounds how long one
// webhook batch may keep calling outbound APIs.
const webhookProcessingTimeout = 10 * time.Minute

// WebhookDispatcher resolves inbound LINE webhooks to registered bots.
// Paths are dynamic (one per bot, reloadable), so this hangs off gin's
// NoRoute instead of static routes.
type WebhookDispatcher struct {
	Registry *registry.Registry
}

// Dispatch handles POST <bot webhook path>. The signature is verified
// against the bot's channel secret before anything else; after that the
// request is acknowledged with 200 and the events are processed in the
// background, so a slow downstream API never makes LINE retry.
func (d *WebhookDispatcher) Dispatch(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		RespondError(c, "not found", http.StatusNotFound)
		return
	}

	handle := d.Registry.GetByWebhookPath(c.Request.URL.Path)
	if handle == nil {
		RespondError(c, "not found", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondError(c, "failed to read body", http.StatusBadRequest)
		return
	}

	signature := c.GetHeader("X-Line-Signature")
	if !tools.ValidateLineSignature(handle.Config.ChannelSecret, body, signature) {
		log.Printf("webhook[%s]: invalid signature", handle.Config.BotID)
		RespondError(c, "invalid signature", http.StatusBadRequest)
		return
	}

	events, err := handlers.ParseEvents(body)
	if err != nil {
		log.Printf("webhook[%s]: bad body: %v", handle.Config.BotID, err)
		// assinatura ok, corpo estranho: responde 200 para evitar retries
		RespondSuccess(c, gin.H{"status": "OK"})
		return
	}

	RespondSuccess(c, gin.H{"status": "OK"})

	go processEvents(handle, events)
}

func processEvents(handle *registry.Handle, events []handlers.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("webhook[%s]: panic while processing events: %v", handle.Config.BotID, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), webhookProcessingTimeout)
	defer cancel()

	for _, event := range events {
		handle.Handler.Handle(ctx, event)
	}
}

package handlers

import (
	"encoding/json"
	"fmt"
)

// EventMeta carries the fields shared by every webhook event type.
type EventMeta struct {
	Type       string
	EventID    string
	ReplyToken string
	UserID     string
	Timestamp  int64
}

// Event is one inbound webhook event.
type Event interface {
	Meta() EventMeta
}

// TextEvent is a message event carrying text.
type TextEvent struct {
	EventMeta
	Text string
}

// LocationEvent is a message event carrying a shared location.
type LocationEvent struct {
	EventMeta
	Latitude  float64
	Longitude float64
	Address   string
	Title     string
}

// FollowEvent fires when a user adds or unblocks the bot.
type FollowEvent struct {
	EventMeta
}

func (e TextEvent) Meta() EventMeta     { return e.EventMeta }
func (e LocationEvent) Meta() EventMeta { return e.EventMeta }
func (e FollowEvent) Meta() EventMeta   { return e.EventMeta }

type webhookEnvelope struct {
	Destination string         `json:"destination"`
	Events      []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type           string `json:"type"`
	WebhookEventID string `json:"webhookEventId"`
	ReplyToken     string `json:"replyToken"`
	Timestamp      int64  `json:"timestamp"`
	Source         struct {
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		ID        string  `json:"id"`
		Type      string  `json:"type"`
		Text      string  `json:"text"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Address   string  `json:"address"`
		Title     string  `json:"title"`
	} `json:"message"`
}

// ParseEvents decodes a webhook body into typed events. Unsupported
// event and message types are skipped, not errors. The event id prefers
// webhookEventId and falls back to the message id.
func ParseEvents(body []byte) ([]Event, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("invalid webhook body: %w", err)
	}

	var events []Event
	for _, raw := range envelope.Events {
		eventID := raw.WebhookEventID
		if eventID == "" {
			eventID = raw.Message.ID
		}
		meta := EventMeta{
			Type:       raw.Type,
			EventID:    eventID,
			ReplyToken: raw.ReplyToken,
			UserID:     raw.Source.UserID,
			Timestamp:  raw.Timestamp,
		}

		switch raw.Type {
		case "message":
			switch raw.Message.Type {
			case "text":
				events = append(events, TextEvent{EventMeta: meta, Text: raw.Message.Text})
			case "location":
				events = append(events, LocationEvent{
					EventMeta: meta,
					Latitude:  raw.Message.Latitude,
					Longitude: raw.Message.Longitude,
					Address:   raw.Message.Address,
					Title:     raw.Message.Title,
				})
			}
		case "follow":
			events = append(events, FollowEvent{EventMeta: meta})
		}
	}
	return events, nil
}

package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/wisehuang/geodine-ai/tools"
)

// Sender is the outbound side of the LINE Messaging API.
// *tools.LineClient is the production implementation.
type Sender interface {
	Reply(ctx context.Context, replyToken string, messages []tools.Message) error
	Push(ctx context.Context, to string, messages []tools.Message) error
}

// SafeDeliver answers an event without ever answering it twice. It
// drops duplicate events, tries the reply channel first and falls back
// to pushing each message individually when the reply token is spent.
// Delivery failures are logged, not returned: a lost answer must not
// abort the rest of the webhook batch.
func SafeDeliver(ctx context.Context, sender Sender, dedup *Dedup, meta EventMeta, messages ...tools.Message) {
	if dedup != nil && dedup.Seen(meta.EventID) {
		log.Printf("delivery: duplicate event %s, skipping", meta.EventID)
		return
	}
	if len(messages) == 0 {
		return
	}

	err := sender.Reply(ctx, meta.ReplyToken, messages)
	if err == nil {
		return
	}

	var apiErr *tools.APIError
	if errors.As(err, &apiErr) && apiErr.IsInvalidReplyToken() && meta.UserID != "" {
		log.Printf("delivery: reply token spent for event %s, falling back to push", meta.EventID)
		for _, msg := range messages {
			if pushErr := sender.Push(ctx, meta.UserID, []tools.Message{msg}); pushErr != nil {
				log.Printf("delivery: push fallback failed for %s: %v", meta.UserID, pushErr)
				return
			}
		}
		return
	}

	log.Printf("delivery: reply failed for event %s: %v", meta.EventID, err)
}

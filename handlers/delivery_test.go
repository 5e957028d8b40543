package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisehuang/geodine-ai/tools"
)

type pushCall struct {
	To       string
	Messages []tools.Message
}

type fakeSender struct {
	replyErr error
	pushErr  error
	replies  [][]tools.Message
	pushes   []pushCall
}

func (f *fakeSender) Reply(ctx context.Context, replyToken string, messages []tools.Message) error {
	f.replies = append(f.replies, messages)
	return f.replyErr
}

func (f *fakeSender) Push(ctx context.Context, to string, messages []tools.Message) error {
	f.pushes = append(f.pushes, pushCall{To: to, Messages: messages})
	return f.pushErr
}

func meta(eventID string) EventMeta {
	return EventMeta{EventID: eventID, ReplyToken: "token", UserID: "U123"}
}

func TestSafeDeliverReplySucceeds(t *testing.T) {
	sender := &fakeSender{}
	SafeDeliver(context.Background(), sender, NewDedup(), meta("e1"), tools.TextMessage("hello"))

	require.Len(t, sender.replies, 1)
	assert.Empty(t, sender.pushes, "no push when reply worked")
}

func TestSafeDeliverFallsBackToPushOnSpentToken(t *testing.T) {
	sender := &fakeSender{replyErr: &tools.APIError{
		StatusCode: http.StatusBadRequest,
		Message:    `{"message":"Invalid reply token"}`,
	}}
	SafeDeliver(context.Background(), sender, NewDedup(), meta("e1"),
		tools.TextMessage("first"), tools.TextMessage("second"))

	require.Len(t, sender.pushes, 2, "each message pushed individually")
	assert.Equal(t, "U123", sender.pushes[0].To)
	assert.Equal(t, "first", sender.pushes[0].Messages[0].Text)
	assert.Equal(t, "second", sender.pushes[1].Messages[0].Text)
}

func TestSafeDeliverSwallowsOtherErrors(t *testing.T) {
	sender := &fakeSender{replyErr: errors.New("connection refused")}
	SafeDeliver(context.Background(), sender, NewDedup(), meta("e1"), tools.TextMessage("hello"))

	assert.Empty(t, sender.pushes, "non-token errors do not trigger the push fallback")
}

func TestSafeDeliverDropsDuplicates(t *testing.T) {
	sender := &fakeSender{}
	dedup := NewDedup()

	SafeDeliver(context.Background(), sender, dedup, meta("e1"), tools.TextMessage("hello"))
	SafeDeliver(context.Background(), sender, dedup, meta("e1"), tools.TextMessage("hello"))

	assert.Len(t, sender.replies, 1, "duplicate event answered only once")
}

func TestSafeDeliverNilDedup(t *testing.T) {
	sender := &fakeSender{}
	SafeDeliver(context.Background(), sender, nil, meta("e1"), tools.TextMessage("hello"))
	require.Len(t, sender.replies, 1)
}

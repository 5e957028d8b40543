package tools

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const lineAPIEndpoint = "https://api.line.me/v2/bot"

// LINE caps both reply and push at 5 messages per call.
const lineMaxMessagesPerCall = 5

// Message is an outbound LINE message (text, image or flex).
type Message struct {
	Type               string          `json:"type"`
	Text               string          `json:"text,omitempty"`
	OriginalContentURL string          `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string          `json:"previewImageUrl,omitempty"`
	AltText            string          `json:"altText,omitempty"`
	Contents           json.RawMessage `json:"contents,omitempty"`
}

func TextMessage(text string) Message {
	return Message{Type: "text", Text: text}
}

func ImageMessage(url string) Message {
	return Message{Type: "image", OriginalContentURL: url, PreviewImageURL: url}
}

func FlexMessage(altText string, contents json.RawMessage) Message {
	return Message{Type: "flex", AltText: altText, Contents: contents}
}

// APIError is a non-2xx answer from the LINE Messaging API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("line api error: status=%d body=%s", e.StatusCode, e.Message)
}

// IsInvalidReplyToken reports whether the error means the reply token
// was already used or expired, i.e. the caller should fall back to push.
func (e *APIError) IsInvalidReplyToken() bool {
	return e.StatusCode == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(e.Message), "invalid reply token")
}

// LineClient sends messages through the LINE Messaging API for one bot
// (one channel access token per tenant).
type LineClient struct {
	AccessToken string
	Endpoint    string // defaults to the public API, override in tests
	HTTPClient  *http.Client
}

// Reply answers an inbound event through the low-latency reply channel.
// The reply token is single use and short lived.
func (c *LineClient) Reply(ctx context.Context, replyToken string, messages []Message) error {
	if len(messages) > lineMaxMessagesPerCall {
		messages = messages[:lineMaxMessagesPerCall]
	}
	return c.post(ctx, "/message/reply", map[string]any{
		"replyToken": replyToken,
		"messages":   messages,
	})
}

// Push sends messages to a known user id, independent of any reply token.
func (c *LineClient) Push(ctx context.Context, to string, messages []Message) error {
	for len(messages) > 0 {
		batch := messages
		if len(batch) > lineMaxMessagesPerCall {
			batch = batch[:lineMaxMessagesPerCall]
		}
		if err := c.post(ctx, "/message/push", map[string]any{
			"to":       to,
			"messages": batch,
		}); err != nil {
			return err
		}
		messages = messages[len(batch):]
	}
	return nil
}

func (c *LineClient) post(ctx context.Context, path string, body any) error {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = lineAPIEndpoint
	}

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	return nil
}

// ValidateLineSignature checks the X-Line-Signature header against the
// raw request body: base64(HMAC-SHA256(channel secret, body)).
func ValidateLineSignature(channelSecret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

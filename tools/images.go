package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const imagesAPIEndpoint = "https://api.openai.com/v1/images/generations"

// Image generation is the slowest outbound call in the system; after
// this timeout it is treated as a failure and never retried.
const imageGenerationTimeout = 5 * time.Minute

// ImageGenerator produces outfit images through the OpenAI Images API.
// gpt-image-1 answers with base64 data which is stored under ImagesDir
// and served statically; dall-e models answer with a hosted URL.
type ImageGenerator struct {
	Endpoint   string // defaults to the public API, override in tests
	ImagesDir  string
	ServerURL  string
	Model      string
	HTTPClient *http.Client
}

func NewImageGenerator(imagesDir, serverURL string) *ImageGenerator {
	return &ImageGenerator{
		ImagesDir: imagesDir,
		ServerURL: strings.TrimRight(serverURL, "/"),
		Model:     "gpt-image-1",
	}
}

// GenerateOutfitImage builds a prompt from the weather (or the bot's
// custom template) and returns a URL for the generated image, or an
// error the caller degrades into a text-only apology.
func (g *ImageGenerator) GenerateOutfitImage(ctx context.Context, weather *TodayWeather, customPrompt string) (string, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}

	prompt := g.buildPrompt(weather, customPrompt)

	model := g.Model
	if model == "" {
		model = "gpt-image-1"
	}
	payload := map[string]any{
		"model":  model,
		"prompt": prompt,
		"n":      1,
		"size":   "1024x1536",
	}
	if model == "gpt-image-1" {
		payload["quality"] = "auto"
	} else {
		payload["response_format"] = "url"
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = imagesAPIEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := g.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: imageGenerationTimeout}
	}

	log.Printf("images: generating outfit image with model %s", model)
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("images api error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Data []struct {
			URL     string `json:"url"`
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Data) == 0 {
		return "", fmt.Errorf("images api: empty response")
	}

	data := parsed.Data[0]
	if data.URL != "" {
		return data.URL, nil
	}
	if data.B64JSON != "" {
		return g.saveBase64Image(data.B64JSON)
	}
	return "", fmt.Errorf("images api: unexpected response format")
}

func (g *ImageGenerator) saveBase64Image(b64 string) (string, error) {
	imageBytes, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.ImagesDir, 0o755); err != nil {
		return "", err
	}
	filename := uuid.New().String() + ".png"
	if err := os.WriteFile(filepath.Join(g.ImagesDir, filename), imageBytes, 0o644); err != nil {
		return "", err
	}

	return g.ServerURL + "/generated_images/" + filename, nil
}

// buildPrompt fills the bot's custom template when one is configured,
// otherwise composes the default outfit prompt from the weather.
func (g *ImageGenerator) buildPrompt(weather *TodayWeather, customPrompt string) string {
	contextStr := OutfitContext(weather)
	if customPrompt != "" {
		temperature := "moderate temperature"
		conditions := "calm conditions"
		if weather != nil {
			temperature = fmt.Sprintf("%.1f°C to %.1f°C", weather.TempMin, weather.TempMax)
			conditions = strings.ToLower(WeatherDescription(weather.WeatherCode))
		}
		r := strings.NewReplacer(
			"{weather_description}", contextStr,
			"{temperature}", temperature,
			"{conditions}", conditions,
		)
		return r.Replace(customPrompt)
	}
	if weather == nil {
		return "Create a stylish outfit recommendation for moderate weather conditions."
	}
	return fmt.Sprintf(
		"Create a full-body fashion photograph of a stylish outfit of the day suited to %s. "+
			"Show the complete outfit laid out or worn, with clean composition and soft natural lighting. "+
			"No text in the image.",
		contextStr,
	)
}

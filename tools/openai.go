package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const chatCompletionsEndpoint = "https://api.openai.com/v1/chat/completions"

// Bounded memoization for detection/translation: both are called for
// the same short strings over and over (UI labels, generic terms).
const languageCacheSize = 1000

var (
	languageCache, _    = lru.New[string, string](languageCacheSize)
	translationCache, _ = lru.New[string, string](languageCacheSize)
	chatGroup           singleflight.Group
)

// chatText runs one chat completion and returns the assistant text.
func chatText(ctx context.Context, system, user string, temperature float64, maxTokens int, jsonMode bool) (string, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}
	model := getenv("OPENAI_MODEL", "gpt-4o")

	reqBody := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": temperature,
	}
	if maxTokens > 0 {
		reqBody["max_tokens"] = maxTokens
	}
	if jsonMode {
		reqBody["response_format"] = map[string]string{"type": "json_object"}
	}

	b, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chatCompletionsEndpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai error %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// DetectLanguage identifies the language of text ('en', 'zh-tw', 'ja',
// ...). Chinese variants are normalized to zh-tw. Falls back to a
// script-range check when the API fails.
func DetectLanguage(ctx context.Context, text string) string {
	if len(strings.TrimSpace(text)) < 2 {
		return "en"
	}

	cacheKey := truncate(text, 100)
	if lang, ok := languageCache.Get(cacheKey); ok {
		return lang
	}

	v, err, _ := chatGroup.Do("detect|"+cacheKey, func() (any, error) {
		return chatText(ctx,
			"You are a language detector. Identify the language of the text and respond with the "+
				"appropriate language code (e.g., 'en', 'zh-tw', 'ja', 'ko', etc.). If the language is any "+
				"variant of Chinese (such as zh, zh-cn, zh-hk, zh-tw), always respond with 'zh-tw'.",
			truncate(text, 150), 0, 10, false)
	})
	if err != nil {
		log.Printf("openai: language detection failed: %v", err)
		return detectLanguageByScript(text)
	}

	lang := strings.ToLower(v.(string))
	languageCache.Add(cacheKey, lang)
	return lang
}

// TranslateText translates English text to the target language. Returns
// the original text for English targets and on any failure.
func TranslateText(ctx context.Context, text, targetLanguage string) string {
	if targetLanguage == "" || targetLanguage == "en" {
		return text
	}

	cacheKey := truncate(text, 100) + "|" + targetLanguage
	if translated, ok := translationCache.Get(cacheKey); ok {
		return translated
	}

	v, err, _ := chatGroup.Do("translate|"+cacheKey, func() (any, error) {
		return chatText(ctx,
			fmt.Sprintf("You are a translator. Translate the following English text to %s. "+
				"Only return the translated text without any explanations or notes.", targetLanguage),
			text, 0.3, 150, false)
	})
	if err != nil {
		log.Printf("openai: translation failed: %v", err)
		return text
	}

	translated := v.(string)
	translationCache.Add(cacheKey, translated)
	return translated
}

// ClassifyRestaurantIntent decides whether the text is a food/drink
// request. reply is non-empty for greetings (a canned welcome to send
// back). Failures assume on-topic so a flaky API never blocks users.
func ClassifyRestaurantIntent(ctx context.Context, text string) (related bool, reply string) {
	lowered := strings.ToLower(text)
	for _, greeting := range []string{"hi", "hello", "hey", "help", "start"} {
		if strings.TrimSpace(lowered) == greeting {
			return true, "Hello! I'm a food & drink recommendation bot. What type of food or drink would you like to find today?"
		}
	}

	out, err := chatText(ctx,
		"You classify user requests for a restaurant recommendation bot. "+
			"Answer with JSON: {\"related\": bool, \"greeting\": bool}. "+
			"\"related\" is true when the message is about finding food, drink or restaurants, "+
			"or is a greeting; \"greeting\" is true for greetings and help requests.",
		text, 0, 50, true)
	if err != nil {
		log.Printf("openai: intent classification failed, assuming on-topic: %v", err)
		return true, ""
	}

	var parsed struct {
		Related  bool `json:"related"`
		Greeting bool `json:"greeting"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return true, ""
	}
	if parsed.Greeting {
		return true, "Hello! I'm a food & drink recommendation bot. What type of food or drink would you like to find today?"
	}
	return parsed.Related, ""
}

var cuisineQueries = map[string]string{
	"japanese":   "japanese restaurant",
	"chinese":    "chinese restaurant",
	"italian":    "italian restaurant",
	"american":   "american restaurant",
	"thai":       "thai restaurant",
	"korean":     "korean restaurant",
	"vegetarian": "vegetarian restaurant",
	"coffee":     "cafe",
	"dessert":    "dessert",
}

// ParseRestaurantRequest extracts structured search parameters from
// free text using the language model. Callers fall back to the keyword
// heuristics on error.
func ParseRestaurantRequest(ctx context.Context, text string) (*SearchParams, error) {
	prompt := fmt.Sprintf(`Extract the following information from this user request: %q
- Restaurant type or cuisine (e.g., japanese, chinese, italian, etc.)
- Location (e.g., a place name, landmark, etc.)
- Price level (1=affordable, 2=medium, 3=expensive, 4=luxury)
- Other requirements (e.g., open now)

Return a JSON with the following structure:
{
    "keyword": "cuisine type or null",
    "location_name": "location or null",
    "price_level": number or null,
    "open_now": boolean
}`, text)

	out, err := chatText(ctx,
		"You are a helpful assistant that extracts structured data from user requests.",
		prompt, 0.1, 0, true)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Keyword      string `json:"keyword"`
		LocationName string `json:"location_name"`
		PriceLevel   int    `json:"price_level"`
		OpenNow      bool   `json:"open_now"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return nil, err
	}

	params := &SearchParams{
		PlaceType:    "restaurant",
		Keyword:      parsed.Keyword,
		LocationName: parsed.LocationName,
		PriceLevel:   parsed.PriceLevel,
		OpenNow:      parsed.OpenNow,
	}
	for cuisine, query := range cuisineQueries {
		if parsed.Keyword != "" && strings.Contains(strings.ToLower(parsed.Keyword), cuisine) {
			params.Keyword = query
			break
		}
	}
	return params, nil
}

// SelectedPlace is a search result with the model's pitch attached.
type SelectedPlace struct {
	Place       Place
	Explanation string
	Highlight   string
}

// SelectPlaces asks the model to pick and pitch the best matches for
// the user's query. Returns nil on failure; callers fall back to the
// raw top results.
func SelectPlaces(ctx context.Context, places []Place, userQuery string, maxResults int, language string) []SelectedPlace {
	if len(places) == 0 {
		return nil
	}
	if maxResults <= 0 || maxResults > len(places) {
		maxResults = min(3, len(places))
	}

	candidates, err := json.Marshal(places)
	if err != nil {
		return nil
	}
	prompt := fmt.Sprintf(
		"User query: %q\nCandidate places (JSON): %s\n\nPick the %d best matches for the query. "+
			"Answer with JSON: {\"selections\": [{\"index\": <candidate index>, \"explanation\": \"one sentence, in %s\", "+
			"\"highlight\": \"short highlight, in %s\"}]}",
		userQuery, string(candidates), maxResults, language, language)

	out, err := chatText(ctx,
		"You are a local food guide that ranks restaurant candidates for a user.",
		prompt, 0.3, 0, true)
	if err != nil {
		log.Printf("openai: place selection failed: %v", err)
		return nil
	}

	var parsed struct {
		Selections []struct {
			Index       int    `json:"index"`
			Explanation string `json:"explanation"`
			Highlight   string `json:"highlight"`
		} `json:"selections"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return nil
	}

	var selected []SelectedPlace
	for _, s := range parsed.Selections {
		if s.Index < 0 || s.Index >= len(places) {
			continue
		}
		selected = append(selected, SelectedPlace{
			Place:       places[s.Index],
			Explanation: s.Explanation,
			Highlight:   s.Highlight,
		})
		if len(selected) == maxResults {
			break
		}
	}
	return selected
}

var (
	chinesePattern  = regexp.MustCompile(`[\x{4e00}-\x{9fff}\x{3400}-\x{4dbf}\x{f900}-\x{faff}]`)
	japanesePattern = regexp.MustCompile(`[\x{3040}-\x{309F}\x{30A0}-\x{30FF}]`)
	koreanPattern   = regexp.MustCompile(`[\x{AC00}-\x{D7AF}\x{1100}-\x{11FF}\x{3130}-\x{318F}]`)
)

func detectLanguageByScript(text string) string {
	switch {
	case japanesePattern.MatchString(text):
		return "ja"
	case chinesePattern.MatchString(text):
		return "zh-tw"
	case koreanPattern.MatchString(text):
		return "ko"
	default:
		return "en"
	}
}

// truncate shortens s to at most n runes, never splitting a multi-byte
// character.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

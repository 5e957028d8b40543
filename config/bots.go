package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/wisehuang/geodine-ai/models"
)

// BotConfig is the configuration for a single LINE bot tenant.
// Many of these compose the registry; they are not persisted
// (except the denormalized models.Bot mirror row).
type BotConfig struct {
	BotID              string `json:"bot_id"`
	Name               string `json:"name"`
	ChannelAccessToken string `json:"channel_access_token"`
	ChannelSecret      string `json:"channel_secret"`
	Description        string `json:"description"`
	WebhookPath        string `json:"webhook_path"`
	BotType            string `json:"bot_type"` // restaurant | weather
	UseAIParsing       bool   `json:"use_ai_parsing"`
	DefaultRadius      int    `json:"default_radius"`
	DefaultLanguage    string `json:"default_language"`
	Enabled            bool   `json:"enabled"`
	// Optional prompt template for outfit image generation. Supports
	// {weather_description}, {temperature} and {conditions} variables.
	ImagePromptTemplate string `json:"image_prompt_template"`
}

// newBotConfig returns a BotConfig pre-filled with defaults so that
// fields absent from the JSON file keep their documented defaults.
func newBotConfig() BotConfig {
	return BotConfig{
		BotType:         models.BOT_TYPE_RESTAURANT,
		UseAIParsing:    true,
		DefaultRadius:   1000,
		DefaultLanguage: "en",
		Enabled:         true,
	}
}

func (c *BotConfig) applyDefaults() error {
	if strings.TrimSpace(c.BotID) == "" {
		return fmt.Errorf("bot_id is required")
	}
	if c.Name == "" {
		c.Name = c.BotID
	}
	if c.WebhookPath == "" {
		c.WebhookPath = "/line/" + c.BotID + "/webhook"
	}
	if c.BotType == "" {
		c.BotType = models.BOT_TYPE_RESTAURANT
	}
	if c.DefaultRadius <= 0 {
		c.DefaultRadius = 1000
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "en"
	}
	c.ChannelAccessToken = expandCredential(c.ChannelAccessToken)
	c.ChannelSecret = expandCredential(c.ChannelSecret)
	return nil
}

// expandCredential resolves "${VAR}" values against the environment so
// secrets can stay out of the bot config files.
func expandCredential(v string) string {
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
		return os.Getenv(v[2 : len(v)-1])
	}
	return v
}

// LoadBotConfigs loads every enabled bot configuration: first the
// legacy single-bot fallback from the environment, then one JSON file
// per bot from dir. A broken file is logged and skipped, never fatal.
// A file config with the same bot_id overrides the legacy one.
func LoadBotConfigs(dir string) []BotConfig {
	byID := map[string]BotConfig{}
	var order []string

	if legacy, ok := legacyBotConfig(); ok {
		byID[legacy.BotID] = legacy
		order = append(order, legacy.BotID)
		log.Printf("config: loaded legacy bot configuration: %s", legacy.BotID)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		log.Printf("config: error listing bot configs in %s: %v", dir, err)
	}
	for _, file := range files {
		cfg, err := loadBotConfigFile(file)
		if err != nil {
			log.Printf("config: error loading bot config from %s: %v", file, err)
			continue
		}
		if !cfg.Enabled {
			continue
		}
		if _, exists := byID[cfg.BotID]; !exists {
			order = append(order, cfg.BotID)
		}
		byID[cfg.BotID] = cfg
		log.Printf("config: loaded bot configuration: %s from %s", cfg.BotID, filepath.Base(file))
	}

	out := make([]BotConfig, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

func loadBotConfigFile(path string) (BotConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return BotConfig{}, err
	}
	cfg := newBotConfig()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return BotConfig{}, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return BotConfig{}, err
	}
	return cfg, nil
}

// legacyBotConfig builds the single-bot "geodine-ai" configuration from
// LINE_CHANNEL_ACCESS_TOKEN / LINE_CHANNEL_SECRET, kept for setups that
// predate the per-bot config directory.
func legacyBotConfig() (BotConfig, bool) {
	token := os.Getenv("LINE_CHANNEL_ACCESS_TOKEN")
	secret := os.Getenv("LINE_CHANNEL_SECRET")
	if token == "" || secret == "" {
		return BotConfig{}, false
	}

	cfg := newBotConfig()
	cfg.BotID = "geodine-ai"
	cfg.Name = "GeoDine-AI"
	cfg.ChannelAccessToken = token
	cfg.ChannelSecret = secret
	cfg.Description = "Legacy bot from environment variables"
	cfg.UseAIParsing = strings.EqualFold(os.Getenv("USE_AI_PARSING"), "true")
	cfg.WebhookPath = "/line/webhook" // original single-bot path
	if err := cfg.applyDefaults(); err != nil {
		return BotConfig{}, false
	}
	return cfg, true
}

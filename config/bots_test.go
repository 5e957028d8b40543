package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBotFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadBotConfigs(t *testing.T) {
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "")
	t.Setenv("LINE_CHANNEL_SECRET", "")
	t.Setenv("WEATHER_TOKEN", "env-token")

	dir := t.TempDir()
	writeBotFile(t, dir, "resto.json", `{
		"bot_id": "resto",
		"channel_access_token": "tok-1",
		"channel_secret": "sec-1"
	}`)
	writeBotFile(t, dir, "weather.json", `{
		"bot_id": "weather-ootd",
		"name": "Weather OOTD",
		"channel_access_token": "${WEATHER_TOKEN}",
		"channel_secret": "sec-2",
		"bot_type": "weather",
		"webhook_path": "/hooks/weather",
		"use_ai_parsing": false,
		"default_language": "zh-tw"
	}`)
	writeBotFile(t, dir, "disabled.json", `{
		"bot_id": "off",
		"channel_access_token": "tok-3",
		"channel_secret": "sec-3",
		"enabled": false
	}`)
	writeBotFile(t, dir, "broken.json", `{not valid json`)

	configs := LoadBotConfigs(dir)
	require.Len(t, configs, 2, "disabled and broken files are skipped")

	byID := map[string]BotConfig{}
	for _, c := range configs {
		byID[c.BotID] = c
	}

	resto := byID["resto"]
	assert.Equal(t, "resto", resto.Name, "name defaults to the bot id")
	assert.Equal(t, "/line/resto/webhook", resto.WebhookPath, "default webhook path pattern")
	assert.Equal(t, "restaurant", resto.BotType)
	assert.True(t, resto.UseAIParsing, "defaults to true when absent")
	assert.Equal(t, 1000, resto.DefaultRadius)
	assert.Equal(t, "en", resto.DefaultLanguage)

	weather := byID["weather-ootd"]
	assert.Equal(t, "env-token", weather.ChannelAccessToken, "${VAR} resolved from the environment")
	assert.Equal(t, "/hooks/weather", weather.WebhookPath, "explicit path kept")
	assert.Equal(t, "weather", weather.BotType)
	assert.False(t, weather.UseAIParsing, "explicit false survives the defaults")
	assert.Equal(t, "zh-tw", weather.DefaultLanguage)
}

func TestLoadBotConfigsLegacyEnvBot(t *testing.T) {
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "legacy-token")
	t.Setenv("LINE_CHANNEL_SECRET", "legacy-secret")
	t.Setenv("USE_AI_PARSING", "true")

	configs := LoadBotConfigs(t.TempDir())
	require.Len(t, configs, 1)

	legacy := configs[0]
	assert.Equal(t, "geodine-ai", legacy.BotID)
	assert.Equal(t, "GeoDine-AI", legacy.Name)
	assert.Equal(t, "/line/webhook", legacy.WebhookPath, "legacy single-bot path")
	assert.Equal(t, "legacy-token", legacy.ChannelAccessToken)
	assert.True(t, legacy.UseAIParsing)
}

func TestLoadBotConfigsFileOverridesLegacy(t *testing.T) {
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "legacy-token")
	t.Setenv("LINE_CHANNEL_SECRET", "legacy-secret")

	dir := t.TempDir()
	writeBotFile(t, dir, "geodine.json", `{
		"bot_id": "geodine-ai",
		"channel_access_token": "file-token",
		"channel_secret": "file-secret"
	}`)

	configs := LoadBotConfigs(dir)
	require.Len(t, configs, 1)
	assert.Equal(t, "file-token", configs[0].ChannelAccessToken, "file config wins over the legacy env bot")
}

func TestLoadBotConfigsMissingBotID(t *testing.T) {
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "")
	t.Setenv("LINE_CHANNEL_SECRET", "")

	dir := t.TempDir()
	writeBotFile(t, dir, "anon.json", `{"channel_access_token": "t", "channel_secret": "s"}`)

	configs := LoadBotConfigs(dir)
	assert.Empty(t, configs)
}

func TestExpandCredential(t *testing.T) {
	t.Setenv("MY_SECRET", "hunter2")
	assert.Equal(t, "hunter2", expandCredential("${MY_SECRET}"))
	assert.Equal(t, "literal-value", expandCredential("literal-value"))
	assert.Equal(t, "", expandCredential("${UNSET_VAR_XYZ}"))
}

package config

import (
	"encoding/json"
	"log"
	"os"
)

type Configuration struct {
	ApiPort string `json:"api_port"`
	LogPath string `json:"log_path"`

	Database string `json:"database"` // "sqlite3" ou "postgres"
	DbHost   string `json:"db_host"`
	DbPort   string `json:"db_port"`
	DbUser   string `json:"db_user"`
	DbName   string `json:"db_name"`
	DbPass   string `json:"db_pass"`

	// ServerURL is the public base URL used to build links to locally
	// stored generated images (e.g. https://bot.example.com).
	ServerURL string `json:"server_url"`
	ImagesDir string `json:"images_dir"`
	BotsDir   string `json:"bots_dir"`

	Broadcast struct {
		// Cron spec for the in-process daily broadcast. Empty disables
		// the scheduler (an external cron can hit the API instead).
		Schedule          string  `json:"schedule"`
		BotID             string  `json:"bot_id"`
		DelayBetweenUsers float64 `json:"delay_between_users_seconds"`
	} `json:"broadcast"`
}

func Get(path string) Configuration {
	var c Configuration

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			log.Fatal(err)
		}
		if err := json.Unmarshal(b, &c); err != nil {
			log.Fatal(err)
		}
	}

	// defaults (pra evitar nil/zero chato)
	if c.ApiPort == "" {
		c.ApiPort = getenv("PORT", "8000")
	}
	if c.LogPath == "" {
		c.LogPath = "logs/server.log"
	}
	if c.Database == "" {
		c.Database = "sqlite3"
	}
	if c.ServerURL == "" {
		c.ServerURL = getenv("SERVER_URL", "http://localhost:8000")
	}
	if c.ImagesDir == "" {
		c.ImagesDir = "generated_images"
	}
	if c.BotsDir == "" {
		c.BotsDir = "bots"
	}
	if c.Broadcast.BotID == "" {
		c.Broadcast.BotID = "weather-ootd"
	}
	if c.Broadcast.DelayBetweenUsers <= 0 {
		c.Broadcast.DelayBetweenUsers = 0.5
	}

	return c
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

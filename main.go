package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/wisehuang/geodine-ai/config"
	"github.com/wisehuang/geodine-ai/db"
	"github.com/wisehuang/geodine-ai/registry"
	"github.com/wisehuang/geodine-ai/router"
	"github.com/wisehuang/geodine-ai/tools"
	"github.com/wisehuang/geodine-ai/workers"
)

// =====================
// ENV esperadas
// =====================
//
// Server
// - PORT                       (ex: 8000)
// - CONFIG_PATH                (caminho do config.json, opcional)
// - SERVER_URL                 (URL pública, usada nos links das imagens geradas)
// - BROADCAST_API_KEY          (protege as rotas /broadcast)
//
// LINE (bot único legado; bots multi-tenant ficam em bots/*.json)
// - LINE_CHANNEL_ACCESS_TOKEN
// - LINE_CHANNEL_SECRET
// - USE_AI_PARSING             (true/false)
//
// APIs externas
// - OPENAI_API_KEY
// - OPENAI_MODEL               (ex: gpt-4o)
// - GOOGLE_MAPS_API_KEY
//
// =====================

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := config.Get(os.Getenv("CONFIG_PATH"))

	database, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	images := tools.NewImageGenerator(cfg.ImagesDir, cfg.ServerURL)

	reg := registry.New(database, images)
	botConfigs := config.LoadBotConfigs(cfg.BotsDir)
	if len(botConfigs) == 0 {
		log.Printf("Warning: no bot configurations loaded, webhooks will 404")
	}
	reg.Load(botConfigs)

	delay := time.Duration(cfg.Broadcast.DelayBetweenUsers * float64(time.Second))
	broadcast := workers.NewBroadcastService(reg, database, images, delay)

	scheduler, err := workers.StartBroadcastScheduler(broadcast, cfg.Broadcast.Schedule, cfg.Broadcast.BotID)
	if err != nil {
		log.Fatalf("Failed to start broadcast scheduler: %v", err)
	}
	if scheduler != nil {
		defer scheduler.Stop()
	}

	r := gin.New()
	router.Initialize(r, cfg, database, reg, broadcast)

	log.Printf("GeoDine listening on :%s", cfg.ApiPort)
	if err := r.Run(":" + cfg.ApiPort); err != nil {
		log.Fatal(err)
	}
}

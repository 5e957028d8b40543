package router

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"

	"github.com/wisehuang/geodine-ai/config"
	"github.com/wisehuang/geodine-ai/controllers"
	"github.com/wisehuang/geodine-ai/db"
	"github.com/wisehuang/geodine-ai/middleware"
	"github.com/wisehuang/geodine-ai/registry"
	"github.com/wisehuang/geodine-ai/workers"
)

// Initialize wires all routes and middlewares. Bot webhook paths are
// dynamic (reloadable at runtime), so they go through NoRoute instead
// of static routes.
func Initialize(r *gin.Engine, cfg config.Configuration, database *gorm.DB, reg *registry.Registry, broadcast *workers.BroadcastService) {
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(db.SetDBtoContext(database))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// imagens geradas localmente, servidas como estáticos
	r.Static("/generated_images", cfg.ImagesDir)

	broadcastController := &controllers.BroadcastController{
		Service:      broadcast,
		Registry:     reg,
		DB:           database,
		DefaultBotID: cfg.Broadcast.BotID,
		Schedule:     cfg.Broadcast.Schedule,
	}
	api := r.Group("/broadcast")
	api.Use(middleware.APIKeyRequired())
	api.POST("/daily-weather", Logger(), broadcastController.TriggerDailyWeather)
	api.POST("/test", Logger(), broadcastController.TriggerTest)
	api.GET("/status/:botId", Logger(), broadcastController.Status)

	dispatcher := &controllers.WebhookDispatcher{Registry: reg}
	r.NoRoute(Logger(), dispatcher.Dispatch)

	log.Printf("Routes initialized")
}

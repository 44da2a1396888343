package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with every alert server route
func NewRouter(api *API, production bool) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// CORS middleware
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(config))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	router.GET("/alerts/images/*filepath", api.GetImage)
	router.GET("/ws/alerts", api.StreamAlerts)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", api.Health)
		apiGroup.POST("/login", api.Auth.Login)
		apiGroup.GET("/cameras", api.GetCameras)

		alerts := apiGroup.Group("/alerts")
		{
			alerts.GET("", api.GetAlerts)
			alerts.POST("", api.Auth.Middleware(), api.PostAlert)
			alerts.GET("/search", api.SearchAlerts)
		}
	}

	return router
}

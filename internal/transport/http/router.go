package http

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tryout-service/internal/metrics"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Tryouts  *TryoutHandler
	Attempts *AttemptHandler
	WS       *WSHandler
}

// NewRouter builds the gin engine. An empty corsOrigins or "*" allows every origin.
func NewRouter(h Handlers, m *metrics.Metrics, corsOrigins []string) *gin.Engine {
	SetupValidator()

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(corsOrigins) == 0 || slices.Contains(corsOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = corsOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	if m != nil {
		router.Use(m.Middleware())
		router.GET("/metrics", m.Handler())
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	v1 := router.Group("/api/v1")
	tryouts := v1.Group("/tryouts")
	{
		tryouts.POST("/:id/score", h.Attempts.Score)
		tryouts.GET("/:id/results", h.Attempts.Results)
	}
	v1.GET("/attempts/:id", h.Attempts.Get)

	// Authoring is only mounted when the catalog source supports writes.
	if h.Tryouts != nil {
		tryouts.GET("", h.Tryouts.List)
		tryouts.POST("", h.Tryouts.Create)
		tryouts.GET("/:id", h.Tryouts.Get)
		tryouts.PUT("/:id", h.Tryouts.Update)
		tryouts.DELETE("/:id", h.Tryouts.Delete)

		tryouts.GET("/:id/questions", h.Tryouts.ListQuestions)
		tryouts.POST("/:id/questions", h.Tryouts.CreateQuestion)
		tryouts.GET("/:id/questions/:questionId", h.Tryouts.GetQuestion)
		tryouts.PUT("/:id/questions/:questionId", h.Tryouts.UpdateQuestion)
		tryouts.DELETE("/:id/questions/:questionId", h.Tryouts.DeleteQuestion)

		v1.GET("/categories", h.Tryouts.Categories)
		v1.GET("/difficulties", h.Tryouts.Difficulties)
	}

	if h.WS != nil {
		router.GET("/ws", gin.WrapF(h.WS.ServeWS))
	}
	return router
}

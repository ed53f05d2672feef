package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"htmlsearch/internal/config"
)

// requestIDHeader carries the per-request trace ID back to the client.
const requestIDHeader = "X-Request-ID"

// NewRouter builds the gin engine with CORS, request IDs, and the service
// routes registered.
func NewRouter(service SearchService, cfg *config.ServerConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(requestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
	}))

	handlers := NewHandlers(service)
	router.GET("/", handlers.root)
	router.POST("/index", handlers.index)
	router.POST("/search", handlers.search)

	return router
}

// requestID tags every request with a trace ID for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

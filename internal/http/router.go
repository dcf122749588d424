package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Create controllers with appropriate interfaces
	health := NewHealthController(cfg.Database, cfg.Version)
	booksController := NewBooksController(cfg.Books)
	readerController := NewReaderController(cfg.Manager, cfg.Tracker, cfg.Progress, cfg.Navigator)
	annotationsController := NewAnnotationsController(cfg.Annotations, cfg.Manager, cfg.ActivityService)
	gamificationController := NewGamificationController(cfg.Engine, cfg.Profiles, cfg.Sessions)
	contentController := NewContentController(cfg.ContentSource, cfg.Books)
	activityController := NewActivityController(cfg.ActivityStore)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Signed content delivery sits outside token auth; the signature is
	// the credential.
	router.GET("/content/:id", contentController.Serve)

	api := router.Group("/api")
	api.Use(TokenAuthMiddleware(cfg.Users))

	// Library endpoints
	api.POST("/books", booksController.CreateBook)
	api.GET("/books", booksController.GetAllBooks)
	api.GET("/books/:id", booksController.GetBook)
	api.DELETE("/books/:id", booksController.DeleteBook)

	// Reading session endpoints
	api.POST("/books/:id/open", readerController.Open)
	api.POST("/books/:id/close", readerController.Close)
	api.POST("/books/:id/position", readerController.ReportPosition)
	api.GET("/books/:id/progress", readerController.GetProgress)
	api.GET("/books/:id/progress/stream", readerController.StreamProgress)
	api.GET("/books/:id/toc", readerController.GetTOC)
	api.GET("/books/:id/history", readerController.GetHistory)
	api.GET("/books/:id/selection", readerController.GetSelection)
	api.POST("/books/:id/jump", readerController.Jump)
	api.GET("/progress", readerController.ListProgress)

	// Annotation endpoints
	api.POST("/books/:id/bookmark", annotationsController.ToggleBookmark)
	api.GET("/books/:id/bookmark", annotationsController.GetBookmark)
	api.POST("/books/:id/highlights", annotationsController.CreateHighlight)
	api.GET("/books/:id/annotations", annotationsController.ListAnnotations)
	api.DELETE("/highlights/:id", annotationsController.DeleteHighlight)

	// Gamification endpoints
	api.POST("/books/:id/tick", gamificationController.Tick)
	api.GET("/gamification/profile", gamificationController.GetProfile)
	api.GET("/gamification/sessions", gamificationController.GetSessions)
	api.GET("/gamification/achievements", gamificationController.GetAchievements)
	api.POST("/gamification/achievements/:name/notified", gamificationController.MarkNotified)
	api.POST("/gamification/xp", gamificationController.AwardXP)

	// Content URL endpoint
	api.GET("/books/:id/content-url", contentController.GetURL)

	// Activity feed
	api.GET("/activity", activityController.ListEvents)

	return router
}

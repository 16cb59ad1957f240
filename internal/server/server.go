package server

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/communitycar/backend/internal/database"
	"github.com/communitycar/backend/internal/handlers"
	"github.com/communitycar/backend/internal/middleware"
)

type Server struct {
	db      database.Service
	handler *handlers.Handler
}

// NewServer creates and configures a new server
func NewServer() *http.Server {
	// Initialize database
	db := database.New()

	// Create unified handler
	handler := handlers.NewHandler(db.GetDB())

	// Create server instance
	newServer := &Server{
		db:      db,
		handler: handler,
	}

	// Configure Gin router
	router := newServer.RegisterRoutes()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080" // local dev fallback
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         "0.0.0.0:" + port,
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("🚀 Server starting on port %s\n", port)
	fmt.Println("📝 Press Ctrl+C to stop the server")

	return server
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.db.Health())
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		// Question routes (public reads)
		api.GET("/questions", s.handler.Content.GetQuestions)
		api.GET("/questions/:id", s.handler.Content.GetQuestion)
		api.GET("/questions/:id/answers", s.handler.Content.GetAnswers)

		// Post routes (public reads)
		api.GET("/posts", s.handler.Content.GetPosts)
		api.GET("/posts/:id", s.handler.Content.GetPost)

		// Reaction summaries (public, personalized when a token is present)
		api.GET("/reactions/:entityType/:id", middleware.OptionalAuth(), s.handler.Reaction.GetReactions)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Auth protected routes
			protected.GET("/me", s.handler.Auth.GetMe)
			protected.GET("/notifications", s.handler.Auth.GetNotifications)

			// Content protected routes
			protected.POST("/questions", s.handler.Content.CreateQuestion)
			protected.POST("/questions/:id/answers", s.handler.Content.CreateAnswer)
			protected.POST("/posts", s.handler.Content.CreatePost)

			// Vote protected routes
			protected.POST("/questions/:id/vote", s.handler.Vote.VoteQuestion)
			protected.POST("/answers/:id/vote", s.handler.Vote.VoteAnswer)
			protected.POST("/posts/:id/like", s.handler.Vote.LikePost)

			// Reaction protected routes
			protected.POST("/reactions/:entityType/:id", s.handler.Reaction.React)
		}
	}

	return r
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communitycar/backend/internal/models"
	"github.com/communitycar/backend/internal/notifications"
	"github.com/communitycar/backend/internal/reactions"
	"github.com/communitycar/backend/internal/storage/postgres"
	"github.com/communitycar/backend/internal/voting"
)

// Handler combines all handler types
type Handler struct {
	Auth     *AuthHandler
	Content  *ContentHandler
	Vote     *VoteHandler
	Reaction *ReactionHandler
}

// NewHandler wires the core engines to their gin handlers.
func NewHandler(db *gorm.DB) *Handler {
	store := postgres.New(db)
	notifier := notifications.NewService(db, notifications.NewSMSSenderFromEnv())

	return &Handler{
		Auth:     NewAuthHandler(db),
		Content:  NewContentHandler(db),
		Vote:     NewVoteHandler(voting.NewHandler(store, notifier)),
		Reaction: NewReactionHandler(reactions.NewHandler(store, notifier)),
	}
}

// extractUserID reads the authenticated user id stored by the auth middleware.
func extractUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := raw.(uuid.UUID)
	return id, ok
}

// statusFor maps the core error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

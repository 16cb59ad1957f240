package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/communitycar/backend/internal/models"
	"github.com/communitycar/backend/internal/reactions"
)

// ReactionHandler translates HTTP reaction requests into reaction commands.
type ReactionHandler struct {
	reactions *reactions.Handler
}

func NewReactionHandler(r *reactions.Handler) *ReactionHandler {
	return &ReactionHandler{reactions: r}
}

func entityTypeParam(c *gin.Context) (models.EntityType, bool) {
	et := models.EntityType(c.Param("entityType"))
	return et, et.Valid()
}

// React toggles/switches the caller's reaction on an entity (PROTECTED)
func (h *ReactionHandler) React(c *gin.Context) {
	entityType, ok := entityTypeParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entity type"})
		return
	}

	entityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Type string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type is required"})
		return
	}

	result, err := h.reactions.React(c.Request.Context(), reactions.Command{
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Type:       models.ReactionType(input.Type),
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetReactions returns the per-type reaction summary for an entity. When a
// valid token is present, is_user_reaction reflects the caller's reactions.
func (h *ReactionHandler) GetReactions(c *gin.Context) {
	entityType, ok := entityTypeParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entity type"})
		return
	}

	entityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	viewerID, _ := extractUserID(c)

	summaries, err := h.reactions.Summarize(c.Request.Context(), entityType, entityID, viewerID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summaries)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/communitycar/backend/internal/models"
	"github.com/communitycar/backend/internal/voting"
)

// VoteHandler translates HTTP vote requests into vote commands.
type VoteHandler struct {
	votes *voting.Handler
}

func NewVoteHandler(votes *voting.Handler) *VoteHandler {
	return &VoteHandler{votes: votes}
}

func (h *VoteHandler) vote(c *gin.Context, entityType models.EntityType, isUpvote bool) {
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

	result, err := h.votes.Vote(c.Request.Context(), voting.Command{
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		IsUpvote:   isUpvote,
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// VoteQuestion handles upvoting/downvoting a question (PROTECTED)
func (h *VoteHandler) VoteQuestion(c *gin.Context) {
	var input struct {
		IsUpvote *bool `json:"is_upvote" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_upvote is required"})
		return
	}
	h.vote(c, models.EntityQuestion, *input.IsUpvote)
}

// VoteAnswer handles upvoting/downvoting an answer (PROTECTED)
func (h *VoteHandler) VoteAnswer(c *gin.Context) {
	var input struct {
		IsUpvote *bool `json:"is_upvote" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_upvote is required"})
		return
	}
	h.vote(c, models.EntityAnswer, *input.IsUpvote)
}

// LikePost handles liking a post (PROTECTED). Posts only support the
// one-directional "like" variant: the same toggle machine, pinned to upvotes.
func (h *VoteHandler) LikePost(c *gin.Context) {
	h.vote(c, models.EntityPost, true)
}

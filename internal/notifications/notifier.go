// Package notifications informs content authors about new votes and
// reactions. Delivery is best effort: the vote transition has already
// committed, so failures here are logged and swallowed.
package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communitycar/backend/internal/models"
)

// Service writes in-app notification rows and optionally texts the recipient.
type Service struct {
	db  *gorm.DB
	sms *SMSSender
}

// NewService creates the notifier. sms may be nil, in which case only in-app
// notifications are written.
func NewService(db *gorm.DB, sms *SMSSender) *Service {
	return &Service{db: db, sms: sms}
}

// VoteReceived records a "new vote" notification for the entity's author.
func (s *Service) VoteReceived(ctx context.Context, authorID, voterID uuid.UUID, entityType models.EntityType, entityID uuid.UUID, isUpvote bool) {
	dir := "upvoted"
	if !isUpvote {
		dir = "downvoted"
	}
	s.deliver(ctx, authorID, voterID, entityType, entityID, "vote",
		fmt.Sprintf("Someone %s your %s", dir, entityType))
}

// ReactionReceived records a "new reaction" notification for the author.
func (s *Service) ReactionReceived(ctx context.Context, authorID, actorID uuid.UUID, entityType models.EntityType, entityID uuid.UUID, rt models.ReactionType) {
	s.deliver(ctx, authorID, actorID, entityType, entityID, "reaction",
		fmt.Sprintf("Someone reacted with %s to your %s", rt, entityType))
}

func (s *Service) deliver(ctx context.Context, recipientID, actorID uuid.UUID, entityType models.EntityType, entityID uuid.UUID, kind, message string) {
	n := models.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		ActorID:     actorID,
		EntityType:  entityType,
		EntityID:    entityID,
		Kind:        kind,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		log.Printf("failed to write %s notification for %s: %v", kind, recipientID, err)
		return
	}

	if s.sms == nil {
		return
	}
	var recipient models.User
	if err := s.db.WithContext(ctx).First(&recipient, "id = ?", recipientID).Error; err != nil || recipient.Phone == "" {
		return
	}
	if err := s.sms.Send(recipient.Phone, message); err != nil {
		log.Printf("failed to send SMS to %s: %v", recipientID, err)
	}
}

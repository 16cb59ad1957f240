package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityType discriminates which kind of content a vote or reaction targets.
type EntityType string

const (
	EntityQuestion EntityType = "question"
	EntityAnswer   EntityType = "answer"
	EntityPost     EntityType = "post"
)

// Valid reports whether et is one of the known votable entity types.
func (et EntityType) Valid() bool {
	switch et {
	case EntityQuestion, EntityAnswer, EntityPost:
		return true
	}
	return false
}

// VoteStatus tags the lifecycle state of a vote. A removed vote is soft-deleted,
// never destroyed, so the same (entity, user) key can be resurrected later.
type VoteStatus string

const (
	VoteActive  VoteStatus = "active"
	VoteDeleted VoteStatus = "deleted"
)

// Vote model - one user's vote on one votable entity. At most one row ever
// exists per (entity_type, entity_id, user_id); removal and re-voting toggle
// the same row between active and deleted.
type Vote struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EntityType EntityType `gorm:"size:20;not null;uniqueIndex:idx_votes_entity_user" json:"entity_type"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_votes_entity_user" json:"entity_id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_votes_entity_user" json:"user_id"`
	IsUpvote   bool       `json:"is_upvote"`
	Status     VoteStatus `gorm:"size:10;not null;default:active" json:"status"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	DeletedBy  *uuid.UUID `gorm:"type:uuid" json:"deleted_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ModifiedAt time.Time  `json:"modified_at"`
}

func direction(isUpvote bool) int {
	if isUpvote {
		return 1
	}
	return -1
}

// NewVote creates an active vote and returns the score delta the caller must
// apply to the entity's counter (+1 for up, -1 for down).
func NewVote(entityType EntityType, entityID, userID uuid.UUID, isUpvote bool) (*Vote, int, error) {
	if entityID == uuid.Nil || userID == uuid.Nil || !entityType.Valid() {
		return nil, 0, ErrValidation
	}
	now := time.Now().UTC()
	v := &Vote{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		IsUpvote:   isUpvote,
		Status:     VoteActive,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	return v, direction(isUpvote), nil
}

// IsDeleted reports whether the vote is soft-deleted.
func (v *Vote) IsDeleted() bool {
	return v.Status == VoteDeleted
}

// Switch flips the direction of an active vote. The returned delta is ±2: the
// net effect of moving the contribution from -1 to +1 or back.
func (v *Vote) Switch() (int, error) {
	if v.IsDeleted() {
		return 0, ErrInvalidState
	}
	v.IsUpvote = !v.IsUpvote
	v.ModifiedAt = time.Now().UTC()
	return 2 * direction(v.IsUpvote), nil
}

// Remove soft-deletes an active vote. The returned delta is the inverse of the
// vote's original contribution.
func (v *Vote) Remove(deletedBy uuid.UUID) (int, error) {
	if v.IsDeleted() {
		return 0, ErrInvalidState
	}
	now := time.Now().UTC()
	v.Status = VoteDeleted
	v.DeletedAt = &now
	v.DeletedBy = &deletedBy
	v.ModifiedAt = now
	return -direction(v.IsUpvote), nil
}

// Resurrect reactivates a soft-deleted vote, optionally with a new direction.
// From the entity's perspective a fresh contribution appears, so the delta is
// the single-vote value for the new direction, never the switch value.
func (v *Vote) Resurrect(isUpvote bool) (int, error) {
	if !v.IsDeleted() {
		return 0, ErrInvalidState
	}
	v.Status = VoteActive
	v.DeletedAt = nil
	v.DeletedBy = nil
	v.IsUpvote = isUpvote
	v.ModifiedAt = time.Now().UTC()
	return direction(isUpvote), nil
}

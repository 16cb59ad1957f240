// Package voting implements the vote command handler: the rule set governing
// how one user's vote on a votable entity evolves (add, toggle off, switch
// direction, resurrect) and how each transition moves the entity's score.
package voting

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/communitycar/backend/internal/models"
)

// Action describes which transition a vote command produced.
type Action string

const (
	ActionAdded    Action = "added"
	ActionRemoved  Action = "removed"
	ActionSwitched Action = "switched"
)

// Command is a vote intent: who votes, on what, in which direction.
type Command struct {
	EntityType models.EntityType `json:"entity_type"`
	EntityID   uuid.UUID         `json:"entity_id"`
	UserID     uuid.UUID         `json:"user_id"`
	IsUpvote   bool              `json:"is_upvote"`
}

func (c Command) validate() error {
	if c.EntityID == uuid.Nil || c.UserID == uuid.Nil || !c.EntityType.Valid() {
		return models.ErrValidation
	}
	return nil
}

// Result reports the outcome of a vote command. CurrentVote is nil after a
// removal, otherwise the direction the user's vote now holds.
type Result struct {
	CurrentVote *bool  `json:"current_vote"`
	TotalScore  int    `json:"total_score"`
	ScoreDelta  int    `json:"score_delta"`
	Action      Action `json:"action"`
}

// Store is the persistence port the handler runs against. Implementations must
// make InTx transactional: the vote write, the score delta and the karma delta
// commit together or not at all. Find methods return (nil, nil) when no vote
// exists for the key.
type Store interface {
	// InTx runs fn against a transaction-scoped view of the store.
	InTx(ctx context.Context, fn func(tx Store) error) error

	FindActiveVote(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Vote, error)
	FindDeletedVote(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Vote, error)

	// CreateVote inserts a fresh vote; returns models.ErrConflict if another
	// request created a vote for the same key first.
	CreateVote(ctx context.Context, v *models.Vote) error
	SaveVote(ctx context.Context, v *models.Vote) error

	// EntityAuthor resolves the author of a votable entity, or models.ErrNotFound.
	EntityAuthor(ctx context.Context, entityType models.EntityType, entityID uuid.UUID) (uuid.UUID, error)

	// ApplyScoreDelta atomically adds delta to the entity's score counter and
	// returns the new total.
	ApplyScoreDelta(ctx context.Context, entityType models.EntityType, entityID uuid.UUID, delta int) (int, error)

	// AdjustKarma atomically adds delta to the author's karma counter.
	AdjustKarma(ctx context.Context, userID uuid.UUID, delta int) error
}

// Notifier is told about new votes so the content's author can be informed.
// Fire-and-forget: failures must not affect the vote transition.
type Notifier interface {
	VoteReceived(ctx context.Context, authorID, voterID uuid.UUID, entityType models.EntityType, entityID uuid.UUID, isUpvote bool)
}

// maxAttempts bounds retries after a storage conflict (two requests racing on
// the same key). One retry is normally enough: the loser's re-read observes
// the winner's row.
const maxAttempts = 3

// Handler applies vote commands.
type Handler struct {
	store    Store
	notifier Notifier
}

// NewHandler creates a vote command handler. notifier may be nil.
func NewHandler(store Store, notifier Notifier) *Handler {
	return &Handler{store: store, notifier: notifier}
}

// Vote decides and applies the correct transition for cmd:
//
//	no vote            -> create            (Added,    ±1)
//	active, same dir   -> toggle off        (Removed,  ∓1)
//	active, other dir  -> switch            (Switched, ±2)
//	soft-deleted       -> resurrect         (Added,    ±1)
//
// The vote write and the score update commit atomically. Conflicting
// concurrent requests for the same key are retried a bounded number of times;
// models.ErrConflict is returned once attempts are exhausted.
func (h *Handler) Vote(ctx context.Context, cmd Command) (Result, error) {
	if err := cmd.validate(); err != nil {
		return Result{}, err
	}

	var (
		res      Result
		authorID uuid.UUID
	)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := h.store.InTx(ctx, func(tx Store) error {
			var err error
			res, authorID, err = h.apply(ctx, tx, cmd)
			return err
		})
		if errors.Is(err, models.ErrConflict) {
			continue
		}
		if err != nil {
			return Result{}, err
		}

		// Notify outside the transaction; self-votes are allowed but don't notify.
		if res.Action == ActionAdded && h.notifier != nil && authorID != cmd.UserID {
			h.notifier.VoteReceived(ctx, authorID, cmd.UserID, cmd.EntityType, cmd.EntityID, cmd.IsUpvote)
		}
		return res, nil
	}
	log.Printf("vote on %s %s by %s: retries exhausted", cmd.EntityType, cmd.EntityID, cmd.UserID)
	return Result{}, models.ErrConflict
}

func (h *Handler) apply(ctx context.Context, tx Store, cmd Command) (Result, uuid.UUID, error) {
	authorID, err := tx.EntityAuthor(ctx, cmd.EntityType, cmd.EntityID)
	if err != nil {
		return Result{}, uuid.Nil, err
	}

	active, err := tx.FindActiveVote(ctx, cmd.EntityType, cmd.EntityID, cmd.UserID)
	if err != nil {
		return Result{}, uuid.Nil, err
	}

	var (
		delta   int
		action  Action
		current *bool
	)
	switch {
	case active != nil && active.IsUpvote == cmd.IsUpvote:
		// Same direction again: toggle the vote off.
		if delta, err = active.Remove(cmd.UserID); err != nil {
			return Result{}, uuid.Nil, err
		}
		action = ActionRemoved
		if err = tx.SaveVote(ctx, active); err != nil {
			return Result{}, uuid.Nil, err
		}

	case active != nil:
		if delta, err = active.Switch(); err != nil {
			return Result{}, uuid.Nil, err
		}
		action = ActionSwitched
		current = &cmd.IsUpvote
		if err = tx.SaveVote(ctx, active); err != nil {
			return Result{}, uuid.Nil, err
		}

	default:
		deleted, err := tx.FindDeletedVote(ctx, cmd.EntityType, cmd.EntityID, cmd.UserID)
		if err != nil {
			return Result{}, uuid.Nil, err
		}
		if deleted != nil {
			if delta, err = deleted.Resurrect(cmd.IsUpvote); err != nil {
				return Result{}, uuid.Nil, err
			}
			if err = tx.SaveVote(ctx, deleted); err != nil {
				return Result{}, uuid.Nil, err
			}
		} else {
			v, d, err := models.NewVote(cmd.EntityType, cmd.EntityID, cmd.UserID, cmd.IsUpvote)
			if err != nil {
				return Result{}, uuid.Nil, err
			}
			delta = d
			if err = tx.CreateVote(ctx, v); err != nil {
				return Result{}, uuid.Nil, err
			}
		}
		action = ActionAdded
		current = &cmd.IsUpvote
	}

	total, err := tx.ApplyScoreDelta(ctx, cmd.EntityType, cmd.EntityID, delta)
	if err != nil {
		return Result{}, uuid.Nil, err
	}
	if err = tx.AdjustKarma(ctx, authorID, delta); err != nil {
		return Result{}, uuid.Nil, err
	}

	return Result{CurrentVote: current, TotalScore: total, ScoreDelta: delta, Action: action}, authorID, nil
}

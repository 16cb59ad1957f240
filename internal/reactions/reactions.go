// Package reactions implements the non-binary analog of voting: a user holds
// at most one named reaction per entity, toggled off by repeating it and
// switched by sending a different type. No score counter is involved.
package reactions

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/communitycar/backend/internal/models"
	"github.com/communitycar/backend/internal/voting"
)

// Command is a reaction intent.
type Command struct {
	EntityType models.EntityType   `json:"entity_type"`
	EntityID   uuid.UUID           `json:"entity_id"`
	UserID     uuid.UUID           `json:"user_id"`
	Type       models.ReactionType `json:"type"`
}

func (c Command) validate() error {
	if c.EntityID == uuid.Nil || c.UserID == uuid.Nil || !c.EntityType.Valid() || !c.Type.Valid() {
		return models.ErrValidation
	}
	return nil
}

// Result reports the outcome of a reaction command. Current is nil after a
// removal, otherwise the type the user's reaction now holds.
type Result struct {
	Current *models.ReactionType `json:"current"`
	Action  voting.Action        `json:"action"`
}

// Summary is the read model for one reaction type on one entity.
type Summary struct {
	Type           models.ReactionType `json:"type"`
	Count          int                 `json:"count"`
	IsUserReaction bool                `json:"is_user_reaction"`
}

// Store is the persistence port. A reaction transition is a single row write,
// so unlike voting no transactional scope is needed; concurrent creates for
// the same key surface as models.ErrConflict from CreateReaction.
type Store interface {
	FindActiveReaction(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Reaction, error)
	FindDeletedReaction(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Reaction, error)
	CreateReaction(ctx context.Context, r *models.Reaction) error
	SaveReaction(ctx context.Context, r *models.Reaction) error
	ActiveReactions(ctx context.Context, entityType models.EntityType, entityID uuid.UUID) ([]models.Reaction, error)
	EntityAuthor(ctx context.Context, entityType models.EntityType, entityID uuid.UUID) (uuid.UUID, error)
}

// Notifier is told about new reactions. Fire-and-forget.
type Notifier interface {
	ReactionReceived(ctx context.Context, authorID, actorID uuid.UUID, entityType models.EntityType, entityID uuid.UUID, rt models.ReactionType)
}

const maxAttempts = 3

// Handler applies reaction commands and serves summaries.
type Handler struct {
	store    Store
	notifier Notifier
}

// NewHandler creates a reaction handler. notifier may be nil.
func NewHandler(store Store, notifier Notifier) *Handler {
	return &Handler{store: store, notifier: notifier}
}

// React applies the toggle/switch machine for cmd, with the same dispatch
// shape as voting: repeat removes, different type switches, absence creates,
// soft-deleted resurrects.
func (h *Handler) React(ctx context.Context, cmd Command) (Result, error) {
	if err := cmd.validate(); err != nil {
		return Result{}, err
	}

	var (
		res      Result
		authorID uuid.UUID
	)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		r, author, err := h.apply(ctx, cmd)
		if errors.Is(err, models.ErrConflict) {
			continue
		}
		if err != nil {
			return Result{}, err
		}
		res, authorID = r, author

		if res.Action == voting.ActionAdded && h.notifier != nil && authorID != cmd.UserID {
			h.notifier.ReactionReceived(ctx, authorID, cmd.UserID, cmd.EntityType, cmd.EntityID, cmd.Type)
		}
		return res, nil
	}
	return Result{}, models.ErrConflict
}

func (h *Handler) apply(ctx context.Context, cmd Command) (Result, uuid.UUID, error) {
	authorID, err := h.store.EntityAuthor(ctx, cmd.EntityType, cmd.EntityID)
	if err != nil {
		return Result{}, uuid.Nil, err
	}

	active, err := h.store.FindActiveReaction(ctx, cmd.EntityType, cmd.EntityID, cmd.UserID)
	if err != nil {
		return Result{}, uuid.Nil, err
	}

	switch {
	case active != nil && active.Type == cmd.Type:
		if err := active.Remove(); err != nil {
			return Result{}, uuid.Nil, err
		}
		if err := h.store.SaveReaction(ctx, active); err != nil {
			return Result{}, uuid.Nil, err
		}
		return Result{Action: voting.ActionRemoved}, authorID, nil

	case active != nil:
		if err := active.ChangeType(cmd.Type); err != nil {
			return Result{}, uuid.Nil, err
		}
		if err := h.store.SaveReaction(ctx, active); err != nil {
			return Result{}, uuid.Nil, err
		}
		return Result{Current: &cmd.Type, Action: voting.ActionSwitched}, authorID, nil
	}

	deleted, err := h.store.FindDeletedReaction(ctx, cmd.EntityType, cmd.EntityID, cmd.UserID)
	if err != nil {
		return Result{}, uuid.Nil, err
	}
	if deleted != nil {
		if err := deleted.Resurrect(cmd.Type); err != nil {
			return Result{}, uuid.Nil, err
		}
		if err := h.store.SaveReaction(ctx, deleted); err != nil {
			return Result{}, uuid.Nil, err
		}
		return Result{Current: &cmd.Type, Action: voting.ActionAdded}, authorID, nil
	}

	r, err := models.NewReaction(cmd.EntityType, cmd.EntityID, cmd.UserID, cmd.Type)
	if err != nil {
		return Result{}, uuid.Nil, err
	}
	if err := h.store.CreateReaction(ctx, r); err != nil {
		return Result{}, uuid.Nil, err
	}
	return Result{Current: &cmd.Type, Action: voting.ActionAdded}, authorID, nil
}

// Summarize aggregates the entity's active reactions into per-type counts,
// in ReactionTypes declaration order. Types with no reactions are omitted.
// viewerID may be uuid.Nil for anonymous viewers.
func (h *Handler) Summarize(ctx context.Context, entityType models.EntityType, entityID, viewerID uuid.UUID) ([]Summary, error) {
	if entityID == uuid.Nil || !entityType.Valid() {
		return nil, models.ErrValidation
	}
	if _, err := h.store.EntityAuthor(ctx, entityType, entityID); err != nil {
		return nil, err
	}

	active, err := h.store.ActiveReactions(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	counts := make(map[models.ReactionType]int)
	mine := make(map[models.ReactionType]bool)
	for _, r := range active {
		counts[r.Type]++
		if viewerID != uuid.Nil && r.UserID == viewerID {
			mine[r.Type] = true
		}
	}

	summaries := []Summary{}
	for _, rt := range models.ReactionTypes() {
		if counts[rt] == 0 {
			continue
		}
		summaries = append(summaries, Summary{
			Type:           rt,
			Count:          counts[rt],
			IsUserReaction: mine[rt],
		})
	}
	return summaries, nil
}

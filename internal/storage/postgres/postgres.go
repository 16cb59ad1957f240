// Package postgres persists votes and reactions through gorm. The one-active-
// vote-per-key invariant is enforced with a unique index on (entity_type,
// entity_id, user_id) plus a row lock on the vote inside each transaction;
// score counters only ever move through atomic score = score + delta updates.
package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/communitycar/backend/internal/models"
	"github.com/communitycar/backend/internal/voting"
)

const uniqueViolation = "23505"

// Store implements the voting and reactions persistence ports over gorm.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// translateErr maps unique-constraint violations to models.ErrConflict so the
// command handler can retry the losing request.
func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return models.ErrConflict
	}
	return err
}

func tableFor(entityType models.EntityType) (string, error) {
	switch entityType {
	case models.EntityQuestion:
		return "questions", nil
	case models.EntityAnswer:
		return "answers", nil
	case models.EntityPost:
		return "posts", nil
	}
	return "", models.ErrValidation
}

// InTx runs fn inside a database transaction. Serialization failures bubble up
// as models.ErrConflict for the caller's retry loop.
func (s *Store) InTx(ctx context.Context, fn func(tx voting.Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
	return translateErr(err)
}

// FindActiveVote loads the active vote for the key, locking the row FOR UPDATE
// so concurrent transitions on the same key serialize instead of racing.
func (s *Store) FindActiveVote(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Vote, error) {
	return s.findVote(ctx, entityType, entityID, userID, models.VoteActive)
}

// FindDeletedVote loads the soft-deleted vote for the key, if one exists.
func (s *Store) FindDeletedVote(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Vote, error) {
	return s.findVote(ctx, entityType, entityID, userID, models.VoteDeleted)
}

func (s *Store) findVote(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID, status models.VoteStatus) (*models.Vote, error) {
	var v models.Vote
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("entity_type = ? AND entity_id = ? AND user_id = ? AND status = ?", entityType, entityID, userID, status).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) CreateVote(ctx context.Context, v *models.Vote) error {
	return translateErr(s.db.WithContext(ctx).Create(v).Error)
}

func (s *Store) SaveVote(ctx context.Context, v *models.Vote) error {
	return translateErr(s.db.WithContext(ctx).Save(v).Error)
}

// EntityAuthor resolves the author of a votable entity.
func (s *Store) EntityAuthor(ctx context.Context, entityType models.EntityType, entityID uuid.UUID) (uuid.UUID, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return uuid.Nil, err
	}
	var authorID uuid.UUID
	res := s.db.WithContext(ctx).
		Raw("SELECT author_id FROM "+table+" WHERE id = ?", entityID).
		Scan(&authorID)
	if res.Error != nil {
		return uuid.Nil, res.Error
	}
	if res.RowsAffected == 0 {
		return uuid.Nil, models.ErrNotFound
	}
	return authorID, nil
}

// ApplyScoreDelta adds delta to the entity's score as a single atomic UPDATE
// and returns the new total. Lost updates can't occur: the addition happens in
// the database, not in application memory.
func (s *Store) ApplyScoreDelta(ctx context.Context, entityType models.EntityType, entityID uuid.UUID, delta int) (int, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return 0, err
	}
	var score int
	res := s.db.WithContext(ctx).
		Raw("UPDATE "+table+" SET score = score + ?, updated_at = NOW() WHERE id = ? RETURNING score", delta, entityID).
		Scan(&score)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, models.ErrNotFound
	}
	return score, nil
}

// AdjustKarma adds delta to the user's karma counter atomically.
func (s *Store) AdjustKarma(ctx context.Context, userID uuid.UUID, delta int) error {
	return s.db.WithContext(ctx).
		Exec("UPDATE users SET karma = karma + ? WHERE id = ?", delta, userID).Error
}

func (s *Store) FindActiveReaction(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Reaction, error) {
	return s.findReaction(ctx, entityType, entityID, userID, models.VoteActive)
}

func (s *Store) FindDeletedReaction(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Reaction, error) {
	return s.findReaction(ctx, entityType, entityID, userID, models.VoteDeleted)
}

func (s *Store) findReaction(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID, status models.VoteStatus) (*models.Reaction, error) {
	var r models.Reaction
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND user_id = ? AND status = ?", entityType, entityID, userID, status).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) CreateReaction(ctx context.Context, r *models.Reaction) error {
	return translateErr(s.db.WithContext(ctx).Create(r).Error)
}

func (s *Store) SaveReaction(ctx context.Context, r *models.Reaction) error {
	return translateErr(s.db.WithContext(ctx).Save(r).Error)
}

func (s *Store) ActiveReactions(ctx context.Context, entityType models.EntityType, entityID uuid.UUID) ([]models.Reaction, error) {
	var out []models.Reaction
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND status = ?", entityType, entityID, models.VoteActive).
		Find(&out).Error
	return out, err
}

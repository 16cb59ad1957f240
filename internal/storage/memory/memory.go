// Package memory is an in-process store for the voting and reaction engines.
// It serializes every transaction through a single mutex, which is the
// simplest legal answer to the load-then-mutate race: per-key serialization,
// taken to the extreme of one key. The postgres store is the production
// implementation; this one backs unit tests and local development.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/communitycar/backend/internal/models"
	"github.com/communitycar/backend/internal/voting"
)

type entityKey struct {
	entityType models.EntityType
	id         uuid.UUID
}

type voteKey struct {
	entityType models.EntityType
	entityID   uuid.UUID
	userID     uuid.UUID
}

type entity struct {
	authorID uuid.UUID
	score    int
}

type data struct {
	entities  map[entityKey]*entity
	votes     map[voteKey]*models.Vote
	reactions map[voteKey]*models.Reaction
	karma     map[uuid.UUID]int
}

func (d *data) clone() *data {
	c := &data{
		entities:  make(map[entityKey]*entity, len(d.entities)),
		votes:     make(map[voteKey]*models.Vote, len(d.votes)),
		reactions: make(map[voteKey]*models.Reaction, len(d.reactions)),
		karma:     make(map[uuid.UUID]int, len(d.karma)),
	}
	for k, e := range d.entities {
		ec := *e
		c.entities[k] = &ec
	}
	for k, v := range d.votes {
		vc := *v
		c.votes[k] = &vc
	}
	for k, r := range d.reactions {
		rc := *r
		c.reactions[k] = &rc
	}
	for k, n := range d.karma {
		c.karma[k] = n
	}
	return c
}

// Store holds votes, reactions and entity score counters in memory.
type Store struct {
	mu   sync.Mutex
	data *data
}

func New() *Store {
	return &Store{data: &data{
		entities:  make(map[entityKey]*entity),
		votes:     make(map[voteKey]*models.Vote),
		reactions: make(map[voteKey]*models.Reaction),
		karma:     make(map[uuid.UUID]int),
	}}
}

// Seed registers a votable entity with its author and base score.
func (s *Store) Seed(entityType models.EntityType, id, authorID uuid.UUID, baseScore int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.entities[entityKey{entityType, id}] = &entity{authorID: authorID, score: baseScore}
}

// Score returns the current counter for an entity.
func (s *Store) Score(entityType models.EntityType, id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.data.entities[entityKey{entityType, id}]; ok {
		return e.score
	}
	return 0
}

// Karma returns the accumulated karma for a user.
func (s *Store) Karma(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.karma[userID]
}

// ActiveVoteCount counts active vote rows for an entity, across all users.
func (s *Store) ActiveVoteCount(entityType models.EntityType, id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, v := range s.data.votes {
		if k.entityType == entityType && k.entityID == id && !v.IsDeleted() {
			n++
		}
	}
	return n
}

// InTx runs fn against a snapshot of the store and commits it only if fn
// succeeds, so a failed transaction leaves no partial writes. The mutex is
// held for the whole transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx voting.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	if err := fn(&tx{data: snapshot}); err != nil {
		return err
	}
	s.data = snapshot
	return nil
}

func (s *Store) FindActiveVote(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{data: s.data}).FindActiveVote(ctx, entityType, entityID, userID)
}

func (s *Store) FindDeletedVote(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{data: s.data}).FindDeletedVote(ctx, entityType, entityID, userID)
}

func (s *Store) CreateVote(ctx context.Context, v *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{data: s.data}).CreateVote(ctx, v)
}

func (s *Store) SaveVote(ctx context.Context, v *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{data: s.data}).SaveVote(ctx, v)
}

func (s *Store) EntityAuthor(ctx context.Context, entityType models.EntityType, entityID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{data: s.data}).EntityAuthor(ctx, entityType, entityID)
}

func (s *Store) ApplyScoreDelta(ctx context.Context, entityType models.EntityType, entityID uuid.UUID, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{data: s.data}).ApplyScoreDelta(ctx, entityType, entityID, delta)
}

func (s *Store) AdjustKarma(ctx context.Context, userID uuid.UUID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{data: s.data}).AdjustKarma(ctx, userID, delta)
}

func (s *Store) FindActiveReaction(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{data: s.data}).FindActiveReaction(ctx, entityType, entityID, userID)
}

func (s *Store) FindDeletedReaction(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{data: s.data}).FindDeletedReaction(ctx, entityType, entityID, userID)
}

func (s *Store) CreateReaction(ctx context.Context, r *models.Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{data: s.data}).CreateReaction(ctx, r)
}

func (s *Store) SaveReaction(ctx context.Context, r *models.Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{data: s.data}).SaveReaction(ctx, r)
}

func (s *Store) ActiveReactions(ctx context.Context, entityType models.EntityType, entityID uuid.UUID) ([]models.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{data: s.data}).ActiveReactions(ctx, entityType, entityID)
}

// tx is a view of the store used inside a transaction; the outer Store holds
// the lock, so tx methods don't lock.
type tx struct {
	data *data
}

func (t *tx) InTx(ctx context.Context, fn func(tx voting.Store) error) error {
	// Already inside a transaction.
	return fn(t)
}

func (t *tx) FindActiveVote(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Vote, error) {
	if v, ok := t.data.votes[voteKey{entityType, entityID, userID}]; ok && !v.IsDeleted() {
		return v, nil
	}
	return nil, nil
}

func (t *tx) FindDeletedVote(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Vote, error) {
	if v, ok := t.data.votes[voteKey{entityType, entityID, userID}]; ok && v.IsDeleted() {
		return v, nil
	}
	return nil, nil
}

func (t *tx) CreateVote(ctx context.Context, v *models.Vote) error {
	key := voteKey{v.EntityType, v.EntityID, v.UserID}
	if _, ok := t.data.votes[key]; ok {
		return models.ErrConflict
	}
	vc := *v
	t.data.votes[key] = &vc
	return nil
}

func (t *tx) SaveVote(ctx context.Context, v *models.Vote) error {
	vc := *v
	t.data.votes[voteKey{v.EntityType, v.EntityID, v.UserID}] = &vc
	return nil
}

func (t *tx) EntityAuthor(ctx context.Context, entityType models.EntityType, entityID uuid.UUID) (uuid.UUID, error) {
	e, ok := t.data.entities[entityKey{entityType, entityID}]
	if !ok {
		return uuid.Nil, models.ErrNotFound
	}
	return e.authorID, nil
}

func (t *tx) ApplyScoreDelta(ctx context.Context, entityType models.EntityType, entityID uuid.UUID, delta int) (int, error) {
	e, ok := t.data.entities[entityKey{entityType, entityID}]
	if !ok {
		return 0, models.ErrNotFound
	}
	e.score += delta
	return e.score, nil
}

func (t *tx) AdjustKarma(ctx context.Context, userID uuid.UUID, delta int) error {
	t.data.karma[userID] += delta
	return nil
}

func (t *tx) FindActiveReaction(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Reaction, error) {
	if r, ok := t.data.reactions[voteKey{entityType, entityID, userID}]; ok && !r.IsDeleted() {
		return r, nil
	}
	return nil, nil
}

func (t *tx) FindDeletedReaction(ctx context.Context, entityType models.EntityType, entityID, userID uuid.UUID) (*models.Reaction, error) {
	if r, ok := t.data.reactions[voteKey{entityType, entityID, userID}]; ok && r.IsDeleted() {
		return r, nil
	}
	return nil, nil
}

func (t *tx) CreateReaction(ctx context.Context, r *models.Reaction) error {
	key := voteKey{r.EntityType, r.EntityID, r.UserID}
	if _, ok := t.data.reactions[key]; ok {
		return models.ErrConflict
	}
	rc := *r
	t.data.reactions[key] = &rc
	return nil
}

func (t *tx) SaveReaction(ctx context.Context, r *models.Reaction) error {
	rc := *r
	t.data.reactions[voteKey{r.EntityType, r.EntityID, r.UserID}] = &rc
	return nil
}

func (t *tx) ActiveReactions(ctx context.Context, entityType models.EntityType, entityID uuid.UUID) ([]models.Reaction, error) {
	var out []models.Reaction
	for k, r := range t.data.reactions {
		if k.entityType == entityType && k.entityID == entityID && !r.IsDeleted() {
			out = append(out, *r)
		}
	}
	return out, nil
}

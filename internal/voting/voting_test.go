package voting_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communitycar/backend/internal/models"
	"github.com/communitycar/backend/internal/storage/memory"
	"github.com/communitycar/backend/internal/voting"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []uuid.UUID // author ids notified
}

func (f *fakeNotifier) VoteReceived(ctx context.Context, authorID, voterID uuid.UUID, entityType models.EntityType, entityID uuid.UUID, isUpvote bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, authorID)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func setup(t *testing.T, baseScore int) (*voting.Handler, *memory.Store, *fakeNotifier, uuid.UUID, uuid.UUID) {
	t.Helper()
	store := memory.New()
	notifier := &fakeNotifier{}
	entityID := uuid.New()
	authorID := uuid.New()
	store.Seed(models.EntityQuestion, entityID, authorID, baseScore)
	return voting.NewHandler(store, notifier), store, notifier, entityID, authorID
}

func upvote(entityID, userID uuid.UUID) voting.Command {
	return voting.Command{EntityType: models.EntityQuestion, EntityID: entityID, UserID: userID, IsUpvote: true}
}

func downvote(entityID, userID uuid.UUID) voting.Command {
	return voting.Command{EntityType: models.EntityQuestion, EntityID: entityID, UserID: userID, IsUpvote: false}
}

func TestVoteScenario(t *testing.T) {
	// Base score 10: upvote, toggle off, downvote (resurrects), upvote (switch).
	h, _, _, entityID, _ := setup(t, 10)
	ctx := context.Background()
	userA := uuid.New()

	res, err := h.Vote(ctx, upvote(entityID, userA))
	require.NoError(t, err)
	assert.Equal(t, voting.ActionAdded, res.Action)
	assert.Equal(t, 11, res.TotalScore)
	assert.Equal(t, 1, res.ScoreDelta)
	require.NotNil(t, res.CurrentVote)
	assert.True(t, *res.CurrentVote)

	res, err = h.Vote(ctx, upvote(entityID, userA))
	require.NoError(t, err)
	assert.Equal(t, voting.ActionRemoved, res.Action)
	assert.Equal(t, 10, res.TotalScore)
	assert.Equal(t, -1, res.ScoreDelta)
	assert.Nil(t, res.CurrentVote)

	res, err = h.Vote(ctx, downvote(entityID, userA))
	require.NoError(t, err)
	assert.Equal(t, voting.ActionAdded, res.Action)
	assert.Equal(t, 9, res.TotalScore)
	assert.Equal(t, -1, res.ScoreDelta)
	require.NotNil(t, res.CurrentVote)
	assert.False(t, *res.CurrentVote)

	res, err = h.Vote(ctx, upvote(entityID, userA))
	require.NoError(t, err)
	assert.Equal(t, voting.ActionSwitched, res.Action)
	assert.Equal(t, 11, res.TotalScore)
	assert.Equal(t, 2, res.ScoreDelta)
	require.NotNil(t, res.CurrentVote)
	assert.True(t, *res.CurrentVote)
}

func TestRepeatedUpvotesToggle(t *testing.T) {
	h, store, _, entityID, _ := setup(t, 0)
	ctx := context.Background()
	user := uuid.New()

	for i := 0; i < 6; i++ {
		res, err := h.Vote(ctx, upvote(entityID, user))
		require.NoError(t, err)
		if i%2 == 0 {
			assert.Equal(t, voting.ActionAdded, res.Action)
			assert.Equal(t, 1, res.TotalScore)
		} else {
			assert.Equal(t, voting.ActionRemoved, res.Action)
			assert.Equal(t, 0, res.TotalScore)
		}
	}
	assert.Equal(t, 0, store.Score(models.EntityQuestion, entityID))
}

func TestAlternatingVotesSwitch(t *testing.T) {
	h, _, _, entityID, _ := setup(t, 0)
	ctx := context.Background()
	user := uuid.New()

	res, err := h.Vote(ctx, upvote(entityID, user))
	require.NoError(t, err)
	assert.Equal(t, voting.ActionAdded, res.Action)

	prev := res.TotalScore
	for i := 0; i < 5; i++ {
		cmd := downvote(entityID, user)
		if i%2 == 1 {
			cmd = upvote(entityID, user)
		}
		res, err = h.Vote(ctx, cmd)
		require.NoError(t, err)
		assert.Equal(t, voting.ActionSwitched, res.Action)
		assert.Contains(t, []int{-2, 2}, res.ScoreDelta)
		assert.Equal(t, prev+res.ScoreDelta, res.TotalScore)
		prev = res.TotalScore
	}
}

func TestRemoveThenOppositeResurrects(t *testing.T) {
	h, store, _, entityID, _ := setup(t, 10)
	ctx := context.Background()
	user := uuid.New()

	_, err := h.Vote(ctx, upvote(entityID, user))
	require.NoError(t, err)
	_, err = h.Vote(ctx, upvote(entityID, user)) // removed
	require.NoError(t, err)

	res, err := h.Vote(ctx, downvote(entityID, user))
	require.NoError(t, err)
	assert.Equal(t, voting.ActionAdded, res.Action)
	assert.Equal(t, -1, res.ScoreDelta)
	assert.Equal(t, 9, res.TotalScore)

	// The original row was resurrected, not recreated.
	assert.Equal(t, 1, store.ActiveVoteCount(models.EntityQuestion, entityID))
}

func TestVoteValidation(t *testing.T) {
	h, _, _, entityID, _ := setup(t, 0)
	ctx := context.Background()

	_, err := h.Vote(ctx, voting.Command{EntityType: models.EntityQuestion, EntityID: uuid.Nil, UserID: uuid.New(), IsUpvote: true})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = h.Vote(ctx, voting.Command{EntityType: models.EntityQuestion, EntityID: entityID, UserID: uuid.Nil, IsUpvote: true})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = h.Vote(ctx, voting.Command{EntityType: "garage", EntityID: entityID, UserID: uuid.New(), IsUpvote: true})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestVoteUnknownEntity(t *testing.T) {
	h, _, _, _, _ := setup(t, 0)

	_, err := h.Vote(context.Background(), upvote(uuid.New(), uuid.New()))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestNotifyOnlyOnAdded(t *testing.T) {
	h, _, notifier, entityID, _ := setup(t, 0)
	ctx := context.Background()
	user := uuid.New()

	_, err := h.Vote(ctx, upvote(entityID, user)) // added: notify
	require.NoError(t, err)
	_, err = h.Vote(ctx, downvote(entityID, user)) // switched: no notify
	require.NoError(t, err)
	_, err = h.Vote(ctx, downvote(entityID, user)) // removed: no notify
	require.NoError(t, err)
	_, err = h.Vote(ctx, upvote(entityID, user)) // resurrected: notify
	require.NoError(t, err)

	assert.Equal(t, 2, notifier.count())
}

func TestSelfVoteAllowedButNotNotified(t *testing.T) {
	h, _, notifier, entityID, authorID := setup(t, 0)

	res, err := h.Vote(context.Background(), upvote(entityID, authorID))
	require.NoError(t, err)
	assert.Equal(t, voting.ActionAdded, res.Action)
	assert.Equal(t, 1, res.TotalScore)
	assert.Equal(t, 0, notifier.count())
}

func TestAuthorKarmaFollowsScore(t *testing.T) {
	h, store, _, entityID, authorID := setup(t, 0)
	ctx := context.Background()
	user := uuid.New()

	_, err := h.Vote(ctx, upvote(entityID, user))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Karma(authorID))

	_, err = h.Vote(ctx, downvote(entityID, user))
	require.NoError(t, err)
	assert.Equal(t, -1, store.Karma(authorID))

	_, err = h.Vote(ctx, downvote(entityID, user))
	require.NoError(t, err)
	assert.Equal(t, 0, store.Karma(authorID))
}

func TestConcurrentDistinctVoters(t *testing.T) {
	h, store, _, entityID, _ := setup(t, 0)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Vote(ctx, upvote(entityID, uuid.New()))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// No lost updates: the counter moved by exactly n.
	assert.Equal(t, n, store.Score(models.EntityQuestion, entityID))
	assert.Equal(t, n, store.ActiveVoteCount(models.EntityQuestion, entityID))
}

func TestConcurrentDuplicateVoter(t *testing.T) {
	h, store, _, entityID, _ := setup(t, 0)
	ctx := context.Background()
	user := uuid.New()

	const n = 5
	var wg sync.WaitGroup
	results := make(chan voting.Result, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.Vote(ctx, upvote(entityID, user))
			if err != nil {
				errs <- err
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Duplicates resolve to a serialized toggle sequence, never N inserts or
	// N increments: at most one active vote remains and the score matches it.
	added, removed := 0, 0
	for res := range results {
		switch res.Action {
		case voting.ActionAdded:
			added++
		case voting.ActionRemoved:
			removed++
		default:
			t.Fatalf("unexpected action %q", res.Action)
		}
	}
	active := store.ActiveVoteCount(models.EntityQuestion, entityID)
	assert.LessOrEqual(t, active, 1)
	assert.Equal(t, added-removed, active)
	assert.Equal(t, active, store.Score(models.EntityQuestion, entityID))
}

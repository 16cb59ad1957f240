package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVote(t *testing.T) {
	entityID := uuid.New()
	userID := uuid.New()

	v, delta, err := NewVote(EntityQuestion, entityID, userID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, delta)
	assert.True(t, v.IsUpvote)
	assert.Equal(t, VoteActive, v.Status)
	assert.NotEqual(t, uuid.Nil, v.ID)

	_, delta, err = NewVote(EntityAnswer, entityID, userID, false)
	require.NoError(t, err)
	assert.Equal(t, -1, delta)
}

func TestNewVoteValidation(t *testing.T) {
	tests := []struct {
		name       string
		entityType EntityType
		entityID   uuid.UUID
		userID     uuid.UUID
	}{
		{"nil entity id", EntityQuestion, uuid.Nil, uuid.New()},
		{"nil user id", EntityQuestion, uuid.New(), uuid.Nil},
		{"empty entity type", EntityType(""), uuid.New(), uuid.New()},
		{"unknown entity type", EntityType("comment"), uuid.New(), uuid.New()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewVote(tt.entityType, tt.entityID, tt.userID, true)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSwitchFlipsDirectionWithDoubleDelta(t *testing.T) {
	v, _, err := NewVote(EntityQuestion, uuid.New(), uuid.New(), true)
	require.NoError(t, err)

	delta, err := v.Switch()
	require.NoError(t, err)
	assert.Equal(t, -2, delta)
	assert.False(t, v.IsUpvote)

	delta, err = v.Switch()
	require.NoError(t, err)
	assert.Equal(t, 2, delta)
	assert.True(t, v.IsUpvote)
}

func TestRemoveInvertsContribution(t *testing.T) {
	remover := uuid.New()

	up, _, err := NewVote(EntityPost, uuid.New(), remover, true)
	require.NoError(t, err)
	delta, err := up.Remove(remover)
	require.NoError(t, err)
	assert.Equal(t, -1, delta)
	assert.True(t, up.IsDeleted())
	require.NotNil(t, up.DeletedAt)
	require.NotNil(t, up.DeletedBy)
	assert.Equal(t, remover, *up.DeletedBy)

	down, _, err := NewVote(EntityPost, uuid.New(), remover, false)
	require.NoError(t, err)
	delta, err = down.Remove(remover)
	require.NoError(t, err)
	assert.Equal(t, 1, delta)
}

func TestRemoveTwiceFails(t *testing.T) {
	v, _, err := NewVote(EntityQuestion, uuid.New(), uuid.New(), true)
	require.NoError(t, err)

	_, err = v.Remove(v.UserID)
	require.NoError(t, err)
	_, err = v.Remove(v.UserID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSwitchOnDeletedVoteFails(t *testing.T) {
	v, _, err := NewVote(EntityQuestion, uuid.New(), uuid.New(), true)
	require.NoError(t, err)

	_, err = v.Remove(v.UserID)
	require.NoError(t, err)
	_, err = v.Switch()
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestResurrect(t *testing.T) {
	v, _, err := NewVote(EntityQuestion, uuid.New(), uuid.New(), true)
	require.NoError(t, err)
	_, err = v.Remove(v.UserID)
	require.NoError(t, err)

	// Resurrect with the opposite direction yields the single-vote delta,
	// never the switch value.
	delta, err := v.Resurrect(false)
	require.NoError(t, err)
	assert.Equal(t, -1, delta)
	assert.False(t, v.IsUpvote)
	assert.Equal(t, VoteActive, v.Status)
	assert.Nil(t, v.DeletedAt)
	assert.Nil(t, v.DeletedBy)
}

func TestResurrectActiveVoteFails(t *testing.T) {
	v, _, err := NewVote(EntityQuestion, uuid.New(), uuid.New(), true)
	require.NoError(t, err)

	_, err = v.Resurrect(true)
	assert.ErrorIs(t, err, ErrInvalidState)
}

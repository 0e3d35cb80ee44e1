package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardroom/internal/cards"
)

func TestSeatingAddAndQueue(t *testing.T) {
	s := newSeating(2)

	alice, err := s.add("alice", RolePlayer)
	require.NoError(t, err)
	_, err = s.add("bob", RolePlayer)
	require.NoError(t, err)
	assert.Equal(t, 0, s.free())

	// A full table queues instead of seating.
	carol, err := s.add("carol", RolePlayer)
	require.ErrorIs(t, err, ErrTableFull)
	assert.Nil(t, carol)
	assert.Equal(t, []string{"carol"}, s.queue)

	// Queueing twice does not duplicate.
	_, err = s.add("carol", RolePlayer)
	require.ErrorIs(t, err, ErrTableFull)
	assert.Equal(t, []string{"carol"}, s.queue)

	// Re-adding a seated login returns the same seat.
	again, err := s.add("alice", RolePlayer)
	require.NoError(t, err)
	assert.Same(t, alice, again)

	assert.True(t, s.remove("bob"))
	assert.Equal(t, 1, s.free())
	assert.Nil(t, s.find("bob"))

	login, ok := s.dequeue()
	require.True(t, ok)
	assert.Equal(t, "carol", login)
	_, ok = s.dequeue()
	assert.False(t, ok)
}

func TestSeatingPromoteQueued(t *testing.T) {
	s := newSeating(1)
	_, err := s.add("alice", RolePlayer)
	require.NoError(t, err)

	for _, login := range []string{"bob", "carol", "dave"} {
		_, err := s.add(login, RolePlayer)
		require.ErrorIs(t, err, ErrTableFull)
	}
	require.Equal(t, []string{"bob", "carol", "dave"}, s.queue)

	s.promoteQueued("dave")
	assert.Equal(t, []string{"dave", "bob", "carol"}, s.queue)

	// An unknown login still jumps to the head.
	s.promoteQueued("eve")
	assert.Equal(t, []string{"eve", "dave", "bob", "carol"}, s.queue)
}

func TestSeatingRemoveFromQueue(t *testing.T) {
	s := newSeating(1)
	_, _ = s.add("alice", RolePlayer)
	_, _ = s.add("bob", RolePlayer)
	_, _ = s.add("carol", RolePlayer)

	assert.True(t, s.remove("bob"))
	assert.Equal(t, []string{"carol"}, s.queue)
	assert.False(t, s.remove("bob"))
}

func TestSeatingBettors(t *testing.T) {
	s := newSeating(4)
	alice, _ := s.add("alice", RolePlayer)
	_, _ = s.add("bob", RolePlayer)
	carol, _ := s.add("carol", RolePlayer)
	alice.Bet = 50
	carol.Bet = 100

	bettors := s.bettors()
	require.Len(t, bettors, 2)
	assert.Equal(t, "alice", bettors[0].Login)
	assert.Equal(t, "carol", bettors[1].Login)
}

func TestSplitHandIsNeverNatural(t *testing.T) {
	dealt := &Hand{Cards: []cards.Card{cards.MustParse("As"), cards.MustParse("Ks")}}
	assert.True(t, dealt.Natural())
	assert.True(t, dealt.Resolved())

	split := &Hand{Cards: dealt.Cards, FromSplit: true}
	assert.False(t, split.Natural())
	assert.False(t, split.Resolved())
}

func TestActiveHandProgression(t *testing.T) {
	first := &Hand{Cards: []cards.Card{cards.MustParse("8h"), cards.MustParse("3d")}}
	second := &Hand{Cards: []cards.Card{cards.MustParse("8c"), cards.MustParse("Ks")}}
	seat := &Seat{Login: "alice", Hands: []*Hand{first, second}}

	require.Same(t, first, seat.activeHand())
	first.Stood = true
	require.Same(t, second, seat.activeHand())
	second.Busted = true
	assert.Nil(t, seat.activeHand())
}

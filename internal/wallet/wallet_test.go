package wallet

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardroom/internal/store"
)

func newTestWallet(t *testing.T) *Wallet {
	t.Helper()
	w, err := New(zerolog.Nop(), nil, 1000)
	require.NoError(t, err)
	return w
}

func TestFirstTouchGrant(t *testing.T) {
	w := newTestWallet(t)
	assert.Equal(t, int64(1000), w.Balance("alice"))
	assert.Equal(t, int64(1000), w.Balance("alice"), "grant applies once")
}

func TestDebitCredit(t *testing.T) {
	w := newTestWallet(t)

	require.NoError(t, w.Debit("alice", 300, "bet"))
	assert.Equal(t, int64(700), w.Balance("alice"))

	require.NoError(t, w.Credit("alice", 450, "payout"))
	assert.Equal(t, int64(1150), w.Balance("alice"))
}

func TestDebitNeverOverdraws(t *testing.T) {
	w := newTestWallet(t)

	err := w.Debit("bob", 1001, "bet")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(1000), w.Balance("bob"), "failed debit leaves balance untouched")

	require.NoError(t, w.Debit("bob", 1000, "all in"))
	assert.Equal(t, int64(0), w.Balance("bob"))
	assert.ErrorIs(t, w.Debit("bob", 1, "bet"), ErrInsufficientFunds)
}

func TestAmountValidation(t *testing.T) {
	w := newTestWallet(t)

	assert.Error(t, w.Debit("carol", 0, "bet"))
	assert.Error(t, w.Debit("carol", -5, "bet"))
	assert.Error(t, w.Credit("carol", -5, "payout"))
	assert.NoError(t, w.Credit("carol", 0, "push"), "zero credit is a no-op")
	assert.Error(t, w.Grant("carol", 0, "topup"))
}

func TestGrant(t *testing.T) {
	w := newTestWallet(t)
	require.NoError(t, w.Grant("dave", 500, "admin topup"))
	assert.Equal(t, int64(1500), w.Balance("dave"))
}

func TestSnapshot(t *testing.T) {
	w := newTestWallet(t)
	w.Balance("alice")
	require.NoError(t, w.Debit("alice", 100, "bet"))
	w.Balance("bob")

	snap := w.Snapshot()
	assert.Equal(t, map[string]int64{"alice": 900, "bob": 1000}, snap)

	snap["alice"] = 0
	assert.Equal(t, int64(900), w.Balance("alice"), "snapshot is a copy")
}

func TestWriteThroughAndWarm(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallet.db")

	st, err := store.Open(path)
	require.NoError(t, err)

	w, err := New(zerolog.Nop(), st, 1000)
	require.NoError(t, err)
	require.NoError(t, w.Debit("alice", 250, "bet"))
	require.NoError(t, w.Credit("alice", 600, "payout"))
	require.NoError(t, st.Close())

	st2, err := store.Open(path)
	require.NoError(t, err)
	defer st2.Close()

	w2, err := New(zerolog.Nop(), st2, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1350), w2.Balance("alice"), "balances survive a restart")

	txns, err := st2.Transactions("alice", 10)
	require.NoError(t, err)
	assert.Len(t, txns, 3, "grant, debit, credit")
}

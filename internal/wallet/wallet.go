package wallet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lox/cardroom/internal/store"
)

// ErrInsufficientFunds is returned when a debit exceeds the available
// balance. Escrow never overdraws.
var ErrInsufficientFunds = errors.New("wallet: insufficient funds")

// Wallet holds the authoritative chip balances in memory and mirrors every
// movement to the store. A store failure is logged and play continues; the
// in-memory balance stays the source of truth for the session.
type Wallet struct {
	mu             sync.Mutex
	balances       map[string]int64
	defaultBalance int64
	store          *store.Store
	logger         zerolog.Logger
}

// New builds a wallet, warming balances from the store when one is given.
// Logins never seen before are granted defaultBalance on first touch.
func New(logger zerolog.Logger, st *store.Store, defaultBalance int64) (*Wallet, error) {
	w := &Wallet{
		balances:       make(map[string]int64),
		defaultBalance: defaultBalance,
		store:          st,
		logger:         logger.With().Str("component", "wallet").Logger(),
	}
	if st != nil {
		accounts, err := st.Accounts()
		if err != nil {
			return nil, fmt.Errorf("failed to warm wallet: %w", err)
		}
		for _, acc := range accounts {
			w.balances[acc.Login] = acc.Balance
		}
		w.logger.Info().Int("accounts", len(accounts)).Msg("wallet warmed from store")
	}
	return w, nil
}

// ensure creates the account with the default grant on first touch.
// Caller holds the lock.
func (w *Wallet) ensure(login string) int64 {
	bal, ok := w.balances[login]
	if !ok {
		bal = w.defaultBalance
		w.balances[login] = bal
		w.persist(login, bal, bal, "grant", "first seen")
		w.logger.Info().Str("login", login).Int64("balance", bal).Msg("account created")
	}
	return bal
}

// persist mirrors a movement to the store. Caller holds the lock.
func (w *Wallet) persist(login string, amount, after int64, kind, ref string) {
	if w.store == nil {
		return
	}
	if err := w.store.ApplyDelta(login, amount, after, kind, ref); err != nil {
		w.logger.Error().Err(err).Str("login", login).Str("kind", kind).Msg("store write failed")
	}
}

// Balance returns the current balance, creating the account if needed.
func (w *Wallet) Balance(login string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ensure(login)
}

// Debit removes chips, failing with ErrInsufficientFunds rather than going
// negative.
func (w *Wallet) Debit(login string, amount int64, ref string) error {
	if amount <= 0 {
		return fmt.Errorf("wallet: debit amount %d must be positive", amount)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	bal := w.ensure(login)
	if bal < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, login, bal, amount)
	}
	after := bal - amount
	w.balances[login] = after
	w.persist(login, -amount, after, "debit", ref)
	return nil
}

// Credit adds chips.
func (w *Wallet) Credit(login string, amount int64, ref string) error {
	if amount < 0 {
		return fmt.Errorf("wallet: credit amount %d must not be negative", amount)
	}
	if amount == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	after := w.ensure(login) + amount
	w.balances[login] = after
	w.persist(login, amount, after, "credit", ref)
	return nil
}

// Grant tops up an account by admin action.
func (w *Wallet) Grant(login string, amount int64, ref string) error {
	if amount <= 0 {
		return fmt.Errorf("wallet: grant amount %d must be positive", amount)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	after := w.ensure(login) + amount
	w.balances[login] = after
	w.persist(login, amount, after, "grant", ref)
	return nil
}

// Snapshot copies all balances for the admin stats endpoint.
func (w *Wallet) Snapshot() map[string]int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make(map[string]int64, len(w.balances))
	for login, bal := range w.balances {
		out[login] = bal
	}
	return out
}

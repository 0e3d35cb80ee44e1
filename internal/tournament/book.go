package tournament

import (
	"fmt"
	"sync"

	"github.com/lox/cardroom/internal/wallet"
)

// StackBook holds one tournament's chip stacks and implements game.Funds, so
// bound tables escrow from stacks instead of wallets. Stacks exist only for
// the tournament's lifetime; eliminated players keep their final count for
// the record but a zero stack can never be bet from again.
type StackBook struct {
	tournamentID string

	mu    sync.Mutex
	chips map[string]int64
}

func newStackBook(tournamentID string) *StackBook {
	return &StackBook{
		tournamentID: tournamentID,
		chips:        make(map[string]int64),
	}
}

// Balance returns the current stack. Unknown logins read as zero; stacks are
// only ever created through AddPlayer.
func (b *StackBook) Balance(login string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chips[login]
}

// Debit removes chips from a stack, failing with ErrInsufficientFunds rather
// than going negative. Matches the wallet sentinel so settlement code treats
// both sources the same.
func (b *StackBook) Debit(login string, amount int64, ref string) error {
	if amount <= 0 {
		return fmt.Errorf("tournament: debit amount %d must be positive", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	stack := b.chips[login]
	if stack < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", wallet.ErrInsufficientFunds, login, stack, amount)
	}
	b.chips[login] = stack - amount
	return nil
}

// Credit adds chips to a stack.
func (b *StackBook) Credit(login string, amount int64, ref string) error {
	if amount < 0 {
		return fmt.Errorf("tournament: credit amount %d must not be negative", amount)
	}
	if amount == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chips[login] += amount
	return nil
}

// set installs an absolute stack, used when registering players and when
// resuming from the store.
func (b *StackBook) set(login string, chips int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chips[login] = chips
}

// snapshot copies all stacks.
func (b *StackBook) snapshot() map[string]int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]int64, len(b.chips))
	for login, chips := range b.chips {
		out[login] = chips
	}
	return out
}

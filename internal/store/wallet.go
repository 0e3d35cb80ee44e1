package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Account is a stored wallet row.
type Account struct {
	Login   string
	Balance int64
}

// Transaction is one ledger row: a signed movement and the balance it left
// behind.
type Transaction struct {
	ID           string
	Login        string
	Amount       int64
	BalanceAfter int64
	Kind         string
	Reference    string
	CreatedAt    time.Time
}

// Account returns the stored balance for a login.
func (s *Store) Account(login string) (Account, error) {
	var acc Account
	err := s.QueryRow("SELECT login, balance FROM players WHERE login = ?", login).
		Scan(&acc.Login, &acc.Balance)
	if err == sql.ErrNoRows {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("failed to load account: %w", err)
	}
	return acc, nil
}

// Accounts returns every stored wallet row, used to warm the wallet at boot.
func (s *Store) Accounts() ([]Account, error) {
	rows, err := s.Query("SELECT login, balance FROM players ORDER BY login")
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var acc Account
		if err := rows.Scan(&acc.Login, &acc.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// ApplyDelta writes a balance movement and its ledger row in one transaction.
// The wallet passes the absolute balance it has already computed, so replays
// of the same settlement converge instead of compounding.
func (s *Store) ApplyDelta(login string, amount, balanceAfter int64, kind, reference string) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO players (login, balance)
		VALUES (?, ?)
		ON CONFLICT(login) DO UPDATE SET
			balance = excluded.balance,
			updated_at = CURRENT_TIMESTAMP
	`, login, balanceAfter)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO transactions (id, login, amount, balance_after, kind, reference)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), login, amount, balanceAfter, kind, reference)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	return tx.Commit()
}

// Transactions returns the most recent ledger rows for a login, newest first.
func (s *Store) Transactions(login string, limit int) ([]Transaction, error) {
	rows, err := s.Query(`
		SELECT id, login, amount, balance_after, kind, COALESCE(reference, ''), created_at
		FROM transactions
		WHERE login = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, login, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.Login, &t.Amount, &t.BalanceAfter, &t.Kind, &t.Reference, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

package store

import (
	"database/sql"
	"fmt"
)

// Profile is the identity half of a player row. Balances stay with the
// wallet accessors; this is what auth and the admin surface read.
type Profile struct {
	Login       string
	Role        string
	DisplayName string
}

// Profile returns the stored identity for a login.
func (s *Store) Profile(login string) (Profile, error) {
	var p Profile
	err := s.QueryRow("SELECT login, role, display_name FROM players WHERE login = ?", login).
		Scan(&p.Login, &p.Role, &p.DisplayName)
	if err == sql.ErrNoRows {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, nil
}

// SetRole upserts a player's role, creating the row if the login has never
// touched the wallet.
func (s *Store) SetRole(login, role string) error {
	_, err := s.Exec(`
		INSERT INTO players (login, role)
		VALUES (?, ?)
		ON CONFLICT(login) DO UPDATE SET
			role = excluded.role,
			updated_at = CURRENT_TIMESTAMP
	`, login, role)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	return nil
}

// SetDisplayName upserts a player's display name.
func (s *Store) SetDisplayName(login, name string) error {
	_, err := s.Exec(`
		INSERT INTO players (login, display_name)
		VALUES (?, ?)
		ON CONFLICT(login) DO UPDATE SET
			display_name = excluded.display_name,
			updated_at = CURRENT_TIMESTAMP
	`, login, name)
	if err != nil {
		return fmt.Errorf("failed to set display name: %w", err)
	}
	return nil
}

// Roles returns every login with a non-default role, used to warm the
// authorizer at boot.
func (s *Store) Roles() (map[string]string, error) {
	rows, err := s.Query("SELECT login, role FROM players WHERE role != 'player'")
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	defer rows.Close()

	roles := make(map[string]string)
	for rows.Next() {
		var login, role string
		if err := rows.Scan(&login, &role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles[login] = role
	}
	return roles, rows.Err()
}

package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/store"
)

// Directory is the development authorizer: the token is the login itself.
// Roles are warmed from the store at boot and configured admin logins
// override; anyone else enters as a player.
type Directory struct {
	logger zerolog.Logger
	store  *store.Store

	mu    sync.RWMutex
	roles map[string]game.Role
}

// NewDirectory builds a directory. A nil store starts with only the
// configured admins mapped.
func NewDirectory(logger zerolog.Logger, st *store.Store, admins []string) (*Directory, error) {
	d := &Directory{
		logger: logger.With().Str("component", "auth").Logger(),
		store:  st,
		roles:  make(map[string]game.Role),
	}
	if st != nil {
		stored, err := st.Roles()
		if err != nil {
			return nil, fmt.Errorf("failed to warm roles: %w", err)
		}
		for login, name := range stored {
			role, err := ParseRole(name)
			if err != nil {
				d.logger.Warn().Str("login", login).Str("role", name).Msg("ignoring unknown stored role")
				continue
			}
			d.roles[login] = role
		}
	}
	for _, raw := range admins {
		login, err := NormalizeLogin(raw)
		if err != nil {
			return nil, fmt.Errorf("bad admin login %q: %w", raw, err)
		}
		d.roles[login] = game.RoleAdmin
	}
	return d, nil
}

// Authorize accepts any well-formed login.
func (d *Directory) Authorize(_ context.Context, token string) (Identity, error) {
	login, err := NormalizeLogin(token)
	if err != nil {
		return Identity{}, err
	}
	d.mu.RLock()
	role, ok := d.roles[login]
	d.mu.RUnlock()
	if !ok {
		role = game.RolePlayer
	}
	return Identity{Login: login, Role: role}, nil
}

// SetRole changes a login's role at runtime and mirrors it to the store.
// Setting player clears any elevation.
func (d *Directory) SetRole(raw string, role game.Role) error {
	login, err := NormalizeLogin(raw)
	if err != nil {
		return err
	}
	d.mu.Lock()
	if role == game.RolePlayer {
		delete(d.roles, login)
	} else {
		d.roles[login] = role
	}
	d.mu.Unlock()

	if d.store != nil {
		if err := d.store.SetRole(login, string(role)); err != nil {
			return fmt.Errorf("failed to persist role: %w", err)
		}
	}
	d.logger.Info().Str("login", login).Str("role", string(role)).Msg("role set")
	return nil
}

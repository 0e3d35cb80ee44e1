// Package auth resolves connection tokens into identities. The router
// authenticates the first message of each websocket session and stamps the
// returned identity onto every later command on that connection.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lox/cardroom/internal/game"
)

var (
	// ErrInvalidToken is a definitive rejection.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable means no decision could be made. The router fails
	// closed either way but reports a different reason.
	ErrUnavailable = errors.New("auth: unavailable")
)

// Identity is an authenticated session.
type Identity struct {
	Login string
	Role  game.Role
}

// IsAdmin reports whether the identity may run server administration.
func (id Identity) IsAdmin() bool {
	return id.Role.CanAdminister()
}

// Authorizer resolves a token into an identity.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (Identity, error)
}

// Logins share the channel-name charset so they can appear in event payloads
// and channel references without escaping.
var loginRE = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

// NormalizeLogin folds a raw login to its stored form.
func NormalizeLogin(raw string) (string, error) {
	login := strings.ToLower(strings.TrimSpace(raw))
	if !loginRE.MatchString(login) {
		return "", fmt.Errorf("%w: login %q", ErrInvalidToken, raw)
	}
	return login, nil
}

// ParseRole validates a role name from config, the store, or an auth
// callback. Empty means player.
func ParseRole(s string) (game.Role, error) {
	if s == "" {
		return game.RolePlayer, nil
	}
	switch r := game.Role(s); r {
	case game.RolePlayer, game.RoleAI, game.RoleStreamer, game.RoleAdmin, game.RolePremier:
		return r, nil
	}
	return "", fmt.Errorf("auth: unknown role %q", s)
}

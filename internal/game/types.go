package game

// Mode selects which round engine a channel runs.
type Mode string

const (
	ModeBlackjack Mode = "blackjack"
	ModePoker     Mode = "poker"
)

// SeatCap returns the maximum seated players for the mode.
func (m Mode) SeatCap() int {
	if m == ModePoker {
		return 10
	}
	return 7
}

// Valid reports whether the mode is one of the two engines.
func (m Mode) Valid() bool {
	return m == ModeBlackjack || m == ModePoker
}

// Phase is the round lifecycle. Exactly one phase is active per channel.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseBetting  Phase = "betting"
	PhaseDealing  Phase = "dealing"
	PhaseAction   Phase = "action"
	PhaseShowdown Phase = "showdown"
	PhaseSettled  Phase = "settled"
)

// Role is the authorization level attached to each command by the auth
// collaborator. The core only compares roles, it never parses credentials.
type Role string

const (
	RolePlayer   Role = "player"
	RoleAI       Role = "ai"
	RoleStreamer Role = "streamer"
	RoleAdmin    Role = "admin"
	RolePremier  Role = "premier"
)

// CanControl reports whether the role may drive channel lifecycle commands
// (open betting, start now, force advance, bot management).
func (r Role) CanControl() bool {
	return r == RoleStreamer || r == RoleAdmin
}

// CanAdminister reports whether the role may run tournament and server
// administration commands.
func (r Role) CanAdminister() bool {
	return r == RoleAdmin
}

// TournamentBinding ties a channel to a tournament table. References are by
// identifier only; the controller and the channel never hold pointers into
// each other.
type TournamentBinding struct {
	TournamentID string `json:"tournamentId"`
	Round        int    `json:"round"`
	Table        int    `json:"table"`
	SmallBlind   int64  `json:"smallBlind"`
	BigBlind     int64  `json:"bigBlind"`

	// Roster is the bracket's seat assignment for this table, in seat order.
	// Ready tracking and blind posting follow it.
	Roster []string `json:"roster"`
}

package game

// CommandKind names every mutation the core accepts. Tournament lifecycle
// kinds are routed to the controller by the server; the rest land on a
// channel's loop.
type CommandKind string

const (
	CmdPlaceBet  CommandKind = "placeBet"
	CmdHit       CommandKind = "hit"
	CmdStand     CommandKind = "stand"
	CmdDouble    CommandKind = "double"
	CmdSplit     CommandKind = "split"
	CmdSurrender CommandKind = "surrender"
	CmdInsurance CommandKind = "insurance"
	CmdCheck     CommandKind = "check"
	CmdCall      CommandKind = "call"
	CmdRaise     CommandKind = "raise"
	CmdFold      CommandKind = "fold"
	CmdReady     CommandKind = "ready"

	CmdOpenBetting  CommandKind = "openBetting"
	CmdStartNow     CommandKind = "startNow"
	CmdForceAdvance CommandKind = "forceAdvance"
	CmdAddBot       CommandKind = "addBot"
	CmdKickBot      CommandKind = "kickBot"

	CmdBindTournamentTable  CommandKind = "bindTournamentTable"
	CmdCreateTournament     CommandKind = "createTournament"
	CmdAddTournamentPlayer  CommandKind = "addTournamentPlayer"
	CmdGenerateBracket      CommandKind = "generateBracket"
	CmdAdvanceRound         CommandKind = "advanceRound"
	CmdStartTournament      CommandKind = "startTournament"
)

// Command is one ingress mutation, already authenticated. Amount carries the
// bet, raise-to, or insurance value for the kinds that take one; Target names
// the bot login for kick, or the persona for add.
type Command struct {
	Channel string      `json:"channel"`
	Actor   string      `json:"actor"`
	Role    Role        `json:"role"`
	Kind    CommandKind `json:"kind"`
	Amount  int64       `json:"amount,omitempty"`
	Target  string      `json:"target,omitempty"`

	// Bind is set for bindTournamentTable.
	Bind *TournamentBinding `json:"bind,omitempty"`
}

// requiresControl lists channel commands gated on streamer/admin roles.
func (k CommandKind) requiresControl() bool {
	switch k {
	case CmdOpenBetting, CmdStartNow, CmdForceAdvance, CmdAddBot, CmdKickBot, CmdBindTournamentTable:
		return true
	default:
		return false
	}
}

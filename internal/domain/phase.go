package domain

// Phase represents the current phase of a room's round state machine.
type Phase string

const (
	PhaseLobby          Phase = "LOBBY"
	PhaseDealerSetup    Phase = "DEALER_SETUP"
	PhaseDealing        Phase = "DEALING"
	PhaseTurns          Phase = "TURNS"
	PhaseAwaitingReveal Phase = "AWAITING_REVEAL"
	PhaseFinalReveal    Phase = "FINAL_REVEAL"
	PhaseRoundEnd       Phase = "ROUND_END"
	PhaseGameEnd        Phase = "GAME_END"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// RoomStatus is the coarse LOBBY/IN_GAME status exposed on Room itself,
// independent of the finer-grained Phase that only exists once a game
// has started.
type RoomStatus string

const (
	StatusLobby  RoomStatus = "LOBBY"
	StatusInGame RoomStatus = "IN_GAME"
)

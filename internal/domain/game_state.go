package domain

// GameState is the round-level state that exists only while a room's
// status is IN_GAME. It never carries card identities — those live in
// Room.cardBySeat, which is cleared at ROUND_END and never serialized
// wholesale.
type GameState struct {
	Phase       Phase
	DealerSeat  Seat
	TurnSeat    Seat
	RoundIndex  int
	AliveSeats  []Seat       // sorted ascending
	Facedown    map[Seat]bool
	Acted       map[Seat]bool
	DeadlineTs  *int64 // absolute ms timestamp; nil when no active deadline
	CheeseSeats map[Seat]bool
	Vote        *RematchVote // non-nil only during PhaseGameEnd
}

func newGameState() *GameState {
	return &GameState{
		Phase:       PhaseDealerSetup,
		Facedown:    make(map[Seat]bool),
		Acted:       make(map[Seat]bool),
		CheeseSeats: make(map[Seat]bool),
	}
}

// FacedownSeats returns the facedown set as a sorted slice.
func (g *GameState) FacedownSeats() []Seat {
	return sortedSeats(g.Facedown)
}

// ActedSeats returns the acted set as a sorted slice.
func (g *GameState) ActedSeats() []Seat {
	return sortedSeats(g.Acted)
}

// CheeseSeatList returns the cheese set as a sorted slice.
func (g *GameState) CheeseSeatList() []Seat {
	return sortedSeats(g.CheeseSeats)
}

func (g *GameState) isAlive(seat Seat) bool {
	return containsSeat(g.AliveSeats, seat)
}

func (g *GameState) removeAliveSeat(seat Seat) {
	out := make([]Seat, 0, len(g.AliveSeats))
	for _, s := range g.AliveSeats {
		if s != seat {
			out = append(out, s)
		}
	}
	g.AliveSeats = out
}

package domain

// This file covers what happens at the edges of a round: the rematch
// vote that opens on GAME_END, and the phase-dependent fallout of a
// player disconnecting for good (grace-window expiry), per spec.md
// §4.2 and §4.5.

// IsVoting reports whether the room is currently between games,
// collecting rematch votes.
func (r *Room) IsVoting() bool {
	return r.Game != nil && r.Game.Phase == PhaseGameEnd
}

// CastVote records playerID's rematch vote. Valid only during GAME_END.
func (r *Room) CastVote(playerID string, yes bool) error {
	if !r.IsVoting() {
		return ErrInvalidAction
	}
	m, ok := r.Members[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	r.Game.Vote.SetVote(m.Player.Seat, yes)
	return nil
}

// VoteTally reports the current yes-seats and the connected seats that
// make up quorum, for building VOTE_UPDATE events.
func (r *Room) VoteTally() (yesSeats, connected []Seat) {
	connected = r.connectedSeats()
	if r.Game == nil || r.Game.Vote == nil {
		return nil, connected
	}
	return r.Game.Vote.YesSeats(), connected
}

// ResolveVoteIfReady returns the room to LOBBY once every connected seat
// has voted yes. Returns true if it did.
func (r *Room) ResolveVoteIfReady() bool {
	if !r.IsVoting() {
		return false
	}
	if !r.Game.Vote.Resolved(r.connectedSeats()) {
		return false
	}
	r.ReturnToLobby()
	return true
}

// ReturnToLobby resets every member for a fresh game and drops the round
// state entirely.
func (r *Room) ReturnToLobby() {
	for _, m := range r.Members {
		m.resetForNewGame()
	}
	r.Status = StatusLobby
	r.Game = nil
	r.cardBySeat = nil
}

// GraceExpire is called once a disconnected player's reconnect grace
// window has elapsed without them returning. removed reports that the
// player was dropped from the room outright (the GAME_END/voting case);
// gameEnded and winnerSeat report a resulting GAME_END transition
// (winnerSeat is -1 on a no-survivor wipe).
func (r *Room) GraceExpire(playerID string) (removed, gameEnded bool, winnerSeat Seat, err error) {
	m, ok := r.Members[playerID]
	if !ok {
		return false, false, 0, ErrPlayerNotFound
	}
	if m.Player.Connected {
		return false, false, 0, nil
	}

	if r.IsVoting() {
		if err := r.RemovePlayer(playerID); err != nil {
			return false, false, 0, err
		}
		return true, false, 0, nil
	}

	if r.Game != nil {
		seat := m.Player.Seat
		r.Game.removeAliveSeat(seat)
		delete(r.Game.Facedown, seat)
		delete(r.Game.Acted, seat)
		delete(r.Game.CheeseSeats, seat)
		delete(r.cardBySeat, seat)
	}
	m.Player.Alive = false

	if ended, winner := r.checkGameEndNow(); ended {
		return false, true, winner, nil
	}

	return false, false, 0, nil
}

package domain

// This file implements the round state machine of spec.md §4.3–§4.4:
// dealer-driven hidden-card deal, turn progression, swap/drink
// resolution, final reveal, and round/dealer rotation. Every method
// mutates a single *Room in place and returns a sentinel error on an
// illegal call, mirroring the teacher's domain.Game methods (plain
// error, no event payloads — the caller builds outbound events from the
// resulting state).

// DrinkResult is what a drink (self-reveal) or a final-reveal tick
// produces: which seat, which card, and whether it eliminated them.
type DrinkResult struct {
	Seat       Seat
	Card       CardType
	Eliminated bool
}

// StartGame transitions LOBBY -> DEALER_SETUP: marks every player alive,
// picks a uniformly random alive seat as dealer, and opens round 1.
func (r *Room) StartGame(playerID string) error {
	if err := r.CanStartGame(playerID); err != nil {
		return err
	}

	alive := make(map[Seat]bool, len(r.Members))
	for _, m := range r.Members {
		m.resetForNewGame()
		alive[m.Player.Seat] = true
	}

	g := newGameState()
	g.RoundIndex = 1
	g.AliveSeats = sortedSeats(alive)
	g.DealerSeat = randomSeat(g.AliveSeats)
	g.Phase = PhaseDealerSetup

	r.Status = StatusInGame
	r.Game = g
	r.cardBySeat = nil

	return nil
}

// ValidateDealerAction checks that playerID is bound, the room is in
// DEALER_SETUP, and playerID occupies the dealer seat. Used for both
// DEALER_SET (which mutates state) and DEALER_PREVIEW (which is a pure
// relay handled entirely by the engine).
func (r *Room) ValidateDealerAction(playerID string) (Seat, error) {
	if r.Game == nil || r.Game.Phase != PhaseDealerSetup {
		return 0, ErrInvalidAction
	}
	m, ok := r.Members[playerID]
	if !ok {
		return 0, ErrPlayerNotFound
	}
	if m.Player.Seat != r.Game.DealerSeat {
		return 0, ErrNotDealer
	}
	return m.Player.Seat, nil
}

// SubmitDealerComposition validates and commits the dealer's seat->card
// mapping. composition is ordered by ascending alive seat, per §6.
func (r *Room) SubmitDealerComposition(playerID string, composition []CardType) error {
	if _, err := r.ValidateDealerAction(playerID); err != nil {
		return err
	}
	if err := validComposition(r.Game.AliveSeats, composition); err != nil {
		return err
	}

	mapping := make(map[Seat]CardType, len(composition))
	for i, seat := range r.Game.AliveSeats {
		mapping[seat] = composition[i]
	}
	r.commitComposition(mapping)
	return nil
}

// SynthesizeDealerComposition is invoked by the engine when the dealer is
// disconnected during DEALER_SETUP: it commits a random valid assignment
// on the dealer's behalf so the round is never blocked on an absent
// dealer.
func (r *Room) SynthesizeDealerComposition() error {
	if r.Game == nil || r.Game.Phase != PhaseDealerSetup {
		return ErrInvalidAction
	}
	r.commitComposition(synthesizeComposition(r.Game.AliveSeats))
	return nil
}

func (r *Room) commitComposition(mapping map[Seat]CardType) {
	r.cardBySeat = mapping

	facedown := make(map[Seat]bool, len(mapping))
	for seat := range mapping {
		facedown[seat] = true
	}
	r.Game.Facedown = facedown
	r.Game.Acted = make(map[Seat]bool)

	r.distributeCheese()
	r.Game.Phase = PhaseDealing
}

// distributeCheese runs exactly once per round, at composition commit
// time, per spec.md §4.4.
func (r *Room) distributeCheese() {
	for _, m := range r.Members {
		m.Player.HasCheese = false
	}
	r.Game.CheeseSeats = make(map[Seat]bool)

	if !r.Settings.CheeseEnabled || len(r.Game.AliveSeats) < 3 {
		return
	}

	k := r.Settings.CheeseCount
	if maxK := len(r.Game.AliveSeats) - 1; k > maxK {
		k = maxK
	}
	if k <= 0 {
		return
	}

	for _, seat := range randomDistinctSeats(r.Game.AliveSeats, k) {
		r.Game.CheeseSeats[seat] = true
		if m := r.memberBySeat(seat); m != nil {
			m.Player.HasCheese = true
		}
	}
}

// AdvanceToTurns transitions DEALING -> TURNS, or straight to
// AWAITING_REVEAL if no non-dealer seat is eligible to act.
func (r *Room) AdvanceToTurns() error {
	if r.Game == nil || r.Game.Phase != PhaseDealing {
		return ErrInvalidAction
	}

	first, ok := r.firstTurnSeat()
	if !ok {
		r.Game.Phase = PhaseAwaitingReveal
		return nil
	}

	r.Game.TurnSeat = first
	r.Game.Phase = PhaseTurns
	return nil
}

func (r *Room) firstTurnSeat() (Seat, bool) {
	next, ok := nextAliveSeatClockwise(r.Game.AliveSeats, r.Game.DealerSeat)
	if !ok || next == r.Game.DealerSeat {
		return 0, false
	}
	return next, true
}

func (r *Room) validateTurnAction(playerID string) (Seat, error) {
	if r.Game == nil || r.Game.Phase != PhaseTurns {
		return 0, ErrInvalidAction
	}
	m, ok := r.Members[playerID]
	if !ok {
		return 0, ErrPlayerNotFound
	}
	if m.Player.Seat != r.Game.TurnSeat {
		return 0, ErrNotYourTurn
	}
	if r.Game.Acted[m.Player.Seat] {
		return 0, ErrAlreadyActed
	}
	return m.Player.Seat, nil
}

// ActionDrink reveals the turn owner's own card and applies the
// cheese-inverted elimination decision.
func (r *Room) ActionDrink(playerID string) (*DrinkResult, error) {
	seat, err := r.validateTurnAction(playerID)
	if err != nil {
		return nil, err
	}
	return r.drinkSeat(seat), nil
}

// SynthesizeDrink is the engine's substitution for a turn owner whose
// deadline fires without an action: drink is the deterministic default
// per spec.md §4.3.
func (r *Room) SynthesizeDrink(seat Seat) (*DrinkResult, error) {
	if r.Game == nil || r.Game.Phase != PhaseTurns || r.Game.TurnSeat != seat || r.Game.Acted[seat] {
		return nil, ErrInvalidAction
	}
	return r.drinkSeat(seat), nil
}

// drinkSeat is the deterministic "timed out" / "chose to drink" path,
// shared by ActionDrink and the engine's timeout synthesis.
func (r *Room) drinkSeat(seat Seat) *DrinkResult {
	result := r.revealSeat(seat)
	r.Game.Acted[seat] = true
	delete(r.Game.Facedown, seat)
	r.advanceTurn()
	return result
}

func (r *Room) revealSeat(seat Seat) *DrinkResult {
	card := r.cardBySeat[seat]
	eliminated := eliminationFor(card, r.Game.CheeseSeats[seat])
	if eliminated {
		r.eliminate(seat)
	}
	return &DrinkResult{Seat: seat, Card: card, Eliminated: eliminated}
}

// eliminationFor implements spec.md §4.4's cheese inversion: base
// elimination is card==DOOM; holding cheese at reveal time flips it.
func eliminationFor(card CardType, hasCheese bool) bool {
	base := card == CardDoom
	if hasCheese {
		return !base
	}
	return base
}

func (r *Room) eliminate(seat Seat) {
	r.Game.removeAliveSeat(seat)
	if m := r.memberBySeat(seat); m != nil {
		m.Player.Alive = false
	}
}

// ActionSwap exchanges the turn owner's card with an alive, facedown,
// non-self target.
func (r *Room) ActionSwap(playerID string, target Seat) error {
	seat, err := r.validateTurnAction(playerID)
	if err != nil {
		return err
	}
	if target == seat || !r.Game.isAlive(target) || !r.Game.Facedown[target] {
		return ErrInvalidTarget
	}

	r.cardBySeat[seat], r.cardBySeat[target] = r.cardBySeat[target], r.cardBySeat[seat]
	r.Game.Acted[seat] = true
	r.advanceTurn()
	return nil
}

// ActionStealCheese transfers cheese from an alive target to the turn
// owner. Cheese variant only.
func (r *Room) ActionStealCheese(playerID string, target Seat) error {
	seat, err := r.validateTurnAction(playerID)
	if err != nil {
		return err
	}
	if !r.Settings.CheeseEnabled {
		return ErrInvalidAction
	}
	if target == seat || !r.Game.isAlive(target) {
		return ErrInvalidTarget
	}

	self := r.memberBySeat(seat)
	if self == nil {
		return ErrPlayerNotFound
	}
	if self.Player.HasCheese {
		return ErrAlreadyHasCheese
	}

	victim := r.memberBySeat(target)
	if victim == nil || !victim.Player.HasCheese {
		return ErrNoCheeseToSteal
	}

	victim.Player.HasCheese = false
	self.Player.HasCheese = true
	delete(r.Game.CheeseSeats, target)
	r.Game.CheeseSeats[seat] = true

	r.Game.Acted[seat] = true
	r.advanceTurn()
	return nil
}

// advanceTurn moves TurnSeat to the next alive, not-yet-acted,
// non-dealer seat clockwise from the current one. If that search wraps
// back to the dealer before finding one, the round moves to
// AWAITING_REVEAL.
func (r *Room) advanceTurn() {
	seat := r.Game.TurnSeat
	for i := 0; i < len(r.Game.AliveSeats); i++ {
		next, ok := nextAliveSeatClockwise(r.Game.AliveSeats, seat)
		if !ok || next == r.Game.DealerSeat {
			r.Game.Phase = PhaseAwaitingReveal
			r.Game.TurnSeat = 0
			return
		}
		if !r.Game.Acted[next] {
			r.Game.TurnSeat = next
			return
		}
		seat = next
	}
	r.Game.Phase = PhaseAwaitingReveal
	r.Game.TurnSeat = 0
}

// StartReveal transitions AWAITING_REVEAL -> FINAL_REVEAL. Must be
// called by the dealer.
func (r *Room) StartReveal(playerID string) error {
	if r.Game == nil || r.Game.Phase != PhaseAwaitingReveal {
		return ErrInvalidAction
	}
	m, ok := r.Members[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	if m.Player.Seat != r.Game.DealerSeat {
		return ErrNotDealer
	}
	r.Game.Phase = PhaseFinalReveal
	return nil
}

// AutoTriggerReveal is the engine's substitution for a disconnected
// dealer in AWAITING_REVEAL, fired after the usual grace window.
func (r *Room) AutoTriggerReveal() error {
	if r.Game == nil || r.Game.Phase != PhaseAwaitingReveal {
		return ErrInvalidAction
	}
	r.Game.Phase = PhaseFinalReveal
	return nil
}

// RevealNext reveals the smallest remaining facedown seat. done is true
// once no facedown seats remain (including on the call that reveals the
// last one).
func (r *Room) RevealNext() (*DrinkResult, bool, error) {
	if r.Game == nil || r.Game.Phase != PhaseFinalReveal {
		return nil, false, ErrInvalidAction
	}

	remaining := r.Game.FacedownSeats()
	if len(remaining) == 0 {
		return nil, true, nil
	}

	seat := remaining[0]
	result := r.revealSeat(seat)
	delete(r.Game.Facedown, seat)
	return result, len(r.Game.Facedown) == 0, nil
}

// CheckRoundEnd decides GAME_END vs ROUND_END once final reveals are
// exhausted. winnerSeat is -1 if nobody survived.
func (r *Room) CheckRoundEnd() (gameEnd bool, winnerSeat Seat) {
	if ended, winner := r.checkGameEndNow(); ended {
		return true, winner
	}
	r.Game.Phase = PhaseRoundEnd
	return false, -1
}

// checkGameEndNow transitions to GAME_END if at most one seat remains
// alive, regardless of the current phase. Shared by the end-of-reveal
// check and the disconnect/leave paths, which can also shrink
// aliveSeats to zero or one mid-round.
func (r *Room) checkGameEndNow() (gameEnded bool, winnerSeat Seat) {
	if r.Game == nil || r.Game.Phase == PhaseGameEnd {
		return false, -1
	}
	if len(r.Game.AliveSeats) > 1 {
		return false, -1
	}
	r.Game.Phase = PhaseGameEnd
	r.Game.Vote = NewRematchVote()
	if len(r.Game.AliveSeats) == 1 {
		return true, r.Game.AliveSeats[0]
	}
	return true, -1
}

// CheckGameEndNow is the engine-facing entry point to checkGameEndNow,
// used after a voluntary leave or a grace-expiry death shrinks
// aliveSeats outside the normal end-of-reveal check.
func (r *Room) CheckGameEndNow() (gameEnded bool, winnerSeat Seat) {
	return r.checkGameEndNow()
}

// AdvanceTurnExternally re-runs the clockwise turn-advancement search
// from the current turn seat. Used when the turn owner leaves the room
// outright rather than acting or timing out, since those are the only
// other two callers of advanceTurn.
func (r *Room) AdvanceTurnExternally() {
	if r.Game == nil || r.Game.Phase != PhaseTurns {
		return
	}
	r.advanceTurn()
}

// PeekNextDealer reports who the next dealer will be without mutating
// state, for the ROUND_END{nextDealerSeat} event.
func (r *Room) PeekNextDealer() Seat {
	next, ok := nextAliveSeatClockwise(r.Game.AliveSeats, r.Game.DealerSeat)
	if !ok {
		return r.Game.DealerSeat
	}
	return next
}

// AdvanceRound transitions ROUND_END -> DEALER_SETUP: clears per-round
// state and rotates the dealer clockwise from the previous dealer's seat
// number, even if that seat died.
func (r *Room) AdvanceRound() error {
	if r.Game == nil || r.Game.Phase != PhaseRoundEnd {
		return ErrInvalidAction
	}
	r.Game.DealerSeat = r.PeekNextDealer()
	r.Game.Facedown = make(map[Seat]bool)
	r.Game.Acted = make(map[Seat]bool)
	r.Game.RoundIndex++
	r.Game.Phase = PhaseDealerSetup
	r.cardBySeat = nil
	return nil
}

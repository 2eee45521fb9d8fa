package app

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"partyroom/internal/codec"
	"partyroom/internal/domain"
)

// Engine is the per-room single-writer mailbox of spec.md §5: every
// intent, timer fire, and socket lifecycle event targeting a room runs
// as a job on one goroutine, so the invariants of §3 never have to
// survive a suspension point. It generalizes the teacher's
// mutex-guarded GameSession + buffered event channel into one
// job-queue actor, which is what lets timer callbacks re-enter the same
// serialized path instead of mutating state directly from a goroutine
// of their own.
type Engine struct {
	room   *domain.Room
	logger *zap.Logger

	jobs chan func()
	done chan struct{}
	wg   sync.WaitGroup

	clientsMu sync.RWMutex
	clients   map[string]Connection

	memberCount int32 // atomic; mirrors len(room.Members), safe to read off-loop

	turnTimer *time.Timer
	turnGen   uint64

	graceTimers map[string]*time.Timer

	onTokenInvalidated func(playerID string)

	CreatedAt time.Time
}

// NewEngine creates an Engine over room. onTokenInvalidated is called
// (off the engine's own goroutine is fine — it only touches the
// registry's maps) whenever a player's departure should also expire
// their bearer token.
func NewEngine(room *domain.Room, logger *zap.Logger, onTokenInvalidated func(playerID string)) *Engine {
	return &Engine{
		room:               room,
		logger:             logger,
		jobs:               make(chan func(), 256),
		done:               make(chan struct{}),
		clients:            make(map[string]Connection),
		graceTimers:        make(map[string]*time.Timer),
		onTokenInvalidated: onTokenInvalidated,
		CreatedAt:          time.Now(),
	}
}

// Start launches the engine's serialized job loop.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.run()
}

// Stop terminates the loop, closes every attached connection, and
// cancels all pending timers.
func (e *Engine) Stop() {
	select {
	case <-e.done:
		return
	default:
		close(e.done)
	}
	e.wg.Wait()

	if e.turnTimer != nil {
		e.turnTimer.Stop()
	}
	for _, t := range e.graceTimers {
		t.Stop()
	}

	e.clientsMu.Lock()
	for _, c := range e.clients {
		_ = c.Close()
	}
	e.clients = make(map[string]Connection)
	e.clientsMu.Unlock()
}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case fn := <-e.jobs:
			fn()
		}
	}
}

// Submit enqueues fn to run on the engine's loop, preserving the
// caller's submission order relative to its own other submissions. It
// blocks if the queue is full rather than dropping an intent — the
// drop-under-pressure policy of spec.md §4.6 applies to the outbound
// socket queue, not the room's inbound mailbox.
func (e *Engine) Submit(fn func()) {
	select {
	case e.jobs <- fn:
	case <-e.done:
	}
}

// RoomID and JoinCode are read-only identity accessors safe to call from
// any goroutine: both fields are set once at construction and never
// mutated afterward.
func (e *Engine) RoomID() string   { return e.room.RoomID }
func (e *Engine) JoinCode() string { return e.room.JoinCode }

// MemberCount is safe to call from the registry's reaper goroutine
// without going through the job queue; it reads an atomic counter kept
// in sync by every membership mutation on the loop goroutine rather
// than touching room.Members directly.
func (e *Engine) MemberCount() int {
	return int(atomic.LoadInt32(&e.memberCount))
}

// syncMemberCount must only be called from the engine's own loop
// goroutine, right after a mutation of room.Members.
func (e *Engine) syncMemberCount() {
	atomic.StoreInt32(&e.memberCount, int32(len(e.room.Members)))
}

func (e *Engine) attachClient(playerID string, conn Connection) {
	e.clientsMu.Lock()
	e.clients[playerID] = conn
	e.clientsMu.Unlock()
}

func (e *Engine) detachClient(playerID string) {
	e.clientsMu.Lock()
	delete(e.clients, playerID)
	e.clientsMu.Unlock()
}

func (e *Engine) invalidateToken(playerID string) {
	if e.onTokenInvalidated != nil {
		e.onTokenInvalidated(playerID)
	}
}

// --- join flow -------------------------------------------------------

// joinRoomLocked performs the §4.1 membership join, including the
// session-reconnect check. It must only be called on the engine's own
// goroutine (via RoomRegistry.JoinRoom's Submit+wait).
func (e *Engine) joinRoomLocked(name string, avatarID int, sessionID string, maxPlayers int) (playerID, token string, isReconnect bool, err error) {
	if existing := e.room.MemberBySessionID(sessionID); existing != nil {
		if existing.Player.Connected {
			return "", "", false, domain.ErrSessionAlreadyInRoom
		}
		return existing.Player.PlayerID, existing.Token, true, nil
	}

	playerID = newID()
	token = newID()

	m, err := e.room.AddPlayer(playerID, name, avatarID, token, sessionID, maxPlayers)
	if err != nil {
		return "", "", false, err
	}
	e.syncMemberCount()

	e.broadcastLobbyUpdate()
	return m.Player.PlayerID, token, false, nil
}

// HandleJoin binds conn to playerID's existing membership. It is the
// engine-side half of the JOIN intent; the transport layer resolves the
// bearer token to a playerID via the registry before calling this.
func (e *Engine) HandleJoin(playerID string, conn Connection) {
	m, ok := e.room.Members[playerID]
	if !ok {
		e.sendErrorTo(conn, domain.ErrNotInRoom)
		_ = conn.Close()
		return
	}

	e.attachClient(playerID, conn)

	wasDisconnected := !m.Player.Connected
	if wasDisconnected {
		_ = e.room.ReconnectPlayer(playerID)
		if t, ok := e.graceTimers[playerID]; ok {
			t.Stop()
			delete(e.graceTimers, playerID)
		}
	}

	// LOBBY_UPDATE goes out first so the joiner's STATE snapshot is the
	// last word on the room as of this join.
	e.broadcastLobbyUpdate()
	e.sendState(playerID)

	if !wasDisconnected {
		return
	}

	if e.room.Game != nil && e.room.Game.Phase == domain.PhaseTurns && e.room.Game.TurnSeat == m.Player.Seat {
		e.armTurnTimerForCurrent()
		e.broadcastPhase()
	}
}

func (e *Engine) sendState(playerID string) {
	m, ok := e.room.Members[playerID]
	if !ok {
		return
	}
	var gv *domain.GameView
	if e.room.Game != nil {
		v := e.room.Game.View()
		gv = &v
	}
	e.sendTo(playerID, domain.OpState, domain.StatePayload{
		Room:         e.room.View(),
		Game:         gv,
		YourSeat:     m.Player.Seat,
		YourPlayerID: playerID,
	})
}

// --- intent dispatch --------------------------------------------------

// HandleIntent decodes and applies one client frame for an already
// bound player. Every case either mutates room state and broadcasts the
// resulting events, or rejects the intent with an ERROR to the sender —
// never both.
func (e *Engine) HandleIntent(playerID string, op domain.Op, data []byte) {
	switch op {
	case domain.OpReady:
		e.handleReady(playerID, data)
	case domain.OpStartGame:
		e.handleStartGame(playerID)
	case domain.OpUpdateSettings:
		e.handleUpdateSettings(playerID, data)
	case domain.OpActionDrink:
		e.handleActionDrink(playerID)
	case domain.OpActionSwap:
		e.handleActionSwap(playerID, data)
	case domain.OpActionStealCheese:
		e.handleActionStealCheese(playerID, data)
	case domain.OpDealerSet:
		e.handleDealerSet(playerID, data)
	case domain.OpDealerPreview:
		e.handleDealerPreview(playerID, data)
	case domain.OpStartReveal:
		e.handleStartReveal(playerID)
	case domain.OpVoteRematch:
		e.handleVoteRematch(playerID, data)
	case domain.OpLeaveRoom:
		e.handleLeaveRoom(playerID)
	case domain.OpPing:
		e.handlePing(playerID, data)
	case domain.OpJoin:
		// Already bound; a second JOIN is a no-op re-send of state.
		e.sendState(playerID)
	default:
		e.sendError(playerID, domain.ErrUnknownOp)
	}
}

func (e *Engine) handleReady(playerID string, data []byte) {
	in, err := codec.DecodeReady(data)
	if err != nil {
		e.sendError(playerID, err)
		return
	}
	if err := e.room.SetReady(playerID, in.Ready); err != nil {
		e.sendError(playerID, err)
		return
	}
	e.broadcastLobbyUpdate()
}

func (e *Engine) handleStartGame(playerID string) {
	if err := e.room.StartGame(playerID); err != nil {
		e.sendError(playerID, err)
		return
	}
	e.enterDealerSetup()
}

func (e *Engine) handleUpdateSettings(playerID string, data []byte) {
	in, err := codec.DecodeUpdateSettings(data)
	if err != nil {
		e.sendError(playerID, err)
		return
	}
	if !e.room.IsHost(playerID) {
		e.sendError(playerID, domain.ErrNotHost)
		return
	}
	if e.room.Status != domain.StatusLobby {
		e.sendError(playerID, domain.ErrGameInProgress)
		return
	}
	if err := e.room.UpdateSettings(in.Settings); err != nil {
		e.sendError(playerID, err)
		return
	}
	e.broadcastLobbyUpdate()
}

func (e *Engine) handleActionDrink(playerID string) {
	result, err := e.room.ActionDrink(playerID)
	if err != nil {
		e.sendError(playerID, err)
		return
	}
	e.cancelTurnTimer()
	e.afterTurnAction(result)
}

func (e *Engine) handleActionSwap(playerID string, data []byte) {
	in, err := codec.DecodeActionSwap(data)
	if err != nil {
		e.sendError(playerID, err)
		return
	}
	seat := e.seatOf(playerID)
	if err := e.room.ActionSwap(playerID, in.TargetSeat); err != nil {
		e.sendError(playerID, err)
		return
	}
	e.cancelTurnTimer()
	e.broadcast(domain.OpSwap, domain.SwapPayload{FromSeat: seat, ToSeat: in.TargetSeat})
	e.afterAdvance()
}

func (e *Engine) handleActionStealCheese(playerID string, data []byte) {
	in, err := codec.DecodeActionStealCheese(data)
	if err != nil {
		e.sendError(playerID, err)
		return
	}
	seat := e.seatOf(playerID)
	if err := e.room.ActionStealCheese(playerID, in.TargetSeat); err != nil {
		e.sendError(playerID, err)
		return
	}
	e.cancelTurnTimer()
	e.broadcast(domain.OpCheeseStolen, domain.CheeseStolenPayload{FromSeat: in.TargetSeat, ToSeat: seat})
	e.broadcastCheeseUpdate()
	e.afterAdvance()
}

func (e *Engine) handleDealerSet(playerID string, data []byte) {
	in, err := codec.DecodeDealerSet(data)
	if err != nil {
		e.sendError(playerID, err)
		return
	}
	if err := e.room.SubmitDealerComposition(playerID, in.Composition); err != nil {
		e.sendError(playerID, err)
		return
	}
	e.afterComposed()
}

func (e *Engine) handleDealerPreview(playerID string, data []byte) {
	in, err := codec.DecodeDealerPreview(data)
	if err != nil {
		e.sendError(playerID, err)
		return
	}
	if _, err := e.room.ValidateDealerAction(playerID); err != nil {
		e.sendError(playerID, err)
		return
	}
	e.broadcastExcept(playerID, domain.OpDealerPreview, domain.DealerPreviewPayload{
		Seat:     in.Seat,
		Assigned: in.CardType != nil,
	})
}

func (e *Engine) handleStartReveal(playerID string) {
	if err := e.room.StartReveal(playerID); err != nil {
		e.sendError(playerID, err)
		return
	}
	e.onRevealStarted()
}

func (e *Engine) handleVoteRematch(playerID string, data []byte) {
	in, err := codec.DecodeVoteRematch(data)
	if err != nil {
		e.sendError(playerID, err)
		return
	}
	if err := e.room.CastVote(playerID, in.Vote); err != nil {
		e.sendError(playerID, err)
		return
	}
	e.broadcastVoteUpdate()
	if e.room.ResolveVoteIfReady() {
		e.broadcastLobbyUpdate()
	}
}

func (e *Engine) handlePing(playerID string, data []byte) {
	in, err := codec.DecodePing(data)
	if err != nil {
		e.sendError(playerID, err)
		return
	}
	e.sendTo(playerID, domain.OpPong, domain.PongPayload{T: in.T})
}

func (e *Engine) handleLeaveRoom(playerID string) {
	m, ok := e.room.Members[playerID]
	if !ok {
		return
	}
	seat := m.Player.Seat
	wasVoting := e.room.IsVoting()
	var wasDealerSetup, wasAwaitingRevealDealer, wasTurnOwner bool
	if e.room.Game != nil {
		wasDealerSetup = e.room.Game.Phase == domain.PhaseDealerSetup && e.room.Game.DealerSeat == seat
		wasAwaitingRevealDealer = e.room.Game.Phase == domain.PhaseAwaitingReveal && e.room.Game.DealerSeat == seat
		wasTurnOwner = e.room.Game.Phase == domain.PhaseTurns && e.room.Game.TurnSeat == seat
	}

	if err := e.room.RemovePlayer(playerID); err != nil {
		return
	}
	e.syncMemberCount()
	e.detachClient(playerID)
	e.invalidateToken(playerID)
	e.broadcastPlayerLeft(seat, domain.ReasonLeft)
	e.broadcastLobbyUpdate()

	if e.room.Status == domain.StatusLobby {
		return
	}

	if wasVoting {
		e.broadcastVoteUpdate()
		if e.room.ResolveVoteIfReady() {
			e.broadcastLobbyUpdate()
		}
		return
	}

	if ended, winner := e.room.CheckGameEndNow(); ended {
		e.cancelTurnTimer()
		e.broadcast(domain.OpGameEnd, domain.GameEndPayload{WinnerSeat: winner})
		e.broadcastVoteUpdate()
		return
	}

	switch {
	case wasDealerSetup:
		e.synthesizeComposition()
	case wasAwaitingRevealDealer:
		if err := e.room.AutoTriggerReveal(); err == nil {
			e.onRevealStarted()
		}
	case wasTurnOwner:
		e.room.AdvanceTurnExternally()
		e.afterAdvance()
	}
}

func (e *Engine) seatOf(playerID string) domain.Seat {
	if m, ok := e.room.Members[playerID]; ok {
		return m.Player.Seat
	}
	return -1
}

// --- disconnect / reconnect -------------------------------------------

// HandleDisconnect processes a socket going away, whatever the cause
// (read error, heartbeat failure, outbound queue overflow).
func (e *Engine) HandleDisconnect(playerID string) {
	e.detachClient(playerID)

	m, ok := e.room.Members[playerID]
	if !ok || !m.Player.Connected {
		return
	}

	if e.room.Status == domain.StatusLobby {
		seat := m.Player.Seat
		if err := e.room.RemovePlayer(playerID); err == nil {
			e.syncMemberCount()
			e.invalidateToken(playerID)
			e.broadcastPlayerLeft(seat, domain.ReasonDisconnected)
			e.broadcastLobbyUpdate()
		}
		return
	}

	seat := m.Player.Seat
	if err := e.room.DisconnectPlayer(playerID); err != nil {
		return
	}
	e.broadcastPlayerLeft(seat, domain.ReasonDisconnected)
	e.broadcastLobbyUpdate()
	e.armGraceTimer(playerID)

	if e.room.Game == nil {
		return
	}

	switch {
	case e.room.Game.Phase == domain.PhaseDealerSetup && e.room.Game.DealerSeat == seat:
		e.synthesizeComposition()
	case e.room.Game.Phase == domain.PhaseTurns && e.room.Game.TurnSeat == seat:
		e.armTurnTimer(seat, domain.DisconnectedTurnTimeout)
		e.broadcastPhase()
	}
}

func (e *Engine) armGraceTimer(playerID string) {
	if t, ok := e.graceTimers[playerID]; ok {
		t.Stop()
	}
	e.graceTimers[playerID] = time.AfterFunc(domain.ReconnectTimeout, func() {
		e.Submit(func() { e.onGraceExpire(playerID) })
	})
}

func (e *Engine) onGraceExpire(playerID string) {
	delete(e.graceTimers, playerID)

	m, ok := e.room.Members[playerID]
	if !ok || m.Player.Connected {
		return
	}

	if e.room.Game != nil && e.room.Game.Phase == domain.PhaseAwaitingReveal && e.room.Game.DealerSeat == m.Player.Seat {
		if err := e.room.AutoTriggerReveal(); err == nil {
			e.onRevealStarted()
		}
		return
	}

	seat := m.Player.Seat
	removed, gameEnded, winnerSeat, err := e.room.GraceExpire(playerID)
	if err != nil {
		return
	}

	if removed {
		e.syncMemberCount()
		e.detachClient(playerID)
		e.invalidateToken(playerID)
		e.broadcastVoteUpdate()
		if e.room.ResolveVoteIfReady() {
			e.broadcastLobbyUpdate()
		}
		return
	}

	e.broadcast(domain.OpElim, domain.ElimPayload{Seat: seat})
	if gameEnded {
		e.cancelTurnTimer()
		e.broadcast(domain.OpGameEnd, domain.GameEndPayload{WinnerSeat: winnerSeat})
		e.broadcastVoteUpdate()
	}
}

// --- round-state-machine reactions ------------------------------------

func (e *Engine) enterDealerSetup() {
	e.broadcastPhase()
	dm := e.room.MemberAtSeat(e.room.Game.DealerSeat)
	if dm == nil || !dm.Player.Connected {
		e.synthesizeComposition()
	}
}

func (e *Engine) synthesizeComposition() {
	if err := e.room.SynthesizeDealerComposition(); err != nil {
		e.logger.Error("failed to synthesize dealer composition", zap.Error(err))
		return
	}
	e.afterComposed()
}

func (e *Engine) afterComposed() {
	e.broadcast(domain.OpDealt, domain.DealtPayload{AliveSeats: append([]domain.Seat(nil), e.room.Game.AliveSeats...)})
	e.broadcastCheeseUpdate()
	time.AfterFunc(domain.DealingHold, func() {
		e.Submit(e.onDealingHoldElapsed)
	})
}

func (e *Engine) onDealingHoldElapsed() {
	if e.room.Game == nil || e.room.Game.Phase != domain.PhaseDealing {
		return
	}
	if err := e.room.AdvanceToTurns(); err != nil {
		return
	}
	switch e.room.Game.Phase {
	case domain.PhaseTurns:
		e.armTurnTimerForCurrent()
		e.broadcastPhase()
	case domain.PhaseAwaitingReveal:
		e.broadcastPhase()
	}
}

func (e *Engine) afterTurnAction(result *domain.DrinkResult) {
	e.broadcast(domain.OpReveal, domain.RevealPayload{Seat: result.Seat, CardType: result.Card})
	if result.Eliminated {
		e.broadcast(domain.OpElim, domain.ElimPayload{Seat: result.Seat})
	}
	e.afterAdvance()
}

func (e *Engine) afterAdvance() {
	if e.room.Game == nil {
		return
	}
	switch e.room.Game.Phase {
	case domain.PhaseTurns:
		e.armTurnTimerForCurrent()
		e.broadcastPhase()
	case domain.PhaseAwaitingReveal:
		e.cancelTurnTimer()
		e.broadcastPhase()
	}
}

func (e *Engine) onRevealStarted() {
	e.broadcastPhase()
	e.scheduleNextReveal()
}

func (e *Engine) scheduleNextReveal() {
	time.AfterFunc(domain.PerRevealDuration, func() {
		e.Submit(e.revealTick)
	})
}

func (e *Engine) revealTick() {
	if e.room.Game == nil || e.room.Game.Phase != domain.PhaseFinalReveal {
		return
	}
	result, done, err := e.room.RevealNext()
	if err != nil {
		return
	}
	if result != nil {
		e.broadcast(domain.OpReveal, domain.RevealPayload{Seat: result.Seat, CardType: result.Card})
		if result.Eliminated {
			e.broadcast(domain.OpElim, domain.ElimPayload{Seat: result.Seat})
		}
	}
	if !done {
		e.scheduleNextReveal()
		return
	}
	e.onFinalRevealComplete()
}

func (e *Engine) onFinalRevealComplete() {
	gameEnd, winnerSeat := e.room.CheckRoundEnd()
	if gameEnd {
		e.broadcast(domain.OpGameEnd, domain.GameEndPayload{WinnerSeat: winnerSeat})
		e.broadcastVoteUpdate()
		return
	}

	nextDealer := e.room.PeekNextDealer()
	e.broadcast(domain.OpRoundEnd, domain.RoundEndPayload{NextDealerSeat: nextDealer})

	time.AfterFunc(domain.RoundEndHold, func() {
		e.Submit(e.onRoundEndHoldElapsed)
	})
}

func (e *Engine) onRoundEndHoldElapsed() {
	if e.room.Game == nil || e.room.Game.Phase != domain.PhaseRoundEnd {
		return
	}
	if err := e.room.AdvanceRound(); err != nil {
		return
	}
	e.enterDealerSetup()
}

// --- turn timer --------------------------------------------------------

func (e *Engine) armTurnTimerForCurrent() {
	seat := e.room.Game.TurnSeat
	d := time.Duration(e.room.Settings.TurnTimerSeconds) * time.Second
	if m := e.room.MemberAtSeat(seat); m == nil || !m.Player.Connected {
		d = domain.DisconnectedTurnTimeout
	}
	e.armTurnTimer(seat, d)
}

func (e *Engine) armTurnTimer(seat domain.Seat, d time.Duration) {
	e.turnGen++
	gen := e.turnGen

	if e.turnTimer != nil {
		e.turnTimer.Stop()
	}

	deadline := time.Now().Add(d).UnixMilli()
	e.room.Game.DeadlineTs = &deadline

	e.turnTimer = time.AfterFunc(d, func() {
		e.Submit(func() { e.onTurnTimeout(seat, gen) })
	})
}

func (e *Engine) cancelTurnTimer() {
	e.turnGen++
	if e.turnTimer != nil {
		e.turnTimer.Stop()
		e.turnTimer = nil
	}
	if e.room.Game != nil {
		e.room.Game.DeadlineTs = nil
	}
}

func (e *Engine) onTurnTimeout(seat domain.Seat, gen uint64) {
	if gen != e.turnGen {
		return // superseded by a real action or a later re-arm
	}
	result, err := e.room.SynthesizeDrink(seat)
	if err != nil {
		return
	}
	e.cancelTurnTimer()
	e.afterTurnAction(result)
}

// --- lobby / phase broadcasts -------------------------------------------

func (e *Engine) broadcastLobbyUpdate() {
	view := e.room.View()
	e.broadcast(domain.OpLobbyUpdate, domain.LobbyUpdatePayload{
		Players:  view.Players,
		Settings: e.room.Settings,
	})
}

func (e *Engine) broadcastPhase() {
	g := e.room.Game
	if g == nil {
		return
	}
	e.broadcast(domain.OpPhase, domain.PhasePayload{
		Phase:      g.Phase,
		DealerSeat: g.DealerSeat,
		TurnSeat:   g.TurnSeat,
		DeadlineTs: g.DeadlineTs,
		AliveSeats: append([]domain.Seat(nil), g.AliveSeats...),
	})
}

func (e *Engine) broadcastCheeseUpdate() {
	if e.room.Game == nil {
		return
	}
	e.broadcast(domain.OpCheeseUpdate, domain.CheeseUpdatePayload{CheeseSeats: e.room.Game.CheeseSeatList()})
}

func (e *Engine) broadcastVoteUpdate() {
	if e.room.Game == nil || e.room.Game.Vote == nil {
		return
	}
	yes, connected := e.room.VoteTally()
	e.broadcast(domain.OpVoteUpdate, domain.VoteUpdatePayload{
		VotedYes:      yes,
		RequiredVotes: len(connected),
		Phase:         domain.PhaseGameEnd,
	})
}

func (e *Engine) broadcastPlayerLeft(seat domain.Seat, reason domain.LeaveReason) {
	e.broadcast(domain.OpPlayerLeft, domain.PlayerLeftPayload{Seat: seat, Reason: reason})
}

package app

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"partyroom/internal/domain"
)

// StaleRoomTimeout is the minimum age, counted from the room's creation,
// an empty room must reach before the reaper drops it, mirroring the
// teacher's stale-session sweep.
const StaleRoomTimeout = 10 * time.Minute

type tokenBinding struct {
	roomID   string
	playerID string
}

// RoomRegistry owns every live Engine and the bearer tokens that bind a
// socket to a (room, player) pair. It is the single entry point the
// transport layer uses to create rooms, join them, and resolve a JOIN
// intent's token back to a player — generalizing the teacher's GameHub
// from one-room-per-code bookkeeping to the token-based reconnect model
// of spec.md §4.1.
type RoomRegistry struct {
	mu         sync.RWMutex
	rooms      map[string]*Engine // roomID -> engine
	byJoinCode map[string]string  // joinCode -> roomID
	byToken    map[string]tokenBinding

	logger     *zap.Logger
	maxPlayers int
	done       chan struct{}
}

// NewRoomRegistry creates a registry and starts its reaper loop.
func NewRoomRegistry(logger *zap.Logger, maxPlayers int) *RoomRegistry {
	reg := &RoomRegistry{
		rooms:      make(map[string]*Engine),
		byJoinCode: make(map[string]string),
		byToken:    make(map[string]tokenBinding),
		logger:     logger,
		maxPlayers: maxPlayers,
		done:       make(chan struct{}),
	}
	go reg.reapLoop()
	return reg
}

// Close stops every engine and the reaper.
func (reg *RoomRegistry) Close() {
	close(reg.done)

	reg.mu.Lock()
	engines := make([]*Engine, 0, len(reg.rooms))
	for _, e := range reg.rooms {
		engines = append(engines, e)
	}
	reg.rooms = make(map[string]*Engine)
	reg.byJoinCode = make(map[string]string)
	reg.byToken = make(map[string]tokenBinding)
	reg.mu.Unlock()

	for _, e := range engines {
		e.Stop()
	}
}

// CreateRoom creates a fresh, empty room and seats the host into it,
// returning the join code callers share with other players and the
// host's own bearer token.
func (reg *RoomRegistry) CreateRoom(hostName string, hostAvatarID int, sessionID string) (roomID, joinCode, playerID, token string, err error) {
	if sessionID == "" {
		sessionID = newID()
	}

	reg.mu.Lock()
	joinCode, err = reg.uniqueJoinCodeLocked()
	if err != nil {
		reg.mu.Unlock()
		return "", "", "", "", err
	}

	room := domain.NewRoom(newID(), joinCode)
	engine := NewEngine(room, reg.logger, func(pid string) { reg.removePlayerToken(pid) })

	reg.rooms[room.RoomID] = engine
	reg.byJoinCode[joinCode] = room.RoomID
	reg.mu.Unlock()

	// No client can reach this engine yet, so AddPlayer can run directly
	// instead of through the job queue.
	playerID = newID()
	token = newID()
	if _, err := room.AddPlayer(playerID, hostName, hostAvatarID, token, sessionID, reg.maxPlayers); err != nil {
		reg.mu.Lock()
		delete(reg.rooms, room.RoomID)
		delete(reg.byJoinCode, joinCode)
		reg.mu.Unlock()
		return "", "", "", "", err
	}
	engine.syncMemberCount()

	reg.mu.Lock()
	reg.byToken[token] = tokenBinding{roomID: room.RoomID, playerID: playerID}
	reg.mu.Unlock()

	engine.Start()
	reg.logger.Info("room created", zap.String("joinCode", joinCode), zap.String("roomId", room.RoomID))
	return room.RoomID, joinCode, playerID, token, nil
}

// JoinRoom seats a new (or reconnecting) player into the room named by
// joinCode. The membership mutation is submitted to the target engine's
// own job queue so it serializes with every other mutation of that
// room, per spec.md §5.
func (reg *RoomRegistry) JoinRoom(joinCode, name string, avatarID int, sessionID string) (roomID, playerID, token string, err error) {
	if sessionID == "" {
		sessionID = newID()
	}

	reg.mu.RLock()
	roomID, ok := reg.byJoinCode[joinCode]
	var engine *Engine
	if ok {
		engine = reg.rooms[roomID]
	}
	reg.mu.RUnlock()

	if !ok || engine == nil {
		return "", "", "", domain.ErrRoomNotFound
	}

	type result struct {
		playerID    string
		token       string
		isReconnect bool
		err         error
	}
	resCh := make(chan result, 1)

	engine.Submit(func() {
		pid, tok, reconnect, err := engine.joinRoomLocked(name, avatarID, sessionID, reg.maxPlayers)
		resCh <- result{playerID: pid, token: tok, isReconnect: reconnect, err: err}
	})

	r := <-resCh
	if r.err != nil {
		return "", "", "", r.err
	}

	if !r.isReconnect {
		reg.mu.Lock()
		reg.byToken[r.token] = tokenBinding{roomID: roomID, playerID: r.playerID}
		reg.mu.Unlock()
	}

	return roomID, r.playerID, r.token, nil
}

// ResolveToken maps a bearer token carried by a JOIN intent to the
// engine and player it is bound to.
func (reg *RoomRegistry) ResolveToken(token string) (engine *Engine, playerID string, err error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	b, ok := reg.byToken[token]
	if !ok {
		return nil, "", domain.ErrInvalidToken
	}
	e, ok := reg.rooms[b.roomID]
	if !ok {
		return nil, "", domain.ErrRoomNotFound
	}
	return e, b.playerID, nil
}

// EngineFor looks up a room's engine by room ID, for HTTP endpoints that
// already know it (e.g. after CreateRoom).
func (reg *RoomRegistry) EngineFor(roomID string) (*Engine, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	e, ok := reg.rooms[roomID]
	return e, ok
}

func (reg *RoomRegistry) removePlayerToken(playerID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for tok, b := range reg.byToken {
		if b.playerID == playerID {
			delete(reg.byToken, tok)
		}
	}
}

// uniqueJoinCodeLocked must be called with reg.mu held.
func (reg *RoomRegistry) uniqueJoinCodeLocked() (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code := randomJoinCode()
		if _, exists := reg.byJoinCode[code]; !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique join code")
}

func randomJoinCode() string {
	b := make([]byte, domain.JoinCodeLength)
	_, _ = rand.Read(b)

	code := make([]byte, domain.JoinCodeLength)
	alphabet := domain.JoinCodeAlphabet
	for i := range code {
		code[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(code)
}

// reapLoop periodically drops rooms that currently have zero members and
// were created more than StaleRoomTimeout ago, mirroring the teacher's
// cleanupLoop. How long a room has been empty is not tracked.
func (reg *RoomRegistry) reapLoop() {
	ticker := time.NewTicker(2 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-reg.done:
			return
		case <-ticker.C:
			reg.reapEmpty()
		}
	}
}

func (reg *RoomRegistry) reapEmpty() {
	reg.mu.Lock()
	stale := make([]*Engine, 0)
	for roomID, e := range reg.rooms {
		if e.MemberCount() == 0 && time.Since(e.CreatedAt) > StaleRoomTimeout {
			stale = append(stale, e)
			delete(reg.rooms, roomID)
			delete(reg.byJoinCode, e.JoinCode())
		}
	}
	for tok, b := range reg.byToken {
		if _, ok := reg.rooms[b.roomID]; !ok {
			delete(reg.byToken, tok)
		}
	}
	reg.mu.Unlock()

	for _, e := range stale {
		e.Stop()
		reg.logger.Info("room reaped", zap.String("roomId", e.RoomID()))
	}
}

package app

import (
	"encoding/json"
	"sync"
	"testing"

	"go.uber.org/zap"

	"partyroom/internal/domain"
)

// fakeConn is an in-memory Connection that records every frame it is
// sent, for assertions without a real socket.
type fakeConn struct {
	mu       sync.Mutex
	playerID string
	frames   [][]byte
	closed   bool
}

func newFakeConn(playerID string) *fakeConn {
	return &fakeConn{playerID: playerID}
}

func (c *fakeConn) PlayerID() string { return c.playerID }

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) lastOp(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		t.Fatalf("player %s received no frames", c.playerID)
	}
	var env struct {
		Op string `json:"op"`
	}
	if err := json.Unmarshal(c.frames[len(c.frames)-1], &env); err != nil {
		t.Fatalf("unmarshal last frame: %v", err)
	}
	return env.Op
}

func (c *fakeConn) opCounts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[string]int)
	for _, f := range c.frames {
		var env struct {
			Op string `json:"op"`
		}
		if json.Unmarshal(f, &env) == nil {
			counts[env.Op]++
		}
	}
	return counts
}

// newTestEngine builds an Engine directly over a fresh Room, without
// starting its job loop: tests call its handler methods synchronously,
// the same way the loop goroutine would.
func newTestEngine() *Engine {
	room := domain.NewRoom("room-1", "ABC123")
	return NewEngine(room, zap.NewNop(), nil)
}

// seatPlayers adds n members directly to e's room and returns their
// playerIDs in join order.
func seatPlayers(t *testing.T, e *Engine, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		pid := string(rune('a'+i)) + "-id"
		if _, err := e.room.AddPlayer(pid, string(rune('A'+i)), 0, "tok-"+pid, "sess-"+pid, domain.DefaultMaxPlayers); err != nil {
			t.Fatalf("AddPlayer: %v", err)
		}
		ids[i] = pid
	}
	e.syncMemberCount()
	return ids
}

func TestHandleJoin_SendsStateAndTracksConnection(t *testing.T) {
	e := newTestEngine()
	ids := seatPlayers(t, e, 1)

	conn := newFakeConn(ids[0])
	e.HandleJoin(ids[0], conn)

	if conn.lastOp(t) != string(domain.OpState) {
		t.Fatalf("want last frame STATE, got %s", conn.lastOp(t))
	}
	if e.MemberCount() != 1 {
		t.Fatalf("want member count 1, got %d", e.MemberCount())
	}
}

func TestHandleJoin_UnknownPlayerClosesConnection(t *testing.T) {
	e := newTestEngine()
	conn := newFakeConn("ghost")
	e.HandleJoin("ghost", conn)

	if !conn.closed {
		t.Fatalf("want connection closed for an unbound playerID")
	}
}

func TestHandleIntent_ReadyBroadcastsLobbyUpdate(t *testing.T) {
	e := newTestEngine()
	ids := seatPlayers(t, e, 2)
	conns := make([]*fakeConn, len(ids))
	for i, pid := range ids {
		conns[i] = newFakeConn(pid)
		e.HandleJoin(pid, conns[i])
	}

	e.HandleIntent(ids[1], domain.OpReady, []byte(`{"ready":true}`))

	if conns[0].lastOp(t) != string(domain.OpLobbyUpdate) {
		t.Fatalf("want LOBBY_UPDATE broadcast to host, got %s", conns[0].lastOp(t))
	}
}

func TestHandleIntent_StartGameRejectsWhenNotAllReady(t *testing.T) {
	e := newTestEngine()
	ids := seatPlayers(t, e, 3)
	conn := newFakeConn(ids[0])
	e.HandleJoin(ids[0], conn)

	e.HandleIntent(ids[0], domain.OpStartGame, nil)

	if conn.lastOp(t) != string(domain.OpErrorEvent) {
		t.Fatalf("want ERROR for unready start, got %s", conn.lastOp(t))
	}
	if e.room.Status != domain.StatusLobby {
		t.Fatalf("room must remain in LOBBY")
	}
}

func TestHandleIntent_StartGameEntersDealerSetup(t *testing.T) {
	e := newTestEngine()
	ids := seatPlayers(t, e, 3)
	conns := make([]*fakeConn, len(ids))
	for i, pid := range ids {
		conns[i] = newFakeConn(pid)
		e.HandleJoin(pid, conns[i])
	}
	e.HandleIntent(ids[1], domain.OpReady, []byte(`{"ready":true}`))
	e.HandleIntent(ids[2], domain.OpReady, []byte(`{"ready":true}`))

	e.HandleIntent(ids[0], domain.OpStartGame, nil)

	if e.room.Status != domain.StatusInGame {
		t.Fatalf("want IN_GAME, got %s", e.room.Status)
	}
	if e.room.Game.Phase != domain.PhaseDealerSetup && e.room.Game.Phase != domain.PhaseDealing {
		t.Fatalf("want DEALER_SETUP (or DEALING if dealer was synthesized), got %s", e.room.Game.Phase)
	}
}

func TestHandleIntent_DealerSetByNonDealerIsRejected(t *testing.T) {
	e := newTestEngine()
	ids := seatPlayers(t, e, 3)
	conns := make([]*fakeConn, len(ids))
	for i, pid := range ids {
		conns[i] = newFakeConn(pid)
		e.HandleJoin(pid, conns[i])
	}
	e.HandleIntent(ids[1], domain.OpReady, []byte(`{"ready":true}`))
	e.HandleIntent(ids[2], domain.OpReady, []byte(`{"ready":true}`))
	e.HandleIntent(ids[0], domain.OpStartGame, nil)

	if e.room.Game.Phase != domain.PhaseDealerSetup {
		t.Skip("dealer was disconnected-synthesized, nothing to test here")
	}

	var nonDealer string
	for _, pid := range ids {
		if e.seatOf(pid) != e.room.Game.DealerSeat {
			nonDealer = pid
			break
		}
	}
	conn := newFakeConn(nonDealer)
	e.attachClient(nonDealer, conn)

	e.HandleIntent(nonDealer, domain.OpDealerSet, []byte(`{"composition":["SAFE","SAFE","DOOM"]}`))

	if conn.lastOp(t) != string(domain.OpErrorEvent) {
		t.Fatalf("want ERROR for non-dealer DEALER_SET, got %s", conn.lastOp(t))
	}
}

func TestHandleIntent_UpdateSettingsRequiresHost(t *testing.T) {
	e := newTestEngine()
	ids := seatPlayers(t, e, 2)
	conn := newFakeConn(ids[1])
	e.HandleJoin(ids[1], conn)

	enabled := true
	patch, _ := json.Marshal(struct {
		Settings domain.SettingsPatch `json:"settings"`
	}{domain.SettingsPatch{CheeseEnabled: &enabled}})

	e.HandleIntent(ids[1], domain.OpUpdateSettings, patch)

	if conn.lastOp(t) != string(domain.OpErrorEvent) {
		t.Fatalf("want ERROR for non-host settings update, got %s", conn.lastOp(t))
	}
}

func TestHandlePing_EchoesPongWithClientClock(t *testing.T) {
	e := newTestEngine()
	ids := seatPlayers(t, e, 1)
	conn := newFakeConn(ids[0])
	e.HandleJoin(ids[0], conn)

	e.HandleIntent(ids[0], domain.OpPing, []byte(`{"t":42}`))

	counts := conn.opCounts()
	if counts[string(domain.OpPong)] != 1 {
		t.Fatalf("want exactly one PONG frame, got frames: %v", counts)
	}
}

func TestHandleDisconnect_LobbyRemovesPlayerOutright(t *testing.T) {
	e := newTestEngine()
	ids := seatPlayers(t, e, 2)
	hostConn := newFakeConn(ids[0])
	guestConn := newFakeConn(ids[1])
	e.HandleJoin(ids[0], hostConn)
	e.HandleJoin(ids[1], guestConn)

	e.HandleDisconnect(ids[1])

	if _, ok := e.room.Members[ids[1]]; ok {
		t.Fatalf("lobby disconnect should remove the player immediately")
	}
	if e.MemberCount() != 1 {
		t.Fatalf("want member count 1 after lobby disconnect, got %d", e.MemberCount())
	}
}

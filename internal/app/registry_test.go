package app

import (
	"testing"

	"go.uber.org/zap"

	"partyroom/internal/domain"
)

func newTestRegistry(t *testing.T) *RoomRegistry {
	t.Helper()
	reg := NewRoomRegistry(zap.NewNop(), domain.DefaultMaxPlayers)
	t.Cleanup(reg.Close)
	return reg
}

func TestCreateRoom_SeatsHostAndStartsEngine(t *testing.T) {
	reg := newTestRegistry(t)

	roomID, joinCode, playerID, token, err := reg.CreateRoom("Host", 0, "sess-host")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if roomID == "" || joinCode == "" || playerID == "" || token == "" {
		t.Fatalf("CreateRoom returned an empty field: roomID=%q joinCode=%q playerID=%q token=%q",
			roomID, joinCode, playerID, token)
	}

	e, ok := reg.EngineFor(roomID)
	if !ok {
		t.Fatalf("want engine registered for %s", roomID)
	}
	if e.MemberCount() != 1 {
		t.Fatalf("want 1 member after create, got %d", e.MemberCount())
	}

	resolvedEngine, resolvedPlayerID, err := reg.ResolveToken(token)
	if err != nil {
		t.Fatalf("ResolveToken: %v", err)
	}
	if resolvedEngine != e || resolvedPlayerID != playerID {
		t.Fatalf("ResolveToken mismatch: got (%v, %s), want (%v, %s)", resolvedEngine, resolvedPlayerID, e, playerID)
	}
}

func TestJoinRoom_SecondPlayerGetsDistinctToken(t *testing.T) {
	reg := newTestRegistry(t)

	_, joinCode, hostID, hostToken, err := reg.CreateRoom("Host", 0, "sess-host")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	roomID, guestID, guestToken, err := reg.JoinRoom(joinCode, "Guest", 0, "sess-guest")
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if guestID == hostID {
		t.Fatalf("guest should get a distinct playerID from the host")
	}
	if guestToken == hostToken {
		t.Fatalf("guest should get a distinct token from the host")
	}

	e, ok := reg.EngineFor(roomID)
	if !ok {
		t.Fatalf("want engine for %s", roomID)
	}
	if e.MemberCount() != 2 {
		t.Fatalf("want 2 members after join, got %d", e.MemberCount())
	}
}

func TestJoinRoom_UnknownCodeFails(t *testing.T) {
	reg := newTestRegistry(t)
	if _, _, _, err := reg.JoinRoom("NOPE99", "Guest", 0, "sess-guest"); err != domain.ErrRoomNotFound {
		t.Fatalf("want ErrRoomNotFound, got %v", err)
	}
}

func TestJoinRoom_SameSessionReconnectsInsteadOfDuplicating(t *testing.T) {
	reg := newTestRegistry(t)
	_, joinCode, hostID, hostToken, err := reg.CreateRoom("Host", 0, "sess-host")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	// host's own session is already "connected" in the room (AddPlayer
	// marks a fresh member connected), so rejoining the same session
	// before any disconnect must fail rather than silently duplicating.
	if _, _, _, err := reg.JoinRoom(joinCode, "Host", 0, "sess-host"); err != domain.ErrSessionAlreadyInRoom {
		t.Fatalf("want ErrSessionAlreadyInRoom, got %v", err)
	}

	reg.mu.RLock()
	roomID0 := reg.byJoinCode[joinCode]
	reg.mu.RUnlock()
	e, _ := reg.EngineFor(roomID0)
	e.Submit(func() {
		_ = e.room.DisconnectPlayer(hostID)
	})

	roomID, reconnectID, reconnectToken, err := reg.JoinRoom(joinCode, "Host", 0, "sess-host")
	if err != nil {
		t.Fatalf("JoinRoom (reconnect): %v", err)
	}
	if reconnectID != hostID {
		t.Fatalf("reconnect should reuse the same playerID: want %s, got %s", hostID, reconnectID)
	}
	if reconnectToken != hostToken {
		t.Fatalf("reconnect should reissue the same token: want %s, got %s", hostToken, reconnectToken)
	}
	_ = roomID
}

func TestCreateRoom_DefaultsEmptySessionID(t *testing.T) {
	reg := newTestRegistry(t)

	roomID, _, playerID, _, err := reg.CreateRoom("Host", 0, "")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	e, ok := reg.EngineFor(roomID)
	if !ok {
		t.Fatalf("want engine for %s", roomID)
	}
	if e.room.Members[playerID].SessionID == "" {
		t.Fatalf("want a server-generated sessionID when the caller supplies none")
	}
}

func TestJoinRoom_EmptySessionIDsDoNotCollide(t *testing.T) {
	reg := newTestRegistry(t)

	_, joinCode, hostID, _, err := reg.CreateRoom("Host", 0, "")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	roomID, guestID, _, err := reg.JoinRoom(joinCode, "Guest", 0, "")
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if guestID == hostID {
		t.Fatalf("guest should get a distinct playerID from the host")
	}

	e, ok := reg.EngineFor(roomID)
	if !ok {
		t.Fatalf("want engine for %s", roomID)
	}
	hostSession := e.room.Members[hostID].SessionID
	guestSession := e.room.Members[guestID].SessionID
	if hostSession == "" || guestSession == "" {
		t.Fatalf("both members should have a generated sessionID, got host=%q guest=%q", hostSession, guestSession)
	}
	if hostSession == guestSession {
		t.Fatalf("two callers that both omit sessionID must not collide on the same generated value")
	}
}

func TestResolveToken_UnknownTokenFails(t *testing.T) {
	reg := newTestRegistry(t)
	if _, _, err := reg.ResolveToken("not-a-real-token"); err != domain.ErrInvalidToken {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

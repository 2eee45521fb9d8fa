package domain

import "time"

// Player is a stable identity within a room. It never carries the
// player's hidden card: that lives only in the room's cardBySeat table.
type Player struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	AvatarID  int    `json:"avatarId"`
	Seat      Seat   `json:"seat"`
	Alive     bool   `json:"alive"`
	Connected bool   `json:"connected"`
	Ready     bool   `json:"ready"`
	HasCheese bool   `json:"hasCheese"`
}

// Member is a Player plus the connection-lifecycle bookkeeping the
// RoomRegistry and Room need: the bearer token, the client-supplied
// session id used for reconnection, and when (if ever) the live socket
// went away. It never holds the socket itself — Room reaches a live
// connection only through the Broadcaster's outbound-queue lookup by
// PlayerID, so Room and the transport layer never hold references to
// each other.
type Member struct {
	Player         Player
	Token          string
	SessionID      string
	DisconnectedAt *time.Time

	// JoinSeq is the room's join-order counter value at the moment this
	// member was seated. Seat numbers are reused once a seat empties, so
	// JoinSeq (never reused) is what reassignHost compares to find the
	// next-joined remaining player.
	JoinSeq int
}

// NewMember creates a freshly joined member occupying seat, stamped with
// joinSeq as its place in the room's join order.
func NewMember(playerID, name string, avatarID, seat int, token, sessionID string, joinSeq int) *Member {
	return &Member{
		Player: Player{
			PlayerID:  playerID,
			Name:      name,
			AvatarID:  avatarID,
			Seat:      seat,
			Alive:     false,
			Connected: true,
			Ready:     false,
			HasCheese: false,
		},
		Token:     token,
		SessionID: sessionID,
		JoinSeq:   joinSeq,
	}
}

func (m *Member) resetForNewGame() {
	m.Player.Alive = true
	m.Player.Ready = false
	m.Player.HasCheese = false
}

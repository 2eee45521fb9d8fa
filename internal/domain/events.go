package domain

// Op is the wire discriminant carried by every message frame, per
// spec.md §6. Client intents and server events share one namespace so
// the codec can dispatch on a single field.
type Op string

const (
	// Client -> server intents.
	OpJoin             Op = "JOIN"
	OpReady            Op = "READY"
	OpStartGame        Op = "START_GAME"
	OpUpdateSettings   Op = "UPDATE_SETTINGS"
	OpActionDrink      Op = "ACTION_DRINK"
	OpActionSwap       Op = "ACTION_SWAP"
	OpActionStealCheese Op = "ACTION_STEAL_CHEESE"
	OpDealerSet        Op = "DEALER_SET"
	OpDealerPreview    Op = "DEALER_PREVIEW"
	OpStartReveal      Op = "START_REVEAL"
	OpVoteRematch      Op = "VOTE_REMATCH"
	OpLeaveRoom        Op = "LEAVE_ROOM"
	OpPing             Op = "PING"

	// Server -> client events.
	OpState         Op = "STATE"
	OpLobbyUpdate   Op = "LOBBY_UPDATE"
	OpPhase         Op = "PHASE"
	OpDealt         Op = "DEALT"
	OpSwap          Op = "SWAP"
	OpReveal        Op = "REVEAL"
	OpElim          Op = "ELIM"
	OpCheeseStolen  Op = "CHEESE_STOLEN"
	OpCheeseUpdate  Op = "CHEESE_UPDATE"
	OpVoteUpdate    Op = "VOTE_UPDATE"
	OpPlayerLeft    Op = "PLAYER_LEFT"
	OpRoundEnd      Op = "ROUND_END"
	OpGameEnd       Op = "GAME_END"
	OpErrorEvent    Op = "ERROR"
	OpPong          Op = "PONG"
)

// LeaveReason distinguishes a voluntary LEAVE_ROOM from a socket
// disconnect in PLAYER_LEFT.
type LeaveReason string

const (
	ReasonDisconnected LeaveReason = "disconnected"
	ReasonLeft         LeaveReason = "left"
)

// PlayerView is the public projection of a Player: every field a peer
// is allowed to see. It is identical to Player today because Player
// itself never carries a card identity, but it exists as its own type
// so a field added to Player for server bookkeeping doesn't leak onto
// the wire by accident.
type PlayerView struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	AvatarID  int    `json:"avatarId"`
	Seat      Seat   `json:"seat"`
	Alive     bool   `json:"alive"`
	Connected bool   `json:"connected"`
	Ready     bool   `json:"ready"`
	HasCheese bool   `json:"hasCheese"`
}

func newPlayerView(p Player) PlayerView {
	return PlayerView{
		PlayerID:  p.PlayerID,
		Name:      p.Name,
		AvatarID:  p.AvatarID,
		Seat:      p.Seat,
		Alive:     p.Alive,
		Connected: p.Connected,
		Ready:     p.Ready,
		HasCheese: p.HasCheese,
	}
}

// RoomView is the public snapshot of a Room, safe to serialize wholesale.
type RoomView struct {
	RoomID    string       `json:"roomId"`
	JoinCode  string       `json:"joinCode"`
	HostID    string       `json:"hostId"`
	Status    RoomStatus   `json:"status"`
	Settings  RoomSettings `json:"settings"`
	Players   []PlayerView `json:"players"`
}

// View builds the public snapshot of r, ordered by seat ascending.
func (r *Room) View() RoomView {
	members := r.MembersBySeat()
	players := make([]PlayerView, 0, len(members))
	for _, m := range members {
		players = append(players, newPlayerView(m.Player))
	}
	return RoomView{
		RoomID:   r.RoomID,
		JoinCode: r.JoinCode,
		HostID:   r.HostID,
		Status:   r.Status,
		Settings: r.Settings,
		Players:  players,
	}
}

// GameView is the public snapshot of a GameState. It never carries
// cardBySeat.
type GameView struct {
	Phase         Phase  `json:"phase"`
	DealerSeat    Seat   `json:"dealerSeat"`
	TurnSeat      Seat   `json:"turnSeat"`
	RoundIndex    int    `json:"roundIndex"`
	AliveSeats    []Seat `json:"aliveSeats"`
	FacedownSeats []Seat `json:"facedownSeats"`
	ActedSeats    []Seat `json:"actedSeats"`
	DeadlineTs    *int64 `json:"deadlineTs"`
	CheeseSeats   []Seat `json:"cheeseSeats"`
}

// View builds the public snapshot of g. g must be non-nil; callers check
// Room.Game before calling it.
func (g *GameState) View() GameView {
	return GameView{
		Phase:         g.Phase,
		DealerSeat:    g.DealerSeat,
		TurnSeat:      g.TurnSeat,
		RoundIndex:    g.RoundIndex,
		AliveSeats:    append([]Seat(nil), g.AliveSeats...),
		FacedownSeats: g.FacedownSeats(),
		ActedSeats:    g.ActedSeats(),
		DeadlineTs:    g.DeadlineTs,
		CheeseSeats:   g.CheeseSeatList(),
	}
}

// StatePayload is the full snapshot sent on join/reconnect (op STATE).
type StatePayload struct {
	Room         RoomView  `json:"room"`
	Game         *GameView `json:"game"`
	YourSeat     Seat      `json:"yourSeat"`
	YourPlayerID string    `json:"yourPlayerId"`
}

// LobbyUpdatePayload is broadcast whenever lobby membership or settings
// change (op LOBBY_UPDATE).
type LobbyUpdatePayload struct {
	Players  []PlayerView `json:"players"`
	Settings RoomSettings `json:"settings"`
}

// PhasePayload announces a round-state-machine transition (op PHASE).
type PhasePayload struct {
	Phase      Phase  `json:"phase"`
	DealerSeat Seat   `json:"dealerSeat"`
	TurnSeat   Seat   `json:"turnSeat"`
	DeadlineTs *int64 `json:"deadlineTs"`
	AliveSeats []Seat `json:"aliveSeats"`
}

// DealtPayload announces the composition has been committed (op DEALT).
type DealtPayload struct {
	AliveSeats []Seat `json:"aliveSeats"`
}

// SwapPayload announces a swap without revealing either card (op SWAP).
type SwapPayload struct {
	FromSeat Seat `json:"fromSeat"`
	ToSeat   Seat `json:"toSeat"`
}

// RevealPayload is the only frame ever permitted to carry a card
// identity, and only for the seat named in it (op REVEAL).
type RevealPayload struct {
	Seat     Seat     `json:"seat"`
	CardType CardType `json:"cardType"`
}

// ElimPayload announces an elimination (op ELIM).
type ElimPayload struct {
	Seat Seat `json:"seat"`
}

// CheeseStolenPayload is a side-channel event with no UI consumer in
// the source; emitted for observability only (op CHEESE_STOLEN).
type CheeseStolenPayload struct {
	FromSeat Seat `json:"fromSeat"`
	ToSeat   Seat `json:"toSeat"`
}

// CheeseUpdatePayload announces the current cheese distribution
// (op CHEESE_UPDATE).
type CheeseUpdatePayload struct {
	CheeseSeats []Seat `json:"cheeseSeats"`
}

// DealerPreviewPayload relays the dealer's in-progress composition as a
// boolean only, never a card type (op DEALER_PREVIEW, server direction).
type DealerPreviewPayload struct {
	Seat     Seat `json:"seat"`
	Assigned bool `json:"assigned"`
}

// VoteUpdatePayload reports rematch-vote progress (op VOTE_UPDATE).
type VoteUpdatePayload struct {
	VotedYes      []Seat `json:"votedYes"`
	RequiredVotes int    `json:"requiredVotes"`
	Phase         Phase  `json:"phase"`
}

// PlayerLeftPayload announces that a seat left the room or lost its
// socket (op PLAYER_LEFT). With reason "disconnected" during a game the
// member stays in the room and may still reconnect.
type PlayerLeftPayload struct {
	Seat   Seat        `json:"seat"`
	Reason LeaveReason `json:"reason"`
}

// RoundEndPayload announces the round has closed and who deals next (op
// ROUND_END).
type RoundEndPayload struct {
	NextDealerSeat Seat `json:"nextDealerSeat"`
}

// GameEndPayload announces the game's outcome. WinnerSeat is -1 when
// nobody survived (op GAME_END).
type GameEndPayload struct {
	WinnerSeat Seat `json:"winnerSeat"`
}

// ErrorPayload is sent only to the offending socket, never broadcast
// (op ERROR).
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongPayload echoes the client's clock sample (op PONG).
type PongPayload struct {
	T int64 `json:"t"`
}

// ErrorCode maps a sentinel error from this package to the wire code
// from spec.md §7. Unrecognized errors fall back to INVALID_REQUEST.
func ErrorCode(err error) string {
	switch err {
	case ErrInvalidToken:
		return "INVALID_TOKEN"
	case ErrNotInRoom:
		return "NOT_IN_ROOM"
	case ErrSessionAlreadyInRoom:
		return "SESSION_ALREADY_IN_ROOM"
	case ErrRoomNotFound:
		return "ROOM_NOT_FOUND"
	case ErrRoomFull:
		return "ROOM_FULL"
	case ErrGameInProgress:
		return "GAME_IN_PROGRESS"
	case ErrNameTaken:
		return "NAME_TAKEN"
	case ErrNotHost:
		return "NOT_HOST"
	case ErrNotDealer:
		return "NOT_DEALER"
	case ErrNotYourTurn:
		return "NOT_YOUR_TURN"
	case ErrAlreadyActed:
		return "ALREADY_ACTED"
	case ErrInvalidTarget:
		return "INVALID_TARGET"
	case ErrInvalidAction:
		return "INVALID_ACTION"
	case ErrNotEnoughPlayers:
		return "NOT_ENOUGH_PLAYERS"
	case ErrNotAllReady:
		return "NOT_ALL_READY"
	case ErrMissingAssignments:
		return "MISSING_ASSIGNMENTS"
	case ErrInvalidComposition:
		return "INVALID_COMPOSITION"
	case ErrAlreadyHasCheese:
		return "ALREADY_HAS_CHEESE"
	case ErrNoCheeseToSteal:
		return "NO_CHEESE_TO_STEAL"
	case ErrInvalidMessage:
		return "INVALID_MESSAGE"
	case ErrUnknownOp:
		return "UNKNOWN_OP"
	default:
		return "INVALID_REQUEST"
	}
}

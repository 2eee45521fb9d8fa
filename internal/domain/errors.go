package domain

import "errors"

// Domain errors, surfaced to clients as ERROR{code, message} frames.
// The sentinel -> wire-code mapping is ErrorCode, in events.go.
var (
	// Identity / auth
	ErrInvalidToken         = errors.New("invalid or unknown token")
	ErrNotInRoom            = errors.New("not bound to a room")
	ErrSessionAlreadyInRoom = errors.New("session already has a connected player in this room")

	// Room lifecycle
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrGameInProgress = errors.New("game already in progress")
	ErrNameTaken      = errors.New("name already taken in this room")

	// Authorization
	ErrNotHost   = errors.New("only the host can perform this action")
	ErrNotDealer = errors.New("only the dealer can perform this action")

	// Turn legality
	ErrNotYourTurn   = errors.New("not your turn")
	ErrAlreadyActed  = errors.New("seat has already acted this round")
	ErrInvalidTarget = errors.New("invalid target seat")
	ErrInvalidAction = errors.New("action is not legal in the current phase")

	// Start legality
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrNotAllReady      = errors.New("not all players are ready")

	// Dealer composition
	ErrMissingAssignments = errors.New("composition does not cover every alive seat")
	ErrInvalidComposition = errors.New("composition must contain at least one SAFE and one DOOM")

	// Cheese
	ErrAlreadyHasCheese = errors.New("seat already holds cheese")
	ErrNoCheeseToSteal  = errors.New("target has no cheese to steal")

	// Parse / codec
	ErrInvalidMessage = errors.New("invalid message")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownOp      = errors.New("unknown op")

	// Membership / internal
	ErrPlayerNotFound = errors.New("player not found")
)

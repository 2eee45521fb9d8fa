package app

// Connection is one live client socket, as seen by the engine: a
// PlayerID once JOIN has bound it, a way to push an already-encoded
// frame, and a way to tear it down. The engine never touches a raw
// socket — it reaches a connection only through this interface, which
// is implemented by internal/transport/ws.Client. Per spec.md §9, the
// cyclic reference between Room and socket is broken here: Connection
// carries no pointer back into the Room, and Room holds connections
// only in the engine's clients map, keyed by PlayerID.
type Connection interface {
	PlayerID() string
	Send(data []byte) error
	Close() error
}

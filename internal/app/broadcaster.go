package app

import (
	"go.uber.org/zap"

	"partyroom/internal/codec"
	"partyroom/internal/domain"
)

// This file is the Broadcaster of spec.md §4.6: every outbound event is
// encoded exactly once and fanned out to the connections that should
// see it. It never runs concurrently with the room's own state
// mutations — every call here happens on the engine's single loop
// goroutine, after the mutation that produced the event.

func (e *Engine) broadcast(op domain.Op, payload interface{}) {
	data, err := codec.Encode(op, payload)
	if err != nil {
		e.logger.Error("encode failed", zap.String("op", string(op)), zap.Error(err))
		return
	}
	e.clientsMu.RLock()
	targets := make([]Connection, 0, len(e.clients))
	for _, c := range e.clients {
		targets = append(targets, c)
	}
	e.clientsMu.RUnlock()

	for _, c := range targets {
		e.deliver(c, data)
	}
}

func (e *Engine) broadcastExcept(excludePlayerID string, op domain.Op, payload interface{}) {
	data, err := codec.Encode(op, payload)
	if err != nil {
		e.logger.Error("encode failed", zap.String("op", string(op)), zap.Error(err))
		return
	}
	e.clientsMu.RLock()
	targets := make([]Connection, 0, len(e.clients))
	for pid, c := range e.clients {
		if pid == excludePlayerID {
			continue
		}
		targets = append(targets, c)
	}
	e.clientsMu.RUnlock()

	for _, c := range targets {
		e.deliver(c, data)
	}
}

func (e *Engine) sendTo(playerID string, op domain.Op, payload interface{}) {
	data, err := codec.Encode(op, payload)
	if err != nil {
		e.logger.Error("encode failed", zap.String("op", string(op)), zap.Error(err))
		return
	}
	e.clientsMu.RLock()
	c, ok := e.clients[playerID]
	e.clientsMu.RUnlock()
	if !ok {
		return
	}
	e.deliver(c, data)
}

// deliver pushes an already-encoded frame to one connection. A send
// failure (the connection's own outbound queue overflowed and it closed
// itself, or the socket is already gone) is treated as a disconnect,
// fed back through the serialized queue rather than handled inline.
func (e *Engine) deliver(c Connection, data []byte) {
	if err := c.Send(data); err != nil {
		playerID := c.PlayerID()
		e.logger.Debug("send failed, treating as disconnect", zap.String("playerId", playerID), zap.Error(err))
		e.Submit(func() { e.HandleDisconnect(playerID) })
	}
}

func (e *Engine) sendError(playerID string, err error) {
	e.sendTo(playerID, domain.OpErrorEvent, domain.ErrorPayload{
		Code:    domain.ErrorCode(err),
		Message: err.Error(),
	})
}

// sendErrorTo writes an ERROR frame straight to a connection that isn't
// in the clients map yet (used while a JOIN is still being resolved).
func (e *Engine) sendErrorTo(conn Connection, err error) {
	data, encErr := codec.Encode(domain.OpErrorEvent, domain.ErrorPayload{
		Code:    domain.ErrorCode(err),
		Message: err.Error(),
	})
	if encErr != nil {
		return
	}
	_ = conn.Send(data)
}

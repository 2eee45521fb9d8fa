package http

import (
	"encoding/json"
	"net/http"

	"partyroom/internal/domain"
)

// Response is a standard API response envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo carries the same {code, message} shape as a wire ERROR
// frame, per spec.md §4.7.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateRoomRequest is the body of POST /rooms.
type CreateRoomRequest struct {
	HostName  string `json:"hostName"`
	AvatarID  int    `json:"avatarId"`
	SessionID string `json:"sessionId"`
}

// CreateRoomResponse is the response for POST /rooms.
type CreateRoomResponse struct {
	RoomID   string `json:"roomId"`
	JoinCode string `json:"joinCode"`
	Token    string `json:"token"`
}

// JoinRoomRequest is the body of POST /rooms/join.
type JoinRoomRequest struct {
	JoinCode  string `json:"joinCode"`
	Name      string `json:"name"`
	AvatarID  int    `json:"avatarId"`
	SessionID string `json:"sessionId"`
}

// JoinRoomResponse is the response for POST /rooms/join.
type JoinRoomResponse struct {
	RoomID string `json:"roomId"`
	Token  string `json:"token"`
}

// HealthResponse is the response for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleCreateRoom handles POST /rooms.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body")
		return
	}
	if req.HostName == "" {
		s.sendError(w, http.StatusBadRequest, "INVALID_REQUEST", "hostName is required")
		return
	}

	roomID, joinCode, _, token, err := s.registry.CreateRoom(req.HostName, req.AvatarID, req.SessionID)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	s.sendSuccess(w, &CreateRoomResponse{
		RoomID:   roomID,
		JoinCode: joinCode,
		Token:    token,
	})
}

// handleJoinRoom handles POST /rooms/join.
func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body")
		return
	}
	if req.JoinCode == "" || req.Name == "" {
		s.sendError(w, http.StatusBadRequest, "INVALID_REQUEST", "joinCode and name are required")
		return
	}

	roomID, _, token, err := s.registry.JoinRoom(req.JoinCode, req.Name, req.AvatarID, req.SessionID)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	s.sendSuccess(w, &JoinRoomResponse{
		RoomID: roomID,
		Token:  token,
	})
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &HealthResponse{Status: "ok"})
}

func (s *Server) sendDomainError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch err {
	case domain.ErrRoomNotFound, domain.ErrInvalidToken:
		status = http.StatusNotFound
	case domain.ErrRoomFull, domain.ErrGameInProgress, domain.ErrNameTaken, domain.ErrSessionAlreadyInRoom:
		status = http.StatusConflict
	}
	s.sendError(w, status, domain.ErrorCode(err), err.Error())
}

func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&Response{Success: true, Data: data})
}

func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message},
	})
}

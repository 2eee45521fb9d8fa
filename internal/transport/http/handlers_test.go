package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"partyroom/internal/app"
	"partyroom/internal/config"
	"partyroom/internal/domain"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := app.NewRoomRegistry(zap.NewNop(), domain.DefaultMaxPlayers)
	t.Cleanup(reg.Close)
	cfg := &config.Config{Server: config.ServerConfig{Port: "0", Host: "127.0.0.1", Env: "development"}}
	return NewServer(cfg, reg, zap.NewNop())
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	mux := http.NewServeMux()
	s.setupRoutes(mux)
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateRoom_Success(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, "POST", "/rooms", CreateRoomRequest{HostName: "Alice", SessionID: "sess-1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("want success=true, got %+v", resp)
	}
}

func TestHandleCreateRoom_RejectsMissingHostName(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, "POST", "/rooms", CreateRoomRequest{SessionID: "sess-1"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestHandleJoinRoom_UnknownCodeReturns404(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, "POST", "/rooms/join", JoinRoomRequest{JoinCode: "NOPE99", Name: "Bob", SessionID: "sess-2"})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != domain.ErrorCode(domain.ErrRoomNotFound) {
		t.Fatalf("want ROOM_NOT_FOUND error code, got %+v", resp.Error)
	}
}

func TestHandleJoinRoom_Success(t *testing.T) {
	s := newTestServer(t)
	createRec := doJSON(t, s, "POST", "/rooms", CreateRoomRequest{HostName: "Alice", SessionID: "sess-1"})
	var created Response
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal create response: %v", err)
	}
	createdData, err := json.Marshal(created.Data)
	if err != nil {
		t.Fatalf("marshal create data: %v", err)
	}
	var createResp CreateRoomResponse
	if err := json.Unmarshal(createdData, &createResp); err != nil {
		t.Fatalf("unmarshal CreateRoomResponse: %v", err)
	}

	rec := doJSON(t, s, "POST", "/rooms/join", JoinRoomRequest{
		JoinCode:  createResp.JoinCode,
		Name:      "Bob",
		SessionID: "sess-2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleHealth_ReportsOK(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	mux := http.NewServeMux()
	s.setupRoutes(mux)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
}

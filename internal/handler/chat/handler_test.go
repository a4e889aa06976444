package chat

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/flourish-app/backend/internal/model/chat"
	chatservice "github.com/flourish-app/backend/internal/service/chat"
)

func setupRouter() (*chi.Mux, *chatservice.Service) {
	chatSvc := chatservice.NewService()
	handler := New(chatSvc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func createSession(t *testing.T, r *chi.Mux) chatmodel.Session {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var session chatmodel.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return session
}

func TestCreateSession(t *testing.T) {
	r, _ := setupRouter()
	session := createSession(t, r)

	if session.ID == "" {
		t.Fatal("expected session ID to be assigned")
	}
	if session.Title != "New Conversation" {
		t.Fatalf("expected default title, got %q", session.Title)
	}
}

func TestSaveTurnAndLoadTranscript(t *testing.T) {
	r, _ := setupRouter()
	session := createSession(t, r)

	payload, _ := json.Marshal(map[string]any{
		"role":    chatmodel.RoleUser,
		"content": "I had a rough day",
	})
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/messages", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var turns []chatmodel.Turn
	if err := json.NewDecoder(resp.Body).Decode(&turns); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if turns[0].Content != "I had a rough day" {
		t.Fatalf("unexpected content %q", turns[0].Content)
	}
}

func TestSaveTurnRejectsUnknownSession(t *testing.T) {
	r, _ := setupRouter()

	payload, _ := json.Marshal(map[string]any{
		"role":    chatmodel.RoleUser,
		"content": "hello",
	})
	req := httptest.NewRequest(http.MethodPost, "/sessions/missing/messages", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSaveTurnRejectsEmptyContent(t *testing.T) {
	r, _ := setupRouter()
	session := createSession(t, r)

	payload, _ := json.Marshal(map[string]any{
		"role":    chatmodel.RoleUser,
		"content": "   ",
	})
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/messages", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSaveTurnRejectsBadRole(t *testing.T) {
	r, _ := setupRouter()
	session := createSession(t, r)

	payload, _ := json.Marshal(map[string]any{
		"role":    "narrator",
		"content": "hello",
	})
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/messages", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestListSessions(t *testing.T) {
	r, _ := setupRouter()
	createSession(t, r)
	createSession(t, r)

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var sessions []chatmodel.Session
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
}

func TestUpdateSessionTitle(t *testing.T) {
	r, svc := setupRouter()
	session := createSession(t, r)

	payload, _ := json.Marshal(map[string]string{"title": "Evening check-in"})
	req := httptest.NewRequest(http.MethodPatch, "/sessions/"+session.ID, bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	updated, err := svc.GetSession(req.Context(), session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if updated.Title != "Evening check-in" {
		t.Fatalf("expected title update, got %q", updated.Title)
	}
}

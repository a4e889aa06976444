package chat_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/flourish-app/backend/internal/model/chat"
	chatservice "github.com/flourish-app/backend/internal/service/chat"
)

func TestServiceGetSession(t *testing.T) {
	svc := chatservice.NewService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}

	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
	if got.Title != "New Conversation" {
		t.Fatalf("unexpected title: %s", got.Title)
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := chatservice.NewService()

	if _, err := svc.GetSession(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing session")
	}
}

func TestSaveTurnRejectsEmptyContent(t *testing.T) {
	svc := chatservice.NewService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	err = svc.SaveTurn(ctx, chat.Turn{SessionID: session.ID, Role: chat.RoleAssistant, Content: "   \n"})
	if err != chatservice.ErrEmptyContent {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestSaveTurnDerivesTitleFromFirstUserTurn(t *testing.T) {
	svc := chatservice.NewService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	long := strings.Repeat("a", 60)
	if err := svc.SaveTurn(ctx, chat.Turn{SessionID: session.ID, Role: chat.RoleUser, Content: long}); err != nil {
		t.Fatalf("SaveTurn err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	want := strings.Repeat("a", 50) + "..."
	if got.Title != want {
		t.Fatalf("unexpected title: got %q", got.Title)
	}

	// A later user turn must not rewrite the title.
	if err := svc.SaveTurn(ctx, chat.Turn{SessionID: session.ID, Role: chat.RoleUser, Content: "second"}); err != nil {
		t.Fatalf("SaveTurn err: %v", err)
	}
	got, _ = svc.GetSession(ctx, session.ID)
	if got.Title != want {
		t.Fatalf("title rewritten to %q", got.Title)
	}
}

func TestSaveTurnMarksVoiceSessions(t *testing.T) {
	svc := chatservice.NewService()
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx)
	if err := svc.SaveTurn(ctx, chat.Turn{SessionID: session.ID, Role: chat.RoleAssistant, Content: "hi", FromVoice: true}); err != nil {
		t.Fatalf("SaveTurn err: %v", err)
	}

	got, _ := svc.GetSession(ctx, session.ID)
	if !got.HasVoiceTurns {
		t.Fatal("expected HasVoiceTurns to be set")
	}
}

func TestSubscribeEchoesInserts(t *testing.T) {
	svc := chatservice.NewService()
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx)
	echo, cancel := svc.Subscribe(session.ID)
	defer cancel()

	if err := svc.SaveTurn(ctx, chat.Turn{SessionID: session.ID, Role: chat.RoleUser, Content: "hello"}); err != nil {
		t.Fatalf("SaveTurn err: %v", err)
	}

	select {
	case turn := <-echo:
		if turn.Content != "hello" || turn.Role != chat.RoleUser {
			t.Fatalf("unexpected echo: %+v", turn)
		}
	case <-time.After(time.Second):
		t.Fatal("expected insert echo")
	}
}

func TestListSessionsOrdersByUpdatedAt(t *testing.T) {
	svc := chatservice.NewService()
	ctx := context.Background()

	first, _ := svc.CreateSession(ctx)
	second, _ := svc.CreateSession(ctx)

	if err := svc.SaveTurn(ctx, chat.Turn{SessionID: first.ID, Role: chat.RoleUser, Content: "bump"}); err != nil {
		t.Fatalf("SaveTurn err: %v", err)
	}

	sessions := svc.ListSessions(ctx)
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != first.ID {
		t.Fatalf("expected most recently updated session first, got %s want %s (other %s)", sessions[0].ID, first.ID, second.ID)
	}
}

func TestSeenTrackerRecognizesEchoes(t *testing.T) {
	tracker := chatservice.NewSeenTracker()

	if tracker.Observe("assistant", "hello") {
		t.Fatal("first observation must not be seen")
	}
	if !tracker.Observe("assistant", "hello") {
		t.Fatal("second observation must be seen")
	}
	if tracker.Observe("user", "hello") {
		t.Fatal("role participates in identity")
	}
}

func TestSeenTrackerBounded(t *testing.T) {
	tracker := chatservice.NewSeenTracker()

	tracker.Observe("user", "first")
	for i := 0; i < 40; i++ {
		tracker.Observe("user", strings.Repeat("x", i+1))
	}

	// "first" has rolled out of the window and reads as unseen again.
	if tracker.Observe("user", "first") {
		t.Fatal("expected oldest entry to be evicted")
	}
}

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	chatmodel "github.com/flourish-app/backend/internal/model/chat"
	"github.com/flourish-app/backend/internal/service/companion"
	"github.com/flourish-app/backend/internal/stream"
)

// chatcli drives the completions endpoint from a terminal: it creates (or
// reuses) a session, streams replies delta by delta, and persists both sides
// of every exchange.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	server := flag.String("server", "http://localhost:8080", "backend base URL")
	session := flag.String("session", "", "existing session ID, empty creates a new one")
	message := flag.String("message", "", "single message to send; empty starts an interactive loop")
	timeout := flag.Duration("timeout", 120*time.Second, "per-request timeout")
	flag.Parse()

	client := &http.Client{}

	sessionID := *session
	isNew := sessionID == ""
	if isNew {
		var err error
		sessionID, err = createSession(client, *server, *timeout)
		if err != nil {
			log.Fatalf("create session failed: %v", err)
		}
		log.Printf("[chatcli] session created: %s", sessionID)
	}

	history := make([]companion.Message, 0, 16)

	if *message != "" {
		if err := exchange(client, *server, sessionID, &history, *message, isNew, *timeout); err != nil {
			log.Fatalf("exchange failed: %v", err)
		}
		return
	}

	fmt.Println("Type a message and press enter. Ctrl-D exits.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := exchange(client, *server, sessionID, &history, line, isNew, *timeout); err != nil {
			log.Printf("[chatcli] exchange failed: %v", err)
			continue
		}
		isNew = false
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("stdin read failed: %v", err)
	}
}

func createSession(client *http.Client, server string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/api/sessions", nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var session chatmodel.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", err
	}
	return session.ID, nil
}

// exchange sends one user message, streams the reply to stdout and persists
// both turns.
func exchange(client *http.Client, server, sessionID string, history *[]companion.Message, userMessage string, isNew bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	*history = append(*history, companion.Message{Role: chatmodel.RoleUser, Content: userMessage})

	body, err := json.Marshal(companion.Request{
		Messages:     *history,
		IsNewSession: isNew,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/api/chat/completions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var payload struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil && payload.Error != "" {
			return fmt.Errorf("server: %s", payload.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var reply strings.Builder
	err = stream.Read(ctx, resp.Body, func(delta string) {
		reply.WriteString(delta)
		fmt.Print(delta)
	})
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read stream: %w", err)
	}

	*history = append(*history, companion.Message{Role: chatmodel.RoleAssistant, Content: reply.String()})

	if err := saveTurn(client, server, sessionID, chatmodel.RoleUser, userMessage, timeout); err != nil {
		log.Printf("[chatcli] persist user turn failed: %v", err)
	}
	if err := saveTurn(client, server, sessionID, chatmodel.RoleAssistant, reply.String(), timeout); err != nil {
		log.Printf("[chatcli] persist assistant turn failed: %v", err)
	}
	return nil
}

func saveTurn(client *http.Client, server, sessionID, role, content string, timeout time.Duration) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	body, err := json.Marshal(map[string]any{
		"role":    role,
		"content": content,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/api/sessions/"+sessionID+"/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

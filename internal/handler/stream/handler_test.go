package stream

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flourish-app/backend/pkg/utils"
)

func TestCompletionsUnavailableWithoutModel(t *testing.T) {
	handler := New(nil)

	req := httptest.NewRequest(http.MethodPost, "/chat/completions", strings.NewReader(`{"messages":[]}`))
	resp := httptest.NewRecorder()
	handler.handleCompletions(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "error") {
		t.Fatalf("expected JSON error body, got %q", resp.Body.String())
	}
}

func TestWriteDeltaWireFormat(t *testing.T) {
	resp := httptest.NewRecorder()
	writeDelta(resp, resp, "Take a slow breath.")
	utils.SendSSERaw(resp, resp, doneSentinel)

	body := resp.Body.String()
	want := `data: {"choices":[{"delta":{"content":"Take a slow breath."}}]}` + "\n\n"
	if !strings.HasPrefix(body, want) {
		t.Fatalf("unexpected wire format:\n%s", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Fatalf("expected terminating sentinel, got:\n%s", body)
	}
}

func TestMapUpstreamError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"rate limited", errors.New("request failed with status 429"), http.StatusTooManyRequests},
		{"rate limit text", errors.New("ark: rate limit exceeded"), http.StatusTooManyRequests},
		{"quota", errors.New("insufficient quota for model"), http.StatusPaymentRequired},
		{"payment required", errors.New("upstream returned 402"), http.StatusPaymentRequired},
		{"bad request passthrough", errors.New("no messages in request"), http.StatusBadRequest},
		{"generic", errors.New("dial tcp: connection refused"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, message := mapUpstreamError(tc.err)
			if status != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, status)
			}
			if message == "" {
				t.Fatal("expected a message")
			}
		})
	}
}

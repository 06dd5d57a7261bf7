package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/table-reservation-agent/agent/agents/assistant"
	"github.com/tanpawarit/table-reservation-agent/agent/agents/orchestrator"
)

type fakeChat struct {
	reply orchestrator.Reply
	err   error
	got   []orchestrator.Request
}

func (f *fakeChat) HandleMessage(ctx context.Context, req orchestrator.Request) (orchestrator.Reply, error) {
	f.got = append(f.got, req)
	log.Ctx(ctx).Info().Str("contact", req.ContactNumber).Msg("chat handled")
	if f.err != nil {
		return orchestrator.Reply{}, f.err
	}
	return f.reply, nil
}

func postChat(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, ChatResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := &Server{Chat: &fakeChat{}}
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"status":"running"}` {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestChat(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: orchestrator.Reply{MessageID: "m-1", Reply: "Table for 2 at 7 PM is free."}}
	srv := &Server{Chat: chat, StoreID: "2u8zw0on"}

	rec, resp := postChat(t, srv.Routes(), `{"message_id":"m-1","restaurant_id":"r1","store_id":"2u8zw0on","contact_number":"9876543210","message":"table for 2 tonight"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.MessageID != "m-1" || resp.Status != StatusSuccess || resp.Response != "Table for 2 at 7 PM is free." {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(chat.got) != 1 || chat.got[0].ContactNumber != "9876543210" || chat.got[0].Text != "table for 2 tonight" {
		t.Fatalf("unexpected request: %+v", chat.got)
	}
}

func TestChatLogsThroughRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	srv := &Server{Chat: &fakeChat{reply: orchestrator.Reply{Reply: "ok"}}, Logger: &logger}

	rec, _ := postChat(t, srv.Routes(), `{"message_id":"m-1","restaurant_id":"r1","contact_number":"98","message":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e map[string]any
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("expected handler and access lines, got %s", buf.String())
	}
	handled, access := entries[0], entries[1]
	if handled["message"] != "chat handled" || handled["method"] != "POST" || handled["path"] != "/chat" || handled["contact"] != "98" {
		t.Fatalf("handler did not log through the request logger: %v", handled)
	}
	if access["message"] != "http request" || access["status"] != float64(http.StatusOK) || access["method"] != "POST" {
		t.Fatalf("unexpected access line: %v", access)
	}
}

func TestChatErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		body   string
		status int
	}{
		{name: "bad json", body: `{`, status: http.StatusBadRequest},
		{name: "invalid message", err: orchestrator.ErrInvalidMessage, body: `{"message_id":"m","restaurant_id":"r","contact_number":"1","message":""}`, status: http.StatusBadRequest},
		{name: "internal", err: errors.New("graph broke"), body: `{"message_id":"m","restaurant_id":"r","contact_number":"1","message":"hi"}`, status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		srv := &Server{Chat: &fakeChat{err: tc.err}}
		rec, resp := postChat(t, srv.Routes(), tc.body)
		if rec.Code != tc.status {
			t.Fatalf("%s: status = %d, want %d", tc.name, rec.Code, tc.status)
		}
		if resp.Status != StatusError {
			t.Fatalf("%s: unexpected response %+v", tc.name, resp)
		}
		if tc.err != nil && resp.Response != assistant.ApologyReply {
			t.Fatalf("%s: response = %q, want apology", tc.name, resp.Response)
		}
	}
}

func TestChatRejectsWrongMethod(t *testing.T) {
	t.Parallel()

	srv := &Server{Chat: &fakeChat{}}
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	srv := &Server{Chat: &fakeChat{}}
	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Start(ctx, "127.0.0.1:0", http.NotFoundHandler()) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

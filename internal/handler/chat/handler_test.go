package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/glowlabs/glowchat/backend/internal/model/chat"
	"github.com/glowlabs/glowchat/backend/internal/service/conversation"
	"github.com/glowlabs/glowchat/backend/internal/upstream"
)

type fakeCompleter struct {
	reply string
	err   error
	calls [][]chatmodel.Turn
}

func (f *fakeCompleter) Complete(_ context.Context, turns []chatmodel.Turn) (string, error) {
	copied := make([]chatmodel.Turn, len(turns))
	copy(copied, turns)
	f.calls = append(f.calls, copied)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func setupRouter(t *testing.T, completer *fakeCompleter) (*chi.Mux, *conversation.Service) {
	t.Helper()

	conversations := conversation.NewService()
	t.Cleanup(conversations.Close)

	r := chi.NewRouter()
	if completer == nil {
		New(conversations, nil).RegisterRoutes(r)
	} else {
		New(conversations, completer).RegisterRoutes(r)
	}
	return r, conversations
}

func postChat(r *chi.Mux, body map[string]string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestChatRoundTrip(t *testing.T) {
	completer := &fakeCompleter{reply: "hello there"}
	r, conversations := setupRouter(t, completer)

	resp := postChat(r, map[string]string{"message": "hi"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Message        string `json:"message"`
		ConversationID string `json:"conversationId"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Message != "hello there" {
		t.Fatalf("unexpected reply: %q", body.Message)
	}
	if body.ConversationID == "" {
		t.Fatal("expected a conversation id")
	}

	turns, ok := conversations.Transcript(context.Background(), body.ConversationID)
	if !ok {
		t.Fatal("conversation missing after round trip")
	}
	if len(turns) != 2 || turns[0].Role != chatmodel.RoleUser || turns[1].Role != chatmodel.RoleAssistant {
		t.Fatalf("unexpected transcript: %+v", turns)
	}
}

func TestChatReusesConversation(t *testing.T) {
	completer := &fakeCompleter{reply: "ack"}
	r, _ := setupRouter(t, completer)

	first := postChat(r, map[string]string{"message": "one"})
	var body struct {
		ConversationID string `json:"conversationId"`
	}
	_ = json.Unmarshal(first.Body.Bytes(), &body)

	second := postChat(r, map[string]string{"message": "two", "conversationId": body.ConversationID})
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", second.Code)
	}

	// Second call must carry the whole retained transcript.
	last := completer.calls[len(completer.calls)-1]
	if len(last) != 3 {
		t.Fatalf("expected 3 turns submitted, got %d", len(last))
	}
	if last[0].Content != "one" || last[2].Content != "two" {
		t.Fatalf("unexpected submitted transcript: %+v", last)
	}
}

func TestChatMissingMessage(t *testing.T) {
	r, _ := setupRouter(t, &fakeCompleter{reply: "x"})

	resp := postChat(r, map[string]string{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestChatUpstreamErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("completion failed: %w", upstream.ErrUnauthorized), http.StatusUnauthorized},
		{fmt.Errorf("completion failed: %w", upstream.ErrRateLimited), http.StatusTooManyRequests},
		{fmt.Errorf("completion failed: %w", upstream.ErrUnavailable), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		r, _ := setupRouter(t, &fakeCompleter{err: tc.err})
		resp := postChat(r, map[string]string{"message": "hi"})
		if resp.Code != tc.want {
			t.Fatalf("err %v: expected %d, got %d", tc.err, tc.want, resp.Code)
		}
	}
}

func TestChatUpstreamFailureKeepsUserTurn(t *testing.T) {
	completer := &fakeCompleter{err: upstream.ErrUnavailable}
	r, conversations := setupRouter(t, completer)

	resp := postChat(r, map[string]string{"message": "hi"})
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}

	// The failed round must leave exactly the user turn behind.
	submitted := completer.calls[0]
	if len(submitted) != 1 || submitted[0].Content != "hi" {
		t.Fatalf("unexpected submitted transcript: %+v", submitted)
	}

	sessions := conversations.Count()
	if sessions != 1 {
		t.Fatalf("expected the session to survive the failure, count=%d", sessions)
	}
}

func TestChatWithoutCompleter(t *testing.T) {
	r, _ := setupRouter(t, nil)

	resp := postChat(r, map[string]string{"message": "hi"})
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestClearConversation(t *testing.T) {
	completer := &fakeCompleter{reply: "ack"}
	r, _ := setupRouter(t, completer)

	resp := postChat(r, map[string]string{"message": "hi"})
	var body struct {
		ConversationID string `json:"conversationId"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &body)

	req := httptest.NewRequest(http.MethodDelete, "/chat/"+body.ConversationID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/chat/"+body.ConversationID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g := NewGemini("test-key", "gemini-1.5-flash")
	g.baseURL = srv.URL
	return g
}

func TestGemini_NotConfigured(t *testing.T) {
	g := NewGemini("", "gemini-1.5-flash")

	_, err := g.Summarize(context.Background(), "ventas")

	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGemini_Summarize(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, RoleUser, req.Contents[0].Role)
		assert.Equal(t, "Cierres: 12", req.Contents[0].Parts[0].Text)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":" Buen ritmo. "},{"text":"Revisar cartera."}]}}]}`))
	})

	got, err := g.Summarize(context.Background(), "Cierres: 12")

	require.NoError(t, err)
	assert.Equal(t, "Buen ritmo. Revisar cartera.", got)
}

func TestGemini_ChatSendsHistory(t *testing.T) {
	var req geminiRequest
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Sí"}]}}]}`))
	})

	history := []Turn{{Role: RoleUser, Text: "hola"}, {Role: RoleModel, Text: "hola, ¿en qué ayudo?"}}
	got, err := g.Chat(context.Background(), history, "¿subieron los cierres?")

	require.NoError(t, err)
	assert.Equal(t, "Sí", got)
	require.Len(t, req.Contents, 3)
	assert.Equal(t, RoleModel, req.Contents[1].Role)
	assert.Equal(t, "¿subieron los cierres?", req.Contents[2].Parts[0].Text)
	assert.Len(t, history, 2)
}

func TestGemini_ErrorResponse(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded"}}`))
	})

	_, err := g.Summarize(context.Background(), "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGemini_EmptyCandidates(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := g.Summarize(context.Background(), "x")

	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestConversation_BoundedHistory(t *testing.T) {
	c := NewConversation(2)

	c.Record("q1", "a1")
	c.Record("q2", "a2")
	c.Record("q3", "a3")

	history := c.History()
	require.Len(t, history, 4)
	assert.Equal(t, "q2", history[0].Text)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "a3", history[3].Text)
	assert.Equal(t, RoleModel, history[3].Role)
}

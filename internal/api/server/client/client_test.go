package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, g Generator, messages []Message) (string, error) {
	t.Helper()
	var sb strings.Builder
	err := g.Generate(context.Background(), messages, func(s string) error {
		sb.WriteString(s)
		return nil
	})
	return sb.String(), err
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req OllamaChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen2.5-coder:32b", req.Model)
		assert.True(t, req.Stream)
		assert.Equal(t, 0.0, req.Options.Temperature)
		assert.Equal(t, RoleSystem, req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"def "},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"solve():"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"ignored"},"done":false}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "qwen2.5-coder:32b", 0)
	got, err := collect(t, c, []Message{{Role: RoleSystem, Content: "p"}, {Role: RoleUser, Content: "task"}})
	require.NoError(t, err)
	assert.Equal(t, "def solve():", got)
	assert.Equal(t, "ollama/qwen2.5-coder:32b", c.Name())
}

func TestOllamaGenerateErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Case") == "inline" {
			fmt.Fprintln(w, `{"error":"model 'nope' not found"}`)
			return
		}
		http.Error(w, "model is loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "nope", 0)
	_, err := collect(t, c, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model is loading")

	c.http.Transport = headerTransport{"X-Case", "inline"}
	_, err = collect(t, c, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

type headerTransport struct{ key, value string }

func (h headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set(h.key, h.value)
	return http.DefaultTransport.RoundTrip(r)
}

func TestOllamaModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		io.WriteString(w, `{"models":[{"name":"llama3:latest","details":{"families":null}},{"name":"qwen2.5-coder:32b","details":{"families":["qwen2"]}}]}`)
	}))
	defer srv.Close()

	models, err := NewOllamaClient(srv.URL, "x", 0).Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3:latest", "qwen2.5-coder:32b"}, models)
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, ": keep-alive\n\n")
		io.WriteString(w, `data: {"choices":[{"delta":{"role":"assistant"},"index":0}]}`+"\n\n")
		io.WriteString(w, `data: {"choices":[{"delta":{"content":"func "},"index":0}]}`+"\n\n")
		io.WriteString(w, `data: {"choices":[{"delta":{"content":"main()"},"index":0}]}`+"\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "sk-test", "gpt-4o-mini", 0)
	got, err := collect(t, c, []Message{{Role: RoleUser, Content: "task"}})
	require.NoError(t, err)
	assert.Equal(t, "func main()", got)
}

func TestOpenAIGenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"Incorrect API key provided"}}`)
	}))
	defer srv.Close()

	_, err := collect(t, NewOpenAIClient(srv.URL, "bad", "gpt-4o-mini", 0), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Incorrect API key")
}

func TestSplitHost(t *testing.T) {
	scheme, host := splitHost("localhost:11434", "http")
	assert.Equal(t, "http", scheme)
	assert.Equal(t, "localhost:11434", host)

	scheme, host = splitHost("https://ollama.internal:443/", "http")
	assert.Equal(t, "https", scheme)
	assert.Equal(t, "ollama.internal:443", host)
}

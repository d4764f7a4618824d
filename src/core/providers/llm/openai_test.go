package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sitebot-ai-server/src/core/types"
	"sitebot-ai-server/src/core/utils"

	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *utils.Logger {
	t.Helper()
	logger, err := utils.NewLogger("ERROR", "", "")
	require.NoError(t, err)
	return logger
}

func testMessages() []types.Message {
	return []types.Message{
		{Role: "system", Content: "You are a helpful assistant."},
		{Role: "user", Content: "Hi"},
	}
}

func collect(ch <-chan string) []string {
	out := make([]string, 0)
	for s := range ch {
		out = append(out, s)
	}
	return out
}

func TestOpenAIProvider_MissingKey(t *testing.T) {
	p := NewOpenAIProvider(&Config{Timeout: time.Second}, testLogger(t))

	answer := p.Response(context.Background(), testMessages())
	require.Equal(t, ErrorTag+" GROQ_API_KEY not configured", answer)
}

func TestOpenAIProvider_MissingKey_StreamSingleFragment(t *testing.T) {
	p := NewOpenAIProvider(&Config{Timeout: time.Second}, testLogger(t))

	fragments := collect(p.ResponseStream(context.Background(), testMessages()))
	require.Len(t, fragments, 1)
	require.True(t, strings.HasPrefix(fragments[0], ErrorTag))
}

func TestOpenAIProvider_Response(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		// 旧模型名必须在出网前被归一化
		require.Equal(t, "llama-3.1-8b-instant", req["model"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"Hello there!"}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(&Config{
		ModelName: "llama3-8b-8192",
		BaseURL:   srv.URL + "/v1",
		APIKey:    "test-key",
		Timeout:   time.Second,
	}, testLogger(t))

	answer := p.Response(context.Background(), testMessages())
	require.Equal(t, "Hello there!", answer)
}

func TestOpenAIProvider_Response_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(&Config{
		BaseURL: srv.URL + "/v1",
		APIKey:  "test-key",
		Timeout: time.Second,
	}, testLogger(t))

	answer := p.Response(context.Background(), testMessages())
	require.True(t, strings.HasPrefix(answer, ErrorTag))
}

func TestOpenAIProvider_Response_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"too late"}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(&Config{
		BaseURL: srv.URL + "/v1",
		APIKey:  "test-key",
		Timeout: 50 * time.Millisecond,
	}, testLogger(t))

	answer := p.Response(context.Background(), testMessages())
	require.True(t, strings.HasPrefix(answer, ErrorTag))
}

func TestOpenAIProvider_ResponseStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, delta := range []string{"Hel", "lo", " there"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", delta)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	p := NewOpenAIProvider(&Config{
		BaseURL: srv.URL + "/v1",
		APIKey:  "test-key",
		Timeout: time.Second,
	}, testLogger(t))

	fragments := collect(p.ResponseStream(context.Background(), testMessages()))
	require.Equal(t, []string{"Hel", "lo", " there"}, fragments)
}

func TestOpenAIProvider_ResponseStream_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"unreachable"}}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(&Config{
		BaseURL: srv.URL + "/v1",
		APIKey:  "test-key",
		Timeout: time.Second,
	}, testLogger(t))

	// 零片段失败必须产出唯一的带标记片段
	fragments := collect(p.ResponseStream(context.Background(), testMessages()))
	require.Len(t, fragments, 1)
	require.True(t, strings.HasPrefix(fragments[0], ErrorTag))
}

func TestOpenAIProvider_ResponseStream_EmptyStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAIProvider(&Config{
		BaseURL: srv.URL + "/v1",
		APIKey:  "test-key",
		Timeout: time.Second,
	}, testLogger(t))

	fragments := collect(p.ResponseStream(context.Background(), testMessages()))
	require.Len(t, fragments, 1)
	require.True(t, strings.HasPrefix(fragments[0], ErrorTag))
}

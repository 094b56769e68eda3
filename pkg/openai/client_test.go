package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletion(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     string
		wantID      string
		wantContent string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"id": "chatcmpl-1",
				"model": "gpt-4o-mini",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "  {\"viable\": true}\n"}, "finish_reason": "stop"}],
				"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
			}`,
			wantID:      "chatcmpl-1",
			wantContent: `{"viable": true}`,
		},
		{
			name:    "api_error_envelope",
			status:  http.StatusUnauthorized,
			body:    `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`,
			wantErr: "unexpected status 401: Incorrect API key provided",
		},
		{
			name:    "plain_error_body",
			status:  http.StatusBadGateway,
			body:    `upstream unavailable`,
			wantErr: "unexpected status 502: upstream unavailable",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{nope`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL+"/"))
			resp, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
				Messages: []Message{{Role: "user", Content: "Hi"}},
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantID, resp.ID)
			assert.Equal(t, tt.wantContent, resp.Content())
			assert.Equal(t, 16, resp.Usage.TotalTokens)
		})
	}
}

func TestChatCompletion_DefaultsAndTemperature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.NotNil(t, req.Temperature)
		assert.InDelta(t, 0.3, *req.Temperature, 1e-9)

		_, _ = w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}],"usage":{}}`))
	}))
	defer srv.Close()

	temp := 0.3
	client := NewClient("k", WithBaseURL(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
		Messages:    []Message{{Role: "user", Content: "test"}},
		Temperature: &temp,
	})
	require.NoError(t, err)
}

func TestWithModel(t *testing.T) {
	t.Parallel()

	hc := NewClient("k", WithModel("gpt-4o")).(*httpClient)
	assert.Equal(t, "gpt-4o", hc.model)

	hc = NewClient("k", WithModel("")).(*httpClient)
	assert.Equal(t, defaultModel, hc.model)
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	hc := NewClient("my-key").(*httpClient)
	assert.Equal(t, "my-key", hc.apiKey)
	assert.Equal(t, defaultBaseURL, hc.baseURL)
	assert.NotNil(t, hc.http)

	custom := &http.Client{}
	hc = NewClient("my-key", WithHTTPClient(custom)).(*httpClient)
	assert.Same(t, custom, hc.http)
}

func TestContent_Empty(t *testing.T) {
	t.Parallel()

	var nilResp *ChatCompletionResponse
	assert.Equal(t, "", nilResp.Content())
	assert.Equal(t, "", (&ChatCompletionResponse{}).Content())
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"1","choices":[],"usage":{}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("k", WithBaseURL(srv.URL)).ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []Message{{Role: "user", Content: "test"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send request")
}

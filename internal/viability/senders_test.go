package viability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alwayscodedfresh/lead-cli/pkg/anthropic"
	"github.com/alwayscodedfresh/lead-cli/pkg/openai"
)

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func TestAnthropicSender_Send(t *testing.T) {
	mc := new(mockAnthropic)
	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" &&
			req.MaxTokens == 1024 &&
			len(req.Messages) == 1 &&
			req.Messages[0].Content == "classify this" &&
			len(req.System) == 1 &&
			req.System[0].Text == "agency criteria" &&
			req.System[0].CacheControl != nil &&
			req.Temperature != nil && *req.Temperature == Temperature
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"viable": true}`}},
	}, nil)

	got, err := NewAnthropicSender(mc, "claude-haiku-4-5-20251001", 0).
		Send(context.Background(), Prompt{System: "agency criteria", User: "classify this"})
	require.NoError(t, err)
	assert.Equal(t, `{"viable": true}`, got)
	mc.AssertExpectations(t)
}

func TestAnthropicSender_Error(t *testing.T) {
	mc := new(mockAnthropic)
	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("overloaded"))

	_, err := NewAnthropicSender(mc, "m", 512).Send(context.Background(), Prompt{User: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestOpenAISender_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "agency criteria", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "classify this", req.Messages[1].Content)

		_, _ = w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"{\"viable\": false}"}}],"usage":{}}`))
	}))
	defer srv.Close()

	s := NewOpenAISender(openai.NewClient("k", openai.WithBaseURL(srv.URL)), "")
	got, err := s.Send(context.Background(), Prompt{System: "agency criteria", User: "classify this"})
	require.NoError(t, err)
	assert.Equal(t, `{"viable": false}`, got)
}

func TestOpenAISender_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"1","choices":[],"usage":{}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAISender(openai.NewClient("k", openai.WithBaseURL(srv.URL)), "").Send(context.Background(), Prompt{User: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestAnthropicSender_NoSystem(t *testing.T) {
	mc := new(mockAnthropic)
	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.System) == 0
	})).Return(&anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: "ok"}}}, nil)

	got, err := NewAnthropicSender(mc, "m", 0).Send(context.Background(), Prompt{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

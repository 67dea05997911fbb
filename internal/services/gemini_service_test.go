package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasknova/internal/config"
	"tasknova/internal/models"
)

type capturedGeminiCall struct {
	path   string
	apiKey string
	req    geminiRequest
}

func newFakeGemini(t *testing.T, status int, modelText string) (*GeminiService, *capturedGeminiCall) {
	t.Helper()
	captured := &capturedGeminiCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.apiKey = r.Header.Get("x-goog-api-key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured.req))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
			return
		}
		resp := map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": modelText}}},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	g := NewGeminiService(config.GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-2.0-flash",
		BaseURL: srv.URL + "/v1beta/",
		Timeout: 2 * time.Second,
	}, nil)
	return g, captured
}

func TestGeminiService_ExtractPlan(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	g, call := newFakeGemini(t, http.StatusOK, `{
		"task": "Submit tax forms",
		"base_time": "2026-10-20T17:00:00Z",
		"urgency": "HIGH",
		"category": "finance",
		"reminders": [
			{"time": "2026-10-19T18:00:00Z", "message": "Start gathering receipts"},
			{"time": "2026-10-20T15:00:00Z", "message": "Two hours left, submit now"}
		]
	}`)

	plan, err := g.ExtractPlan(context.Background(), "remind me to submit tax forms tomorrow 5pm", now)
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", call.path)
	assert.Equal(t, "test-key", call.apiKey)
	require.Len(t, call.req.Contents, 1)
	prompt := call.req.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, "2026-10-19T08:30:00Z")
	assert.Contains(t, prompt, "remind me to submit tax forms tomorrow 5pm")
	assert.Equal(t, "application/json", call.req.GenerationConfig.ResponseMimeType)

	assert.Equal(t, "Submit tax forms", plan.Task)
	assert.Equal(t, models.UrgencyHigh, plan.Urgency)
	assert.Equal(t, "FINANCE", plan.Category)
	assert.True(t, plan.BaseTime.Equal(time.Date(2026, 10, 20, 17, 0, 0, 0, time.UTC)))
	require.Len(t, plan.Reminders, 2)
	assert.Equal(t, "Start gathering receipts", plan.Reminders[0].Message)
	assert.True(t, plan.Reminders[1].At.Equal(time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC)))
}

func TestGeminiService_NotConfigured(t *testing.T) {
	g := NewGeminiService(config.GeminiConfig{}, nil)
	_, err := g.ExtractPlan(context.Background(), "anything", time.Now())
	assert.ErrorIs(t, err, ErrLLMNotConfigured)
}

func TestGeminiService_HTTPError(t *testing.T) {
	g, _ := newFakeGemini(t, http.StatusTooManyRequests, "")
	_, err := g.ExtractPlan(context.Background(), "x", time.Now())
	assert.ErrorIs(t, err, ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "RESOURCE_EXHAUSTED")
}

func TestGeminiService_UndecodableResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>upstream proxy error</html>"))
	}))
	defer srv.Close()

	g := NewGeminiService(config.GeminiConfig{APIKey: "k", Model: "m", BaseURL: srv.URL, Timeout: time.Second}, nil)
	_, err := g.ExtractPlan(context.Background(), "x", time.Now())
	assert.ErrorIs(t, err, ErrMalformedPlan)
	assert.Contains(t, err.Error(), "decode response")
}

func TestGeminiService_Unreachable(t *testing.T) {
	g := NewGeminiService(config.GeminiConfig{APIKey: "k", Model: "m", BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, nil)
	_, err := g.ExtractPlan(context.Background(), "x", time.Now())
	assert.ErrorIs(t, err, ErrLLMUnavailable)
}

func TestParsePlan(t *testing.T) {
	t.Run("code fence", func(t *testing.T) {
		plan, err := parsePlan("```json\n{\"task\":\"water plants\",\"base_time\":\"2026-10-19T19:00:00Z\",\"reminders\":[{\"time\":\"2026-10-19T18:30:00Z\",\"message\":\"soon\"}]}\n```")
		require.NoError(t, err)
		assert.Equal(t, "water plants", plan.Task)
		assert.Equal(t, models.UrgencyMedium, plan.Urgency)
		assert.Equal(t, models.DefaultCategory, plan.Category)
		assert.False(t, plan.Empty())
	})

	t.Run("trailing comma is repaired", func(t *testing.T) {
		plan, err := parsePlan(`{"task": "pay rent", "base_time": "2026-10-20T10:00:00Z", "reminders": [{"time": "2026-10-20T09:00:00Z", "message": "rent!"},]}`)
		require.NoError(t, err)
		assert.Equal(t, "pay rent", plan.Task)
		assert.Len(t, plan.Reminders, 1)
	})

	t.Run("empty values mean not understood", func(t *testing.T) {
		plan, err := parsePlan(`{"task": "", "base_time": "", "reminders": []}`)
		require.NoError(t, err)
		assert.True(t, plan.Empty())
	})

	t.Run("bad reminder times are dropped", func(t *testing.T) {
		plan, err := parsePlan(`{"task": "gym", "base_time": "2026-10-20T07:00:00", "reminders": [{"time": "tomorrow-ish"}, {"time": "2026-10-20 06:30"}]}`)
		require.NoError(t, err)
		require.Len(t, plan.Reminders, 1)
		assert.True(t, plan.Reminders[0].At.Equal(time.Date(2026, 10, 20, 6, 30, 0, 0, time.UTC)))
		assert.True(t, plan.BaseTime.Equal(time.Date(2026, 10, 20, 7, 0, 0, 0, time.UTC)))
	})

	t.Run("reminder metadata", func(t *testing.T) {
		plan, err := parsePlan(`{"task": "thesis draft", "base_time": "2026-10-22T12:00:00Z",
			"estimated_duration": "120", "motivational_context": "graduate on time",
			"reminders": [
				{"time": "2026-10-21T09:00:00Z", "message": "you got this", "type": "motivation", "priority": "LOW"},
				{"time": "2026-10-22T10:00:00Z", "message": "two hours", "type": "CRITICAL", "priority": "high"},
				{"time": "2026-10-22T11:00:00Z", "message": "now", "type": "urgent", "priority": "asap"}
			]}`)
		require.NoError(t, err)
		assert.Equal(t, 120, plan.EstimatedDuration)
		assert.Equal(t, "graduate on time", plan.MotivationalContext)
		require.Len(t, plan.Reminders, 3)
		assert.Equal(t, models.ReminderMotivation, plan.Reminders[0].Type)
		assert.Equal(t, models.PriorityLow, plan.Reminders[0].Priority)
		assert.Equal(t, models.ReminderCritical, plan.Reminders[1].Type)
		assert.Equal(t, models.PriorityHigh, plan.Reminders[1].Priority)
		assert.Equal(t, models.ReminderStandard, plan.Reminders[2].Type)
		assert.Equal(t, models.PriorityMedium, plan.Reminders[2].Priority)
	})

	t.Run("wrong shape is malformed", func(t *testing.T) {
		_, err := parsePlan(`["task", "gym"]`)
		assert.ErrorIs(t, err, ErrMalformedPlan)
	})
}

func TestParseMinutes(t *testing.T) {
	assert.Equal(t, 45, parseMinutes(45.0))
	assert.Equal(t, 90, parseMinutes(" 90 "))
	assert.Equal(t, 3, parseMinutes(2.6))
	assert.Zero(t, parseMinutes(nil))
	assert.Zero(t, parseMinutes("an hour"))
	assert.Zero(t, parseMinutes(-10.0))
	assert.Zero(t, parseMinutes(true))
}

func TestParseModelTime(t *testing.T) {
	got, ok := parseModelTime("2026-10-20T10:00:00+05:30")
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2026, 10, 20, 4, 30, 0, 0, time.UTC)))

	_, ok = parseModelTime("")
	assert.False(t, ok)
	_, ok = parseModelTime("next tuesday")
	assert.False(t, ok)
}

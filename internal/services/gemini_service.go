package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"tasknova/internal/config"
	"tasknova/internal/metrics"
	"tasknova/internal/models"
)

var (
	ErrLLMNotConfigured = errors.New("gemini api key is not configured")
	ErrLLMUnavailable   = errors.New("language model request failed")
	ErrMalformedPlan    = errors.New("language model returned a malformed plan")
)

// PlanExtractor turns a free-text request into a reminder plan.
type PlanExtractor interface {
	ExtractPlan(ctx context.Context, text string, now time.Time) (*models.Plan, error)
}

// GeminiService asks Google Gemini (generateContent REST API) for a reminder plan.
type GeminiService struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  *http.Client
	metrics *metrics.Metrics
}

func NewGeminiService(cfg config.GeminiConfig, m *metrics.Metrics) *GeminiService {
	return &GeminiService{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		client:  &http.Client{},
		metrics: m,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// rawPlan is the JSON shape the prompt asks the model for.
type rawPlan struct {
	Task                string `json:"task"`
	BaseTime            string `json:"base_time"`
	Urgency             string `json:"urgency"`
	Category            string `json:"category"`
	EstimatedDuration   any    `json:"estimated_duration"`
	MotivationalContext string `json:"motivational_context"`
	Reminders           []struct {
		Time     string `json:"time"`
		Message  string `json:"message"`
		Type     string `json:"type"`
		Priority string `json:"priority"`
	} `json:"reminders"`
}

func buildPlanPrompt(text string, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are a productivity assistant that creates smart reminder plans.\n")
	fmt.Fprintf(&b, "Current time is: %s\n\n", now.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(&b, "User just sent a reminder request: %q\n\n", text)
	b.WriteString("You must:\n")
	b.WriteString("1. Extract the task.\n")
	b.WriteString("2. Determine base_time (when the task is due).\n")
	b.WriteString("3. Classify urgency as LOW, MEDIUM, HIGH or CRITICAL and pick a short category (WORK, HEALTH, PERSONAL, ...).\n")
	b.WriteString("4. Estimate how many minutes the task takes (estimated_duration) and, if the user hints at why it matters, note it in motivational_context.\n")
	b.WriteString("5. Create 2-5 appropriate reminders depending on urgency. Early ones gentle, later ones assertive.\n")
	b.WriteString("   Give each reminder a type (STANDARD, MOTIVATION or CRITICAL) and a priority (low, medium or high). The last reminder before a HIGH or CRITICAL deadline is CRITICAL.\n")
	b.WriteString("Return ONLY a JSON like this:\n")
	b.WriteString(`{"task": "...", "base_time": "...", "urgency": "MEDIUM", "category": "GENERAL", "estimated_duration": 30, "motivational_context": "", ` +
		`"reminders": [{"time": "...", "message": "...", "type": "STANDARD", "priority": "medium"}]}` + "\n")
	b.WriteString("All times must be ISO 8601 in UTC with a trailing 'Z'.\n")
	b.WriteString("If the task or time is unclear, return empty values. Do not explain anything.")
	return b.String()
}

func (g *GeminiService) ExtractPlan(ctx context.Context, text string, now time.Time) (*models.Plan, error) {
	if g == nil || g.apiKey == "" {
		log.Printf("[plan][gemini] GEMINI_API_KEY is not set")
		return nil, ErrLLMNotConfigured
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: buildPlanPrompt(text, now)}}}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseMimeType: "application/json",
			Temperature:      0.2,
		},
	})
	if err != nil {
		return nil, err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	start := time.Now()
	resp, err := g.client.Do(req)
	g.metrics.ObserveLLM(time.Since(start))
	if err != nil {
		log.Printf("[plan][gemini][err] http: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrLLMUnavailable, err)
	}

	var api geminiResponse
	decodeErr := json.Unmarshal(respBody, &api)
	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if api.Error != nil {
			msg = api.Error.Status + ": " + api.Error.Message
		}
		log.Printf("[plan][gemini][err] status=%d %s", resp.StatusCode, msg)
		return nil, fmt.Errorf("%w: status=%d %s", ErrLLMUnavailable, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		log.Printf("[plan][gemini][err] decode response: %v", decodeErr)
		return nil, fmt.Errorf("%w: decode response: %v", ErrMalformedPlan, decodeErr)
	}

	if len(api.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrMalformedPlan)
	}
	var parts []string
	for _, p := range api.Candidates[0].Content.Parts {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no text in candidate", ErrMalformedPlan)
	}

	raw := strings.Join(parts, "")
	log.Printf("[plan][gemini] returned text=%q", raw)
	return parsePlan(raw)
}

// parsePlan decodes model output into a Plan. Unparseable reminder times are
// dropped; an unparseable base time leaves it zero so the plan reports Empty.
func parsePlan(raw string) (*models.Plan, error) {
	text := stripCodeFence(raw)

	var rp rawPlan
	if err := json.Unmarshal([]byte(text), &rp); err != nil {
		fixed, repairErr := jsonrepair.JSONRepair(text)
		if repairErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
		}
		rp = rawPlan{}
		if err := json.Unmarshal([]byte(fixed), &rp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
		}
		log.Printf("[plan][repair] model JSON repaired")
	}

	plan := &models.Plan{
		Task:                strings.TrimSpace(rp.Task),
		Urgency:             models.NormalizeUrgency(strings.TrimSpace(rp.Urgency)),
		Category:            strings.ToUpper(strings.TrimSpace(rp.Category)),
		EstimatedDuration:   parseMinutes(rp.EstimatedDuration),
		MotivationalContext: strings.TrimSpace(rp.MotivationalContext),
	}
	if plan.Category == "" {
		plan.Category = models.DefaultCategory
	}
	if t, ok := parseModelTime(rp.BaseTime); ok {
		plan.BaseTime = t
	}
	for _, r := range rp.Reminders {
		t, ok := parseModelTime(r.Time)
		if !ok {
			log.Printf("[plan][warn] skipping reminder with bad time %q", r.Time)
			continue
		}
		plan.Reminders = append(plan.Reminders, models.PlannedReminder{
			At:       t,
			Message:  strings.TrimSpace(r.Message),
			Type:     models.NormalizeReminderType(r.Type),
			Priority: models.NormalizePriority(r.Priority),
		})
	}
	return plan, nil
}

// parseMinutes reads estimated_duration, which models emit as a number or a
// numeric string. Anything else, or a non-positive value, yields 0.
func parseMinutes(v any) int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	if f <= 0 {
		return 0
	}
	return int(math.Round(f))
}

var modelTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseModelTime accepts the ISO-8601 variants models tend to emit. Times without
// an offset are read as UTC, which is what the prompt asks for.
func parseModelTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range modelTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

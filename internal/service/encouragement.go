package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/habit-stake/internal/config"
)

// EncouragementContext carries everything the coach needs for one message.
// It is passed per call; the client holds no conversation state, so two
// tenants' sessions can never bleed into each other.
type EncouragementContext struct {
	OwnerID   string `json:"ownerId"`
	HabitName string `json:"habitName"`
	Completed bool   `json:"completed"`
	Streak    int    `json:"streak"`
	// Event distinguishes plain completions from punishments and rewards.
	Event string `json:"event"`
}

// Encourager produces a short motivational message for a settled log event.
// It is purely cosmetic: callers must treat failures as "no message" and
// never let them gate settlement.
type Encourager interface {
	Generate(ctx context.Context, ec EncouragementContext) (string, error)
}

// CoachClient calls the external coaching service over HTTP
type CoachClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewCoachClient creates a new coach client
func NewCoachClient(cfg *config.CoachConfig) *CoachClient {
	return &CoachClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Generate requests one encouragement message
func (c *CoachClient) Generate(ctx context.Context, ec EncouragementContext) (string, error) {
	body, err := json.Marshal(ec)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/encouragement", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("coach request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("coach service returned status %d", resp.StatusCode)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}

	return out.Text, nil
}

// NoopEncourager is used when the coach integration is disabled
type NoopEncourager struct{}

// Generate returns an empty message
func (NoopEncourager) Generate(context.Context, EncouragementContext) (string, error) {
	return "", nil
}

package matcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/studymatch/backend/internal"
)

// CandidateProfile is the applicant snapshot sent to the external scorer.
type CandidateProfile struct {
	TargetCountry string   `json:"target_country"`
	TargetDegree  string   `json:"target_degree"`
	GPA           float64  `json:"gpa,omitempty"`
	Languages     []string `json:"languages,omitempty"`
	Background    string   `json:"background,omitempty"`
}

// MatchResult is the scorer's verdict, passed through opaquely.
type MatchResult struct {
	Eligible bool            `json:"eligible"`
	Programs json.RawMessage `json:"programs"`
	Scores   json.RawMessage `json:"scores,omitempty"`
}

// Scorer is the external program-matching engine. The engine itself is an
// external collaborator; this interface is all the core depends on.
type Scorer interface {
	Match(ctx context.Context, profile CandidateProfile) (*MatchResult, error)
}

// Client calls the remote scoring API over HTTP.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg internal.MatcherConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) Match(ctx context.Context, profile CandidateProfile) (*MatchResult, error) {
	jsonData, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal candidate profile: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/match", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("scorer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scorer returned status %d", resp.StatusCode)
	}

	var result MatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode scorer response: %w", err)
	}

	c.logger.Debug("match scored",
		"eligible", result.Eligible,
		"duration_ms", time.Since(start).Milliseconds())

	return &result, nil
}

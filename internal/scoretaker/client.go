package scoretaker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/speedcube/internal/domain/types"
)

// Client calls the results API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// do sends body as JSON and decodes a 2xx response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrRequest, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrRequest, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Code, apiErr.Message = payload.Code, payload.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: decode %s: %w", ErrRequest, path, err)
		}
	}
	return nil
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// CreateCompetition creates a competition.
func (c *Client) CreateCompetition(ctx context.Context, req types.CreateCompetitionRequest) (types.Competition, error) {
	var out types.Competition
	err := c.do(ctx, http.MethodPost, "/competitions", req, &out)
	return out, err
}

// CreateEvent adds an event to a competition.
func (c *Client) CreateEvent(ctx context.Context, competitionID string, req types.CreateEventRequest) (types.Event, error) {
	var out types.Event
	err := c.do(ctx, http.MethodPost, "/competitions/"+competitionID+"/events", req, &out)
	return out, err
}

// CreateRound adds a round to an event.
func (c *Client) CreateRound(ctx context.Context, eventID uint, req types.CreateRoundRequest) (types.Round, error) {
	var out types.Round
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/events/%d/rounds", eventID), req, &out)
	return out, err
}

// ListRounds lists an event's rounds.
func (c *Client) ListRounds(ctx context.Context, eventID uint) ([]types.Round, error) {
	var out []types.Round
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/events/%d/rounds", eventID), nil, &out)
	return out, err
}

// CreateCompetitor creates a competitor.
func (c *Client) CreateCompetitor(ctx context.Context, req types.CreateCompetitorRequest) (types.Competitor, error) {
	var out types.Competitor
	err := c.do(ctx, http.MethodPost, "/competitors", req, &out)
	return out, err
}

// Register registers a competitor for an event.
func (c *Client) Register(ctx context.Context, eventID, competitorID uint) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/events/%d/registrations", eventID),
		types.RegisterRequest{CompetitorID: competitorID}, nil)
}

// OpenRound opens a round.
func (c *Client) OpenRound(ctx context.Context, roundID uint) (types.OpenRoundResponse, error) {
	var out types.OpenRoundResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/rounds/%d/open", roundID), nil, &out)
	return out, err
}

// ClearRound clears an open round.
func (c *Client) ClearRound(ctx context.Context, roundID uint) (types.ClearRoundResponse, error) {
	var out types.ClearRoundResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/rounds/%d/clear", roundID), nil, &out)
	return out, err
}

// Submit stores a competitor's attempts.
func (c *Client) Submit(ctx context.Context, roundID, competitorID uint, attempts []string) (types.StandingEntry, error) {
	var out types.StandingEntry
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/rounds/%d/results/%d", roundID, competitorID),
		types.SubmitResultRequest{Attempts: attempts}, &out)
	return out, err
}

// Standings fetches a round's standings.
func (c *Client) Standings(ctx context.Context, roundID uint) (types.Standings, error) {
	var out types.Standings
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rounds/%d/standings", roundID), nil, &out)
	return out, err
}

// Advancers previews who proceeds from a round.
func (c *Client) Advancers(ctx context.Context, roundID uint) (types.Advancers, error) {
	var out types.Advancers
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rounds/%d/advancers", roundID), nil, &out)
	return out, err
}

// Package commentary talks to the external match-commentary generator. The
// generator is an optional collaborator: the ledger never calls it directly
// and its failures never reach the caller of a mutating operation.
package commentary

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pingrank/internal/config"
	"pingrank/internal/events"

	"github.com/valyala/fasthttp"
)

type Client struct {
	baseURL string
	apiKey  string
	client  *fasthttp.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.CommentaryURL,
		apiKey:  cfg.CommentaryAPIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     10,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

type generateRequest struct {
	WinnerName  string `json:"winner_name"`
	LoserName   string `json:"loser_name"`
	WinnerScore int    `json:"winner_score"`
	LoserScore  int    `json:"loser_score"`
	RankSwap    bool   `json:"rank_swap"`
}

type generateResponse struct {
	Commentary string `json:"commentary"`
}

// Generate asks the remote generator for a one-liner about the match. The
// context deadline bounds the call.
func (c *Client) Generate(ctx context.Context, ev events.MatchCompleted) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("commentary generator not configured")
	}

	body, err := json.Marshal(generateRequest{
		WinnerName:  ev.WinnerName,
		LoserName:   ev.LoserName,
		WinnerScore: ev.WinnerScore,
		LoserScore:  ev.LoserScore,
		RankSwap:    ev.RankSwap,
	})
	if err != nil {
		return "", err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
	req.SetBody(body)

	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err != nil {
		return "", err
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("commentary API error: %d", resp.StatusCode())
	}

	var result generateResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", err
	}
	if result.Commentary == "" {
		return "", fmt.Errorf("commentary API returned empty text")
	}
	return result.Commentary, nil
}

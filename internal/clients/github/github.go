// Package github опрашивает публичные события пользователя GitHub
// и считает закоммиченные изменения.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type pushEvent struct {
	Type    string `json:"type"`
	Payload struct {
		Size int `json:"size"`
	} `json:"payload"`
}

// * CommitCount возвращает число коммитов в недавних публичных PushEvent.
func (c *Client) CommitCount(ctx context.Context, githubID string) (int, error) {
	const op = "clients.github.CommitCount"

	reqURL := fmt.Sprintf("%s/users/%s/events/public?per_page=100", c.baseURL, url.PathEscape(githubID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	var events []pushEvent

	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	count := 0
	for _, e := range events {
		if e.Type == "PushEvent" {
			count += e.Payload.Size
		}
	}

	return count, nil
}

// Package solvedac опрашивает solved.ac для подсчета решенных задач.
package solvedac

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

// * SolvedCount возвращает число решенных задач аккаунта.
func (c *Client) SolvedCount(ctx context.Context, baekjoonID string) (int, error) {
	const op = "clients.solvedac.SolvedCount"

	reqURL := fmt.Sprintf("%s/user/show?handle=%s", c.baseURL, url.QueryEscape(baekjoonID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	var body struct {
		SolvedCount int `json:"solvedCount"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return body.SolvedCount, nil
}

package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const defaultAPIBaseURL = "https://api.github.com"

// RateLimitInfo holds information about GitHub API rate limits
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetTime time.Time
	// RetryAfter is set from the Retry-After header of secondary limit responses.
	RetryAfter time.Time
}

// GitHubClient talks to the repository and Git data endpoints of the GitHub REST API.
// Every call is a single request: failures are returned to the caller, never retried.
type GitHubClient struct {
	client  *http.Client
	baseURL string
	logger  *logrus.Logger

	mu            sync.Mutex
	rateLimitInfo RateLimitInfo
}

// ClientOption allows configuring the GitHub client
type ClientOption func(*GitHubClient)

// WithBaseURL points the client at another API host (GitHub Enterprise, tests).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *GitHubClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithTimeout overrides the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *GitHubClient) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// NewGitHubClient creates a new GitHub client with the given token and options
func NewGitHubClient(token string, logger *logrus.Logger, opts ...ClientOption) *GitHubClient {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = 120 * time.Second

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	client := &GitHubClient{
		client:  httpClient,
		baseURL: defaultAPIBaseURL,
		logger:  logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// RateLimit returns the most recently observed rate limit headers.
func (c *GitHubClient) RateLimit() RateLimitInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rateLimitInfo
}

// updateRateLimitInfo updates the rate limit information from response headers
func (c *GitHubClient) updateRateLimitInfo(resp *http.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit := resp.Header.Get("X-RateLimit-Limit"); limit != "" {
		c.rateLimitInfo.Limit, _ = strconv.Atoi(limit)
	}
	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		c.rateLimitInfo.Remaining, _ = strconv.Atoi(remaining)
		if c.rateLimitInfo.Remaining <= 5 && c.rateLimitInfo.Limit > 0 {
			c.logger.WithFields(logrus.Fields{
				"remaining": c.rateLimitInfo.Remaining,
				"limit":     c.rateLimitInfo.Limit,
			}).Warn("GitHub primary rate limit nearly exhausted")
		}
	}
	if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if resetTime, err := strconv.ParseInt(reset, 10, 64); err == nil {
			c.rateLimitInfo.ResetTime = time.Unix(resetTime, 0)
		}
	}
	// Retry-After only applies to the response that carries it.
	c.rateLimitInfo.RetryAfter = time.Time{}
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if retrySeconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
			c.rateLimitInfo.RetryAfter = time.Now().Add(time.Duration(retrySeconds) * time.Second)
		}
	}
}

// doRequest performs one API call and decodes a 2xx body into result.
func (c *GitHubClient) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger := c.logger.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
	})
	logger.Debug("GitHub API request")

	resp, err := c.client.Do(req)
	if err != nil {
		return NewGitHubError(0, "request failed", err)
	}
	defer resp.Body.Close()

	c.updateRateLimitInfo(resp)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewGitHubError(resp.StatusCode, "failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := apiErrorMessage(respBody, resp.Status)
		logger.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"message": message,
		}).Debug("GitHub API request failed")

		if isRateLimited(resp) {
			info := c.RateLimit()
			resetTime := info.ResetTime
			if !info.RetryAfter.IsZero() {
				resetTime = info.RetryAfter
			}
			return NewRateLimitError(resetTime, info.Limit, info.Remaining)
		}
		return NewGitHubError(resp.StatusCode, message, nil)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return NewGitHubError(resp.StatusCode, "failed to decode response", err)
		}
	}

	return nil
}

func isRateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if resp.StatusCode == http.StatusForbidden {
		return resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != ""
	}
	return false
}

// apiErrorMessage extracts the "message" field GitHub puts in error bodies.
func apiErrorMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fallback
}

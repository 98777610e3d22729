// Package client is a small Go client for the relay API. Its image helpers
// implement the polling contract the widget follows: poll the status
// endpoint at a fixed interval, give up after a client-side deadline, and
// treat not-found as terminal failure rather than "still processing".
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultPollInterval matches the widget's 3-second poll cadence.
	DefaultPollInterval = 3 * time.Second
	// DefaultWaitTimeout bounds a poll loop independently of server-side
	// job expiry.
	DefaultWaitTimeout = 3 * time.Minute
)

var (
	// ErrJobNotFound means the job was swept or never existed. Terminal.
	ErrJobNotFound = errors.New("image job not found")
	// ErrGenerationFailed means the job reached the error state. Terminal.
	ErrGenerationFailed = errors.New("image generation failed")
	// ErrWaitTimeout means the client-side deadline expired first.
	ErrWaitTimeout = errors.New("timed out waiting for image")
)

// Client talks to one relay instance.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	waitTimeout  time.Duration
}

// Option tweaks Client construction.
type Option func(*Client)

// WithHTTPClient substitutes the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPollInterval overrides the poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithWaitTimeout overrides the client-side wait deadline.
func WithWaitTimeout(d time.Duration) Option {
	return func(c *Client) { c.waitTimeout = d }
}

// New creates a client for the relay at baseURL, e.g. "http://localhost:10000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 35 * time.Second},
		pollInterval: DefaultPollInterval,
		waitTimeout:  DefaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChatResult is one chat round-trip outcome.
type ChatResult struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// Chat sends one message, optionally continuing an existing conversation.
func (c *Client) Chat(ctx context.Context, message, conversationID string) (ChatResult, error) {
	payload := map[string]string{"message": message}
	if conversationID != "" {
		payload["conversationId"] = conversationID
	}

	var result ChatResult
	if err := c.postJSON(ctx, "/api/chat", payload, &result); err != nil {
		return ChatResult{}, err
	}
	return result, nil
}

// GenerateImage submits a prompt and returns the job id to poll.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	var result struct {
		JobID string `json:"jobId"`
	}
	if err := c.postJSON(ctx, "/api/image", map[string]string{"prompt": prompt}, &result); err != nil {
		return "", err
	}
	if result.JobID == "" {
		return "", errors.New("relay returned no job id")
	}
	return result.JobID, nil
}

// ImageStatus is one poll observation.
type ImageStatus struct {
	Status   string `json:"status"`
	ImageURL string `json:"imageUrl"`
	Error    string `json:"error"`
}

// PollImage reads the job status once. A 404 reports ErrJobNotFound.
func (c *Client) PollImage(ctx context.Context, jobID string) (ImageStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/image/"+jobID, nil)
	if err != nil {
		return ImageStatus{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ImageStatus{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ImageStatus{}, ErrJobNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return ImageStatus{}, fmt.Errorf("unexpected status %d polling job %s", resp.StatusCode, jobID)
	}

	var status ImageStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return ImageStatus{}, fmt.Errorf("decode poll response: %w", err)
	}
	return status, nil
}

// WaitForImage polls until the job reaches a terminal state or the wait
// deadline passes, and returns the image URL on success.
func (c *Client) WaitForImage(ctx context.Context, jobID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.PollImage(ctx, jobID)
		switch {
		case errors.Is(err, ErrJobNotFound):
			return "", ErrJobNotFound
		case err != nil:
			// Transient transport failure; keep polling until the deadline.
		case status.Status == "done":
			return status.ImageURL, nil
		case status.Status == "error":
			if status.Error != "" {
				return "", fmt.Errorf("%w: %s", ErrGenerationFailed, status.Error)
			}
			return "", ErrGenerationFailed
		}

		select {
		case <-ctx.Done():
			return "", ErrWaitTimeout
		case <-ticker.C:
		}
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("relay returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("relay returned %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

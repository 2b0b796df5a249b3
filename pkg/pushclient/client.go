// Package pushclient is the Go client other backend services use to reach
// live connections through the realtime service's internal API.
package pushclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
)

const apiPrefix = "/internal/v1"

type Client struct {
	Options    []RequestOption
	Identities *IdentityService
	Matches    *MatchService
	Events     *EventService
}

func DefaultClientOptions() []RequestOption {
	defaults := []RequestOption{WithBaseURL("http://localhost:8080")}
	if o, ok := os.LookupEnv("KINDRED_REALTIME_URL"); ok {
		defaults = append(defaults, WithBaseURL(o))
	}
	if o, ok := os.LookupEnv("KINDRED_INTERNAL_KEY"); ok {
		defaults = append(defaults, WithInternalKey(o))
	}
	return defaults
}

func NewClient(opts ...RequestOption) *Client {
	opts = append(DefaultClientOptions(), opts...)

	return &Client{
		Options:    opts,
		Identities: &IdentityService{opts},
		Matches:    &MatchService{opts},
		Events:     &EventService{opts},
	}
}

type accepted struct {
	Status string `json:"status"`
}

func execute(ctx context.Context, method, path string, body any, opts ...RequestOption) error {
	cfg := requestConfig{HTTPClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		return ErrMissingBaseURL
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.BaseURL+apiPrefix+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.InternalKey != "" {
		req.Header.Set("X-Internal-Key", cfg.InternalKey)
	}

	send := cfg.HTTPClient.Do
	for _, mw := range slices.Backward(cfg.Middlewares) {
		next := send
		send = func(r *http.Request) (*http.Response, error) {
			return mw(r, next)
		}
	}

	resp, err := send(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &Error{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(apiErr)
		return apiErr
	}

	var out accepted
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out)
	return nil
}

func checkID(ids ...int64) error {
	for _, id := range ids {
		if id <= 0 {
			return ErrInvalidID
		}
	}
	return nil
}

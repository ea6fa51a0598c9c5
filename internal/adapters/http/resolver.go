package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/repscrub/repscrub/internal/domain"
	"github.com/repscrub/repscrub/internal/ports"
)

const profilesEndpoint = "/v1/profiles/"

// Resolver implements ports.Resolver against the remote profile catalog.
//
// The three resolver outcomes map to HTTP statuses: 2xx is success, 429 is
// rate-limited (Retry-After honored when present), 404 is not-found, and
// anything else is a generic failure.
type Resolver struct {
	baseURL string
	authKey string
	client  ports.HTTPClient
	log     zerolog.Logger
}

// NewResolver creates a resolver client for the given service base URL.
func NewResolver(baseURL, authKey string, client ports.HTTPClient, log zerolog.Logger) *Resolver {
	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		authKey: authKey,
		client:  client,
		log:     log,
	}
}

type profileResponse struct {
	Handle     string            `json:"handle"`
	Score      json.RawMessage   `json:"score"`
	Attributes map[string]string `json:"attributes"`
}

// Resolve fetches the profile for a single raw handle.
func (r *Resolver) Resolve(ctx context.Context, rawHandle string) (domain.Profile, error) {
	endpoint := r.baseURL + profilesEndpoint + url.PathEscape(rawHandle)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.authKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.authKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("resolver request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.Profile{}, &domain.RateLimitError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode == http.StatusNotFound:
		return domain.Profile{}, domain.ErrNotFound
	case resp.StatusCode/100 != 2:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Profile{}, fmt.Errorf("resolver returned %d: %s", resp.StatusCode, string(body))
	}

	var pr profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return domain.Profile{}, fmt.Errorf("decode profile: %w", err)
	}

	profile := domain.Profile{
		DisplayHandle: pr.Handle,
		Attributes:    pr.Attributes,
	}
	if profile.DisplayHandle == "" {
		profile.DisplayHandle = rawHandle
	}
	profile.Score, profile.HasScore = parseScore(pr.Score)

	return profile, nil
}

// retryAfter reads the Retry-After header as whole seconds. Zero when the
// header is absent or malformed.
func retryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// parseScore accepts the score as a JSON number or a numeric string, the
// two encodings the catalog has been observed to emit. Anything else is
// treated as "no score" and left to the classifier to skip.
func parseScore(raw json.RawMessage) (int64, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, false
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		if v, err := num.Int64(); err == nil {
			return v, true
		}
		if f, err := num.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if v, err := strconv.ParseInt(strings.TrimSpace(str), 10, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

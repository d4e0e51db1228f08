package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// ErrBadResponse is returned when the endpoint answered 2xx but the body
// could not be parsed into a name list.
var ErrBadResponse = errors.New("malformed lookup response")

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// HTTP queries a remote name-lookup endpoint. The prefix travels as the
// "prefix" query parameter; the response is either a bare JSON array of
// strings or an object with a "names" array.
type HTTP struct {
	endpoint string
	client   *http.Client
	log      *zap.Logger
}

// NewHTTP creates an HTTP source for the given endpoint URL.
func NewHTTP(endpoint string, timeout time.Duration, log *zap.Logger) (*HTTP, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTP{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}, nil
}

// Query performs one lookup. Transport errors return status 0; HTTP errors
// return the status with a nil error so the engine can route 429 to backoff.
func (h *HTTP) Query(ctx context.Context, prefix string) ([]string, int, error) {
	u, err := url.Parse(h.endpoint)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("prefix", prefix)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("lookup request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		h.log.Debug("lookup returned non-OK status",
			zap.String("prefix", prefix),
			zap.Int("status", resp.StatusCode))
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	names, err := parseNames(body)
	if err != nil {
		h.log.Warn("unparseable lookup response",
			zap.String("prefix", prefix),
			zap.Error(err))
		return nil, resp.StatusCode, err
	}
	return names, resp.StatusCode, nil
}

// parseNames accepts both supported response shapes.
func parseNames(body []byte) ([]string, error) {
	var names []string
	if err := json.Unmarshal(body, &names); err == nil {
		return names, nil
	}

	var wrapped struct {
		Names []string `json:"names"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Names != nil {
		return wrapped.Names, nil
	}

	return nil, fmt.Errorf("%w: %.80s", ErrBadResponse, string(body))
}

package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// ErrCredentialMissing is returned by a source's Fetch when it
// requires an API key that is absent from the environment; the
// oracle treats such a source as simply not contributing this round.
var ErrCredentialMissing = errors.New("oracle: source requires a credential that is not configured")

// HTTPSource fetches a JSON document from a URL and extracts a price
// with a caller-supplied parse function, matching spec's "each has a
// parse function yielding a positive finite number or nothing".
type HTTPSource struct {
	name        string
	url         string
	apiKey      string
	requiresKey bool
	parse       func([]byte) (float64, error)
	httpClient  *http.Client
}

// NewHTTPSource builds an HTTPSource. If apiKey is non-empty it is
// sent as a Bearer token; if the source requires one and it is empty,
// Fetch returns ErrCredentialMissing without making a request.
func NewHTTPSource(name, url, apiKey string, requiresKey bool, parse func([]byte) (float64, error)) *HTTPSource {
	return &HTTPSource{
		name:        name,
		url:         url,
		apiKey:      apiKey,
		requiresKey: requiresKey,
		parse:       parse,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSource) Name() string { return s.name }

func (s *HTTPSource) Fetch(ctx context.Context) (float64, error) {
	if s.requiresKey && s.apiKey == "" {
		return 0, ErrCredentialMissing
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: build request: %w", s.name, err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: do request: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s: status %d", s.name, resp.StatusCode)
	}

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%s: read body: %w", s.name, err)
	}

	return s.parse(buf)
}

// ParseJSONField returns a parse function that reads a flat numeric
// field out of a JSON object, e.g. {"price": "123.45"}.
func ParseJSONField(field string) func([]byte) (float64, error) {
	return func(body []byte) (float64, error) {
		var doc map[string]any
		if err := json.Unmarshal(body, &doc); err != nil {
			return 0, fmt.Errorf("decode: %w", err)
		}
		raw, ok := doc[field]
		if !ok {
			return 0, fmt.Errorf("missing field %q", field)
		}
		switch v := raw.(type) {
		case float64:
			return v, nil
		case string:
			var f float64
			if _, err := fmt.Sscanf(v, "%f", &f); err != nil {
				return 0, fmt.Errorf("parse field %q: %w", field, err)
			}
			return f, nil
		default:
			return 0, fmt.Errorf("field %q has unsupported type", field)
		}
	}
}

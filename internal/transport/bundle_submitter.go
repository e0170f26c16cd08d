package transport

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// HTTPBundleSubmitter posts a single signed transaction to a
// priority-bundle relay endpoint as a JSON-RPC request, grounded on
// internal/quote/client.go's typed request/response HTTP style.
type HTTPBundleSubmitter struct {
	httpClient *http.Client
}

// NewHTTPBundleSubmitter builds an HTTPBundleSubmitter.
func NewHTTPBundleSubmitter() *HTTPBundleSubmitter {
	return &HTTPBundleSubmitter{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

type bundleRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []bundleParam `json:"params"`
}

type bundleParam struct {
	Tx  string  `json:"tx"`
	Tip float64 `json:"tip,omitempty"`
}

type bundleResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// SubmitBundle posts signedTx to endpoint as a "sendBundle" JSON-RPC
// call and returns the relay-assigned transaction id.
func (s *HTTPBundleSubmitter) SubmitBundle(ctx context.Context, endpoint string, signedTx []byte, tip float64) (string, error) {
	reqBody := bundleRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "sendBundle",
		Params:  []bundleParam{{Tx: "0x" + hex.EncodeToString(signedTx), Tip: tip}},
	}

	buf, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal bundle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bundle relay status %d", resp.StatusCode)
	}

	var body bundleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if body.Error != nil {
		return "", fmt.Errorf("bundle relay error: %s", body.Error.Message)
	}
	if body.Result == "" {
		return "", fmt.Errorf("bundle relay returned no result")
	}

	return body.Result, nil
}

package httpserver

import (
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// StatusProvider supplies a point-in-time snapshot of the running
// engine for the /status endpoint, decoupling httpserver from the
// concrete loop/oracle/ring types.
type StatusProvider interface {
	StatusSnapshot() StatusResponse
}

// StatusResponse is the /status JSON payload.
type StatusResponse struct {
	State         string   `json:"state"`
	Anchor        string   `json:"anchor"`
	Intermediate  string   `json:"intermediate"`
	AnchorUSD     float64  `json:"anchor_usd"`
	PriceFresh    bool     `json:"price_fresh"`
	Volatility    float64  `json:"volatility"`
	Trend         string   `json:"trend"`
	TradingActive bool     `json:"trading_active"`
}

// StatusHandler serves the /status endpoint.
type StatusHandler struct {
	provider StatusProvider
	logger   *zap.Logger
}

// NewStatusHandler builds a StatusHandler.
func NewStatusHandler(provider StatusProvider, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{provider: provider, logger: logger}
}

// ServeHTTP writes the current StatusSnapshot as JSON.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.provider.StatusSnapshot()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.logger.Error("status-encode-failed", zap.Error(err))
	}
}

package httpserver

import (
	"net/http"

	"go.uber.org/zap"
)

// RotationRequester accepts a one-shot manual rotation signal from the
// control plane, decoupling httpserver from the concrete loop type.
type RotationRequester interface {
	RequestRotation()
}

// ControlHandler serves the /control/rotate endpoint.
type ControlHandler struct {
	requester RotationRequester
	logger    *zap.Logger
}

// NewControlHandler builds a ControlHandler.
func NewControlHandler(requester RotationRequester, logger *zap.Logger) *ControlHandler {
	return &ControlHandler{requester: requester, logger: logger}
}

// ServeHTTP queues a manual rotation and acknowledges it. Only POST is
// accepted; the rotation itself is applied at the next tick boundary.
func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	h.requester.RequestRotation()
	h.logger.Info("manual-rotation-requested")

	w.WriteHeader(http.StatusAccepted)
}

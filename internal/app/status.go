package app

import "github.com/solward/triarb/pkg/httpserver"

// StatusSnapshot implements httpserver.StatusProvider, giving the
// /status endpoint a live read of the oracle and search loop without
// the HTTP layer importing either package directly.
func (a *App) StatusSnapshot() httpserver.StatusResponse {
	anchorUSD, fresh := a.oracle.Current()

	return httpserver.StatusResponse{
		State:         string(a.loop.State()),
		Anchor:        a.ring.Anchor().Symbol,
		Intermediate:  a.ring.Current().Symbol,
		AnchorUSD:     anchorUSD,
		PriceFresh:    fresh,
		Volatility:    a.oracle.Volatility(),
		Trend:         string(a.oracle.Trend()),
		TradingActive: a.cfg.TradingEnabled,
	}
}

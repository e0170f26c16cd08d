package app

import (
	"context"
	"sync"

	"github.com/solward/triarb/internal/loop"
	"github.com/solward/triarb/internal/oracle"
	"github.com/solward/triarb/internal/ring"
	"github.com/solward/triarb/internal/sizer"
	"github.com/solward/triarb/internal/storage"
	"github.com/solward/triarb/internal/transport"
	"github.com/solward/triarb/pkg/config"
	"github.com/solward/triarb/pkg/healthprobe"
	"github.com/solward/triarb/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the top-level orchestrator: it assembles the Token Directory,
// Price Oracle, Quote Client, MEV Transport, Dynamic Sizer, and Search
// Loop, then runs them under one lifecycle alongside the ambient HTTP
// surface. Grounded on the teacher's App struct shape, written
// self-consistently rather than inheriting the teacher's app.go/
// run.go/shutdown.go field-name mismatches (see DESIGN.md).
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	events        *httpserver.EventBroadcaster

	ring      *ring.Ring
	oracle    *oracle.Oracle
	sizer     *sizer.Sizer
	transport *transport.Transport
	loop      *loop.Loop
	storage   storage.Storage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds process-level overrides not carried by Config, mainly
// for one-shot CLI subcommands that build a partial App.
type Options struct {
	PrivateKeyHex string
	ChainID       int64
}

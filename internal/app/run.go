package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Run starts every component and blocks until a shutdown signal or
// the App's own context is cancelled.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("anchor", a.ring.Anchor().Symbol),
		zap.Bool("trading-enabled", a.cfg.TradingEnabled),
		zap.String("log-level", a.cfg.LogLevel))

	if err := a.startComponents(); err != nil {
		return err
	}

	a.healthChecker.SetReady(true)
	a.logger.Info("application-ready", zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	if err := a.oracle.Start(a.ctx); err != nil {
		return fmt.Errorf("start oracle: %w", err)
	}

	if err := a.loop.Start(a.ctx); err != nil {
		return fmt.Errorf("start search loop: %w", err)
	}

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}

// RequestRotation forwards a manual intermediate-rotation request to
// the search loop, applied at the next tick boundary.
func (a *App) RequestRotation() {
	a.loop.RequestRotation()
}

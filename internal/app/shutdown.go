package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown cancels every component's context and shuts them down in
// dependency order within a bounded grace period.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	if err := a.loop.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("search-loop-shutdown-error", zap.Error(err))
	}

	a.oracle.Stop()

	if err := a.storage.Close(); err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")
	return nil
}

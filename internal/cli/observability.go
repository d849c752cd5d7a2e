package cli

import (
	"context"
	"time"

	"survivalist/internal/errors"
	"survivalist/internal/observability"
)

const observabilityShutdownTimeout = 10 * time.Second

// shutdownObservability flushes pending telemetry. A nil manager is a no-op.
func shutdownObservability(om *observability.ObservabilityManager, logger *errors.Logger) {
	if om == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), observabilityShutdownTimeout)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		logger.LogError(err, "Failed to shut down observability")
	}
}

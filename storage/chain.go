package storage

import (
	"context"
	"time"

	apperrors "github.com/getiva/trackd/errors"
	"github.com/getiva/trackd/logger"
)

// DefaultAttemptTimeout bounds each backend attempt so one unreachable
// provider cannot stall the whole failover chain.
const DefaultAttemptTimeout = 30 * time.Second

// Chain tries backends in a fixed priority order and returns the first
// successful Reference. The order is policy, not configuration: externally
// durable, CDN-backed storage is preferred, and local disk is the terminal
// fallback that keeps ingest from ever failing while the disk is healthy.
type Chain struct {
	backends       []Backend
	attemptTimeout time.Duration
	log            *logger.Logger
}

// NewChain creates a failover chain over the given backends. Backends are
// attempted strictly in argument order, one at a time.
func NewChain(log *logger.Logger, attemptTimeout time.Duration, backends ...Backend) *Chain {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	return &Chain{
		backends:       backends,
		attemptTimeout: attemptTimeout,
		log:            log.WithComponent("chain"),
	}
}

// Backends returns the chain's backends in priority order.
func (c *Chain) Backends() []Backend {
	return c.backends
}

// Ingest stores content under filename on the first backend that accepts
// it. On success later backends are never tried. Every failure advances the
// chain; if no backend succeeds the aggregated per-backend reasons are
// returned as a single terminal error.
func (c *Chain) Ingest(ctx context.Context, content []byte, filename string) (*Reference, error) {
	reasons := make(map[string]string, len(c.backends))

	for _, b := range c.backends {
		if !b.Configured() {
			// Expected for optional providers; skip without a round-trip.
			c.log.Debug("backend not configured, skipping", logger.Fields(
				logger.FieldBackend, b.Name(),
			))
			reasons[b.Name()] = "not configured"
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		start := time.Now()
		ref, err := b.Store(attemptCtx, content, filename)
		cancel()

		if err == nil {
			c.log.Info("file stored", logger.Fields(
				logger.FieldBackend, b.Name(),
				logger.FieldFilename, filename,
				"size", len(content),
				logger.FieldDuration, time.Since(start).Milliseconds(),
			))
			return ref, nil
		}

		reasons[b.Name()] = err.Error()

		switch apperrors.CodeOf(err) {
		case apperrors.ErrCodeBackendUnavailable:
			c.log.Debug("backend unavailable", logger.Fields(
				logger.FieldBackend, b.Name(),
				logger.FieldError, err.Error(),
			))
		default:
			c.log.Error("upload attempt failed", logger.Fields(
				logger.FieldBackend, b.Name(),
				logger.FieldFilename, filename,
				logger.FieldError, err.Error(),
			))
		}
	}

	return nil, apperrors.AllBackendsFailed(reasons)
}

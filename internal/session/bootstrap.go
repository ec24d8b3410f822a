package session

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"legiscope/internal/backend"
)

// Connection is the backend status shown in the header.
type Connection int

const (
	ConnUnknown Connection = iota
	ConnOnline
	ConnOffline
	ConnUnreachable
)

func (c Connection) String() string {
	switch c {
	case ConnOnline:
		return "en ligne"
	case ConnOffline:
		return "hors ligne"
	case ConnUnreachable:
		return "injoignable"
	default:
		return "connexion..."
	}
}

// Catalog is the part of the backend fetched at startup.
type Catalog interface {
	Health(ctx context.Context) (backend.Health, error)
	Codes(ctx context.Context) ([]backend.Code, error)
}

// BootstrapResult holds both startup calls. Each half is independent.
type BootstrapResult struct {
	Health    backend.Health
	HealthErr error
	Codes     []backend.Code
	CodesErr  error
}

// Bootstrap fetches health and the code catalog concurrently. A failure of
// one call never cancels the other; errors are reported per call.
func Bootstrap(ctx context.Context, src Catalog) BootstrapResult {
	var res BootstrapResult
	var g errgroup.Group
	g.Go(func() error {
		res.Health, res.HealthErr = src.Health(ctx)
		return nil
	})
	g.Go(func() error {
		res.Codes, res.CodesErr = src.Codes(ctx)
		return nil
	})
	_ = g.Wait()
	return res
}

// ApplyBootstrap folds a BootstrapResult into the session.
func (s *Session) ApplyBootstrap(res BootstrapResult) {
	switch {
	case res.HealthErr != nil:
		s.conn = ConnUnreachable
		s.logger.Warn("health check failed", zap.Error(res.HealthErr))
	case res.Health.EffectiveMode() == backend.ModeOffline:
		s.conn = ConnOffline
	default:
		s.conn = ConnOnline
	}
	if res.CodesErr != nil {
		s.logger.Warn("code catalog unavailable", zap.Error(res.CodesErr))
		s.scope.SetCatalog(nil)
		return
	}
	s.scope.SetCatalog(res.Codes)
	s.logger.Debug("code catalog loaded", zap.Int("codes", len(res.Codes)))
}

package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/drivewatch/internal/audit"
	"github.com/ppiankov/drivewatch/internal/backend"
	"github.com/ppiankov/drivewatch/internal/config"
	"github.com/ppiankov/drivewatch/internal/cooldown"
	"github.com/ppiankov/drivewatch/internal/gate"
	"github.com/ppiankov/drivewatch/internal/journal"
	"github.com/ppiankov/drivewatch/internal/selector"
	"github.com/ppiankov/drivewatch/internal/vehicle"
)

// NewSelector returns the stub for the stub backend and a model-backed
// selector for everything else.
func NewSelector(ctx context.Context, m config.ModelConfig, logger *zap.Logger) (selector.Selector, error) {
	if m.Backend == "" || m.Backend == config.BackendStub {
		return selector.NewStub(), nil
	}
	b, loc, err := backend.New(ctx, backendOptions(m))
	if err != nil {
		return nil, fmt.Errorf("session: backend %s: %w", m.Backend, err)
	}
	opts := []selector.BackendOption{selector.WithLogger(logger)}
	if loc != nil {
		opts = append(opts, selector.WithLocator(loc))
	}
	return selector.NewBackend(b, opts...), nil
}

// backendOptions maps the model config section onto backend options.
func backendOptions(m config.ModelConfig) backend.Options {
	return backend.Options{
		Kind:            m.Backend,
		PreferredPath:   m.PreferredPath,
		FallbackPath:    m.FallbackPath,
		Endpoint:        m.Endpoint,
		APIKey:          m.APIKey,
		Model:           m.Model,
		Temperature:     m.Temperature,
		MaxTokens:       m.MaxTokens,
		Timeout:         m.Timeout,

		RequestsPerMinute: m.RequestsPerMinute,
		Region:          m.Region,
		AccessKeyID:     m.AccessKeyID,
		SecretAccessKey: m.SecretAccessKey,
		Binary:          m.Binary,
	}
}

// Resources are the files a built Session writes to.
type Resources struct {
	Audit   *audit.Log
	Journal *journal.Store
}

// Close releases the audit log and journal.
func (r *Resources) Close() error {
	var errs []error
	if r.Audit != nil {
		errs = append(errs, r.Audit.Close())
	}
	if r.Journal != nil {
		errs = append(errs, r.Journal.Close())
	}
	return errors.Join(errs...)
}

// Build assembles a Session from cfg, opening the audit log and journal
// when their paths are set. The caller closes the returned Resources.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Session, *Resources, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sel, err := NewSelector(ctx, cfg.Model, logger.Named("selector"))
	if err != nil {
		return nil, nil, err
	}

	res := &Resources{}
	if cfg.Audit.Path != "" {
		if res.Audit, err = audit.Open(cfg.Audit.Path); err != nil {
			return nil, nil, err
		}
	}
	if cfg.Journal.Path != "" {
		if res.Journal, err = journal.Open(cfg.Journal.Path); err != nil {
			_ = res.Close()
			return nil, nil, err
		}
	}

	s := New(Options{
		Selector: sel,
		Gate:     gate.New(cfg.Gate),
		Safety:   cooldown.New(cfg.Safety),
		Applier:  vehicle.NewApplier(vehicle.WithMaxEvents(cfg.Vehicle.MaxEvents), vehicle.WithLogger(logger.Named("vehicle"))),
		Audit:    res.Audit,
		Journal:  res.Journal,
		Logger:   logger.Named("session"),
	})
	s.Reconfigure(cfg)
	return s, res, nil
}

package selector

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ppiankov/drivewatch/internal/backend"
	"github.com/ppiankov/drivewatch/internal/intercept"
	"github.com/ppiankov/drivewatch/internal/model"
)

// MaxDetail bounds the detail text carried in diagnostic actions.
const MaxDetail = 200

// Backend is the model-driven selector. It locates the model artifact,
// prompts the backend and parses the output. Every failure becomes a
// single diagnostic log_safety_event; nothing is retried.
type Backend struct {
	backend backend.Backend
	locator backend.Locator
	logger  *zap.Logger
}

// BackendOption configures a Backend selector.
type BackendOption func(*Backend)

// WithLocator sets the artifact readiness check. Without one the backend
// is assumed ready.
func WithLocator(l backend.Locator) BackendOption {
	return func(s *Backend) { s.locator = l }
}

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) BackendOption {
	return func(s *Backend) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewBackend wraps b as a Selector.
func NewBackend(b backend.Backend, opts ...BackendOption) *Backend {
	s := &Backend{backend: b, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Select runs one inference pass.
func (s *Backend) Select(ctx context.Context, c model.Context, prompt string) model.ActionSequence {
	if s.locator != nil {
		path, err := s.locator.Locate()
		if err != nil {
			return s.notReadable(err)
		}
		s.logger.Debug("llm.select artifact", zap.String("path", path))
	}

	input := BuildPrompt(c, prompt)
	s.logger.Info("llm.select start",
		zap.String("backend", s.backend.Name()),
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("input_chars", len(input)),
	)

	started := time.Now()
	output, err := s.backend.Complete(ctx, input)
	if err != nil {
		return s.failure(&SelectorError{Kind: Classify(err), Err: err})
	}

	actions, strategy, err := intercept.ParseWithStrategy(output)
	if err != nil {
		s.logger.Warn("llm.select parse_failed", zap.String("output_preview", truncate(output, 240)))
		return s.failure(&SelectorError{Kind: Classify(err), Err: err})
	}

	s.logger.Info("llm.select done",
		zap.Int("output_chars", len(output)),
		zap.Stringer("strategy", strategy),
		zap.Strings("actions", actions.Names()),
		zap.Duration("elapsed", time.Since(started)),
	)
	return actions
}

func (s *Backend) notReadable(err error) model.ActionSequence {
	var ae *backend.ArtifactError
	if !errors.As(err, &ae) {
		ae = &backend.ArtifactError{Reason: err.Error(), Bytes: -1}
	}
	s.logger.Warn("llm.select model_not_readable",
		zap.String("path", ae.Path),
		zap.Bool("exists", ae.Exists),
		zap.Bool("can_read", ae.CanRead),
		zap.Int64("bytes", ae.Bytes),
	)
	return model.ActionSequence{model.NewAction(model.ActLogSafetyEvent,
		"message", "model_not_readable",
		"error_type", string(KindBackendUnavailable),
		"path", ae.Path,
		"exists", ae.Exists,
		"can_read", ae.CanRead,
		"bytes", ae.Bytes,
	)}
}

func (s *Backend) failure(err *SelectorError) model.ActionSequence {
	s.logger.Error("llm.select error", zap.String("error_type", string(err.Kind)), zap.Error(err.Err))
	return model.ActionSequence{Diagnostic(err)}
}

// Diagnostic renders a selector error as the log_safety_event that stands
// in for the failed selection.
func Diagnostic(err *SelectorError) model.Action {
	return model.NewAction(model.ActLogSafetyEvent,
		"message", "inference_error",
		"error_type", string(err.Kind),
		"detail", truncate(err.Err.Error(), MaxDetail),
	)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

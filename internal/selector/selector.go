// Package selector turns a driving context and a user prompt into a
// proposed action sequence.
package selector

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/neurorouter"

	"github.com/ppiankov/drivewatch/internal/backend"
	"github.com/ppiankov/drivewatch/internal/intercept"
	"github.com/ppiankov/drivewatch/internal/model"
)

// Selector proposes actions. Implementations never fail: problems surface
// as a diagnostic log_safety_event in the returned sequence.
type Selector interface {
	Select(ctx context.Context, c model.Context, prompt string) model.ActionSequence
}

// Func adapts a plain function to Selector.
type Func func(ctx context.Context, c model.Context, prompt string) model.ActionSequence

func (f Func) Select(ctx context.Context, c model.Context, prompt string) model.ActionSequence {
	return f(ctx, c, prompt)
}

// Kind classifies why a backend-driven selection produced no actions.
type Kind string

const (
	KindBackendUnavailable Kind = "backend_unavailable"
	KindBackendFailed      Kind = "backend_failed"
	KindRateLimited        Kind = "backend_rate_limited"
	KindExtractionFailed   Kind = "extraction_failed"
	KindMalformedAction    Kind = "malformed_action"
)

// SelectorError carries the classification of a failed selection.
type SelectorError struct {
	Kind Kind
	Err  error
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SelectorError) Unwrap() error { return e.Err }

// Classify maps a backend or parser error onto a Kind.
func Classify(err error) Kind {
	var se *SelectorError
	switch {
	case errors.As(err, &se):
		return se.Kind
	case errors.Is(err, neurorouter.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, backend.ErrUnavailable):
		return KindBackendUnavailable
	case errors.Is(err, intercept.ErrExtractionFailed):
		return KindExtractionFailed
	case errors.Is(err, intercept.ErrMalformedAction):
		return KindMalformedAction
	default:
		return KindBackendFailed
	}
}

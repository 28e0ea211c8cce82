// Package backend provides the text-completion collaborators behind the
// model-driven selector.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backend completes a prompt. The only blocking step of a pipeline run.
type Backend interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrUnavailable marks failures to reach the backend at all, as opposed
// to the backend answering with an error.
var ErrUnavailable = errors.New("backend unavailable")

// Backend kinds accepted by New.
const (
	KindStatic   = "static"
	KindHTTP     = "http"
	KindBedrock  = "bedrock"
	KindGenAI    = "genai"
	KindLlamaCLI = "llama-cli"
)

// Options selects and configures a backend.
type Options struct {
	Kind            string
	PreferredPath   string
	FallbackPath    string
	Endpoint        string
	APIKey          string
	Model           string
	Temperature     float64
	MaxTokens       int
	Timeout         time.Duration
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Binary          string
	StaticOutput    string

	// RequestsPerMinute throttles the http backend client-side.
	RequestsPerMinute int
}

// New builds the backend named by o.Kind together with the locator that
// decides whether it is ready.
func New(ctx context.Context, o Options) (Backend, Locator, error) {
	switch o.Kind {
	case KindStatic:
		return &Static{Output: o.StaticOutput}, nil, nil
	case KindHTTP:
		return &HTTP{
			Endpoint:    o.Endpoint,
			APIKey:      o.APIKey,
			Model:       o.Model,
			Temperature: o.Temperature,
			MaxTokens:   o.MaxTokens,
			Timeout:     o.Timeout,

			RequestsPerMinute: o.RequestsPerMinute,
		}, RemoteLocator{Model: o.Model}, nil
	case KindBedrock:
		b, err := NewBedrock(ctx, BedrockConfig{
			Region:          o.Region,
			AccessKeyID:     o.AccessKeyID,
			SecretAccessKey: o.SecretAccessKey,
			Model:           o.Model,
			Temperature:     o.Temperature,
			MaxTokens:       o.MaxTokens,
		})
		if err != nil {
			return nil, nil, err
		}
		return b, RemoteLocator{Model: o.Model}, nil
	case KindGenAI:
		b, err := NewGenAI(ctx, GenAIConfig{
			APIKey:      o.APIKey,
			Model:       o.Model,
			Temperature: o.Temperature,
			MaxTokens:   o.MaxTokens,
		})
		if err != nil {
			return nil, nil, err
		}
		return b, RemoteLocator{Model: o.Model}, nil
	case KindLlamaCLI:
		loc := FileLocator{Preferred: o.PreferredPath, Fallback: o.FallbackPath}
		return &LlamaCLI{
			Binary:      o.Binary,
			Locator:     loc,
			Temperature: o.Temperature,
			MaxTokens:   o.MaxTokens,
			Timeout:     o.Timeout,
		}, loc, nil
	default:
		return nil, nil, fmt.Errorf("backend: unknown kind %q", o.Kind)
	}
}

// Static returns canned output. Used by tests and demos.
type Static struct {
	Output string
	Err    error
	calls  int
}

func (s *Static) Name() string { return KindStatic }

func (s *Static) Complete(ctx context.Context, _ string) (string, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Err != nil {
		return "", s.Err
	}
	return s.Output, nil
}

// Calls reports how many times Complete ran.
func (s *Static) Calls() int { return s.calls }

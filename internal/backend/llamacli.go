package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultLlamaBinary is looked up on PATH when no binary is configured.
const DefaultLlamaBinary = "llama-cli"

// LlamaCLI runs a local llama.cpp binary against the model file resolved
// by Locator, one process per completion.
type LlamaCLI struct {
	Binary      string
	Locator     Locator
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	ExtraArgs   []string
}

func (l *LlamaCLI) Name() string { return KindLlamaCLI }

// Args returns the command line for one completion, excluding the binary.
func (l *LlamaCLI) Args(modelPath, prompt string) []string {
	maxTokens := l.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	args := []string{
		"-m", modelPath,
		"-p", prompt,
		"-n", strconv.Itoa(maxTokens),
		"--temp", strconv.FormatFloat(l.Temperature, 'f', -1, 64),
		"--no-display-prompt",
		"-no-cnv",
	}
	return append(args, l.ExtraArgs...)
}

// Complete returns the process stdout. A missing binary or model file
// wraps ErrUnavailable.
func (l *LlamaCLI) Complete(ctx context.Context, prompt string) (string, error) {
	if l.Locator == nil {
		return "", fmt.Errorf("llama-cli backend: %w: no model locator", ErrUnavailable)
	}
	modelPath, err := l.Locator.Locate()
	if err != nil {
		return "", fmt.Errorf("llama-cli backend: %w", err)
	}

	binary := l.Binary
	if binary == "" {
		binary = DefaultLlamaBinary
	}
	if _, err := exec.LookPath(binary); err != nil {
		return "", fmt.Errorf("llama-cli backend: %w: %v", ErrUnavailable, err)
	}

	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, l.Args(modelPath, prompt)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("llama-cli backend: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("llama-cli backend: exit %d: %s", exitErr.ExitCode(), lastLine(stderr.String()))
		}
		return "", fmt.Errorf("llama-cli backend: run: %w", err)
	}
	return stdout.String(), nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

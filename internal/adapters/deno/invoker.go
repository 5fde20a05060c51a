// Package deno implements the Invoker port over the external runtime's
// graph-inspection command.
package deno

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/modbridge/internal/core/domain"
	"go.trai.ch/zerr"
)

// maxStderrAttr caps how much of the tool's stderr is attached to errors.
const maxStderrAttr = 2048

// Invoker implements ports.Invoker by running `<tool> info --json`.
type Invoker struct {
	tool   string
	tracer trace.Tracer
}

// NewInvoker creates an Invoker for the given inspection tool name or path.
func NewInvoker(tool string) *Invoker {
	return &Invoker{
		tool:   tool,
		tracer: otel.Tracer("modbridge/invoker"),
	}
}

// Inspect runs the inspection command for the specifier in workingDir and
// parses its stdout into a graph snapshot. A nonzero exit or unparsable
// stdout is a hard invocation error; no retry is attempted.
func (i *Invoker) Inspect(ctx context.Context, specifier, workingDir string) (*domain.GraphSnapshot, error) {
	ctx, span := i.tracer.Start(ctx, "invoker.inspect", trace.WithAttributes(
		attribute.String("specifier", specifier),
		attribute.String("working_dir", workingDir),
	))
	defer span.End()

	//nolint:gosec // tool name comes from trusted configuration
	cmd := exec.CommandContext(ctx, i.tool, "info", "--json", specifier)
	cmd.Dir = workingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		span.RecordError(err)
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		invErr := fmt.Errorf("%w: %w", domain.ErrInvocationFailed, err)
		invErr = zerr.With(invErr, "specifier", specifier)
		invErr = zerr.With(invErr, "exit_code", exitCode)
		return nil, zerr.With(invErr, "stderr", trimStderr(stderr.String()))
	}

	snap, err := parseSnapshot(stdout.Bytes())
	if err != nil {
		span.RecordError(err)
		parseErr := fmt.Errorf("%w: %w", domain.ErrMalformedOutput, err)
		return nil, zerr.With(parseErr, "specifier", specifier)
	}

	span.SetAttributes(attribute.Int("modules", len(snap.Modules)))
	return snap, nil
}

// trimStderr normalizes and bounds the captured stderr for error attributes.
func trimStderr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrAttr {
		s = s[:maxStderrAttr]
	}
	return s
}

package logging

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	// Trace correlation (from OpenTelemetry)
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if runID := RunIDFromContext(ctx); runID != "" {
		fields = append(fields, zap.String("run.id", runID))
	}
	if path := DocumentFromContext(ctx); path != "" {
		fields = append(fields, zap.String("document.path", path))
	}
	if id := RequirementFromContext(ctx); id != "" {
		fields = append(fields, zap.String("requirement.id", id))
	}

	return fields
}

type runCtxKey struct{}
type documentCtxKey struct{}
type requirementCtxKey struct{}

const maxFieldLen = 512

var runIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// NewRunID returns a fresh identifier for one invocation.
func NewRunID() string {
	return uuid.NewString()
}

// WithRunID adds the run identifier to context.
// Panics if runID is empty or contains invalid characters.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" || len(runID) > 128 || !runIDPattern.MatchString(runID) {
		panic(fmt.Sprintf("logging: invalid run id %q", runID))
	}
	return context.WithValue(ctx, runCtxKey{}, runID)
}

// RunIDFromContext extracts the run identifier from context.
func RunIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(runCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithDocument adds the path of the document being processed to context.
func WithDocument(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, documentCtxKey{}, truncate(path))
}

// DocumentFromContext extracts the document path from context.
func DocumentFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(documentCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithRequirement adds the primary id of the requirement being processed.
func WithRequirement(ctx context.Context, primaryID string) context.Context {
	return context.WithValue(ctx, requirementCtxKey{}, truncate(primaryID))
}

// RequirementFromContext extracts the requirement primary id from context.
func RequirementFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(requirementCtxKey{}).(string); ok {
		return s
	}
	return ""
}

func truncate(s string) string {
	if len(s) > maxFieldLen {
		return s[:maxFieldLen]
	}
	return s
}

// loggerCtxKey is the context key for Logger.
type loggerCtxKey struct{}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}

package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ContextFields(ctx))

	ctx = WithRunID(ctx, "0b7e")
	ctx = WithDocument(ctx, "a.feature")
	ctx = WithRequirement(ctx, "@ADS-1")

	m := map[string]string{}
	for _, f := range ContextFields(ctx) {
		m[f.Key] = f.String
	}
	assert.Equal(t, map[string]string{
		"run.id":         "0b7e",
		"document.path":  "a.feature",
		"requirement.id": "@ADS-1",
	}, m)
}

func TestContextFields_TraceCorrelation(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3},
		SpanID:  trace.SpanID{4, 5, 6},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	tl := NewTestLogger()
	tl.Info(ctx, "traced")
	tl.AssertField(t, "traced", "trace_id", sc.TraceID().String())
	tl.AssertField(t, "traced", "span_id", sc.SpanID().String())
}

func TestWithRunID_Invalid(t *testing.T) {
	assert.Panics(t, func() { WithRunID(context.Background(), "") })
	assert.Panics(t, func() { WithRunID(context.Background(), "has space") })
	assert.NotPanics(t, func() { WithRunID(context.Background(), NewRunID()) })
}

func TestWithDocument_Truncates(t *testing.T) {
	ctx := WithDocument(context.Background(), strings.Repeat("a", 2000))
	assert.Len(t, DocumentFromContext(ctx), maxFieldLen)
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	FromContext(ctx).Warn(ctx, "from context")
	tl.AssertLogged(t, zapcore.WarnLevel, "from context")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "from context")
}

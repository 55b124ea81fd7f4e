// Package logging provides structured logging with OpenTelemetry integration.
//
// Logging wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Output to stderr and optionally OpenTelemetry
//   - Context field injection (trace_id, run.id, document.path, requirement.id)
//   - Secret redaction by field name and value pattern
//   - Sampling below Error
//
// Usage:
//
//	cfg, err := logging.FromUserConfig(appCfg.Logging)
//	logger, err := logging.NewLogger(cfg, nil)
//	defer logger.Sync()
//
//	ctx = logging.WithRunID(ctx, logging.NewRunID())
//	ctx = logging.WithDocument(ctx, "features/door.feature")
//	logger.Info(ctx, "requirement created", zap.String("remote_id", "142600"))
//
// Tests use TestLogger:
//
//	tl := logging.NewTestLogger()
//	svc := syncer.New(..., tl.Logger)
//	tl.AssertLogged(t, zapcore.InfoLevel, "requirement created")
//	tl.AssertNoSecrets(t)
//
// Logger is safe for concurrent use.
package logging

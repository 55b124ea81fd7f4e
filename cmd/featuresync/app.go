package main

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/featuresync/internal/config"
	"github.com/fyrsmithlabs/featuresync/internal/logging"
	"github.com/fyrsmithlabs/featuresync/internal/telemetry"
)

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	tel    *telemetry.Telemetry
}

// newApp loads configuration and starts logging and telemetry. The caller
// must call close.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	searchDir := opts.workDir
	if searchDir == "" {
		searchDir = "."
	}

	cfg, err := config.LoadWithFile(config.ResolvePath(opts.configPath, searchDir))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.workDir != "" {
		cfg.Sync.WorkDir = opts.workDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromUserConfig(cfg.Telemetry, version))
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	logCfg, err := logging.FromUserConfig(cfg.Logging)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	logCfg.Output.OTEL = cfg.Telemetry.Enabled

	logger, err := logging.NewLogger(logCfg, global.GetLoggerProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	for _, reason := range tel.Degraded() {
		logger.Warn(ctx, "telemetry degraded", zap.String("reason", reason))
	}

	return &app{cfg: cfg, logger: logger, tel: tel}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

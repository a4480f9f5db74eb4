package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		verbosity  int
	}{
		{name: "JSON output mode", jsonOutput: true, verbosity: VerbosityInfo},
		{name: "Console output mode", jsonOutput: false, verbosity: VerbosityUser},
		{name: "Console debug", jsonOutput: false, verbosity: VerbosityDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := Logger
			defer func() { Logger = prev; JSONOutput = false }()

			require.NoError(t, Initialize(tt.jsonOutput, tt.verbosity))
			assert.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)
			assert.True(t, Logger.Desugar().Core().Enabled(VerbosityToLevel(tt.verbosity)))
		})
	}
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(VerbosityUser))
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(-1))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(VerbosityInfo))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(VerbosityDebug))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(VerbosityTrace+5))
	assert.False(t, ShouldLogTrace(VerbosityDebug))
	assert.True(t, ShouldLogTrace(VerbosityTrace))
}

func TestFieldsFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, FieldsFromContext(ctx))

	ctx = WithLane(ctx, "lane-1")
	ctx = WithPackage(ctx, "example.com/pkg")
	ctx = WithComponent(ctx, "pass")

	fields := FieldsFromContext(ctx)
	assert.Equal(t, []interface{}{
		FieldLane, "lane-1",
		FieldPackage, "example.com/pkg",
		FieldComponent, "pass",
	}, fields)
}

func TestLoggerFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger
	Logger = zap.New(core).Sugar()
	defer func() { Logger = prev }()

	LoggerFromContext(WithLane(context.Background(), "lane-7")).Infow("pass started")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "pass started", entry.Message)
	assert.Equal(t, "lane-7", entry.ContextMap()[FieldLane])
}

func TestHelpersTolerateNilLogger(t *testing.T) {
	prev := Logger
	Logger = nil
	defer func() { Logger = prev }()

	assert.NotPanics(t, func() {
		Infow("info")
		Warnw("warn")
		Errorw("error")
		Debugw("debug")
		Cleanup()
	})
}

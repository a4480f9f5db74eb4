package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across stagegen.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Pass identity
	FieldGenerator = "generator"
	FieldPass      = "pass"
	FieldLane      = "lane"
	FieldOrigin    = "origin"

	// Components
	FieldComponent = "component"
	FieldPackage   = "package"

	// Pass structure
	FieldGroup     = "group"
	FieldPhase     = "phase"
	FieldFilter    = "filter"
	FieldCandidate = "candidate"
	FieldArtifact  = "artifact"
	FieldVersion   = "version"
	FieldState     = "state"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts
	FieldCount     = "count"
	FieldArtifacts = "artifacts"

	// Files and paths
	FieldFile = "file"
	FieldDir  = "dir"
)

// Context keys for propagating logging context
type contextKey string

const (
	laneKey      contextKey = "logger_lane"
	packageKey   contextKey = "logger_package"
	componentKey contextKey = "logger_component"
)

// WithLane adds an execution lane to the context for logging
func WithLane(ctx context.Context, lane string) context.Context {
	return context.WithValue(ctx, laneKey, lane)
}

// WithPackage adds the package under generation to the context for logging
func WithPackage(ctx context.Context, pkg string) context.Context {
	return context.WithValue(ctx, packageKey, pkg)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if lane, ok := ctx.Value(laneKey).(string); ok && lane != "" {
		fields = append(fields, FieldLane, lane)
	}
	if pkg, ok := ctx.Value(packageKey).(string); ok && pkg != "" {
		fields = append(fields, FieldPackage, pkg)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns a logger with fields extracted from context.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	engine := pass.NewEngine(gen, pass.WithLogger(logger.ComponentLogger("pass")))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

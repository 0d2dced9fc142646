package monitoring

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Log formats understood by NewLogger.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Logger provides structured logging with domain helpers
type Logger struct {
	*slog.Logger
}

// LoggerOptions selects the handler built by NewLogger.
type LoggerOptions struct {
	Level  slog.Level
	Format string
	Output io.Writer
}

// NewLogger creates a logger writing JSON by default, or colored text through tint.
func NewLogger(opts LoggerOptions) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	if opts.Format == FormatText {
		handler = tint.NewHandler(out, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:     opts.Level,
			AddSource: opts.Level <= slog.LevelDebug,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				// RFC3339 timestamps under a stable key
				if a.Key == slog.TimeKey && len(groups) == 0 {
					return slog.String("timestamp", a.Value.Time().Format(time.RFC3339))
				}
				return a
			},
		})
	}

	return &Logger{Logger: slog.New(handler)}
}

// ParseLevel maps a config string to a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Err is the attribute used for errors across the codebase.
var Err = tint.Err

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(method, path, ip, userAgent string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"user_agent", userAgent,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// APIErrorLogger logs API errors with context
func (l *Logger) APIErrorLogger(err error, method, path, ip string, statusCode int) {
	level := slog.LevelWarn
	if statusCode >= 500 {
		level = slog.LevelError
	}

	l.Log(context.Background(), level, "API Error",
		Err(err),
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
	)
}

// AssessmentLogger logs a workflow event of an assessment
func (l *Logger) AssessmentLogger(event, assessmentID, vendorID string, overallScore float64) {
	l.Info("Assessment Event",
		"event", event,
		"assessment_id", assessmentID,
		"vendor_id", vendorID,
		"overall_score", overallScore,
	)
}

// ValidationLogger logs the outcome of a validation run
func (l *Logger) ValidationLogger(assessmentID string, valid bool, blocking, warnings int) {
	level := slog.LevelInfo
	if !valid {
		level = slog.LevelWarn
	}

	l.Log(context.Background(), level, "Assessment Validated",
		"assessment_id", assessmentID,
		"valid", valid,
		"blocking", blocking,
		"warnings", warnings,
	)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).Round(time.Second).String(),
	)
}

var startTime = time.Now()

package api

import (
	"time"

	"go.uber.org/zap"
)

// CallEvent records one REST call.
type CallEvent struct {
	RequestID string
	Method    string
	Path      string
	Status    int
	Latency   time.Duration
	ErrorCode string
}

// Observer receives events about REST calls for logging and metrics.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// LogObserver logs every call at debug level and failures at warn.
type LogObserver struct {
	logger *zap.Logger
}

func NewLogObserver(logger *zap.Logger) *LogObserver {
	return &LogObserver{logger: logger.Named("api")}
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	fields := []zap.Field{
		zap.String("request_id", event.RequestID),
		zap.String("method", event.Method),
		zap.String("path", event.Path),
		zap.Int("status", event.Status),
		zap.Duration("latency", event.Latency),
	}
	if event.ErrorCode != "" {
		o.logger.Warn("API call failed", append(fields, zap.String("error_code", event.ErrorCode))...)
		return
	}
	o.logger.Debug("API call", fields...)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}

package client

import (
	"github.com/sirupsen/logrus"
)

// Telemetry receives named lifecycle and collaboration events. Sinks are
// instrumentation only: they are invoked synchronously but a panicking sink
// never propagates into the coordinator.
type Telemetry interface {
	Event(name string, fields map[string]any)
}

// NopTelemetry discards every event.
type NopTelemetry struct{}

func (NopTelemetry) Event(string, map[string]any) {}

// LogTelemetry writes events as structured log entries.
type LogTelemetry struct {
	Logger *logrus.Logger
}

func (t LogTelemetry) Event(name string, fields map[string]any) {
	if t.Logger == nil {
		return
	}
	t.Logger.WithFields(logrus.Fields(fields)).Info(name)
}

func (c *Client) report(name string, fields map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warnf("Telemetry sink panicked on %s: %v", name, r)
		}
	}()
	c.telemetry.Event(name, fields)
}

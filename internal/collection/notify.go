package collection

import (
	"errors"
	"log/slog"

	"rsd-cli/internal/postgrest"
)

// Notifier surfaces short messages to the user. Calls must not block.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}

func (n LogNotifier) Info(msg string)    { n.logger().Info(msg) }
func (n LogNotifier) Success(msg string) { n.logger().Info(msg, "result", "success") }
func (n LogNotifier) Error(msg string)   { n.logger().Error(msg) }

type nopNotifier struct{}

func (nopNotifier) Info(string)    {}
func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

// FailureMessage formats a failed operation as "<op> failed: <detail>".
func FailureMessage(op string, err error) string {
	var apiErr *postgrest.Error
	if errors.As(err, &apiErr) {
		return op + " failed: " + apiErr.Detail()
	}
	return op + " failed: " + err.Error()
}

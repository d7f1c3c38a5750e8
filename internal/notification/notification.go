// Package notification delivers user-facing messages. Failures are the
// caller's to log, never to propagate: a lost email must not fail the
// operation that triggered it.
package notification

import (
	"log/slog"
)

const (
	TemplateExpenseApproved = "expense_approved"
	TemplateExpenseRejected = "expense_rejected"
	TemplateWelcome         = "welcome"
)

type Notifier interface {
	Notify(address, template string, data map[string]interface{}) error
}

// LogNotifier writes notifications to the structured log. It stands in
// for a real mail transport; the interface is what the rest of the system
// depends on.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(address, template string, data map[string]interface{}) error {
	n.logger.Info("notification sent",
		"address", address,
		"template", template,
		"data", data)
	return nil
}

// NoopNotifier discards everything; used in tests.
type NoopNotifier struct{}

func (NoopNotifier) Notify(string, string, map[string]interface{}) error {
	return nil
}

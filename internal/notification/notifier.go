// Package notification delivers alerts about order-placement failures and
// circuit-breaker trips to external channels (Telegram, generic webhooks).
// Adapted from the teacher's internal/notification package: same
// Notifier/Alert shape, rebased onto zap for logging and given a Fanout
// type so the engine can register more than one backend at once.
package notification

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// AlertLevel is the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert is a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts via zap instead of delivering them anywhere;
// useful for local runs without Telegram/webhook credentials configured.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, alert Alert) error {
	n.log.Info("alert", zap.String("level", string(alert.Level)), zap.String("title", alert.Title), zap.String("message", alert.Message))
	return nil
}

// Fanout delivers an alert to every registered Notifier. A failure on one
// backend does not stop delivery to the others; all errors are joined.
type Fanout struct {
	backends []Notifier
	log      *zap.Logger
}

func NewFanout(log *zap.Logger, backends ...Notifier) *Fanout {
	return &Fanout{backends: backends, log: log}
}

func (f *Fanout) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range f.backends {
		if err := n.Send(ctx, alert); err != nil {
			f.log.Warn("notifier backend failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OrderPlacementFailed builds an Alert for a failed order placement.
func OrderPlacementFailed(instID string, err error) Alert {
	return Alert{
		Level:   AlertCritical,
		Title:   "order placement failed",
		Message: instID + ": " + err.Error(),
	}
}

// CircuitBreakerTripped builds an Alert for a breaker transitioning to open.
func CircuitBreakerTripped(component string) Alert {
	return Alert{
		Level:   AlertWarning,
		Title:   "circuit breaker open",
		Message: component + " tripped its circuit breaker",
	}
}

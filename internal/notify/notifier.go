// Package notify carries user-facing notices from the controller to
// whatever presentation layer is listening.
package notify

import (
	"context"
	"log/slog"

	"shopping-portal/internal/domain"
	"shopping-portal/internal/observability"
)

// Notifier receives notices. Implementations must not block for long:
// Notify is called inline by controller operations.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notice)
}

// Func adapts a plain function to Notifier
type Func func(ctx context.Context, n domain.Notice)

func (f Func) Notify(ctx context.Context, n domain.Notice) {
	f(ctx, n)
}

// Multi fans a notice out to every notifier in order
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n domain.Notice) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(ctx, n)
		}
	}
}

// Discard drops every notice
var Discard Notifier = Func(func(context.Context, domain.Notice) {})

// Counted wraps next so every notice is counted by kind
func Counted(next Notifier) Notifier {
	return Func(func(ctx context.Context, n domain.Notice) {
		observability.NoticesTotal.WithLabelValues(string(n.Kind)).Inc()
		next.Notify(ctx, n)
	})
}

// Log writes every notice to slog
type Log struct{}

func (Log) Notify(ctx context.Context, n domain.Notice) {
	observability.FromContext(ctx).Info("notice",
		slog.String("kind", string(n.Kind)),
		slog.String("message", n.Message))
}

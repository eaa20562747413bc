package newsroom

import (
	"context"

	"go.uber.org/zap"
)

// Variant is the severity of a notification.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a toast shown to the person using the admin screen.
type Notification struct {
	Title       string
	Description string
	Variant     Variant
}

// Notifier delivers notifications. Delivery is fire-and-forget.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Navigator performs view transitions and knows the public origin
// (scheme://host[:port]) the site is served from.
type Navigator interface {
	Navigate(path string)
	Origin() string
}

// Opener opens a URL in a new window of the given size. Best effort: there
// is no failure path and nothing is retried.
type Opener interface {
	Open(url string, width, height int)
}

// Confirmer asks the user a yes/no question and waits for the answer.
// Any failure to ask counts as "no".
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, message string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, message string) bool { return f(ctx, message) }

// Answer is a Confirmer with a fixed decision, e.g. from a submitted form.
type Answer bool

func (a Answer) Confirm(context.Context, string) bool { return bool(a) }

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l LogNotifier) Notify(n Notification) {
	fields := []zap.Field{zap.String("title", n.Title), zap.String("description", n.Description)}
	if n.Variant == VariantDestructive {
		l.Logger.Warn("Notification", fields...)
		return
	}
	l.Logger.Info("Notification", fields...)
}

package notify

import (
	"context"
	"errors"

	"creator-monetization/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*Fanout)(nil)

// Fanout delivers to every notifier and joins their errors.
type Fanout struct {
	targets []adapter.Notifier
}

func NewFanout(targets ...adapter.Notifier) *Fanout {
	kept := make([]adapter.Notifier, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return &Fanout{targets: kept}
}

func (f *Fanout) Notify(ctx context.Context, msg adapter.Notification) error {
	var errs []error
	for _, t := range f.targets {
		if err := t.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

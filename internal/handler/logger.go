package handler

import (
	"context"
	"fmt"
	"log/slog"

	"ahagon/internal/events"
	"ahagon/internal/notifier"
)

// Logger returns a handler that logs every delivery it sees.
func Logger(logger *slog.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, d *Delivery) error {
		attrs := []any{
			"delivery", d.ID,
			"source", d.Source,
			"event", d.Kind,
			"repo", d.Repo.Slug(),
		}

		if d.Source == notifier.SourceGitHub && d.Kind != events.WildCard {
			if typed, err := d.Payload.Typed(d.Kind); err == nil {
				attrs = append(attrs, "payload_type", fmt.Sprintf("%T", typed))
			}
			if action := d.Payload.String("action"); action != "" {
				attrs = append(attrs, "action", action)
			}
		}
		if d.Source == notifier.SourceTravis {
			attrs = append(attrs, "build_status", d.Payload.String("status_message"))
		}

		logger.InfoContext(ctx, "delivery dispatched", attrs...)
		return nil
	})
}

package handler

import (
	"fmt"
	"log/slog"

	"ahagon/internal/config"
	"ahagon/internal/events"
)

// FromConfig builds the registry used by the server: Logger on every kind,
// then one Command per configured action in file order.
func FromConfig(actions []config.ActionConfig, logger *slog.Logger) (*Registry, error) {
	bindings := []Binding{Bind(events.WildCard, Logger(logger))}

	for i, ac := range actions {
		kind, err := events.Parse(ac.Event)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}

		cmd, err := NewCommand(ac.Command, ac.Dir, ac.TimeoutDuration(), logger.With("action", i))
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}

		bindings = append(bindings, Bind(kind, cmd))
	}

	return NewRegistry(bindings...), nil
}

package fanout

import (
	"context"

	"github.com/frahmantamala/teamspace/internal/core/events"
)

// Subscribe forwards every organization-scoped event on the bus to n.
// The bus runs handlers after the publishing mutation has returned.
func Subscribe(bus *events.EventBus, n *Notifier) {
	bus.Subscribe(events.Wildcard, func(ctx context.Context, event events.Event) error {
		scoped, ok := event.(events.Scoped)
		if !ok || scoped.OrganizationSlug() == "" {
			return nil
		}
		n.Notify(ctx, scoped.OrganizationSlug(), event)
		return nil
	})
}

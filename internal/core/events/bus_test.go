package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/teamspace/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestEvents(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Events Suite")
}

type collector struct {
	mu   sync.Mutex
	seen []string
}

func (c *collector) handler(tag string) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.seen = append(c.seen, tag+":"+event.EventType())
		return nil
	}
}

func (c *collector) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.seen...)
}

var _ = Describe("EventBus", func() {
	var (
		bus *events.EventBus
		c   *collector
		ctx context.Context
	)

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
		c = &collector{}
		ctx = context.Background()
	})

	It("delivers to typed and wildcard handlers without blocking the publisher", func() {
		release := make(chan struct{})
		bus.Subscribe(events.EventTypeMessageCreated, func(ctx context.Context, event events.Event) error {
			<-release
			return c.handler("typed")(ctx, event)
		})
		bus.Subscribe(events.Wildcard, c.handler("any"))

		Expect(bus.Publish(ctx, events.NewWorkspaceEvent(events.EventTypeMessageCreated, "acme", 1, nil))).To(Succeed())
		Expect(bus.Publish(ctx, events.NewWorkspaceEvent(events.EventTypeThreadCreated, "acme", 1, nil))).To(Succeed())

		Eventually(c.all).Should(ConsistOf("any:message.created", "any:thread.created"))
		close(release)
		Eventually(c.all).Should(ContainElement("typed:message.created"))
	})

	It("detaches handlers from the publisher's cancellation", func() {
		errs := make(chan error, 1)
		bus.Subscribe(events.EventTypeReadUpdated, func(ctx context.Context, event events.Event) error {
			time.Sleep(20 * time.Millisecond)
			errs <- ctx.Err()
			return nil
		})

		reqCtx, cancel := context.WithCancel(ctx)
		Expect(bus.Publish(reqCtx, events.NewWorkspaceEvent(events.EventTypeReadUpdated, "acme", 1, nil))).To(Succeed())
		cancel()

		Eventually(errs).Should(Receive(BeNil()))
	})

	It("stops at the first failing handler when publishing synchronously", func() {
		boom := errors.New("boom")
		bus.Subscribe(events.EventTypeGroupCreated, func(context.Context, events.Event) error { return boom })
		bus.Subscribe(events.EventTypeGroupCreated, c.handler("second"))

		err := bus.PublishSync(ctx, events.NewWorkspaceEvent(events.EventTypeGroupCreated, "acme", 1, nil))
		Expect(errors.Is(err, boom)).To(BeTrue())
		Expect(c.all()).To(BeEmpty())
	})

	It("ignores events nobody listens to", func() {
		Expect(bus.PublishSync(ctx, events.NewWorkspaceEvent("nobody.cares", "acme", 1, nil))).To(Succeed())
	})
})

var _ = Describe("WorkspaceEvent", func() {
	It("is scoped to its organization", func() {
		event := events.NewWorkspaceEvent(events.EventTypeMemberInvited, "acme", 3, nil)

		scoped, ok := interface{}(event).(events.Scoped)
		Expect(ok).To(BeTrue())
		Expect(scoped.OrganizationSlug()).To(Equal("acme"))
		Expect(event.EventID()).NotTo(BeEmpty())
		Expect(event.Payload()).To(Equal(map[string]interface{}{}))
		Expect(event.OccurredAt().Location()).To(Equal(time.UTC))
	})
})

package messaging

import (
	"context"
	"errors"

	"nodal/application/ports"
	"nodal/domain/events"
)

var _ ports.EventPublisher = FanOut(nil)

// FanOut publishes to every publisher in turn. All publishers are tried;
// their errors are joined.
type FanOut []ports.EventPublisher

// Publish sends one event to every publisher
func (f FanOut) Publish(ctx context.Context, event events.DomainEvent) error {
	return f.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends events to every publisher
func (f FanOut) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishBatch(ctx, domainEvents); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

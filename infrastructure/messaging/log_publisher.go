package messaging

import (
	"context"

	"go.uber.org/zap"

	"nodal/application/ports"
	"nodal/domain/events"
)

var _ ports.EventPublisher = (*LogPublisher)(nil)

// LogPublisher writes events to the log. It is the publisher when no bus
// is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a new log publisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs one event
func (p *LogPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Debug("Canvas event",
		zap.String("eventType", event.GetEventType()),
		zap.String("workspaceID", event.GetAggregateID()),
		zap.Time("timestamp", event.GetTimestamp()))
	return nil
}

// PublishBatch logs every event
func (p *LogPublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		_ = p.Publish(ctx, event)
	}
	return nil
}

package messaging

import (
	"context"

	"github.com/feral-file/entitlement-registry/internal/domain"
)

// Publisher defines the interface for publishing committed registry events to
// the message broker. Publishing is observability only: a failed publish must
// never fail the registry call whose state already committed.
type Publisher interface {
	// PublishEvent publishes a registry event to the message broker
	PublishEvent(ctx context.Context, event *domain.RegistryEvent) error
	// Close closes the connection
	Close()
}

// NoopPublisher discards events. Used by tests and dev deployments without a broker.
type NoopPublisher struct{}

// NewNoopPublisher creates a publisher that drops every event
func NewNoopPublisher() Publisher {
	return &NoopPublisher{}
}

func (p *NoopPublisher) PublishEvent(_ context.Context, _ *domain.RegistryEvent) error {
	return nil
}

func (p *NoopPublisher) Close() {}

package services

import (
	"context"

	"etalase/internal/models"
)

// EventPublisher receives order lifecycle events.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

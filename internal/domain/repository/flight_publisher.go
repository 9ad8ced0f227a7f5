package repository

import (
	"context"

	"fare-crawler-service/internal/domain/entity"
)

// FlightPublisher forwards persisted records to downstream consumers
type FlightPublisher interface {
	Publish(ctx context.Context, records []entity.FlightRecord) error
	Close() error
}

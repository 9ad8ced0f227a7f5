package repository

import (
	"context"

	"fare-crawler-service/internal/domain/entity"
)

// FlightRecordRepository defines the interface for flight record storage
type FlightRecordRepository interface {
	// Ready verifies the store can accept writes, opening it if needed
	Ready(ctx context.Context) error
	// SaveBatch writes all records atomically
	SaveBatch(ctx context.Context, records []entity.FlightRecord) error
}

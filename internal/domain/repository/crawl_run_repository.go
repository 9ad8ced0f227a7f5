package repository

import (
	"context"

	"fare-crawler-service/internal/domain/entity"
)

// CrawlRunRepository defines the interface for run history
type CrawlRunRepository interface {
	Create(ctx context.Context, run *entity.CrawlRun) error
	Update(ctx context.Context, run *entity.CrawlRun) error
	Latest(ctx context.Context, limit int) ([]*entity.CrawlRun, error)
}

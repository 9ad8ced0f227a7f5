package repository

import (
	"context"

	"fare-crawler-service/internal/domain/entity"
)

// RouteRepository defines the interface for loading the routes to crawl
type RouteRepository interface {
	LoadRoutes(ctx context.Context) ([]entity.Route, error)
}

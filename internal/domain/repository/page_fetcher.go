package repository

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// PageFetcher retrieves the rendered results page for one search
type PageFetcher interface {
	Fetch(ctx context.Context, origin, destination, date string) (*goquery.Document, error)
}

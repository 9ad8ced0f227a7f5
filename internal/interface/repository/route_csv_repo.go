package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"fare-crawler-service/internal/domain/entity"
	"fare-crawler-service/internal/domain/repository"

	"github.com/jszwec/csvutil"
)

var _ repository.RouteRepository = (*CSVRouteRepository)(nil)

// CSVRouteRepository reads origin,destination rows from a headerless CSV file
type CSVRouteRepository struct {
	path string
}

// NewCSVRouteRepository creates a route repository backed by the given file
func NewCSVRouteRepository(path string) *CSVRouteRepository {
	return &CSVRouteRepository{path: path}
}

// LoadRoutes reads the whole file before returning
func (r *CSVRouteRepository) LoadRoutes(ctx context.Context) ([]entity.Route, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open routes file: %w", err)
	}
	defer file.Close()

	return ParseRoutes(file)
}

// ParseRoutes decodes route rows. Rows with fewer than two fields are skipped,
// extra fields are ignored and values are trimmed.
func ParseRoutes(reader io.Reader) ([]entity.Route, error) {
	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	decoder, err := csvutil.NewDecoder(routeRows{cr}, "origin", "destination")
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder for routes: %w", err)
	}

	var routes []entity.Route
	if err := decoder.Decode(&routes); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode routes: %w", err)
	}
	return routes, nil
}

// routeRows narrows raw CSV records to the two route columns
type routeRows struct {
	r *csv.Reader
}

func (rr routeRows) Read() ([]string, error) {
	for {
		record, err := rr.r.Read()
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			continue
		}
		return []string{strings.TrimSpace(record[0]), strings.TrimSpace(record[1])}, nil
	}
}

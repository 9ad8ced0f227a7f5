package repository

import (
	"context"
	"time"

	"fare-crawler-service/internal/domain/entity"
	"fare-crawler-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormProvider hands out a ready database handle
type GormProvider interface {
	DB(ctx context.Context) (*gorm.DB, error)
}

var _ repository.FlightRecordRepository = (*GormFlightRecordRepository)(nil)

// GormFlightRecordRepository stores flight records in the flights_raw table
type GormFlightRecordRepository struct {
	provider  GormProvider
	batchSize int
}

// NewGormFlightRecordRepository creates a new GORM flight record repository
func NewGormFlightRecordRepository(provider GormProvider) *GormFlightRecordRepository {
	return &GormFlightRecordRepository{
		provider:  provider,
		batchSize: 100,
	}
}

// FlightsRaw GORM model for database mapping
type FlightsRaw struct {
	ID                  uint       `gorm:"primaryKey;column:id"`
	Airline             string     `gorm:"column:airline;size:255"`
	DepartureAirport    string     `gorm:"column:departure_airport;size:255"`
	ArrivalAirport      string     `gorm:"column:arrival_airport;size:255"`
	DepartureTime       string     `gorm:"column:departure_time;size:64"`
	ArrivalTime         string     `gorm:"column:arrival_time;size:64"`
	FlightInformation   string     `gorm:"column:flight_information;size:512"`
	Price               *float64   `gorm:"column:price"`
	PlaneNo             string     `gorm:"column:plane_no;size:255"`
	SearchDeparture     string     `gorm:"column:search_departure;size:16;index:idx_flights_raw_search"`
	SearchArrival       string     `gorm:"column:search_arrival;size:16;index:idx_flights_raw_search"`
	SearchDepartureDate string     `gorm:"column:search_departure_date;size:32;index:idx_flights_raw_search"`
	CrawlDate           *time.Time `gorm:"column:crawl_date"`
}

// TableName overrides the default table name
func (FlightsRaw) TableName() string {
	return "flights_raw"
}

func toFlightsRaw(record entity.FlightRecord) FlightsRaw {
	model := FlightsRaw{
		Airline:             record.Airline,
		DepartureAirport:    record.DepartureAirport,
		ArrivalAirport:      record.ArrivalAirport,
		DepartureTime:       record.DepartureTime,
		ArrivalTime:         record.ArrivalTime,
		FlightInformation:   record.TransferInfo,
		Price:               record.Price,
		PlaneNo:             record.LegIdentifiers,
		SearchDeparture:     record.SearchDeparture,
		SearchArrival:       record.SearchArrival,
		SearchDepartureDate: record.SearchDepartureDate,
	}
	if !record.CrawlTimestamp.IsZero() {
		crawled := record.CrawlTimestamp
		model.CrawlDate = &crawled
	}
	return model
}

// Ready opens the connection if needed and verifies it
func (r *GormFlightRecordRepository) Ready(ctx context.Context) error {
	_, err := r.provider.DB(ctx)
	return err
}

// SaveBatch inserts all records in a single transaction
func (r *GormFlightRecordRepository) SaveBatch(ctx context.Context, records []entity.FlightRecord) error {
	if len(records) == 0 {
		return nil
	}

	db, err := r.provider.DB(ctx)
	if err != nil {
		return err
	}

	models := make([]FlightsRaw, 0, len(records))
	for _, record := range records {
		models = append(models, toFlightsRaw(record))
	}

	return db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&models, r.batchSize).Error
	})
}

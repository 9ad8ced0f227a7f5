package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"fare-crawler-service/internal/domain/entity"
	"fare-crawler-service/internal/infrastructure/persistence"
	"fare-crawler-service/pkg/logger"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSQLiteManager(t *testing.T) *persistence.GormManager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crawler.db")
	manager := persistence.NewGormManager(
		func() gorm.Dialector { return sqlite.Open(path) },
		persistence.GormOptions{
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			AutoMigrate:  true,
			Models:       GormModels(),
		},
		logger.NewNopLogger(),
	)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func flightRecord(legs string, price *float64) entity.FlightRecord {
	return entity.FlightRecord{
		Airline:             "东方航空",
		DepartureAirport:    "首都国际机场T3",
		ArrivalAirport:      "虹桥国际机场T2",
		DepartureTime:       "08:00",
		ArrivalTime:         "10:15",
		TransferInfo:        entity.NotAvailable,
		Price:               price,
		LegIdentifiers:      legs,
		SearchDeparture:     "PEK",
		SearchArrival:       "SHA",
		SearchDepartureDate: "2024-02-28",
		CrawlTimestamp:      time.Date(2024, 2, 27, 0, 5, 0, 0, time.UTC),
	}
}

func countFlights(t *testing.T, manager *persistence.GormManager) int64 {
	t.Helper()
	db, err := manager.DB(context.Background())
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&FlightsRaw{}).Count(&count).Error)
	return count
}

func TestGormFlightRecordRepositorySaveBatch(t *testing.T) {
	ctx := context.Background()
	manager := newSQLiteManager(t)
	repo := NewGormFlightRecordRepository(manager)

	require.NoError(t, repo.Ready(ctx))
	require.NoError(t, repo.SaveBatch(ctx, nil))

	price := 1080.0
	require.NoError(t, repo.SaveBatch(ctx, []entity.FlightRecord{
		flightRecord("MU101", &price),
		flightRecord("MU5101 + KE896", nil),
	}))

	db, err := manager.DB(ctx)
	require.NoError(t, err)

	var rows []FlightsRaw
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	require.Equal(t, "MU101", rows[0].PlaneNo)
	require.NotNil(t, rows[0].Price)
	require.InDelta(t, 1080.0, *rows[0].Price, 1e-9)
	require.Equal(t, "首都国际机场T3", rows[0].DepartureAirport)
	require.Equal(t, entity.NotAvailable, rows[0].FlightInformation)
	require.Equal(t, "MU5101 + KE896", rows[1].PlaneNo)
	require.Nil(t, rows[1].Price)
	require.NotNil(t, rows[1].CrawlDate)
	require.True(t, rows[1].CrawlDate.Equal(time.Date(2024, 2, 27, 0, 5, 0, 0, time.UTC)))
}

func TestGormFlightRecordRepositorySaveBatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	manager := newSQLiteManager(t)
	repo := NewGormFlightRecordRepository(manager)

	db, err := manager.DB(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TRIGGER reject_plane BEFORE INSERT ON flights_raw
		WHEN NEW.plane_no = 'XX999'
		BEGIN SELECT RAISE(ABORT, 'rejected plane'); END`).Error)

	// The rejected row lands in the second insert batch, after the first has been written
	records := make([]entity.FlightRecord, 0, 102)
	for i := 0; i < 101; i++ {
		records = append(records, flightRecord(fmt.Sprintf("MU%d", 1000+i), nil))
	}
	records = append(records, flightRecord("XX999", nil))

	err = repo.SaveBatch(ctx, records)
	require.ErrorContains(t, err, "rejected plane")
	require.Zero(t, countFlights(t, manager))

	require.NoError(t, repo.SaveBatch(ctx, records[:101]))
	require.Equal(t, int64(101), countFlights(t, manager))
}

func TestGormFlightRecordRepositoryReopensAfterClose(t *testing.T) {
	ctx := context.Background()
	manager := newSQLiteManager(t)
	repo := NewGormFlightRecordRepository(manager)

	require.NoError(t, repo.SaveBatch(ctx, []entity.FlightRecord{flightRecord("MU101", nil)}))
	require.NoError(t, manager.Close())

	require.NoError(t, repo.SaveBatch(ctx, []entity.FlightRecord{flightRecord("MU102", nil)}))
	require.Equal(t, int64(2), countFlights(t, manager))
}

func TestGormCrawlRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormCrawlRunRepository(newSQLiteManager(t))

	first := &entity.CrawlRun{
		RunID:     "run-1",
		Status:    entity.RunStatusRunning,
		StartedAt: time.Date(2024, 2, 27, 0, 0, 0, 0, time.UTC),
	}
	second := &entity.CrawlRun{
		RunID:     "run-2",
		Status:    entity.RunStatusRunning,
		StartedAt: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.NotZero(t, first.ID)
	require.NotEqual(t, first.ID, second.ID)

	finished := first.StartedAt.Add(4 * time.Minute)
	first.Status = entity.RunStatusCompleted
	first.FinishedAt = &finished
	first.PairsTotal = 12
	first.PairsFailed = 1
	first.RecordsPersisted = 30
	require.NoError(t, repo.Update(ctx, first))

	runs, err := repo.Latest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-2", runs[0].RunID)
	require.Equal(t, entity.RunStatusRunning, runs[0].Status)
	require.Nil(t, runs[0].FinishedAt)

	updated := runs[1]
	require.Equal(t, "run-1", updated.RunID)
	require.Equal(t, entity.RunStatusCompleted, updated.Status)
	require.NotNil(t, updated.FinishedAt)
	require.True(t, updated.FinishedAt.Equal(finished))
	require.Equal(t, 12, updated.PairsTotal)
	require.Equal(t, 1, updated.PairsFailed)
	require.Equal(t, 30, updated.RecordsPersisted)

	latest, err := repo.Latest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	require.Equal(t, "run-2", latest[0].RunID)
}

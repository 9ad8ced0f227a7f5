package repository

import (
	"context"
	"time"

	"fare-crawler-service/internal/domain/entity"
	"fare-crawler-service/internal/domain/repository"

	"gorm.io/gorm"
)

var _ repository.CrawlRunRepository = (*GormCrawlRunRepository)(nil)

// GormCrawlRunRepository implements the CrawlRunRepository interface
type GormCrawlRunRepository struct {
	provider GormProvider
}

// NewGormCrawlRunRepository creates a new GORM crawl run repository
func NewGormCrawlRunRepository(provider GormProvider) *GormCrawlRunRepository {
	return &GormCrawlRunRepository{
		provider: provider,
	}
}

// CrawlRuns GORM model for database mapping
type CrawlRuns struct {
	gorm.Model
	RunID            string     `gorm:"column:run_id;size:36;uniqueIndex"`
	Status           string     `gorm:"column:status;size:16"`
	StartedAt        time.Time  `gorm:"column:started_at"`
	FinishedAt       *time.Time `gorm:"column:finished_at"`
	PairsTotal       int        `gorm:"column:pairs_total"`
	PairsFailed      int        `gorm:"column:pairs_failed"`
	RecordsPersisted int        `gorm:"column:records_persisted"`
	ErrorDetail      string     `gorm:"column:error_detail;size:1024"`
}

// TableName overrides the default table name
func (CrawlRuns) TableName() string {
	return "crawl_runs"
}

// GormModels lists the models that DB_AUTO_MIGRATE creates
func GormModels() []interface{} {
	return []interface{}{&FlightsRaw{}, &CrawlRuns{}}
}

func (m CrawlRuns) toEntity() *entity.CrawlRun {
	return &entity.CrawlRun{
		ID:               m.ID,
		RunID:            m.RunID,
		Status:           m.Status,
		StartedAt:        m.StartedAt,
		FinishedAt:       m.FinishedAt,
		PairsTotal:       m.PairsTotal,
		PairsFailed:      m.PairsFailed,
		RecordsPersisted: m.RecordsPersisted,
		ErrorDetail:      m.ErrorDetail,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// Create inserts a new crawl run into the database
func (r *GormCrawlRunRepository) Create(ctx context.Context, run *entity.CrawlRun) error {
	db, err := r.provider.DB(ctx)
	if err != nil {
		return err
	}

	model := CrawlRuns{
		RunID:            run.RunID,
		Status:           run.Status,
		StartedAt:        run.StartedAt,
		FinishedAt:       run.FinishedAt,
		PairsTotal:       run.PairsTotal,
		PairsFailed:      run.PairsFailed,
		RecordsPersisted: run.RecordsPersisted,
		ErrorDetail:      run.ErrorDetail,
	}

	result := db.Create(&model)
	if result.Error != nil {
		return result.Error
	}

	// Update the entity with the generated ID
	run.ID = model.ID
	run.CreatedAt = model.CreatedAt
	run.UpdatedAt = model.UpdatedAt

	return nil
}

// Update records the outcome of a crawl run
func (r *GormCrawlRunRepository) Update(ctx context.Context, run *entity.CrawlRun) error {
	db, err := r.provider.DB(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&CrawlRuns{}).
		Where("run_id = ?", run.RunID).
		Updates(map[string]interface{}{
			"status":            run.Status,
			"finished_at":       run.FinishedAt,
			"pairs_total":       run.PairsTotal,
			"pairs_failed":      run.PairsFailed,
			"records_persisted": run.RecordsPersisted,
			"error_detail":      run.ErrorDetail,
		})
	return result.Error
}

// Latest returns the most recent runs, newest first
func (r *GormCrawlRunRepository) Latest(ctx context.Context, limit int) ([]*entity.CrawlRun, error) {
	db, err := r.provider.DB(ctx)
	if err != nil {
		return nil, err
	}

	var runs []CrawlRuns
	result := db.Order("started_at DESC").Limit(limit).Find(&runs)
	if result.Error != nil {
		return nil, result.Error
	}

	// Convert to domain entities
	entities := make([]*entity.CrawlRun, 0, len(runs))
	for _, run := range runs {
		entities = append(entities, run.toEntity())
	}
	return entities, nil
}

var _ repository.CrawlRunRepository = NoopCrawlRunRepository{}

// NoopCrawlRunRepository discards run history; used on the Mongo backend
type NoopCrawlRunRepository struct{}

// Create does nothing
func (NoopCrawlRunRepository) Create(ctx context.Context, run *entity.CrawlRun) error { return nil }

// Update does nothing
func (NoopCrawlRunRepository) Update(ctx context.Context, run *entity.CrawlRun) error { return nil }

// Latest always returns an empty history
func (NoopCrawlRunRepository) Latest(ctx context.Context, limit int) ([]*entity.CrawlRun, error) {
	return nil, nil
}

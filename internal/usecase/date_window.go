package usecase

import (
	"time"

	"fare-crawler-service/internal/domain/entity"
)

// SearchDates returns the days from tomorrow through `days` days ahead of now
func SearchDates(now time.Time, days int) []string {
	dates := make([]string, 0, days)
	for i := 1; i <= days; i++ {
		dates = append(dates, now.AddDate(0, 0, i).Format(entity.SearchDateLayout))
	}
	return dates
}

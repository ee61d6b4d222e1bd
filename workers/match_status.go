// workers/match_status.go
package workers

import (
	"context"
	"log"
	"time"

	"arena-ledger-system/models"
	"arena-ledger-system/services"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// StartMatchStatusJob promotes upcoming matches to live once their start
// time passes. Each promotion goes through the ledger so it cannot race a
// concurrent join or admin edit.
func StartMatchStatusJob(db *gorm.DB, matchService *services.MatchService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var matches []models.Match
			now := time.Now()
			err := db.Where("status = ? AND start_time <= ?", models.MatchStatusUpcoming, now).
				Find(&matches).Error
			if err != nil {
				log.Printf("[MatchStatus] DB error: %v", err)
				return
			}

			for _, m := range matches {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := matchService.SetStatus(ctx, m.ID, models.MatchStatusLive); err != nil {
					log.Printf("[MatchStatus] Failed to set match %s live: %v", m.ID, err)
				} else {
					log.Printf("🎮 Match %s is now live", m.Name)
				}
				cancel()
			}
		}),
	)
}

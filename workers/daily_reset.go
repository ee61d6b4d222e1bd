// workers/daily_reset.go
package workers

import (
	"log"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// StartDailyResetJob zeroes every user's per-day ad counters at midnight.
// The bulk update bumps versions so any in-flight optimistic transaction
// over a user record observes the reset and retries.
func StartDailyResetJob(db *gorm.DB) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.CronJob("0 0 * * *", false),
		gocron.NewTask(func() {
			res := db.Exec(`UPDATE portal_users
				SET ads_watched_today = 0,
				    earn_ads_watched_today = 0,
				    version = version + 1
				WHERE ads_watched_today > 0 OR earn_ads_watched_today > 0`)
			if res.Error != nil {
				log.Printf("[DailyReset] DB error: %v", res.Error)
				return
			}
			log.Printf("🌙 Daily ad counters reset for %d users", res.RowsAffected)
		}),
	)
}

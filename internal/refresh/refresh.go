// Package refresh reloads the source CSVs on a cron schedule and invalidates
// the result cache after a successful reload.
package refresh

import (
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"navira/internal/config"
	"navira/internal/data"
	"navira/internal/storage/sqlite"
)

// StartScheduler starts the background reload loop. Disabled when no
// schedule is configured or the expression does not parse.
func StartScheduler(cfg config.Config, store *data.Store, cacheDB *sql.DB) {
	schedule := strings.TrimSpace(cfg.RefreshSchedule)
	if schedule == "" {
		log.Println("Data refresh disabled (refresh_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid refresh_schedule '%s': %v, data refresh disabled", schedule, err)
		return
	}

	log.Printf("Data refresh scheduled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next data refresh at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			if err := store.Reload(cfg); err != nil {
				log.Printf("Data refresh error: %v", err)
				continue
			}
			if cacheDB != nil {
				if err := sqlite.ClearCache(cacheDB); err != nil {
					log.Printf("Cache clear error after refresh: %v", err)
				} else {
					log.Println("Result cache cleared after refresh")
				}
			}
		}
	}()
}

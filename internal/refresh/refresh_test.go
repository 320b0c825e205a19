package refresh

import (
	"testing"

	"navira/internal/config"
	"navira/internal/data"
)

func TestStartSchedulerDisabledWithoutSchedule(t *testing.T) {
	// Empty and whitespace-only schedules must return without starting a
	// loop or touching the store.
	for _, schedule := range []string{"", "   "} {
		StartScheduler(config.Config{RefreshSchedule: schedule}, data.NewStore(), nil)
	}
}

func TestStartSchedulerRejectsInvalidExpression(t *testing.T) {
	for _, schedule := range []string{"not-a-cron", "* * *", "61 * * * *"} {
		StartScheduler(config.Config{RefreshSchedule: schedule}, data.NewStore(), nil)
	}
}

func TestStartSchedulerAcceptsStandardExpression(t *testing.T) {
	// A valid five-field expression starts the background loop and returns
	// immediately; the first reload only happens at the next cron tick, so
	// the store must still hold its empty snapshot here.
	store := data.NewStore()
	StartScheduler(config.Config{RefreshSchedule: "0 6 * * *"}, store, nil)
	if store.Snapshot().Recruitment.NumRows() != 0 {
		t.Fatal("scheduler must not reload before the first tick")
	}
}

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/database"
)

// MaintenanceJob checkpoints the WAL and integrity-checks every database.
// Scheduled nightly, outside trading hours.
type MaintenanceJob struct {
	dbs map[string]*database.DB
	log zerolog.Logger
}

// NewMaintenanceJob creates a database maintenance job
func NewMaintenanceJob(dbs map[string]*database.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		dbs: dbs,
		log: log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string { return "database_maintenance" }

// Run checkpoints and checks each database in turn. The first failure stops
// the run so a corrupted store is reported loudly rather than papered over.
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for name, db := range j.dbs {
		if err := db.QuickCheck(ctx); err != nil {
			return fmt.Errorf("quick check failed for %s: %w", name, err)
		}
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			return fmt.Errorf("WAL checkpoint failed for %s: %w", name, err)
		}
		j.log.Debug().Str("database", name).Msg("Maintenance pass completed")
	}
	return nil
}

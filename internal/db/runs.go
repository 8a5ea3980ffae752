package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Fantasim/splreaper/internal/models"
)

// ErrRunNotFound is returned when a run ID has no ledger row.
var ErrRunNotFound = errors.New("run not found")

// StartRun records the beginning of a cleanup run and its planned account counts.
func (d *DB) StartRun(runID, owner string, burnPlanned, closePlanned int) error {
	slog.Debug("starting ledger run",
		"runID", runID,
		"owner", owner,
		"burnPlanned", burnPlanned,
		"closePlanned", closePlanned,
	)

	_, err := d.conn.Exec(
		`INSERT INTO runs (id, owner, burn_planned, close_planned) VALUES (?, ?, ?, ?)`,
		runID, owner, burnPlanned, closePlanned,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}

	return nil
}

// FinishRun stamps finished_at and stores the per-phase batch counts of the summary.
func (d *DB) FinishRun(summary *models.RunSummary) error {
	res, err := d.conn.Exec(
		`UPDATE runs
		 SET burn_confirmed = ?, burn_failed = ?, close_confirmed = ?, close_failed = ?,
		     finished_at = datetime('now')
		 WHERE id = ?`,
		summary.Burn.ConfirmedCount,
		summary.Burn.FailedCount,
		summary.Close.ConfirmedCount,
		summary.Close.FailedCount,
		summary.RunID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", summary.RunID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s rows affected: %w", summary.RunID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", summary.RunID, ErrRunNotFound)
	}

	slog.Info("ledger run finished",
		"runID", summary.RunID,
		"burnConfirmed", summary.Burn.ConfirmedCount,
		"burnFailed", summary.Burn.FailedCount,
		"closeConfirmed", summary.Close.ConfirmedCount,
		"closeFailed", summary.Close.FailedCount,
	)

	return nil
}

// GetRun returns the ledger row for a run.
func (d *DB) GetRun(runID string) (*models.RunRecord, error) {
	var r models.RunRecord
	var finishedAt sql.NullString

	err := d.conn.QueryRow(
		`SELECT id, owner, burn_planned, close_planned, burn_confirmed, burn_failed,
		        close_confirmed, close_failed, started_at, finished_at
		 FROM runs WHERE id = ?`,
		runID,
	).Scan(
		&r.ID, &r.Owner, &r.BurnPlanned, &r.ClosePlanned, &r.BurnConfirmed, &r.BurnFailed,
		&r.CloseConfirmed, &r.CloseFailed, &r.StartedAt, &finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	r.FinishedAt = finishedAt.String
	return &r, nil
}

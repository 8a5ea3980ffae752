package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fantasim/splreaper/internal/models"
)

// RecordSubmission appends one batch result to the ledger.
func (d *DB) RecordSubmission(runID string, r models.SubmissionResult) error {
	accounts, err := json.Marshal(r.Accounts)
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}

	_, err = d.conn.Exec(
		`INSERT INTO submissions (run_id, phase, batch_index, signature, slot, batch_size, accounts, outcome, error, error_code, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		string(r.Phase),
		r.BatchIndex,
		nullString(r.Signature),
		nullSlot(r.Slot),
		r.BatchSize,
		string(accounts),
		string(r.Outcome),
		nullString(r.Error),
		nullString(r.ErrorCode),
		r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert submission %s/%d: %w", r.Phase, r.BatchIndex, err)
	}

	slog.Debug("submission recorded",
		"runID", runID,
		"phase", r.Phase,
		"batchIndex", r.BatchIndex,
		"signature", r.Signature,
		"slot", r.Slot,
		"outcome", r.Outcome,
	)

	return nil
}

// ListSubmissions returns the submissions of a run, burns first, each phase in batch order.
func (d *DB) ListSubmissions(runID string) ([]models.SubmissionResult, error) {
	rows, err := d.conn.Query(
		`SELECT phase, batch_index, signature, slot, batch_size, accounts, outcome, error, error_code, duration_ms
		 FROM submissions
		 WHERE run_id = ?
		 ORDER BY CASE phase WHEN 'burn' THEN 0 ELSE 1 END, batch_index`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query submissions for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []models.SubmissionResult
	for rows.Next() {
		var (
			r                          models.SubmissionResult
			phase, outcome, accounts   string
			signature, errMsg, errCode sql.NullString
			slot                       sql.NullInt64
			durationMs                 int64
		)
		if err := rows.Scan(&phase, &r.BatchIndex, &signature, &slot, &r.BatchSize, &accounts, &outcome, &errMsg, &errCode, &durationMs); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if err := json.Unmarshal([]byte(accounts), &r.Accounts); err != nil {
			return nil, fmt.Errorf("decode accounts of %s/%d: %w", phase, r.BatchIndex, err)
		}
		r.Phase = models.Phase(phase)
		r.Outcome = models.Outcome(outcome)
		r.Signature = signature.String
		r.Slot = uint64(slot.Int64)
		r.Error = errMsg.String
		r.ErrorCode = errCode.String
		r.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}

	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullSlot stores slot 0 (no confirmation) as NULL.
func nullSlot(slot uint64) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(slot), Valid: slot != 0}
}

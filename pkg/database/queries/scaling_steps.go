package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

// ScalingStepRepository stores the audit trail of runs. Nothing read back
// from it ever feeds a scaling decision.
type ScalingStepRepository struct {
	db *sql.DB
}

func NewScalingStepRepository(db *sql.DB) *ScalingStepRepository {
	return &ScalingStepRepository{db: db}
}

type ScalingStepRecord struct {
	ID         int64     `json:"id" yaml:"id"`
	RunID      string    `json:"run_id" yaml:"run_id"`
	RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`
	Day        string    `json:"day" yaml:"day"`
	Bucket     string    `json:"bucket" yaml:"bucket"`
	Resource   string    `json:"resource" yaml:"resource"`
	Dimension  string    `json:"dimension" yaml:"dimension"`
	Target     string    `json:"target" yaml:"target"`
	Action     string    `json:"action" yaml:"action"`
	Status     string    `json:"status" yaml:"status"`
	Reason     string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewScalingStepRecord flattens a step of a run into a row.
func NewScalingStepRecord(runID string, state models.CalendarState, step models.StepResult, at time.Time) ScalingStepRecord {
	rec := ScalingStepRecord{
		RunID:      runID,
		RecordedAt: at,
		Day:        state.Day.String(),
		Bucket:     string(state.Bucket),
		Resource:   step.Resource,
		Dimension:  string(step.Dimension),
		Target:     step.Target,
		Action:     string(step.Action),
		Status:     string(step.Status),
		Reason:     step.Reason,
	}
	if step.Err != nil {
		rec.Error = step.Err.Error()
	}
	return rec
}

type RunRecord struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Day        string    `json:"day"`
	Bucket     string    `json:"bucket"`
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
}

func (r *ScalingStepRepository) Insert(ctx context.Context, rec *ScalingStepRecord) error {
	query := `
		INSERT INTO scaling_steps
			(run_id, recorded_at, day, bucket, resource, dimension,
			 target, action, status, reason, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query,
		rec.RunID,
		rec.RecordedAt,
		rec.Day,
		rec.Bucket,
		rec.Resource,
		rec.Dimension,
		rec.Target,
		rec.Action,
		rec.Status,
		rec.Reason,
		rec.Error,
	).Scan(&rec.ID)
}

func (r *ScalingStepRepository) InsertRun(ctx context.Context, run RunRecord) error {
	query := `
		INSERT INTO runs (run_id, started_at, finished_at, day, bucket, success, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			success = EXCLUDED.success,
			message = EXCLUDED.message`

	_, err := r.db.ExecContext(ctx, query,
		run.RunID, run.StartedAt, run.FinishedAt, run.Day, run.Bucket, run.Success, run.Message,
	)
	return err
}

func (r *ScalingStepRepository) GetRecent(ctx context.Context, limit int) ([]ScalingStepRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, run_id, recorded_at, day, bucket, resource, dimension,
			   target, action, status, reason, error
		FROM scaling_steps
		ORDER BY recorded_at DESC, id DESC
		LIMIT $1`

	return r.query(ctx, query, limit)
}

func (r *ScalingStepRepository) GetByResource(ctx context.Context, resource string, from, to time.Time, limit int) ([]ScalingStepRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, run_id, recorded_at, day, bucket, resource, dimension,
			   target, action, status, reason, error
		FROM scaling_steps
		WHERE resource = $1 AND recorded_at >= $2 AND recorded_at <= $3
		ORDER BY recorded_at DESC, id DESC
		LIMIT $4`

	return r.query(ctx, query, resource, from, to, limit)
}

func (r *ScalingStepRepository) query(ctx context.Context, query string, args ...interface{}) ([]ScalingStepRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []ScalingStepRecord
	for rows.Next() {
		var s ScalingStepRecord
		err := rows.Scan(
			&s.ID, &s.RunID, &s.RecordedAt, &s.Day, &s.Bucket, &s.Resource,
			&s.Dimension, &s.Target, &s.Action, &s.Status, &s.Reason, &s.Error,
		)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}

	return steps, rows.Err()
}

type ScalingStats struct {
	From           time.Time `json:"from" yaml:"from"`
	To             time.Time `json:"to" yaml:"to"`
	ScaleUpCount   int       `json:"scale_up_count" yaml:"scale_up_count"`
	ScaleDownCount int       `json:"scale_down_count" yaml:"scale_down_count"`
	SuccessCount   int       `json:"success_count" yaml:"success_count"`
	FailedCount    int       `json:"failed_count" yaml:"failed_count"`
	SkippedCount   int       `json:"skipped_count" yaml:"skipped_count"`
}

func (r *ScalingStepRepository) GetStats(ctx context.Context, from, to time.Time) (*ScalingStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE action = 'SCALE_UP') AS scale_up_count,
			COUNT(*) FILTER (WHERE action = 'SCALE_DOWN') AS scale_down_count,
			COUNT(*) FILTER (WHERE status = 'success') AS success_count,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed_count,
			COUNT(*) FILTER (WHERE status = 'skipped') AS skipped_count
		FROM scaling_steps
		WHERE recorded_at >= $1 AND recorded_at <= $2`

	var stats ScalingStats
	err := r.db.QueryRowContext(ctx, query, from, to).Scan(
		&stats.ScaleUpCount, &stats.ScaleDownCount,
		&stats.SuccessCount, &stats.FailedCount, &stats.SkippedCount,
	)
	if err != nil {
		return nil, err
	}

	stats.From = from
	stats.To = to
	return &stats, nil
}

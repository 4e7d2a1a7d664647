package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"royaltyhub/src/models"
	"royaltyhub/src/schemas"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScheduleRepository interface {
	Create(ctx context.Context, report *models.ScheduledReport) error
	Update(ctx context.Context, report *models.ScheduledReport) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.ScheduledReport, error)
	List(ctx context.Context, filters schemas.ScheduleListFilters) ([]models.ScheduledReport, error)
	FindDue(ctx context.Context, now time.Time) ([]models.ScheduledReport, error)
	MarkRun(ctx context.Context, id uint, lastRun, nextRun time.Time) error
}

type scheduleRepo struct {
	db *pgxpool.Pool
}

func NewScheduleRepository(db *pgxpool.Pool) ScheduleRepository {
	return &scheduleRepo{db: db}
}

const scheduleColumns = `id, template_id, name, description, type, schedule,
	filters, recipients, is_active, last_run_at, next_run_at, created_at`

func (r *scheduleRepo) Create(ctx context.Context, report *models.ScheduledReport) error {
	filters, err := json.Marshal(report.Filters)
	if err != nil {
		return fmt.Errorf("failed to serialize filters: %w", err)
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO scheduled_reports
		(template_id, name, description, type, schedule, filters, recipients, is_active, next_run_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		report.TemplateID,
		report.Name,
		report.Description,
		report.Type,
		report.Schedule,
		filters,
		report.Recipients,
		report.IsActive,
		report.NextRunAt,
	).Scan(&report.ID, &report.CreatedAt)
}

func (r *scheduleRepo) Update(ctx context.Context, report *models.ScheduledReport) error {
	filters, err := json.Marshal(report.Filters)
	if err != nil {
		return fmt.Errorf("failed to serialize filters: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE scheduled_reports
		SET template_id = $1,
			name = $2,
			description = $3,
			type = $4,
			schedule = $5,
			filters = $6,
			recipients = $7,
			is_active = $8,
			next_run_at = $9
		WHERE id = $10`,
		report.TemplateID,
		report.Name,
		report.Description,
		report.Type,
		report.Schedule,
		filters,
		report.Recipients,
		report.IsActive,
		report.NextRunAt,
		report.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *scheduleRepo) Delete(ctx context.Context, id uint) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM scheduled_reports WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *scheduleRepo) GetByID(ctx context.Context, id uint) (*models.ScheduledReport, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+scheduleColumns+" FROM scheduled_reports WHERE id = $1", id)

	report, err := scanScheduledReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return report, err
}

func (r *scheduleRepo) List(ctx context.Context, filters schemas.ScheduleListFilters) ([]models.ScheduledReport, error) {
	query := "SELECT " + scheduleColumns + " FROM scheduled_reports WHERE 1=1"
	params := []interface{}{}

	if filters.Type != "" {
		params = append(params, filters.Type)
		query += fmt.Sprintf(" AND type = $%d", len(params))
	}
	if filters.IsActive != nil {
		params = append(params, *filters.IsActive)
		query += fmt.Sprintf(" AND is_active = $%d", len(params))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectScheduledReports(rows)
}

// FindDue returns the active records whose next run is at or before now.
// Inactive records are excluded here regardless of their next_run_at.
func (r *scheduleRepo) FindDue(ctx context.Context, now time.Time) ([]models.ScheduledReport, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+scheduleColumns+" FROM scheduled_reports WHERE is_active AND next_run_at <= $1",
		now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectScheduledReports(rows)
}

func (r *scheduleRepo) MarkRun(ctx context.Context, id uint, lastRun, nextRun time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE scheduled_reports
		SET last_run_at = $1, next_run_at = $2
		WHERE id = $3`,
		lastRun, nextRun, id)
	return err
}

func scanScheduledReport(row pgx.Row) (*models.ScheduledReport, error) {
	var (
		report  models.ScheduledReport
		filters []byte
	)
	err := row.Scan(
		&report.ID,
		&report.TemplateID,
		&report.Name,
		&report.Description,
		&report.Type,
		&report.Schedule,
		&filters,
		&report.Recipients,
		&report.IsActive,
		&report.LastRunAt,
		&report.NextRunAt,
		&report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(filters, &report.Filters); err != nil {
		return nil, fmt.Errorf("failed to deserialize filters: %w", err)
	}
	return &report, nil
}

func collectScheduledReports(rows pgx.Rows) ([]models.ScheduledReport, error) {
	var reports []models.ScheduledReport
	for rows.Next() {
		report, err := scanScheduledReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

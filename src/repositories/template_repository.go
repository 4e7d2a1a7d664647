package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"royaltyhub/src/models"
	"royaltyhub/src/schemas"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TemplateRepository interface {
	Create(ctx context.Context, template *models.ReportTemplate) error
	Update(ctx context.Context, id uint, patch *schemas.UpdateTemplateRequest) (*models.ReportTemplate, error)
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.ReportTemplate, error)
	List(ctx context.Context, filters schemas.TemplateListFilters) ([]models.ReportTemplate, error)
}

type templateRepo struct {
	db *pgxpool.Pool
}

func NewTemplateRepository(db *pgxpool.Pool) TemplateRepository {
	return &templateRepo{db: db}
}

func (r *templateRepo) Create(ctx context.Context, template *models.ReportTemplate) error {
	config, err := json.Marshal(template.Config)
	if err != nil {
		return fmt.Errorf("failed to serialize template config: %w", err)
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO report_templates (name, description, type, config, is_system)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		template.Name,
		template.Description,
		template.Type,
		config,
		template.IsSystem,
	).Scan(&template.ID, &template.CreatedAt)
}

func (r *templateRepo) Update(ctx context.Context, id uint, patch *schemas.UpdateTemplateRequest) (*models.ReportTemplate, error) {
	template, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if template.IsSystem {
		return nil, ErrSystemTemplate
	}

	if patch.Name != nil {
		template.Name = *patch.Name
	}
	if patch.Description != nil {
		template.Description = *patch.Description
	}
	if patch.Type != nil {
		template.Type = *patch.Type
	}
	if patch.Config != nil {
		template.Config = *patch.Config
	}

	config, err := json.Marshal(template.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize template config: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE report_templates
		SET name = $1, description = $2, type = $3, config = $4
		WHERE id = $5 AND NOT is_system`,
		template.Name,
		template.Description,
		template.Type,
		config,
		id,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		// Zero rows means the row was deleted since the read above, or it
		// was flagged as a system template in the meantime.
		if _, err := r.GetByID(ctx, id); errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrSystemTemplate
	}

	return template, nil
}

func (r *templateRepo) Delete(ctx context.Context, id uint) error {
	var isSystem bool
	err := r.db.QueryRow(ctx,
		"SELECT is_system FROM report_templates WHERE id = $1", id,
	).Scan(&isSystem)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if isSystem {
		return ErrSystemTemplate
	}

	_, err = r.db.Exec(ctx,
		"DELETE FROM report_templates WHERE id = $1 AND NOT is_system", id)
	return err
}

func (r *templateRepo) GetByID(ctx context.Context, id uint) (*models.ReportTemplate, error) {
	var (
		template models.ReportTemplate
		config   []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, name, description, type, config, is_system, created_at
		FROM report_templates WHERE id = $1`, id,
	).Scan(
		&template.ID,
		&template.Name,
		&template.Description,
		&template.Type,
		&config,
		&template.IsSystem,
		&template.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(config, &template.Config); err != nil {
		return nil, fmt.Errorf("failed to deserialize template config: %w", err)
	}
	return &template, nil
}

func (r *templateRepo) List(ctx context.Context, filters schemas.TemplateListFilters) ([]models.ReportTemplate, error) {
	query := `
		SELECT id, name, description, type, config, is_system, created_at
		FROM report_templates WHERE 1=1`
	params := []interface{}{}

	if filters.Type != "" {
		params = append(params, filters.Type)
		query += fmt.Sprintf(" AND type = $%d", len(params))
	}
	if filters.IsSystem != nil {
		params = append(params, *filters.IsSystem)
		query += fmt.Sprintf(" AND is_system = $%d", len(params))
	}
	query += " ORDER BY is_system DESC, name ASC"

	rows, err := r.db.Query(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []models.ReportTemplate
	for rows.Next() {
		var (
			template models.ReportTemplate
			config   []byte
		)
		if err := rows.Scan(
			&template.ID,
			&template.Name,
			&template.Description,
			&template.Type,
			&config,
			&template.IsSystem,
			&template.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(config, &template.Config); err != nil {
			return nil, fmt.Errorf("failed to deserialize template config: %w", err)
		}
		templates = append(templates, template)
	}
	return templates, rows.Err()
}

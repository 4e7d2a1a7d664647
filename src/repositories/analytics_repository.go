package repositories

import (
	"context"
	"fmt"
	"time"

	"royaltyhub/src/models"
	"royaltyhub/src/schemas"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalyticsStore is the read interface to the backing data store: a small
// fixed set of named queries over the works, users and royalty_distributions
// tables. The resolver maps metric/query/source identifiers onto these.
type AnalyticsStore interface {
	CountWorks(ctx context.Context) (float64, error)
	CountWorksSince(ctx context.Context, since time.Time) (float64, error)
	SumRoyalties(ctx context.Context) (float64, error)
	SumRoyaltiesSince(ctx context.Context, since time.Time) (float64, error)
	CountUsers(ctx context.Context) (float64, error)
	CountActiveUsersSince(ctx context.Context, since time.Time) (float64, error)

	WorksByCategory(ctx context.Context, filters models.FilterSet) ([]schemas.DataPoint, error)
	RoyaltiesTrend(ctx context.Context, since time.Time, filters models.FilterSet) ([]schemas.DataPoint, error)
	WorksTrend(ctx context.Context, since time.Time, filters models.FilterSet) ([]schemas.DataPoint, error)

	TopWorks(ctx context.Context, since time.Time, filters models.FilterSet, sort *models.SortSpec, limit int) ([]map[string]interface{}, error)
	RecentDistributions(ctx context.Context, since time.Time, filters models.FilterSet, sort *models.SortSpec, limit int) ([]map[string]interface{}, error)
}

type analyticsRepo struct {
	db *pgxpool.Pool
}

func NewAnalyticsRepository(db *pgxpool.Pool) AnalyticsStore {
	return &analyticsRepo{db: db}
}

func (r *analyticsRepo) scalar(ctx context.Context, query string, params ...interface{}) (float64, error) {
	var value *float64
	if err := r.db.QueryRow(ctx, query, params...).Scan(&value); err != nil {
		return 0, err
	}
	if value == nil {
		return 0, nil
	}
	return *value, nil
}

func (r *analyticsRepo) CountWorks(ctx context.Context) (float64, error) {
	return r.scalar(ctx, "SELECT COUNT(*)::float8 FROM works")
}

func (r *analyticsRepo) CountWorksSince(ctx context.Context, since time.Time) (float64, error) {
	return r.scalar(ctx, "SELECT COUNT(*)::float8 FROM works WHERE created_at >= $1", since)
}

func (r *analyticsRepo) SumRoyalties(ctx context.Context) (float64, error) {
	return r.scalar(ctx, "SELECT SUM(amount)::float8 FROM royalty_distributions")
}

func (r *analyticsRepo) SumRoyaltiesSince(ctx context.Context, since time.Time) (float64, error) {
	return r.scalar(ctx, "SELECT SUM(amount)::float8 FROM royalty_distributions WHERE created_at >= $1", since)
}

func (r *analyticsRepo) CountUsers(ctx context.Context) (float64, error) {
	return r.scalar(ctx, "SELECT COUNT(*)::float8 FROM users")
}

func (r *analyticsRepo) CountActiveUsersSince(ctx context.Context, since time.Time) (float64, error) {
	return r.scalar(ctx,
		"SELECT COUNT(DISTINCT creator_id)::float8 FROM works WHERE created_at >= $1", since)
}

func (r *analyticsRepo) WorksByCategory(ctx context.Context, filters models.FilterSet) ([]schemas.DataPoint, error) {
	query := `
		SELECT category, COUNT(*)::float8 AS count
		FROM works WHERE 1=1`
	params := []interface{}{}

	if filters.Status != "" {
		params = append(params, filters.Status)
		query += fmt.Sprintf(" AND status = $%d", len(params))
	}
	query += " GROUP BY category ORDER BY count DESC"

	return r.collectPoints(ctx, query, params...)
}

func (r *analyticsRepo) RoyaltiesTrend(ctx context.Context, since time.Time, filters models.FilterSet) ([]schemas.DataPoint, error) {
	query := `
		SELECT to_char(DATE_TRUNC('day', created_at), 'YYYY-MM-DD') AS date,
			SUM(amount)::float8 AS amount
		FROM royalty_distributions
		WHERE created_at >= $1`
	params := []interface{}{since}

	if filters.MinAmount != nil {
		params = append(params, *filters.MinAmount)
		query += fmt.Sprintf(" AND amount >= $%d", len(params))
	}
	query += " GROUP BY DATE_TRUNC('day', created_at) ORDER BY date"

	return r.collectPoints(ctx, query, params...)
}

func (r *analyticsRepo) WorksTrend(ctx context.Context, since time.Time, filters models.FilterSet) ([]schemas.DataPoint, error) {
	query := `
		SELECT to_char(DATE_TRUNC('day', created_at), 'YYYY-MM-DD') AS date,
			COUNT(*)::float8 AS count
		FROM works
		WHERE created_at >= $1`
	params := []interface{}{since}

	if filters.Category != "" {
		params = append(params, filters.Category)
		query += fmt.Sprintf(" AND category = $%d", len(params))
	}
	query += " GROUP BY DATE_TRUNC('day', created_at) ORDER BY date"

	return r.collectPoints(ctx, query, params...)
}

func (r *analyticsRepo) collectPoints(ctx context.Context, query string, params ...interface{}) ([]schemas.DataPoint, error) {
	rows, err := r.db.Query(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []schemas.DataPoint{}
	for rows.Next() {
		var point schemas.DataPoint
		var value *float64
		if err := rows.Scan(&point.Dimension, &value); err != nil {
			return nil, err
		}
		if value != nil {
			point.Value = *value
		}
		points = append(points, point)
	}
	return points, rows.Err()
}

// Sortable columns per table source, mapped onto safe SQL expressions.
var tableSortColumns = map[string]map[string]string{
	"top_works": {
		"title":      "w.title",
		"creator":    "creator",
		"category":   "w.category",
		"royalties":  "royalties",
		"created_at": "w.created_at",
	},
	"recent_distributions": {
		"date":             "rd.created_at",
		"work_title":       "work_title",
		"creator":          "creator",
		"recipient":        "rd.recipient_address",
		"amount":           "rd.amount",
		"transaction_hash": "rd.transaction_hash",
	},
}

func orderClause(source string, sort *models.SortSpec, fallback string) string {
	if sort == nil {
		return " ORDER BY " + fallback
	}
	expr, ok := tableSortColumns[source][sort.Column]
	if !ok {
		return " ORDER BY " + fallback
	}
	direction := "ASC"
	if sort.Direction == models.SortDesc {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", expr, direction)
}

func (r *analyticsRepo) TopWorks(ctx context.Context, since time.Time, filters models.FilterSet, sort *models.SortSpec, limit int) ([]map[string]interface{}, error) {
	query := `
		SELECT w.title,
			u.name AS creator,
			w.category,
			COALESCE(SUM(rd.amount), 0)::float8 AS royalties,
			w.created_at
		FROM works w
		LEFT JOIN users u ON w.creator_id = u.id
		LEFT JOIN royalty_distributions rd ON w.token_id = rd.token_id
		WHERE w.created_at >= $1`
	params := []interface{}{since}

	if filters.Category != "" {
		params = append(params, filters.Category)
		query += fmt.Sprintf(" AND w.category = $%d", len(params))
	}
	if filters.Creator != "" {
		params = append(params, filters.Creator)
		query += fmt.Sprintf(" AND u.name = $%d", len(params))
	}
	if filters.Status != "" {
		params = append(params, filters.Status)
		query += fmt.Sprintf(" AND w.status = $%d", len(params))
	}
	query += " GROUP BY w.id, w.title, u.name, w.category, w.created_at"
	if filters.MinAmount != nil {
		params = append(params, *filters.MinAmount)
		query += fmt.Sprintf(" HAVING COALESCE(SUM(rd.amount), 0) >= $%d", len(params))
	}
	query += orderClause("top_works", sort, "royalties DESC")
	params = append(params, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(params))

	return r.collectRows(ctx, query, params...)
}

func (r *analyticsRepo) RecentDistributions(ctx context.Context, since time.Time, filters models.FilterSet, sort *models.SortSpec, limit int) ([]map[string]interface{}, error) {
	query := `
		SELECT rd.created_at AS date,
			w.title AS work_title,
			u.name AS creator,
			rd.recipient_address AS recipient,
			rd.amount::float8 AS amount,
			rd.transaction_hash
		FROM royalty_distributions rd
		JOIN works w ON rd.token_id = w.token_id
		JOIN users u ON w.creator_id = u.id
		WHERE rd.created_at >= $1`
	params := []interface{}{since}

	if filters.MinAmount != nil {
		params = append(params, *filters.MinAmount)
		query += fmt.Sprintf(" AND rd.amount >= $%d", len(params))
	}
	if filters.Category != "" {
		params = append(params, filters.Category)
		query += fmt.Sprintf(" AND w.category = $%d", len(params))
	}
	if filters.Creator != "" {
		params = append(params, filters.Creator)
		query += fmt.Sprintf(" AND u.name = $%d", len(params))
	}
	query += orderClause("recent_distributions", sort, "rd.created_at DESC")
	params = append(params, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(params))

	return r.collectRows(ctx, query, params...)
}

func (r *analyticsRepo) collectRows(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error) {
	rows, err := r.db.Query(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToMap)
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"royaltyhub/src/models"
	"royaltyhub/src/repositories"
	"royaltyhub/src/utils"
)

// SectionDataTTL bounds how long resolved section data is memoized.
const SectionDataTTL = 5 * time.Minute

type ResolverServiceI interface {
	ResolveSection(ctx context.Context, section models.Section, filters models.FilterSet) (json.RawMessage, error)
}

// ResolverService turns a section definition plus a merged filter set into
// concrete data, memoizing results through the cache layer.
type ResolverService struct {
	store repositories.AnalyticsStore
	cache utils.CacheStore
	ttl   time.Duration
	now   func() time.Time
}

func NewResolverService(store repositories.AnalyticsStore, cache utils.CacheStore) *ResolverService {
	return &ResolverService{
		store: store,
		cache: cache,
		ttl:   SectionDataTTL,
		now:   time.Now,
	}
}

// SectionCacheKey derives a deterministic digest of the section definition
// and the merged filters.
func SectionCacheKey(section models.Section, filters models.FilterSet) string {
	sectionJSON, _ := json.Marshal(section)
	filtersJSON, _ := json.Marshal(filters)
	return "report:section:" + utils.DeterministicKey(string(sectionJSON), string(filtersJSON))
}

// ResolveSection is a memoized read-through: a cache hit is returned
// unmodified without refreshing its TTL; a miss dispatches on the section
// tag and writes the result back with a fixed TTL before returning.
func (rs *ResolverService) ResolveSection(ctx context.Context, section models.Section, filters models.FilterSet) (json.RawMessage, error) {
	logger := utils.LoggerFromContext(ctx)
	key := SectionCacheKey(section, filters)

	var cached json.RawMessage
	if ok, err := rs.cache.Get(ctx, key, &cached); err != nil {
		logger.WithField("key", key).Warning("cache read failed, treating as miss: ", err)
	} else if ok {
		return cached, nil
	}

	var (
		data interface{}
		err  error
	)
	switch section.Type {
	case models.SectionSummary:
		data, err = rs.resolveSummary(ctx, section.Metrics, filters)
	case models.SectionChart:
		data, err = rs.resolveChart(ctx, section.Query, filters)
	case models.SectionTable:
		data, err = rs.resolveTable(ctx, section, filters)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSectionType, section.Type)
	}
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	if err := rs.cache.Set(ctx, key, raw, rs.ttl); err != nil {
		logger.WithField("key", key).Warning("cache write failed: ", err)
	}
	return raw, nil
}

func (rs *ResolverService) window(filters models.FilterSet) (time.Time, error) {
	return utils.PeriodWindow(filters.PeriodOrDefault(), rs.now())
}

func (rs *ResolverService) resolveSummary(ctx context.Context, metrics []string, filters models.FilterSet) (map[string]float64, error) {
	since, err := rs.window(filters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedQuery, err)
	}

	data := make(map[string]float64, len(metrics))
	for _, metric := range metrics {
		var value float64
		switch metric {
		case "total_works":
			value, err = rs.store.CountWorks(ctx)
		case "new_works":
			value, err = rs.store.CountWorksSince(ctx, since)
		case "total_royalties":
			value, err = rs.store.SumRoyalties(ctx)
		case "royalties_period":
			value, err = rs.store.SumRoyaltiesSince(ctx, since)
		case "total_users":
			value, err = rs.store.CountUsers(ctx)
		case "active_users":
			value, err = rs.store.CountActiveUsersSince(ctx, since)
		default:
			return nil, fmt.Errorf("%w: metric %s", ErrUnsupportedQuery, metric)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: metric %s: %w", ErrDataSource, metric, err)
		}
		data[metric] = value
	}
	return data, nil
}

func (rs *ResolverService) resolveChart(ctx context.Context, query string, filters models.FilterSet) (interface{}, error) {
	since, err := rs.window(filters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedQuery, err)
	}

	var data interface{}
	switch query {
	case "category_distribution":
		data, err = rs.store.WorksByCategory(ctx, filters)
	case "royalties_trend":
		data, err = rs.store.RoyaltiesTrend(ctx, since, filters)
	case "works_trend":
		data, err = rs.store.WorksTrend(ctx, since, filters)
	default:
		return nil, fmt.Errorf("%w: chart query %s", ErrUnsupportedQuery, query)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: chart query %s: %w", ErrDataSource, query, err)
	}
	return data, nil
}

func (rs *ResolverService) resolveTable(ctx context.Context, section models.Section, filters models.FilterSet) ([]map[string]interface{}, error) {
	since, err := rs.window(filters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedQuery, err)
	}

	var rows []map[string]interface{}
	switch section.Source {
	case "top_works":
		rows, err = rs.store.TopWorks(ctx, since, filters, section.Sort, section.Limit)
	case "recent_distributions":
		rows, err = rs.store.RecentDistributions(ctx, since, filters, section.Sort, section.Limit)
	default:
		return nil, fmt.Errorf("%w: table source %s", ErrUnsupportedQuery, section.Source)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: table source %s: %w", ErrDataSource, section.Source, err)
	}

	// Column projection is the resolver's job, not the store's.
	projected := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		out := make(map[string]interface{}, len(section.Columns))
		for _, column := range section.Columns {
			if value, ok := row[column]; ok {
				out[column] = value
			}
		}
		projected = append(projected, out)
	}
	return projected, nil
}

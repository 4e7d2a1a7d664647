package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"royaltyhub/src/models"
	"royaltyhub/src/repositories"
	"royaltyhub/src/schemas"
)

// fakeAnalyticsStore serves canned values and counts every query so cache
// behavior can be asserted without a database.
type fakeAnalyticsStore struct {
	mutex sync.Mutex

	calls     int
	lastSince time.Time
	err       error

	scalars map[string]float64
	points  []schemas.DataPoint
	rows    []map[string]interface{}
}

func newFakeAnalyticsStore() *fakeAnalyticsStore {
	return &fakeAnalyticsStore{
		scalars: map[string]float64{
			"total_works":      120,
			"new_works":        8,
			"total_royalties":  5400.5,
			"royalties_period": 730.25,
			"total_users":      42,
			"active_users":     17,
		},
		points: []schemas.DataPoint{
			{Dimension: "music", Value: 70},
			{Dimension: "literature", Value: 50},
		},
		rows: []map[string]interface{}{
			{"title": "Nocturne", "category": "music", "royalties": 310.0, "creator_id": 3},
			{"title": "Tides", "category": "literature", "royalties": 120.0, "creator_id": 9},
		},
	}
}

func (s *fakeAnalyticsStore) record(since time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.calls++
	s.lastSince = since
	return s.err
}

func (s *fakeAnalyticsStore) callCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.calls
}

func (s *fakeAnalyticsStore) scalar(name string, since time.Time) (float64, error) {
	if err := s.record(since); err != nil {
		return 0, err
	}
	return s.scalars[name], nil
}

func (s *fakeAnalyticsStore) CountWorks(ctx context.Context) (float64, error) {
	return s.scalar("total_works", time.Time{})
}

func (s *fakeAnalyticsStore) CountWorksSince(ctx context.Context, since time.Time) (float64, error) {
	return s.scalar("new_works", since)
}

func (s *fakeAnalyticsStore) SumRoyalties(ctx context.Context) (float64, error) {
	return s.scalar("total_royalties", time.Time{})
}

func (s *fakeAnalyticsStore) SumRoyaltiesSince(ctx context.Context, since time.Time) (float64, error) {
	return s.scalar("royalties_period", since)
}

func (s *fakeAnalyticsStore) CountUsers(ctx context.Context) (float64, error) {
	return s.scalar("total_users", time.Time{})
}

func (s *fakeAnalyticsStore) CountActiveUsersSince(ctx context.Context, since time.Time) (float64, error) {
	return s.scalar("active_users", since)
}

func (s *fakeAnalyticsStore) WorksByCategory(ctx context.Context, filters models.FilterSet) ([]schemas.DataPoint, error) {
	if err := s.record(time.Time{}); err != nil {
		return nil, err
	}
	return s.points, nil
}

func (s *fakeAnalyticsStore) RoyaltiesTrend(ctx context.Context, since time.Time, filters models.FilterSet) ([]schemas.DataPoint, error) {
	if err := s.record(since); err != nil {
		return nil, err
	}
	return s.points, nil
}

func (s *fakeAnalyticsStore) WorksTrend(ctx context.Context, since time.Time, filters models.FilterSet) ([]schemas.DataPoint, error) {
	if err := s.record(since); err != nil {
		return nil, err
	}
	return s.points, nil
}

func (s *fakeAnalyticsStore) TopWorks(ctx context.Context, since time.Time, filters models.FilterSet, sort *models.SortSpec, limit int) ([]map[string]interface{}, error) {
	if err := s.record(since); err != nil {
		return nil, err
	}
	return s.rows, nil
}

func (s *fakeAnalyticsStore) RecentDistributions(ctx context.Context, since time.Time, filters models.FilterSet, sort *models.SortSpec, limit int) ([]map[string]interface{}, error) {
	if err := s.record(since); err != nil {
		return nil, err
	}
	return s.rows, nil
}

// fakeTemplateRepo is an in-memory TemplateRepository.
type fakeTemplateRepo struct {
	mutex     sync.Mutex
	templates map[uint]*models.ReportTemplate
	nextID    uint

	createCalls int
	updateErr   error
	deleteErr   error
}

func newFakeTemplateRepo(seed ...*models.ReportTemplate) *fakeTemplateRepo {
	repo := &fakeTemplateRepo{templates: make(map[uint]*models.ReportTemplate), nextID: 1}
	for _, template := range seed {
		if template.ID == 0 {
			template.ID = repo.nextID
		}
		if template.ID >= repo.nextID {
			repo.nextID = template.ID + 1
		}
		repo.templates[template.ID] = template
	}
	return repo
}

func (r *fakeTemplateRepo) Create(ctx context.Context, template *models.ReportTemplate) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.createCalls++
	template.ID = r.nextID
	template.CreatedAt = time.Now()
	r.nextID++
	r.templates[template.ID] = template
	return nil
}

func (r *fakeTemplateRepo) Update(ctx context.Context, id uint, patch *schemas.UpdateTemplateRequest) (*models.ReportTemplate, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	template, ok := r.templates[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if template.IsSystem {
		return nil, repositories.ErrSystemTemplate
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
	return template, nil
}

func (r *fakeTemplateRepo) Delete(ctx context.Context, id uint) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	template, ok := r.templates[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if template.IsSystem {
		return repositories.ErrSystemTemplate
	}
	delete(r.templates, id)
	return nil
}

func (r *fakeTemplateRepo) GetByID(ctx context.Context, id uint) (*models.ReportTemplate, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	template, ok := r.templates[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *template
	return &copied, nil
}

func (r *fakeTemplateRepo) List(ctx context.Context, filters schemas.TemplateListFilters) ([]models.ReportTemplate, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]models.ReportTemplate, 0, len(r.templates))
	for _, template := range r.templates {
		out = append(out, *template)
	}
	return out, nil
}

// fakeScheduleRepo is an in-memory ScheduleRepository.
type fakeScheduleRepo struct {
	mutex   sync.Mutex
	reports map[uint]*models.ScheduledReport
	nextID  uint

	createCalls int
}

func newFakeScheduleRepo(seed ...*models.ScheduledReport) *fakeScheduleRepo {
	repo := &fakeScheduleRepo{reports: make(map[uint]*models.ScheduledReport), nextID: 1}
	for _, report := range seed {
		if report.ID == 0 {
			report.ID = repo.nextID
		}
		if report.ID >= repo.nextID {
			repo.nextID = report.ID + 1
		}
		repo.reports[report.ID] = report
	}
	return repo
}

func (r *fakeScheduleRepo) Create(ctx context.Context, report *models.ScheduledReport) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.createCalls++
	report.ID = r.nextID
	report.CreatedAt = time.Now()
	r.nextID++
	r.reports[report.ID] = report
	return nil
}

func (r *fakeScheduleRepo) Update(ctx context.Context, report *models.ScheduledReport) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.reports[report.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.reports[report.ID] = report
	return nil
}

func (r *fakeScheduleRepo) Delete(ctx context.Context, id uint) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.reports[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.reports, id)
	return nil
}

func (r *fakeScheduleRepo) GetByID(ctx context.Context, id uint) (*models.ScheduledReport, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	report, ok := r.reports[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *report
	return &copied, nil
}

func (r *fakeScheduleRepo) List(ctx context.Context, filters schemas.ScheduleListFilters) ([]models.ScheduledReport, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]models.ScheduledReport, 0, len(r.reports))
	for _, report := range r.reports {
		out = append(out, *report)
	}
	return out, nil
}

func (r *fakeScheduleRepo) FindDue(ctx context.Context, now time.Time) ([]models.ScheduledReport, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	due := make([]models.ScheduledReport, 0)
	for _, report := range r.reports {
		if report.IsActive && !report.NextRunAt.After(now) {
			due = append(due, *report)
		}
	}
	return due, nil
}

func (r *fakeScheduleRepo) MarkRun(ctx context.Context, id uint, lastRun, nextRun time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	report, ok := r.reports[id]
	if !ok {
		return repositories.ErrNotFound
	}
	report.LastRunAt = &lastRun
	report.NextRunAt = nextRun
	return nil
}

// failingCache errors on every operation, for exercising the advisory
// cache contract.
type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, fmt.Errorf("cache backend unavailable")
}

func (failingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return fmt.Errorf("cache backend unavailable")
}

func (failingCache) Invalidate(ctx context.Context, pattern string) (int, error) {
	return 0, fmt.Errorf("cache backend unavailable")
}

func (failingCache) Close() error { return nil }

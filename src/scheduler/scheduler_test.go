package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"royaltyhub/src/models"
	"royaltyhub/src/repositories"
	"royaltyhub/src/schemas"
	"royaltyhub/src/services"
)

type fakeScheduleRepo struct {
	mutex   sync.Mutex
	reports map[uint]*models.ScheduledReport

	markRuns map[uint][]time.Time
}

func newFakeScheduleRepo(seed ...*models.ScheduledReport) *fakeScheduleRepo {
	repo := &fakeScheduleRepo{
		reports:  make(map[uint]*models.ScheduledReport),
		markRuns: make(map[uint][]time.Time),
	}
	for _, report := range seed {
		repo.reports[report.ID] = report
	}
	return repo
}

func (r *fakeScheduleRepo) Create(ctx context.Context, report *models.ScheduledReport) error {
	return fmt.Errorf("not used")
}

func (r *fakeScheduleRepo) Update(ctx context.Context, report *models.ScheduledReport) error {
	return fmt.Errorf("not used")
}

func (r *fakeScheduleRepo) Delete(ctx context.Context, id uint) error {
	return fmt.Errorf("not used")
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
	return nil, fmt.Errorf("not used")
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
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	report, ok := r.reports[id]
	if !ok {
		return repositories.ErrNotFound
	}
	report.LastRunAt = &lastRun
	report.NextRunAt = nextRun
	r.markRuns[id] = append(r.markRuns[id], nextRun)
	return nil
}

func (r *fakeScheduleRepo) markRunCount(id uint) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.markRuns[id])
}

type fakePreview struct {
	mutex sync.Mutex
	calls []uint
	err   error
}

func (p *fakePreview) Preview(ctx context.Context, templateID uint, overrides models.FilterSet) (*schemas.PreviewDocument, error) {
	p.mutex.Lock()
	p.calls = append(p.calls, templateID)
	p.mutex.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &schemas.PreviewDocument{
		Name: "Rendered",
		Type: models.ReportTypeWorks,
		Sections: []schemas.PreviewedSection{
			{
				Section: models.Section{Type: models.SectionSummary, Metrics: []string{"total_works"}},
				Data:    json.RawMessage(`{"total_works":1}`),
			},
		},
	}, nil
}

func (p *fakePreview) previewCount() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.calls)
}

type fakeExporter struct {
	err error
}

func (e *fakeExporter) Render(ctx context.Context, reportType models.ReportType, document *schemas.PreviewDocument) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []byte("xlsx-bytes"), nil
}

type sentMail struct {
	recipients []string
	subject    string
	filename   string
	attachment []byte
}

type fakeMailer struct {
	mutex sync.Mutex
	sent  []sentMail
	err   error
}

func (m *fakeMailer) Send(recipients []string, subject, filename string, attachment []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{recipients: recipients, subject: subject, filename: filename, attachment: attachment})
	return nil
}

func (m *fakeMailer) sentCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.sent)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func dueReport(id uint, nextRun time.Time) *models.ScheduledReport {
	return &models.ScheduledReport{
		ID:         id,
		TemplateID: 1,
		Name:       "Weekly Digest",
		Type:       models.ReportTypeWorks,
		Schedule:   "0 9 * * *",
		Recipients: []string{"ops@example.com"},
		IsActive:   true,
		NextRunAt:  nextRun,
	}
}

func newTestScheduler(repo *fakeScheduleRepo, preview services.PreviewServiceI, exporter *fakeExporter, mailer *fakeMailer, at time.Time) *Scheduler {
	s := New(nil, repo, preview, exporter, mailer, testLogger())
	s.now = func() time.Time { return at }
	return s
}

func TestRunTickExecutesAndDeliversDueReports(t *testing.T) {
	now := time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC)
	repo := newFakeScheduleRepo(dueReport(1, now.Add(-time.Minute)))
	preview := &fakePreview{}
	mailer := &fakeMailer{}
	s := newTestScheduler(repo, preview, &fakeExporter{}, mailer, now)

	s.RunTick(context.Background())

	require.Equal(t, 1, mailer.sentCount())
	mail := mailer.sent[0]
	assert.Equal(t, []string{"ops@example.com"}, mail.recipients)
	assert.Equal(t, "Automated report: Weekly Digest", mail.subject)
	assert.Equal(t, "weekly_digest_2024-01-10.xlsx", mail.filename)
	assert.Equal(t, []byte("xlsx-bytes"), mail.attachment)

	stored, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, stored.LastRunAt)
	assert.Equal(t, now, *stored.LastRunAt)
	assert.Equal(t, time.Date(2024, time.January, 11, 9, 0, 0, 0, time.UTC), stored.NextRunAt)
}

func TestRunTickSkipsRecordsNotYetDue(t *testing.T) {
	now := time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC)
	repo := newFakeScheduleRepo(dueReport(1, now.Add(time.Hour)))
	preview := &fakePreview{}
	mailer := &fakeMailer{}
	s := newTestScheduler(repo, preview, &fakeExporter{}, mailer, now)

	s.RunTick(context.Background())

	assert.Zero(t, preview.previewCount())
	assert.Zero(t, mailer.sentCount())
	assert.Zero(t, repo.markRunCount(1))
}

func TestRunTickAdvancesNextRunWhenDeliveryFails(t *testing.T) {
	now := time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC)
	repo := newFakeScheduleRepo(dueReport(1, now.Add(-time.Minute)))
	mailer := &fakeMailer{err: fmt.Errorf("smtp refused")}
	s := newTestScheduler(repo, &fakePreview{}, &fakeExporter{}, mailer, now)

	s.RunTick(context.Background())

	stored, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, stored.LastRunAt, "run bookkeeping happens even on failure")
	assert.True(t, stored.NextRunAt.After(now), "a failing report waits for its next occurrence")
}

// stallingPreview holds until the context dies, like a render that
// outlives the tick budget.
type stallingPreview struct{}

func (stallingPreview) Preview(ctx context.Context, templateID uint, overrides models.FilterSet) (*schemas.PreviewDocument, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunTickAdvancesNextRunWhenExecutionExhaustsTickBudget(t *testing.T) {
	now := time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC)
	repo := newFakeScheduleRepo(dueReport(1, now.Add(-time.Minute)))
	mailer := &fakeMailer{}
	s := newTestScheduler(repo, stallingPreview{}, &fakeExporter{}, mailer, now)
	s.tickBudget = 50 * time.Millisecond

	s.RunTick(context.Background())

	assert.Zero(t, mailer.sentCount())
	require.Equal(t, 1, repo.markRunCount(1), "bookkeeping must survive an expired tick context")
	stored, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, stored.NextRunAt.After(now), "a stale next_run_at would re-fire every tick")
}

func TestRunTickAdvancesNextRunWhenRenderFails(t *testing.T) {
	now := time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC)
	repo := newFakeScheduleRepo(dueReport(1, now.Add(-time.Minute)))
	preview := &fakePreview{err: fmt.Errorf("data source down")}
	mailer := &fakeMailer{}
	s := newTestScheduler(repo, preview, &fakeExporter{}, mailer, now)

	s.RunTick(context.Background())

	assert.Zero(t, mailer.sentCount())
	assert.Equal(t, 1, repo.markRunCount(1))
}

func TestDeactivatedReportNeverExecutes(t *testing.T) {
	now := time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC)
	inactive := dueReport(1, now.Add(-time.Minute))
	inactive.IsActive = false
	repo := newFakeScheduleRepo(inactive, dueReport(2, now.Add(-time.Minute)))
	mailer := &fakeMailer{}
	s := newTestScheduler(repo, &fakePreview{}, &fakeExporter{}, mailer, now)

	s.RunTick(context.Background())
	s.RunTick(context.Background())

	assert.Zero(t, repo.markRunCount(1), "inactive records are invisible to the poller")
	require.Equal(t, 1, mailer.sentCount())
	assert.Equal(t, "Automated report: Weekly Digest", mailer.sent[0].subject)
}

func TestRunTickExecutesEachDueRecordOnce(t *testing.T) {
	now := time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC)
	repo := newFakeScheduleRepo(
		dueReport(1, now.Add(-time.Minute)),
		dueReport(2, now.Add(-2*time.Minute)),
		dueReport(3, now.Add(-3*time.Minute)),
	)
	mailer := &fakeMailer{}
	s := newTestScheduler(repo, &fakePreview{}, &fakeExporter{}, mailer, now)

	s.RunTick(context.Background())

	assert.Equal(t, 3, mailer.sentCount())
	for _, id := range []uint{1, 2, 3} {
		assert.Equal(t, 1, repo.markRunCount(id), "schedule %d", id)
	}

	// All next runs moved past now, so an immediate second tick is a no-op.
	s.RunTick(context.Background())
	assert.Equal(t, 3, mailer.sentCount())
}

func TestExecuteNowLeavesBookkeepingUntouched(t *testing.T) {
	now := time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC)
	scheduledFor := now.Add(time.Hour)
	repo := newFakeScheduleRepo(dueReport(1, scheduledFor))
	mailer := &fakeMailer{}
	s := newTestScheduler(repo, &fakePreview{}, &fakeExporter{}, mailer, now)

	require.NoError(t, s.ExecuteNow(context.Background(), 1))

	assert.Equal(t, 1, mailer.sentCount())
	stored, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, stored.LastRunAt)
	assert.Equal(t, scheduledFor, stored.NextRunAt, "manual runs do not reschedule")
}

func TestExecuteNowUnknownSchedule(t *testing.T) {
	s := newTestScheduler(newFakeScheduleRepo(), &fakePreview{}, &fakeExporter{}, &fakeMailer{}, time.Now())

	err := s.ExecuteNow(context.Background(), 42)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestAttachmentName(t *testing.T) {
	at := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "weekly_digest_2024-03-05.xlsx", attachmentName("Weekly Digest", at))
	assert.Equal(t, "q1_royalties_summary_2024-03-05.xlsx", attachmentName("  Q1   Royalties  Summary ", at))
}

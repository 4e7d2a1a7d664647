package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"royaltyhub/src/config"
	"royaltyhub/src/models"
	"royaltyhub/src/repositories"
	"royaltyhub/src/services"
	"royaltyhub/src/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultInterval    = time.Minute
	defaultTickBudget  = 55 * time.Second
	defaultConcurrency = 4
)

// Scheduler polls the schedule store at a fixed interval and drives
// unattended executions: render, export, deliver, recompute next run.
// It assumes a single active instance; running several without external
// mutual exclusion will cause duplicate sends.
type Scheduler struct {
	schedules   repositories.ScheduleRepository
	preview     services.PreviewServiceI
	exporter    services.Exporter
	mailer      services.Mailer
	logger      *logrus.Logger
	interval    time.Duration
	tickBudget  time.Duration
	concurrency int
	now         func() time.Time
}

func New(cfg *config.Config, schedules repositories.ScheduleRepository, preview services.PreviewServiceI, exporter services.Exporter, mailer services.Mailer, logger *logrus.Logger) *Scheduler {
	s := &Scheduler{
		schedules:   schedules,
		preview:     preview,
		exporter:    exporter,
		mailer:      mailer,
		logger:      logger,
		interval:    defaultInterval,
		tickBudget:  defaultTickBudget,
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
	if cfg != nil {
		if cfg.Scheduler.IntervalSeconds > 0 {
			s.interval = time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second
		}
		if cfg.Scheduler.TickBudgetSecs > 0 {
			s.tickBudget = time.Duration(cfg.Scheduler.TickBudgetSecs) * time.Second
		}
		if cfg.Scheduler.MaxConcurrency > 0 {
			s.concurrency = cfg.Scheduler.MaxConcurrency
		}
	}
	return s
}

// Run blocks, polling until the context is cancelled. Ticks run
// synchronously so no two ticks ever overlap; a tick that outlives the
// interval makes the ticker drop the missed beats instead of queueing them.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("report scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("report scheduler stopped")
			return
		case <-ticker.C:
			s.RunTick(ctx)
		}
	}
}

// RunTick finds due records and executes them with bounded concurrency
// inside a hard per-tick deadline. Every record's run bookkeeping is
// updated whether or not its execution succeeded, so a failing report
// self-heals at its next occurrence rather than hot-looping.
func (s *Scheduler) RunTick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, s.tickBudget)
	defer cancel()
	tickCtx = utils.WithLogger(tickCtx, s.logger)

	due, err := s.schedules.FindDue(tickCtx, s.now())
	if err != nil {
		s.logger.Error("failed to query due reports: ", err)
		return
	}
	if len(due) == 0 {
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i := range due {
		report := due[i]
		g.Go(func() error {
			if err := s.execute(tickCtx, &report); err != nil {
				s.logger.WithField("schedule_id", report.ID).Error("scheduled report execution failed: ", err)
			} else {
				s.logger.WithField("schedule_id", report.ID).Info("scheduled report executed")
			}

			finished := s.now()
			next, err := utils.NextOccurrence(report.Schedule, finished)
			if err != nil {
				// Expressions are validated at creation; if one slips
				// through, push the record one interval forward so it
				// cannot fire again immediately.
				s.logger.WithField("schedule_id", report.ID).Error("invalid stored schedule expression: ", err)
				next = finished.Add(s.interval)
			}
			// Bookkeeping must land even when the execution burned the
				// whole tick budget, else the record re-fires every tick.
				if err := s.schedules.MarkRun(context.WithoutCancel(ctx), report.ID, finished, next); err != nil {
				s.logger.WithField("schedule_id", report.ID).Error("failed to persist run timestamps: ", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// ExecuteNow runs the render/export/deliver pipeline for one record on
// demand, without touching its run bookkeeping.
func (s *Scheduler) ExecuteNow(ctx context.Context, id uint) error {
	report, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.execute(ctx, report)
}

func (s *Scheduler) execute(ctx context.Context, report *models.ScheduledReport) error {
	// At execution time there is no caller: the record's stored filters
	// act as the full override set.
	document, err := s.preview.Preview(ctx, report.TemplateID, report.Filters)
	if err != nil {
		return err
	}

	artifact, err := s.exporter.Render(ctx, report.Type, document)
	if err != nil {
		return fmt.Errorf("%w: export: %v", services.ErrDelivery, err)
	}

	subject := "Automated report: " + report.Name
	filename := attachmentName(report.Name, s.now())
	if err := s.mailer.Send(report.Recipients, subject, filename, artifact); err != nil {
		return fmt.Errorf("%w: mail: %v", services.ErrDelivery, err)
	}
	return nil
}

func attachmentName(name string, at time.Time) string {
	slug := strings.ToLower(strings.Join(strings.Fields(name), "_"))
	return fmt.Sprintf("%s_%s.xlsx", slug, at.Format("2006-01-02"))
}

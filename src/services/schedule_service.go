package services

import (
	"context"
	"fmt"
	"time"

	"royaltyhub/src/models"
	"royaltyhub/src/repositories"
	"royaltyhub/src/schemas"
	"royaltyhub/src/utils"
)

type ScheduleServiceI interface {
	Create(ctx context.Context, req *schemas.CreateScheduleRequest) (*models.ScheduledReport, error)
	Update(ctx context.Context, id uint, patch *schemas.UpdateScheduleRequest) (*models.ScheduledReport, error)
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.ScheduledReport, error)
	List(ctx context.Context, filters schemas.ScheduleListFilters) ([]models.ScheduledReport, error)
}

// ScheduleService owns scheduled-report CRUD: expression validation before
// persistence and next-run computation at creation and on edits.
type ScheduleService struct {
	repo      repositories.ScheduleRepository
	templates repositories.TemplateRepository
	now       func() time.Time
}

func NewScheduleService(repo repositories.ScheduleRepository, templates repositories.TemplateRepository) *ScheduleService {
	return &ScheduleService{
		repo:      repo,
		templates: templates,
		now:       time.Now,
	}
}

func (ss *ScheduleService) Create(ctx context.Context, req *schemas.CreateScheduleRequest) (*models.ScheduledReport, error) {
	report := &models.ScheduledReport{
		TemplateID:  req.TemplateID,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Schedule:    req.Schedule,
		Filters:     req.Filters,
		Recipients:  req.Recipients,
		IsActive:    true,
	}
	if err := report.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	next, err := utils.NextOccurrence(req.Schedule, ss.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScheduleExpression, err)
	}
	report.NextRunAt = next

	if _, err := ss.templates.GetByID(ctx, req.TemplateID); err != nil {
		return nil, err
	}

	if err := ss.repo.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (ss *ScheduleService) Update(ctx context.Context, id uint, patch *schemas.UpdateScheduleRequest) (*models.ScheduledReport, error) {
	report, err := ss.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		report.Name = *patch.Name
	}
	if patch.Description != nil {
		report.Description = *patch.Description
	}
	if patch.Type != nil {
		report.Type = *patch.Type
	}
	if patch.Schedule != nil {
		report.Schedule = *patch.Schedule
	}
	if patch.Filters != nil {
		report.Filters = *patch.Filters
	}
	if patch.Recipients != nil {
		report.Recipients = patch.Recipients
	}
	if patch.IsActive != nil {
		report.IsActive = *patch.IsActive
	}

	if err := report.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	// Any schedule or filter edit moves the next run forward from now.
	if patch.Schedule != nil || patch.Filters != nil {
		next, err := utils.NextOccurrence(report.Schedule, ss.now())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScheduleExpression, err)
		}
		report.NextRunAt = next
	}

	if err := ss.repo.Update(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (ss *ScheduleService) Delete(ctx context.Context, id uint) error {
	return ss.repo.Delete(ctx, id)
}

func (ss *ScheduleService) GetByID(ctx context.Context, id uint) (*models.ScheduledReport, error) {
	return ss.repo.GetByID(ctx, id)
}

func (ss *ScheduleService) List(ctx context.Context, filters schemas.ScheduleListFilters) ([]models.ScheduledReport, error) {
	return ss.repo.List(ctx, filters)
}

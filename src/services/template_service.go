package services

import (
	"context"
	"fmt"

	"royaltyhub/src/models"
	"royaltyhub/src/repositories"
	"royaltyhub/src/schemas"
	"royaltyhub/src/utils"
)

type TemplateServiceI interface {
	Create(ctx context.Context, req *schemas.CreateTemplateRequest) (*models.ReportTemplate, error)
	Update(ctx context.Context, id uint, patch *schemas.UpdateTemplateRequest) (*models.ReportTemplate, error)
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.ReportTemplate, error)
	List(ctx context.Context, filters schemas.TemplateListFilters) ([]models.ReportTemplate, error)
}

// TemplateService wraps the template store with structural validation and
// cache invalidation on edits.
type TemplateService struct {
	repo  repositories.TemplateRepository
	cache utils.CacheStore
}

func NewTemplateService(repo repositories.TemplateRepository, cache utils.CacheStore) *TemplateService {
	return &TemplateService{repo: repo, cache: cache}
}

func (ts *TemplateService) Create(ctx context.Context, req *schemas.CreateTemplateRequest) (*models.ReportTemplate, error) {
	template := &models.ReportTemplate{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Config:      req.Config,
	}
	if err := template.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := ts.repo.Create(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}

func (ts *TemplateService) Update(ctx context.Context, id uint, patch *schemas.UpdateTemplateRequest) (*models.ReportTemplate, error) {
	// Validate the template as it would look after the patch, so a partial
	// patch can never persist a template that no longer validates.
	current, err := ts.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := *current
	if patch.Name != nil {
		merged.Name = *patch.Name
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
	}
	if patch.Type != nil {
		merged.Type = *patch.Type
	}
	if patch.Config != nil {
		merged.Config = *patch.Config
	}
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	template, err := ts.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	ts.invalidatePreviews(ctx, id)
	return template, nil
}

func (ts *TemplateService) Delete(ctx context.Context, id uint) error {
	if err := ts.repo.Delete(ctx, id); err != nil {
		return err
	}
	ts.invalidatePreviews(ctx, id)
	return nil
}

func (ts *TemplateService) GetByID(ctx context.Context, id uint) (*models.ReportTemplate, error) {
	return ts.repo.GetByID(ctx, id)
}

func (ts *TemplateService) List(ctx context.Context, filters schemas.TemplateListFilters) ([]models.ReportTemplate, error) {
	return ts.repo.List(ctx, filters)
}

func (ts *TemplateService) invalidatePreviews(ctx context.Context, id uint) {
	logger := utils.LoggerFromContext(ctx)
	count, err := ts.cache.Invalidate(ctx, PreviewCachePattern(id))
	if err != nil {
		logger.WithField("template_id", id).Warning("preview cache invalidation failed: ", err)
		return
	}
	if count > 0 {
		logger.WithField("template_id", id).Debugf("invalidated %d cached previews", count)
	}
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"royaltyhub/src/models"
	"royaltyhub/src/repositories"
	"royaltyhub/src/schemas"
	"royaltyhub/src/utils"

	"golang.org/x/sync/errgroup"
)

// sectionConcurrency bounds how many sections of one preview resolve at once.
const sectionConcurrency = 4

type PreviewServiceI interface {
	Preview(ctx context.Context, templateID uint, overrides models.FilterSet) (*schemas.PreviewDocument, error)
}

// PreviewService assembles an on-demand rendering of a template: merge
// filters, resolve every section, keep template order in the output.
type PreviewService struct {
	templates repositories.TemplateRepository
	resolver  ResolverServiceI
	cache     utils.CacheStore
	ttl       time.Duration
}

func NewPreviewService(templates repositories.TemplateRepository, resolver ResolverServiceI, cache utils.CacheStore) *PreviewService {
	return &PreviewService{
		templates: templates,
		resolver:  resolver,
		cache:     cache,
		ttl:       SectionDataTTL,
	}
}

// PreviewCacheKey keys whole-preview documents by template id plus a digest
// of the merged filters, so editing a template can purge them by prefix.
func PreviewCacheKey(templateID uint, filters models.FilterSet) string {
	filtersJSON, _ := json.Marshal(filters)
	return fmt.Sprintf("report:preview:%d:%s", templateID, utils.DeterministicKey(string(filtersJSON)))
}

// PreviewCachePattern matches every cached preview of the given template.
func PreviewCachePattern(templateID uint) string {
	return fmt.Sprintf("report:preview:%d:*", templateID)
}

// Preview renders the template with the caller's overrides applied on top
// of its default filters. Sections resolve concurrently but the output
// preserves template order. A failure on any section aborts the whole
// preview: no partial documents.
func (ps *PreviewService) Preview(ctx context.Context, templateID uint, overrides models.FilterSet) (*schemas.PreviewDocument, error) {
	logger := utils.LoggerFromContext(ctx)

	template, err := ps.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	merged := template.Config.Filters.Merge(overrides)

	key := PreviewCacheKey(templateID, merged)
	var cached schemas.PreviewDocument
	if ok, err := ps.cache.Get(ctx, key, &cached); err != nil {
		logger.WithField("key", key).Warning("cache read failed, treating as miss: ", err)
	} else if ok {
		return &cached, nil
	}

	sections := make([]schemas.PreviewedSection, len(template.Config.Sections))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sectionConcurrency)
	for i, section := range template.Config.Sections {
		i, section := i, section
		g.Go(func() error {
			data, err := ps.resolver.ResolveSection(gctx, section, merged)
			if err != nil {
				return fmt.Errorf("section %d (%s): %w", i, section.Type, err)
			}
			sections[i] = schemas.PreviewedSection{Section: section, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	document := &schemas.PreviewDocument{
		Name:        template.Name,
		Description: template.Description,
		Type:        template.Type,
		Sections:    sections,
	}

	if err := ps.cache.Set(ctx, key, document, ps.ttl); err != nil {
		logger.WithField("key", key).Warning("cache write failed: ", err)
	}
	return document, nil
}

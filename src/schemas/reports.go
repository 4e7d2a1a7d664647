package schemas

import (
	"encoding/json"

	"royaltyhub/src/models"
)

// DataPoint is one record of a resolved chart series: a dimension label
// (category name or day bucket) and its aggregated value.
type DataPoint struct {
	Dimension string  `json:"dimension"`
	Value     float64 `json:"value"`
}

// PreviewedSection carries the original section metadata plus the resolved
// data, serialized exactly as it was produced (or cached).
type PreviewedSection struct {
	models.Section
	Data json.RawMessage `json:"data"`
}

// PreviewDocument is the assembled on-demand rendering of a template.
type PreviewDocument struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Type        models.ReportType  `json:"type"`
	Sections    []PreviewedSection `json:"sections"`
}

type CreateTemplateRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Type        models.ReportType     `json:"type"`
	Config      models.TemplateConfig `json:"config"`
}

type UpdateTemplateRequest struct {
	Name        *string                `json:"name,omitempty"`
	Description *string                `json:"description,omitempty"`
	Type        *models.ReportType     `json:"type,omitempty"`
	Config      *models.TemplateConfig `json:"config,omitempty"`
}

type TemplateListFilters struct {
	Type     string
	IsSystem *bool
}

type CreateScheduleRequest struct {
	TemplateID  uint              `json:"template_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Type        models.ReportType `json:"type"`
	Schedule    string            `json:"schedule"`
	Filters     models.FilterSet  `json:"filters"`
	Recipients  []string          `json:"recipients"`
}

type UpdateScheduleRequest struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Type        *models.ReportType `json:"type,omitempty"`
	Schedule    *string            `json:"schedule,omitempty"`
	Filters     *models.FilterSet  `json:"filters,omitempty"`
	Recipients  []string           `json:"recipients,omitempty"`
	IsActive    *bool              `json:"is_active,omitempty"`
}

type ScheduleListFilters struct {
	Type     string
	IsActive *bool
}

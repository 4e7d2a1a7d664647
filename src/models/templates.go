package models

import (
	"fmt"
	"time"

	"royaltyhub/src/utils"
)

// ReportType picks the exporter column layout for a rendered report.
type ReportType string

const (
	ReportTypeWorks     ReportType = "works"
	ReportTypeRoyalties ReportType = "royalties"
	ReportTypeAnalytics ReportType = "analytics"
)

func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeWorks, ReportTypeRoyalties, ReportTypeAnalytics:
		return true
	}
	return false
}

type SectionType string

const (
	SectionSummary SectionType = "summary"
	SectionChart   SectionType = "chart"
	SectionTable   SectionType = "table"
)

type ChartKind string

const (
	ChartLine     ChartKind = "line"
	ChartBar      ChartKind = "bar"
	ChartPie      ChartKind = "pie"
	ChartDoughnut ChartKind = "doughnut"
	ChartRadar    ChartKind = "radar"
)

func (k ChartKind) Valid() bool {
	switch k {
	case ChartLine, ChartBar, ChartPie, ChartDoughnut, ChartRadar:
		return true
	}
	return false
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type SortSpec struct {
	Column    string        `json:"column"`
	Direction SortDirection `json:"direction"`
}

// Closed vocabularies for summary metrics, chart queries and table sources.
// The resolver dispatches on these identifiers; anything outside them is
// rejected at template creation.
var (
	SummaryMetrics = map[string]struct{}{
		"total_works":      {},
		"new_works":        {},
		"total_royalties":  {},
		"royalties_period": {},
		"total_users":      {},
		"active_users":     {},
	}

	ChartQueries = map[string]struct{}{
		"category_distribution": {},
		"royalties_trend":       {},
		"works_trend":           {},
	}

	TableSources = map[string]struct{}{
		"top_works":            {},
		"recent_distributions": {},
	}
)

// Section is one renderable unit of a template. The Type tag decides which
// of the remaining fields are meaningful: Metrics for summary sections,
// ChartType/Query for chart sections, Source/Columns/Sort/Limit for tables.
type Section struct {
	Type      SectionType `json:"type"`
	Title     string      `json:"title,omitempty"`
	Metrics   []string    `json:"metrics,omitempty"`
	ChartType ChartKind   `json:"chartType,omitempty"`
	Query     string      `json:"query,omitempty"`
	Source    string      `json:"source,omitempty"`
	Columns   []string    `json:"columns,omitempty"`
	Sort      *SortSpec   `json:"sort,omitempty"`
	Limit     int         `json:"limit,omitempty"`
}

func (s *Section) Validate() error {
	switch s.Type {
	case SectionSummary:
		if len(s.Metrics) == 0 {
			return fmt.Errorf("summary section requires at least one metric")
		}
		seen := make(map[string]struct{}, len(s.Metrics))
		for _, metric := range s.Metrics {
			if _, ok := SummaryMetrics[metric]; !ok {
				return fmt.Errorf("unknown summary metric: %s", metric)
			}
			if _, dup := seen[metric]; dup {
				return fmt.Errorf("duplicate summary metric: %s", metric)
			}
			seen[metric] = struct{}{}
		}
	case SectionChart:
		if !s.ChartType.Valid() {
			return fmt.Errorf("unknown chart type: %s", s.ChartType)
		}
		if _, ok := ChartQueries[s.Query]; !ok {
			return fmt.Errorf("unknown chart query: %s", s.Query)
		}
	case SectionTable:
		if _, ok := TableSources[s.Source]; !ok {
			return fmt.Errorf("unknown table source: %s", s.Source)
		}
		if len(s.Columns) == 0 {
			return fmt.Errorf("table section requires at least one column")
		}
		if s.Limit < 1 || s.Limit > 100 {
			return fmt.Errorf("table limit must be between 1 and 100, got %d", s.Limit)
		}
		if s.Sort != nil {
			if s.Sort.Direction != SortAsc && s.Sort.Direction != SortDesc {
				return fmt.Errorf("unknown sort direction: %s", s.Sort.Direction)
			}
			found := false
			for _, column := range s.Columns {
				if column == s.Sort.Column {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("sort column %s is not among the selected columns", s.Sort.Column)
			}
		}
	default:
		return fmt.Errorf("unsupported section type: %s", s.Type)
	}
	return nil
}

// FilterSet narrows the underlying queries of a section. Each filter kind
// appears at most once; zero values mean "not set".
type FilterSet struct {
	Period    string   `json:"period,omitempty"`
	Category  string   `json:"category,omitempty"`
	MinAmount *float64 `json:"minAmount,omitempty"`
	Status    string   `json:"status,omitempty"`
	Creator   string   `json:"creator,omitempty"`
}

// Merge overlays overrides on top of f, key by key. A key present in the
// overrides always wins; absent keys keep the defaults.
func (f FilterSet) Merge(overrides FilterSet) FilterSet {
	merged := f
	if overrides.Period != "" {
		merged.Period = overrides.Period
	}
	if overrides.Category != "" {
		merged.Category = overrides.Category
	}
	if overrides.MinAmount != nil {
		merged.MinAmount = overrides.MinAmount
	}
	if overrides.Status != "" {
		merged.Status = overrides.Status
	}
	if overrides.Creator != "" {
		merged.Creator = overrides.Creator
	}
	return merged
}

// PeriodOrDefault returns the period token, defaulting to one month.
func (f FilterSet) PeriodOrDefault() string {
	if f.Period == "" {
		return utils.DefaultPeriod
	}
	return f.Period
}

func (f FilterSet) Validate() error {
	if f.Period != "" && !utils.ValidPeriod(f.Period) {
		return fmt.Errorf("unknown period token: %s", f.Period)
	}
	return nil
}

type TemplateConfig struct {
	Sections []Section `json:"sections"`
	Filters  FilterSet `json:"filters"`
}

type ReportTemplate struct {
	ID          uint           `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description,omitempty"`
	Type        ReportType     `db:"type" json:"type"`
	Config      TemplateConfig `db:"config" json:"config"`
	IsSystem    bool           `db:"is_system" json:"is_system"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

func (ReportTemplate) TableName() string {
	return "report_templates"
}

// Validate enforces the structural invariants at creation/update time, so
// the renderer and scheduler never see a malformed template.
func (t *ReportTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if !t.Type.Valid() {
		return fmt.Errorf("unknown report type: %s", t.Type)
	}
	if len(t.Config.Sections) == 0 {
		return fmt.Errorf("template requires at least one section")
	}
	for i := range t.Config.Sections {
		if err := t.Config.Sections[i].Validate(); err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
	}
	return t.Config.Filters.Validate()
}

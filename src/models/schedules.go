package models

import (
	"fmt"
	"strings"
	"time"
)

// ScheduledReport binds a template to a five-field cron expression and a
// recipient list. NextRunAt is recomputed at creation, after a schedule
// edit and after every execution, successful or not.
type ScheduledReport struct {
	ID          uint       `db:"id" json:"id"`
	TemplateID  uint       `db:"template_id" json:"template_id"`
	Name        string     `db:"name" json:"name"`
	Description string     `db:"description" json:"description,omitempty"`
	Type        ReportType `db:"type" json:"type"`
	Schedule    string     `db:"schedule" json:"schedule"`
	Filters     FilterSet  `db:"filters" json:"filters"`
	Recipients  []string   `db:"recipients" json:"recipients"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	LastRunAt   *time.Time `db:"last_run_at" json:"last_run_at,omitempty"`
	NextRunAt   time.Time  `db:"next_run_at" json:"next_run_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

func (ScheduledReport) TableName() string {
	return "scheduled_reports"
}

func (r *ScheduledReport) Validate() error {
	if r.TemplateID == 0 {
		return fmt.Errorf("scheduled report requires a template reference")
	}
	if r.Name == "" {
		return fmt.Errorf("scheduled report name is required")
	}
	if !r.Type.Valid() {
		return fmt.Errorf("unknown report type: %s", r.Type)
	}
	if r.Schedule == "" {
		return fmt.Errorf("schedule expression is required")
	}
	if len(r.Recipients) == 0 {
		return fmt.Errorf("recipient list must not be empty")
	}
	for _, recipient := range r.Recipients {
		if !emailShaped(recipient) {
			return fmt.Errorf("invalid recipient address: %s", recipient)
		}
	}
	return r.Filters.Validate()
}

func emailShaped(address string) bool {
	at := strings.Index(address, "@")
	if at < 1 || at == len(address)-1 {
		return false
	}
	domain := address[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(address, " \t\n")
}

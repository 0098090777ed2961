package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldset/cmms-api/internal/report"
)

// ReportTemplate is a saved report configuration a user can replay by
// referencing its ID in a generation request. Public templates are
// visible to every report-capable user; private ones only to their
// creator and admins.
type ReportTemplate struct {
	ID            string                `db:"id" json:"id"`
	Name          string                `db:"name" json:"name"`
	Description   *string               `db:"description" json:"description,omitempty"`
	Configuration TemplateConfiguration `db:"configuration" json:"configuration"`
	IsPublic      bool                  `db:"is_public" json:"is_public"`
	CreatedBy     string                `db:"created_by" json:"created_by"`
	CreatedAt     time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time             `db:"updated_at" json:"updated_at"`
}

// TemplateConfiguration stores the saved report request as JSONB.
type TemplateConfiguration struct {
	Request report.Request `json:"request"`
}

// Value marshals the configuration to JSON for persistence.
func (c TemplateConfiguration) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal template configuration: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the configuration struct.
func (c *TemplateConfiguration) Scan(value interface{}) error {
	if value == nil {
		*c = TemplateConfiguration{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported template configuration type %T", value)
	}
	if len(data) == 0 {
		*c = TemplateConfiguration{}
		return nil
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("unmarshal template configuration: %w", err)
	}
	return nil
}

package report

import (
	"encoding/json"
	"fmt"

	"github.com/fieldset/cmms-api/pkg/export"
)

// EntitySelector accepts a single entity name, a list of names, or the
// literal "all" on the wire.
type EntitySelector []string

// All is the sentinel expanding to every registered entity.
const All = "all"

// UnmarshalJSON accepts `"roles"`, `["roles","permissions"]` or `"all"`.
func (s *EntitySelector) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = EntitySelector{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*s = EntitySelector(many)
		return nil
	}
	return fmt.Errorf("entities must be a string or an array of strings")
}

// MarshalJSON keeps the compact form for single-entity selectors.
func (s EntitySelector) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

// IsAll reports whether the selector requests every registered entity.
func (s EntitySelector) IsAll() bool {
	return len(s) == 1 && s[0] == All
}

// FilterClause is one AND-combined predicate over a dot-path field.
type FilterClause struct {
	Field    string      `json:"field" validate:"required"`
	Operator string      `json:"operator" validate:"required"`
	Value    interface{} `json:"value,omitempty"`
}

// SortClause orders results by a dot-path field.
type SortClause struct {
	Field     string `json:"field" validate:"required"`
	Direction string `json:"direction"`
}

// ChartSpec requests a synthesized summary chart over a rendered column.
type ChartSpec struct {
	Type   string `json:"type" validate:"required"`
	Column string `json:"column" validate:"required"`
	Title  string `json:"title,omitempty"`
}

// Request describes one report generation cycle. TemplateID points at
// a saved configuration whose fields fill in anything the request
// leaves unset; it is resolved before validation, so a template-only
// request is complete once its configuration is folded in.
type Request struct {
	TemplateID       string              `json:"template_id,omitempty"`
	Entities         EntitySelector      `json:"entities" validate:"required,min=1"`
	OutputFormat     string              `json:"output_format,omitempty" validate:"omitempty,output_format"`
	Columns          []string            `json:"columns,omitempty"`
	Filters          []FilterClause      `json:"filters,omitempty" validate:"dive"`
	SortBy           []SortClause        `json:"sort_by,omitempty" validate:"dive"`
	Charts           []ChartSpec         `json:"charts,omitempty" validate:"dive"`
	Title            string              `json:"report_title,omitempty"`
	Filename         string              `json:"filename,omitempty"`
	SheetNames       map[string]string   `json:"sheet_names,omitempty"`
	TableOptions     export.TableOptions `json:"table_options,omitempty"`
	IncludeDataTable bool                `json:"include_data_table,omitempty"`
	MaxTableRows     int                 `json:"max_table_rows,omitempty" validate:"gte=0"`
}

// Overlay folds a saved template configuration under a request: every
// field the request sets wins, everything it leaves at the zero value
// falls back to the template.
func Overlay(base, req Request) Request {
	out := base
	out.TemplateID = ""
	if len(req.Entities) > 0 {
		out.Entities = req.Entities
	}
	if req.OutputFormat != "" {
		out.OutputFormat = req.OutputFormat
	}
	if len(req.Columns) > 0 {
		out.Columns = req.Columns
	}
	if len(req.Filters) > 0 {
		out.Filters = req.Filters
	}
	if len(req.SortBy) > 0 {
		out.SortBy = req.SortBy
	}
	if len(req.Charts) > 0 {
		out.Charts = req.Charts
	}
	if req.Title != "" {
		out.Title = req.Title
	}
	if req.Filename != "" {
		out.Filename = req.Filename
	}
	if len(req.SheetNames) > 0 {
		out.SheetNames = req.SheetNames
	}
	if req.TableOptions != (export.TableOptions{}) {
		out.TableOptions = req.TableOptions
	}
	if req.IncludeDataTable {
		out.IncludeDataTable = true
	}
	if req.MaxTableRows > 0 {
		out.MaxTableRows = req.MaxTableRows
	}
	return out
}

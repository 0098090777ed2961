package report

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/fieldset/cmms-api/pkg/errors"
	"github.com/fieldset/cmms-api/pkg/export"
)

// Config carries engine-level rendering defaults.
type Config struct {
	DefaultTitle string
	// MaxTableRows caps slide data tables when the request does not
	// set its own limit.
	MaxTableRows int
}

// Engine orchestrates one report generation cycle: validate, plan,
// fetch, expand, aggregate, render, package.
type Engine struct {
	registry  *Registry
	source    DataSource
	renderers *export.Registry
	cfg       Config
	log       *zap.Logger
	now       func() time.Time
}

// NewEngine wires an engine over a schema registry, a data source
// and a renderer registry.
func NewEngine(registry *Registry, source DataSource, renderers *export.Registry, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.DefaultTitle == "" {
		cfg.DefaultTitle = "Data Analysis Report"
	}
	if cfg.MaxTableRows <= 0 {
		cfg.MaxTableRows = 10
	}
	return &Engine{
		registry:  registry,
		source:    source,
		renderers: renderers,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// WithClock overrides the timestamp source, for reproducible output.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// plan is one entity's fully validated query and rendering intent.
type plan struct {
	entity *Entity
	fields []*ResolvedField
	// pushdown filters/sorts go to the data source; dynamic ones
	// (answer columns) apply in memory after the fetch.
	pushFilters []CompiledFilter
	dynFilters  []CompiledFilter
	pushSorts   []CompiledSort
	// sorts holds every key in the caller's clause order; hasDynSort
	// switches the whole ordering to the in-memory path so key
	// precedence survives the mix.
	sorts      []CompiledSort
	hasDynSort bool
	charts     []ChartSpec
	name       string
}

// Generate runs the whole pipeline and returns the final artifact.
// Any step failure aborts the request; no partial report is returned.
func (e *Engine) Generate(ctx context.Context, req Request) (export.Artifact, error) {
	entities, err := e.expandEntities(req.Entities)
	if err != nil {
		return export.Artifact{}, err
	}
	format, err := export.ParseFormat(req.OutputFormat)
	if err != nil {
		return export.Artifact{}, appErrors.Detail(appErrors.ErrUnsupportedFormat, err)
	}
	renderer, ok := e.renderers.Get(format)
	if !ok {
		return export.Artifact{}, appErrors.Detail(appErrors.ErrUnsupportedFormat,
			fmt.Errorf("no renderer registered for %s", format))
	}

	plans, err := e.planAll(entities, req)
	if err != nil {
		return export.Artifact{}, err
	}

	tables := make([]export.Table, 0, len(plans))
	charts := make(map[string][]export.ChartAggregate)
	for _, p := range plans {
		table, err := e.buildTable(ctx, p)
		if err != nil {
			return export.Artifact{}, err
		}
		if len(p.charts) > 0 {
			aggs, err := BuildAggregates(table, p.charts)
			if err != nil {
				return export.Artifact{}, err
			}
			charts[p.entity.Name] = aggs
		}
		tables = append(tables, table)
	}

	if len(charts) > 0 && !format.SupportsCharts() {
		// Chart specs stay validated and aggregated; the format just
		// cannot carry them, so the table ships without them.
		e.log.Warn("charts omitted from output",
			zap.String("format", string(format)),
			zap.Int("charts", len(req.Charts)))
	}

	opts := export.Options{
		Title:            req.Title,
		GeneratedAt:      e.now().UTC(),
		Table:            req.TableOptions,
		IncludeDataTable: req.IncludeDataTable,
		MaxTableRows:     req.MaxTableRows,
	}
	if opts.Title == "" {
		opts.Title = e.cfg.DefaultTitle
	}
	if opts.MaxTableRows <= 0 {
		opts.MaxTableRows = e.cfg.MaxTableRows
	}

	artifacts, err := renderer.Render(tables, charts, opts)
	if err != nil {
		if appErrors.FromError(err).Code != appErrors.ErrInternal.Code {
			return export.Artifact{}, err
		}
		return export.Artifact{}, appErrors.Detail(appErrors.ErrRenderFailure,
			fmt.Errorf("rendering %s: %w", format, err))
	}
	if len(artifacts) == 0 {
		return export.Artifact{}, appErrors.Detail(appErrors.ErrRenderFailure,
			fmt.Errorf("renderer %s produced no output", format))
	}

	base := e.baseFilename(req, entities)
	if len(artifacts) == 1 {
		art := artifacts[0]
		art.Filename = base + "." + format.Extension()
		art.ContentType = format.ContentType()
		e.logDone(entities, format, 1)
		return art, nil
	}

	// Formats with no multi-table concept emit one artifact per
	// entity; package them into a single archive.
	bundle, err := export.ZipArtifacts(base+".zip", artifacts)
	if err != nil {
		return export.Artifact{}, appErrors.Detail(appErrors.ErrRenderFailure,
			fmt.Errorf("packaging %s archive: %w", format, err))
	}
	e.logDone(entities, format, len(artifacts))
	return bundle, nil
}

func (e *Engine) logDone(entities []string, format export.Format, parts int) {
	e.log.Info("report generated",
		zap.Strings("entities", entities),
		zap.String("format", string(format)),
		zap.Int("artifacts", parts))
}

func (e *Engine) expandEntities(sel EntitySelector) ([]string, error) {
	if len(sel) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one entity is required")
	}
	if sel.IsAll() {
		return e.registry.Names(), nil
	}
	seen := make(map[string]bool, len(sel))
	out := make([]string, 0, len(sel))
	for _, name := range sel {
		if _, ok := e.registry.Entity(name); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("unknown entity %q", name))
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

// planAll validates every entity's columns, filters, sorts and charts
// before the first query runs.
func (e *Engine) planAll(entities []string, req Request) ([]plan, error) {
	plans := make([]plan, 0, len(entities))
	multi := len(entities) > 1
	chartMatched := make([]bool, len(req.Charts))
	for _, name := range entities {
		entity, _ := e.registry.Entity(name)

		// Explicit column lists apply to single-entity requests;
		// multi-entity reports use each entity's defaults.
		requested := req.Columns
		if multi {
			requested = nil
		}
		fields, err := ResolveColumns(e.registry, entity, requested)
		if err != nil {
			return nil, err
		}

		filters, err := CompileFilters(e.registry, entity, req.Filters)
		if err != nil {
			return nil, err
		}
		sortBy := req.SortBy
		if multi {
			sortBy = nil
		}
		sorts, err := CompileSorts(e.registry, entity, sortBy)
		if err != nil {
			return nil, err
		}

		p := plan{entity: entity, fields: fields, name: name}
		if custom, ok := req.SheetNames[name]; ok && custom != "" {
			p.name = custom
		}
		for _, f := range filters {
			if f.Dynamic() {
				p.dynFilters = append(p.dynFilters, f)
			} else {
				p.pushFilters = append(p.pushFilters, f)
			}
		}
		p.sorts = sorts
		for _, s := range sorts {
			if s.Dynamic() {
				p.hasDynSort = true
			} else {
				p.pushSorts = append(p.pushSorts, s)
			}
		}

		// Each chart is computed on every entity whose table carries
		// its source column; it must match at least one entity.
		for i, spec := range req.Charts {
			if err := ValidateCharts(entity, fields, []ChartSpec{spec}); err != nil {
				if multi {
					continue
				}
				return nil, err
			}
			chartMatched[i] = true
			p.charts = append(p.charts, spec)
		}
		plans = append(plans, p)
	}
	for i, matched := range chartMatched {
		if !matched {
			return nil, invalidChartSource(req.Charts[i].Column,
				fmt.Errorf("column is not part of any requested entity"))
		}
	}
	return plans, nil
}

func (e *Engine) buildTable(ctx context.Context, p plan) (export.Table, error) {
	q := Query{
		Entity:      p.entity,
		Fields:      p.fields,
		Filters:     p.pushFilters,
		Sort:        p.pushSorts,
		WithAnswers: p.entity.HasAnswers,
	}
	records, err := e.source.Fetch(ctx, q)
	if err != nil {
		if appErrors.FromError(err).Code != appErrors.ErrInternal.Code {
			return export.Table{}, err
		}
		return export.Table{}, appErrors.Detail(appErrors.ErrDataAccess,
			fmt.Errorf("fetching %s: %w", p.entity.Name, err))
	}

	if len(p.dynFilters) > 0 {
		kept := records[:0]
		for _, rec := range records {
			match := true
			for _, f := range p.dynFilters {
				if !f.Matches(rec) {
					match = false
					break
				}
			}
			if match {
				kept = append(kept, rec)
			}
		}
		records = kept
	}
	if p.hasDynSort {
		SortRecords(records, p.sorts)
	}

	columns := expandAnswerColumns(p.entity, p.fields, records)
	rows := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		row := make([]interface{}, len(columns))
		for i, col := range columns {
			row[i] = cellValue(rec, col)
		}
		rows = append(rows, row)
	}
	return export.Table{Entity: p.entity.Name, Name: p.name, Columns: columns, Rows: rows}, nil
}

var filenamePattern = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// baseFilename derives the artifact name without extension.
func (e *Engine) baseFilename(req Request, entities []string) string {
	ts := e.now().UTC().Format("20060102_150405")
	if req.Filename != "" {
		name := filenamePattern.ReplaceAllString(strings.TrimSpace(req.Filename), "_")
		name = strings.Trim(name, "_")
		if name != "" {
			return name
		}
	}
	switch {
	case req.Entities.IsAll():
		return "full_report_" + ts
	case len(entities) > 1:
		return "multi_report_" + ts
	default:
		return fmt.Sprintf("report_%s_%s", entities[0], ts)
	}
}

package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	appErrors "github.com/fieldset/cmms-api/pkg/errors"
	"github.com/fieldset/cmms-api/pkg/export"
)

// lineBucketCutoff is the observed span, in days, beyond which line
// charts bucket by calendar month instead of day.
const lineBucketCutoff = 60

// ParseChartKind validates a wire chart type token.
func ParseChartKind(s string) (export.ChartKind, error) {
	k := export.ChartKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case export.ChartBar, export.ChartPie, export.ChartLine:
		return k, nil
	}
	return "", fmt.Errorf("unknown chart type %q", s)
}

// ValidateCharts checks chart specs against the resolved column set
// before any query runs. A static source column must be among the
// rendered columns; line charts additionally require a time-typed
// source. Dynamic answer sources are checked after expansion since
// question texts are only known from the data.
func ValidateCharts(entity *Entity, fields []*ResolvedField, specs []ChartSpec) error {
	for _, spec := range specs {
		kind, err := ParseChartKind(spec.Type)
		if err != nil {
			return appErrors.Detail(appErrors.ErrInvalidChartSource, err)
		}
		if strings.HasPrefix(spec.Column, AnswersPrefix) {
			if !entity.HasAnswers {
				return invalidChartSource(spec.Column,
					fmt.Errorf("%s does not carry submitted answers", entity.Name))
			}
			if kind == export.ChartLine {
				return invalidChartSource(spec.Column,
					fmt.Errorf("line charts require a date or timestamp column"))
			}
			continue
		}
		var match *ResolvedField
		for _, rf := range fields {
			if rf.Path == spec.Column {
				match = rf
				break
			}
		}
		if match == nil {
			return invalidChartSource(spec.Column,
				fmt.Errorf("column is not part of the report"))
		}
		if kind == export.ChartLine && match.Field.Kind != KindTime {
			return invalidChartSource(spec.Column,
				fmt.Errorf("line charts require a date or timestamp column"))
		}
	}
	return nil
}

func invalidChartSource(column string, err error) error {
	return appErrors.Detail(appErrors.ErrInvalidChartSource,
		fmt.Errorf("chart source %q: %w", column, err))
}

// BuildAggregates computes one aggregate per spec over a finalized
// table. Bar and pie group by value with categories ordered by
// descending count, ties keeping first-seen order. Line buckets
// chronologically by day or month depending on the observed span.
func BuildAggregates(table export.Table, specs []ChartSpec) ([]export.ChartAggregate, error) {
	out := make([]export.ChartAggregate, 0, len(specs))
	for _, spec := range specs {
		kind, err := ParseChartKind(spec.Type)
		if err != nil {
			return nil, appErrors.Detail(appErrors.ErrInvalidChartSource, err)
		}
		idx := -1
		for i, col := range table.Columns {
			if col.Path == spec.Column {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, invalidChartSource(spec.Column,
				fmt.Errorf("column is not part of the report"))
		}

		title := spec.Title
		if title == "" {
			title = export.Label(spec.Column)
		}
		agg := export.ChartAggregate{Kind: kind, Title: title, Column: spec.Column}
		if kind == export.ChartLine {
			agg.Categories, err = bucketByTime(table.Rows, idx)
			if err != nil {
				return nil, invalidChartSource(spec.Column, err)
			}
		} else {
			agg.Categories = countByValue(table.Rows, idx)
		}
		out = append(out, agg)
	}
	return out, nil
}

func countByValue(rows [][]interface{}, idx int) []export.Category {
	counts := make(map[string]int)
	var order []string
	for _, row := range rows {
		label := export.FormatValue(row[idx])
		if _, ok := counts[label]; !ok {
			order = append(order, label)
		}
		counts[label]++
	}
	cats := make([]export.Category, 0, len(order))
	firstSeen := make(map[string]int, len(order))
	for i, label := range order {
		firstSeen[label] = i
		cats = append(cats, export.Category{Label: label, Count: counts[label]})
	}
	sort.SliceStable(cats, func(i, j int) bool {
		if cats[i].Count != cats[j].Count {
			return cats[i].Count > cats[j].Count
		}
		return firstSeen[cats[i].Label] < firstSeen[cats[j].Label]
	})
	return cats
}

func bucketByTime(rows [][]interface{}, idx int) ([]export.Category, error) {
	var times []time.Time
	for _, row := range rows {
		switch v := row[idx].(type) {
		case nil:
		case time.Time:
			times = append(times, v)
		case *time.Time:
			if v != nil {
				times = append(times, *v)
			}
		default:
			return nil, fmt.Errorf("value %v is not a timestamp", v)
		}
	}
	if len(times) == 0 {
		return nil, nil
	}

	min, max := times[0], times[0]
	for _, t := range times[1:] {
		if t.Before(min) {
			min = t
		}
		if t.After(max) {
			max = t
		}
	}
	layout := "2006-01-02"
	if max.Sub(min) > lineBucketCutoff*24*time.Hour {
		layout = "2006-01"
	}

	counts := make(map[string]int)
	for _, t := range times {
		counts[t.Format(layout)]++
	}
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	cats := make([]export.Category, 0, len(labels))
	for _, label := range labels {
		cats = append(cats, export.Category{Label: label, Count: counts[label]})
	}
	return cats, nil
}

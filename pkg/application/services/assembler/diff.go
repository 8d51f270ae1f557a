package assembler

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/vsinha/batchplan/pkg/application/dto"
	"github.com/vsinha/batchplan/pkg/domain/entities"
)

var diffHeader = []string{
	"Material Code",
	"Material Name",
	"Safety Stock",
	"Current Stock",
	"Overall Requirement",
	"Shortfall",
}

type diffRow struct {
	code     string
	name     string
	safety   float64
	current  float64
	total    float64
	usage    map[string]float64
	previous map[string]float64
}

// WriteDiffCSV writes the per-material usage comparison of current against previous.
// previous may be nil, in which case every previous usage is zero.
func WriteDiffCSV(w io.Writer, current, previous *dto.PlanResult) error {
	if current == nil {
		return fmt.Errorf("current plan result cannot be nil")
	}

	rows, dates := diffRows(current, previous)

	header := append([]string(nil), diffHeader...)
	for _, date := range dates {
		header = append(header, date+" Usage", date+" Prev Usage", date+" Delta")
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write diff header: %w", err)
	}

	for _, row := range rows {
		shortfall := row.total - row.current
		if shortfall < 0 {
			shortfall = 0
		}
		record := []string{
			row.code,
			row.name,
			formatNumber(row.safety),
			formatNumber(row.current),
			formatNumber(row.total),
			formatNumber(shortfall),
		}
		for _, date := range dates {
			usage := row.usage[date]
			prev := row.previous[date]
			record = append(record, formatNumber(usage), formatNumber(prev), formatNumber(usage-prev))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write diff row for %s: %w", row.code, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func diffRows(current, previous *dto.PlanResult) ([]*diffRow, []string) {
	var rows []*diffRow
	byCode := make(map[string]*diffRow)
	dateSet := make(map[string]struct{})

	get := func(code, name string) *diffRow {
		if row, ok := byCode[code]; ok {
			return row
		}
		row := &diffRow{
			code:     code,
			name:     name,
			usage:    make(map[string]float64),
			previous: make(map[string]float64),
		}
		byCode[code] = row
		rows = append(rows, row)
		return row
	}

	for _, overall := range current.OverallMaterialRequirements {
		row := get(overall.MaterialCode, overall.MaterialName)
		row.safety = overall.SafetyStock
		row.current = overall.CurrentStock
		row.total = overall.TotalUsed
	}
	for _, day := range current.MaterialRequirements {
		dateSet[day.Date] = struct{}{}
		for _, m := range day.Materials {
			get(m.MaterialCode, m.MaterialName).usage[day.Date] += m.Usage
		}
	}

	if previous != nil {
		for _, day := range previous.MaterialRequirements {
			dateSet[day.Date] = struct{}{}
			for _, m := range day.Materials {
				get(m.MaterialCode, m.MaterialName).previous[day.Date] += m.Usage
			}
		}
	}

	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return rows, dates
}

func formatNumber(f float64) string {
	return entities.Quantity(f).String()
}

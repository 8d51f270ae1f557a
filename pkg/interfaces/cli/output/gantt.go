package output

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/vsinha/batchplan/pkg/application/dto"
	"github.com/vsinha/batchplan/pkg/domain/entities"
)

// Bar kinds
const (
	BarReorder     = "reorder"
	BarLateReorder = "late"
	BarProduction  = "production"
)

// GanttChart renders reorder lead-time windows and reactor occupancy on one time axis
type GanttChart struct {
	Width        int
	Height       int
	MarginLeft   int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	RowHeight    int
	StartTime    time.Time
	EndTime      time.Time
}

// GanttBar represents a single bar in the Gantt chart
type GanttBar struct {
	Row      string
	Kind     string
	Label    string
	Quantity float64
	Start    time.Time
	End      time.Time
	X        int
	Width    int
	Color    string
}

// NewGanttChart sizes a chart for result
func NewGanttChart(result *dto.PlanResult) *GanttChart {
	chart := &GanttChart{
		Width:        800,
		Height:       200,
		MarginLeft:   150,
		MarginTop:    50,
		MarginRight:  50,
		MarginBottom: 50,
		RowHeight:    25,
	}

	bars := collectBars(result)
	if len(bars) == 0 {
		return chart
	}

	startTime, endTime := bars[0].Start, bars[0].End
	rows := make(map[string]struct{})
	for _, bar := range bars {
		if bar.Start.Before(startTime) {
			startTime = bar.Start
		}
		if bar.End.After(endTime) {
			endTime = bar.End
		}
		rows[bar.Row] = struct{}{}
	}

	// one day of padding either side
	startTime = entities.AddDays(startTime, -1)
	endTime = entities.AddDays(endTime, 1)

	rowHeight := 30
	return &GanttChart{
		Width:        1200,
		Height:       len(rows)*rowHeight + 200,
		MarginLeft:   200,
		MarginTop:    60,
		MarginRight:  100,
		MarginBottom: 80,
		RowHeight:    rowHeight,
		StartTime:    startTime,
		EndTime:      endTime,
	}
}

// collectBars turns placed reorders into placement-to-need bars per material and
// completed production into start-to-completion bars per reactor
func collectBars(result *dto.PlanResult) []GanttBar {
	var bars []GanttBar
	if result == nil {
		return bars
	}
	for _, day := range result.Reorders {
		date, err := entities.ParseDate(day.Date)
		if err != nil {
			continue
		}
		for _, line := range day.ReordersPlaced {
			need, err := entities.ParseDate(line.NeedDate)
			if err != nil || need.Before(date) {
				need = date
			}
			kind := BarReorder
			if line.Late {
				kind = BarLateReorder
			}
			bars = append(bars, GanttBar{
				Row:      line.MaterialCode,
				Kind:     kind,
				Label:    line.MaterialName,
				Quantity: line.Qty,
				Start:    date,
				End:      need,
			})
		}
		for _, done := range day.ProductionCompleted {
			start, err := entities.ParseDate(done.StartDate)
			if err != nil {
				start = date
			}
			bars = append(bars, GanttBar{
				Row:      "Reactor " + done.Reactor,
				Kind:     BarProduction,
				Label:    done.Batch,
				Quantity: done.BatchSize,
				Start:    start,
				End:      date,
			})
		}
	}
	return bars
}

// GenerateSVG creates an SVG representation of the Gantt chart
func (gc *GanttChart) GenerateSVG(result *dto.PlanResult) string {
	bars := collectBars(result)
	if len(bars) == 0 {
		return gc.generateEmptyChart()
	}

	var svg strings.Builder

	svg.WriteString(fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, gc.Width, gc.Height))
	svg.WriteString(`<defs>`)
	svg.WriteString(`<style>`)
	svg.WriteString(`.row-label { font-family: Arial, sans-serif; font-size: 12px; fill: #333; }`)
	svg.WriteString(`.time-label { font-family: Arial, sans-serif; font-size: 10px; fill: #666; }`)
	svg.WriteString(`.title { font-family: Arial, sans-serif; font-size: 16px; font-weight: bold; fill: #333; }`)
	svg.WriteString(`.grid-line { stroke: #e0e0e0; stroke-width: 1; }`)
	svg.WriteString(`.bar { stroke: #333; stroke-width: 1; }`)
	svg.WriteString(`.bar-text { font-family: Arial, sans-serif; font-size: 9px; fill: white; }`)
	svg.WriteString(`</style>`)
	svg.WriteString(`</defs>`)

	svg.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>`, gc.Width, gc.Height))

	title := "Reorder and Production Schedule"
	if result.StockInventory != "" {
		title += " - " + result.StockInventory
	}
	svg.WriteString(fmt.Sprintf(`<text x="%d" y="30" class="title" text-anchor="middle">%s</text>`, gc.Width/2, html.EscapeString(title)))

	rows, order := gc.organizeBars(gc.positionBars(bars))

	gc.drawTimeAxis(&svg)
	gc.drawTimeGrid(&svg)
	gc.drawRows(&svg, rows, order)
	gc.drawLegend(&svg)

	svg.WriteString(`</svg>`)
	return svg.String()
}

func (gc *GanttChart) positionBars(bars []GanttBar) []GanttBar {
	chartWidth := gc.Width - gc.MarginLeft - gc.MarginRight
	totalDuration := gc.EndTime.Sub(gc.StartTime)

	for i := range bars {
		bar := &bars[i]
		startOffset := bar.Start.Sub(gc.StartTime)
		// bars cover whole days, so the end date is inclusive
		duration := entities.AddDays(bar.End, 1).Sub(bar.Start)

		bar.X = gc.MarginLeft + int(float64(startOffset)/float64(totalDuration)*float64(chartWidth))
		bar.Width = int(float64(duration) / float64(totalDuration) * float64(chartWidth))
		if bar.Width < 2 {
			bar.Width = 2
		}
		bar.Color = barColor(bar.Kind)
	}
	return bars
}

// organizeBars groups bars by row. Material rows come first in code order, then reactors.
func (gc *GanttChart) organizeBars(bars []GanttBar) (map[string][]GanttBar, []string) {
	rows := make(map[string][]GanttBar)
	var order []string
	for _, bar := range bars {
		if _, ok := rows[bar.Row]; !ok {
			order = append(order, bar.Row)
		}
		rows[bar.Row] = append(rows[bar.Row], bar)
	}

	for row := range rows {
		sort.SliceStable(rows[row], func(i, j int) bool {
			return rows[row][i].Start.Before(rows[row][j].Start)
		})
	}
	sort.SliceStable(order, func(i, j int) bool {
		iReactor := rows[order[i]][0].Kind == BarProduction
		jReactor := rows[order[j]][0].Kind == BarProduction
		if iReactor != jReactor {
			return !iReactor
		}
		return order[i] < order[j]
	})
	return rows, order
}

func (gc *GanttChart) drawTimeAxis(svg *strings.Builder) {
	chartWidth := gc.Width - gc.MarginLeft - gc.MarginRight
	totalDuration := gc.EndTime.Sub(gc.StartTime)
	days := int(math.Ceil(totalDuration.Hours() / 24))

	step := 1
	switch {
	case days > 180:
		step = 30
	case days > 30:
		step = 7
	}

	y := gc.Height - gc.MarginBottom + 20
	for d := 0; d <= days; d += step {
		t := entities.AddDays(gc.StartTime, d)
		x := gc.MarginLeft + int(float64(t.Sub(gc.StartTime))/float64(totalDuration)*float64(chartWidth))
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="time-label" text-anchor="middle">%s</text>`,
			x, y, t.Format("Jan 2")))
	}
}

func (gc *GanttChart) drawTimeGrid(svg *strings.Builder) {
	chartWidth := gc.Width - gc.MarginLeft - gc.MarginRight
	totalDuration := gc.EndTime.Sub(gc.StartTime)
	days := int(math.Ceil(totalDuration.Hours() / 24))
	gridTop := gc.MarginTop
	gridBottom := gc.Height - gc.MarginBottom

	for d := 0; d <= days; d++ {
		t := entities.AddDays(gc.StartTime, d)
		x := gc.MarginLeft + int(float64(t.Sub(gc.StartTime))/float64(totalDuration)*float64(chartWidth))
		svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
			x, gridTop, x, gridBottom))
	}
}

func (gc *GanttChart) drawRows(svg *strings.Builder, rows map[string][]GanttBar, order []string) {
	maxRowY := gc.Height - gc.MarginBottom - 30
	rowHeight := (maxRowY - gc.MarginTop) / len(order)
	if rowHeight > gc.RowHeight {
		rowHeight = gc.RowHeight
	}

	for i, row := range order {
		y := gc.MarginTop + i*rowHeight

		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="row-label" text-anchor="end">%s</text>`,
			gc.MarginLeft-15, y+rowHeight/2+4, html.EscapeString(row)))
		svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
			gc.MarginLeft, y+rowHeight, gc.Width-gc.MarginRight, y+rowHeight))

		for _, bar := range rows[row] {
			gc.drawBar(svg, bar, y, rowHeight)
		}
	}
}

func (gc *GanttChart) drawBar(svg *strings.Builder, bar GanttBar, rowY int, rowHeight int) {
	barHeight := rowHeight - 4
	barY := rowY + 2

	svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s" class="bar">`,
		bar.X, barY, bar.Width, barHeight, bar.Color))
	svg.WriteString(fmt.Sprintf(`<title>%s</title></rect>`, html.EscapeString(fmt.Sprintf("%s %s, qty %s, %s to %s",
		bar.Label,
		bar.Kind,
		number(bar.Quantity),
		entities.FormatDate(bar.Start),
		entities.FormatDate(bar.End)))))

	if bar.Width > 40 {
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="bar-text" text-anchor="middle">%s</text>`,
			bar.X+bar.Width/2, barY+barHeight/2+3, number(bar.Quantity)))
	}
}

func (gc *GanttChart) drawLegend(svg *strings.Builder) {
	legendX := gc.Width - gc.MarginRight - 200
	legendY := 40

	svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="180" height="60" fill="white" stroke="#ccc" stroke-width="1"/>`,
		legendX, legendY))

	items := []struct {
		kind  string
		label string
	}{
		{BarReorder, "Reorder lead time"},
		{BarLateReorder, "Late reorder"},
		{BarProduction, "Batch in reactor"},
	}
	for i, item := range items {
		itemY := legendY + 12 + i*14
		svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="12" height="8" fill="%s"/>`,
			legendX+10, itemY, barColor(item.kind)))
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="time-label">%s</text>`,
			legendX+30, itemY+7, item.label))
	}
}

func barColor(kind string) string {
	switch kind {
	case BarReorder:
		return "#2196F3"
	case BarLateReorder:
		return "#F44336"
	case BarProduction:
		return "#4CAF50"
	default:
		return "#9E9E9E"
	}
}

func (gc *GanttChart) generateEmptyChart() string {
	return fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
		<rect width="%d" height="%d" fill="white"/>
		<text x="%d" y="%d" class="title" text-anchor="middle">No Reorders or Production Found</text>
		<style>
			.title { font-family: Arial, sans-serif; font-size: 16px; fill: #666; }
		</style>
	</svg>`, gc.Width, gc.Height, gc.Width, gc.Height, gc.Width/2, gc.Height/2)
}

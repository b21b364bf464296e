package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportReport renders the current monitoring stats and per-system breakdown
// into an xlsx workbook.
func (s *StatsServiceImpl) ExportReport(ctx context.Context) ([]byte, error) {
	stats, err := s.GetMonitoringStats(ctx)
	if err != nil {
		return nil, err
	}
	report, err := s.GetPerformanceReport(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	overview := "Overview"
	index, err := f.NewSheet(overview)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	overviewRows := [][]interface{}{
		{"Metric", "Value"},
		{"Generated at", time.Now().Format("2006-01-02 15:04:05")},
		{"Total mappings", stats.TotalMappings},
		{"Active mappings", stats.ActiveMappings},
		{"Inactive mappings", stats.InactiveMappings},
		{"Mappings with conflicts", stats.ConflictMappings},
		{"Mappings with errors", stats.ErrorMappings},
		{"Updates last 24h", stats.RecentActivity.Last24Hours},
		{"Updates last 7d", stats.RecentActivity.Last7Days},
		{"Updates last 30d", stats.RecentActivity.Last30Days},
		{"Avg response time (ms)", fmt.Sprintf("%.1f", report.AvgResponseTimeMs)},
	}
	for rowIdx, row := range overviewRows {
		for colIdx, val := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			f.SetCellValue(overview, cell, val)
			if rowIdx == 0 {
				f.SetCellStyle(overview, cell, cell, headerStyle)
			}
		}
	}

	systems := "Systems"
	if _, err := f.NewSheet(systems); err != nil {
		return nil, err
	}

	systemHeader := []string{"System", "Healthy", "Response time (ms)", "Mappings", "Active", "Conflicts", "Errors", "Error rate"}
	for i, col := range systemHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(systems, cell, col)
		f.SetCellStyle(systems, cell, cell, headerStyle)
	}

	for rowIdx, system := range sortedSystems(stats.HealthStatuses) {
		status := stats.HealthStatuses[system]

		var total, active, conflicts, errors int64
		var errorRate float64
		if sys, ok := stats.SystemBreakdown[system]; ok {
			total, active, conflicts, errors = sys.Total, sys.Active, sys.WithConflicts, sys.WithErrors
			if sys.Total > 0 {
				errorRate = float64(sys.WithErrors) / float64(sys.Total)
			}
		}

		row := []interface{}{
			string(system),
			status.IsHealthy,
			status.ResponseTime.Milliseconds(),
			total,
			active,
			conflicts,
			errors,
			fmt.Sprintf("%.1f%%", errorRate*100),
		}
		for colIdx, val := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(systems, cell, val)
		}
	}

	for _, sheet := range []string{overview, systems} {
		for i := 1; i <= 8; i++ {
			col, _ := excelize.ColumnNumberToName(i)
			f.SetColWidth(sheet, col, col, 22)
		}
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

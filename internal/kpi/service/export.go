package service

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"github.com/zoutigo/smc-kpi/internal/kpi/cache"
	"github.com/zoutigo/smc-kpi/internal/kpi/repository"
	"github.com/zoutigo/smc-kpi/internal/kpi/rollup"
)

var packagingExportHeaders = []string{
	"ID", "Name", "Status", "Plant", "Supplier", "Flow", "Units",
	"Price", "Accessories/unit", "Full unit cost", "Park value",
	"Volume (m³)", "Capacity", "Density", "€/capacity",
}

var partExportHeaders = []string{
	"Packaging", "Plant", "Part", "Reference", "Family", "Parts/packaging",
}

var accessoryExportHeaders = []string{
	"Accessory", "Packagings", "Total qty", "Park cost", "Avg unit price",
}

// ExportCategory 导出分类看板明细为xlsx（包装/零件/附件三个工作表）
func (s *DashboardService) ExportCategory(ctx context.Context, slug string, f repository.Filters) (*excelize.File, string, error) {
	if err := checkSlug(slug); err != nil {
		return nil, "", err
	}
	key := ScopeKey(cache.CategoryScope(slug), f)
	snap, err := s.packagingSnapshot(ctx, slug, f, key)
	if err != nil {
		return nil, "", err
	}

	items := rollup.DerivePackagings(snap.Items)

	x := excelize.NewFile()
	headerStyle, _ := x.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	sheet := "Packagings"
	x.SetSheetName("Sheet1", sheet)
	writeHeader(x, sheet, packagingExportHeaders, headerStyle)
	for i, p := range items {
		writeRow(x, sheet, i+2, []interface{}{
			p.ID, p.Name, p.Status, p.PlantName, p.SupplierName, p.FlowName, p.NumberOfPackagings,
			p.Price, p.AccessoriesUnit, p.FullUnitCost, p.FullParkValue,
			p.VolumeUnit, p.CapacityUnit, p.Density, p.EuroPerCapacity,
		})
	}

	// 底部汇总行
	summaryRow := len(items) + 2
	summaryStyle, _ := x.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	overview := overviewSection(items)
	x.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "Total")
	x.SetCellValue(sheet, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("%d packagings", overview.Cards.PackagingCount))
	x.SetCellValue(sheet, fmt.Sprintf("G%d", summaryRow), overview.Cards.TotalUnits)
	x.SetCellValue(sheet, fmt.Sprintf("K%d", summaryRow), overview.Cards.TotalValue)
	x.SetCellValue(sheet, fmt.Sprintf("M%d", summaryRow), overview.Cards.TotalCapacity)
	x.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("O%d", summaryRow), summaryStyle)
	setColWidths(x, sheet, []float64{14, 24, 10, 16, 18, 14, 8, 10, 14, 14, 14, 12, 10, 10, 12})

	sheet = "Parts"
	x.NewSheet(sheet)
	writeHeader(x, sheet, partExportHeaders, headerStyle)
	for i, l := range rollup.PartLines(items) {
		writeRow(x, sheet, i+2, []interface{}{
			l.PackagingName, l.PlantName, l.PartName, l.Reference, l.Family, l.PartsPerPackaging,
		})
	}
	setColWidths(x, sheet, []float64{24, 16, 24, 16, 18, 14})

	sheet = "Accessories"
	x.NewSheet(sheet)
	writeHeader(x, sheet, accessoryExportHeaders, headerStyle)
	for i, a := range rollup.AccessoriesByID(items) {
		writeRow(x, sheet, i+2, []interface{}{a.Name, a.Packagings, a.TotalQty, a.ParkCost, a.AvgUnit})
	}
	setColWidths(x, sheet, []float64{24, 12, 12, 14, 14})

	filename := fmt.Sprintf("KPI_%s_%s.xlsx", slug, s.opts.Clock.Now().Format("20060102"))
	if snap.Truncated {
		filename = fmt.Sprintf("KPI_%s_%s_first%d.xlsx", slug, s.opts.Clock.Now().Format("20060102"), s.opts.MaxItems)
	}
	return x, filename, nil
}

func writeHeader(x *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		x.SetCellValue(sheet, cell, h)
		x.SetCellStyle(sheet, cell, cell, style)
	}
}

func writeRow(x *excelize.File, sheet string, row int, values []interface{}) {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	x.SetSheetRow(sheet, cell, &values)
}

func setColWidths(x *excelize.File, sheet string, widths []float64) {
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		x.SetColWidth(sheet, col, col, w)
	}
}

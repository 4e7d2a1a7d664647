package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"royaltyhub/src/models"
	"royaltyhub/src/schemas"

	"github.com/xuri/excelize/v2"
)

// Exporter produces a self-contained binary artifact from a rendered
// document. The report type picks the workbook title layout.
type Exporter interface {
	Render(ctx context.Context, reportType models.ReportType, document *schemas.PreviewDocument) ([]byte, error)
}

var workbookTitles = map[models.ReportType]string{
	models.ReportTypeWorks:     "Works Report",
	models.ReportTypeRoyalties: "Royalty Distributions Report",
	models.ReportTypeAnalytics: "Analytics Report",
}

// ExcelExporter renders a preview document into an xlsx workbook, one
// sheet per section plus an overview sheet.
type ExcelExporter struct{}

func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

func (e *ExcelExporter) Render(_ context.Context, reportType models.ReportType, document *schemas.PreviewDocument) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	title, ok := workbookTitles[reportType]
	if !ok {
		return nil, fmt.Errorf("%w: report type %s", ErrUnsupportedQuery, reportType)
	}

	overview := "Overview"
	f.SetSheetName("Sheet1", overview)
	if err := e.writeOverview(f, overview, title, document, headerStyle); err != nil {
		return nil, err
	}

	used := map[string]bool{overview: true}
	for i, section := range document.Sections {
		name := uniqueSheetName(sheetName(section.Title, i), i, used)
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
		if err := e.writeSection(f, name, section, headerStyle); err != nil {
			return nil, err
		}
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (e *ExcelExporter) writeOverview(f *excelize.File, sheet, title string, document *schemas.PreviewDocument, headerStyle int) error {
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", headerStyle); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "A2", document.Name); err != nil {
		return err
	}
	if document.Description != "" {
		if err := f.SetCellValue(sheet, "A3", document.Description); err != nil {
			return err
		}
	}
	return nil
}

func (e *ExcelExporter) writeSection(f *excelize.File, sheet string, section schemas.PreviewedSection, headerStyle int) error {
	switch section.Type {
	case models.SectionSummary:
		var data map[string]float64
		if err := json.Unmarshal(section.Data, &data); err != nil {
			return fmt.Errorf("summary section data: %w", err)
		}
		if err := e.writeHeader(f, sheet, []string{"Metric", "Value"}, headerStyle); err != nil {
			return err
		}
		row := 2
		for _, metric := range section.Metrics {
			if err := e.writeRow(f, sheet, row, []interface{}{metric, data[metric]}); err != nil {
				return err
			}
			row++
		}
	case models.SectionChart:
		var points []schemas.DataPoint
		if err := json.Unmarshal(section.Data, &points); err != nil {
			return fmt.Errorf("chart section data: %w", err)
		}
		if err := e.writeHeader(f, sheet, []string{"Dimension", "Value"}, headerStyle); err != nil {
			return err
		}
		for i, point := range points {
			if err := e.writeRow(f, sheet, i+2, []interface{}{point.Dimension, point.Value}); err != nil {
				return err
			}
		}
	case models.SectionTable:
		var rows []map[string]interface{}
		if err := json.Unmarshal(section.Data, &rows); err != nil {
			return fmt.Errorf("table section data: %w", err)
		}
		headers := make([]string, len(section.Columns))
		copy(headers, section.Columns)
		if err := e.writeHeader(f, sheet, headers, headerStyle); err != nil {
			return err
		}
		for i, tableRow := range rows {
			values := make([]interface{}, len(section.Columns))
			for j, column := range section.Columns {
				values[j] = tableRow[column]
			}
			if err := e.writeRow(f, sheet, i+2, values); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedSectionType, section.Type)
	}
	return nil
}

func (e *ExcelExporter) writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	endCell, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", endCell, style)
}

func (e *ExcelExporter) writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return err
		}
	}
	return nil
}

// sheetName derives a valid xlsx sheet name from the section title.
func sheetName(title string, index int) string {
	name := title
	if name == "" {
		name = fmt.Sprintf("Section %d", index+1)
	}
	replacer := strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", " ", "]", " ")
	name = replacer.Replace(name)
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// uniqueSheetName suffixes the section index when a name is already taken,
// since excelize.NewSheet would otherwise reuse the existing sheet and the
// later section would overwrite the earlier one.
func uniqueSheetName(name string, index int, used map[string]bool) string {
	if used[name] {
		suffix := fmt.Sprintf(" %d", index+1)
		if len(name)+len(suffix) > 31 {
			name = name[:31-len(suffix)]
		}
		name += suffix
	}
	used[name] = true
	return name
}

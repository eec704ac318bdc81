package importer

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/financas/server/internal/domain"
)

// TemplateFileName is the suggested download name for the template.
const TemplateFileName = "modelo_importacao.xlsx"

const templateSheet = "Modelo"

var templateWidths = []float64{12, 25, 10, 10, 20, 20}

var templateExamples = [][]any{
	{"05/08/2024", "Salário de Agosto", 5500.00, domain.LabelIncome, "Salário", "Conta Corrente"},
	{"10/08/2024", "Compras no mercado", 450.25, domain.LabelExpense, "Alimentação", "Cartão de Crédito"},
}

// BuildTemplate generates the downloadable import template: the header
// row plus two example rows showing the expected formats.
func BuildTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(templateSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("remove default sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := writeRow(f, 1, header); err != nil {
		return nil, err
	}
	for i, example := range templateExamples {
		if err := writeRow(f, i+2, example); err != nil {
			return nil, err
		}
	}

	for i, width := range templateWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(templateSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(templateSheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

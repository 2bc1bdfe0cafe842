package statement

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// NormalizeXLSX extracts the transaction table from the first sheet of an
// XLSX workbook. Spreadsheet rows feed the same record-based path as CSV
// lines, so dump detection and column mapping behave identically.
func NormalizeXLSX(data []byte, hint Format) (*Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("NormalizeXLSX: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &EmptyStatementError{}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("NormalizeXLSX: read sheet %q: %w", sheets[0], err)
	}

	// Drop fully blank spreadsheet rows before normalization, mirroring the
	// blank-line handling of the text path.
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		blank := true
		for _, c := range row {
			if c != "" {
				blank = false
				break
			}
		}
		if !blank {
			records = append(records, row)
		}
	}

	return NormalizeRows(records, hint)
}

package statement

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeXLSX(t *testing.T) {
	data := workbookBytes(t, [][]interface{}{
		{"Date", "Description", "Deposit", "Withdrawal"},
		{"01/02/2024", "SALARY FEB", "55000", ""},
		{"03/02/2024", "GROCERY STORE", "", "1200.50"},
	})

	doc, err := NormalizeXLSX(data, FormatAuto)
	if err != nil {
		t.Fatalf("NormalizeXLSX() error = %v", err)
	}
	if len(doc.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(doc.Rows))
	}
	if !doc.Rows[0].Credit || doc.Rows[0].Amount != 55000 {
		t.Errorf("deposit row: credit=%v amount=%v", doc.Rows[0].Credit, doc.Rows[0].Amount)
	}
	if doc.Rows[1].Credit || doc.Rows[1].Amount != 1200.50 {
		t.Errorf("withdrawal row: credit=%v amount=%v", doc.Rows[1].Credit, doc.Rows[1].Amount)
	}
}

func TestNormalizeXLSXNotAWorkbook(t *testing.T) {
	if _, err := NormalizeXLSX([]byte("just some text"), FormatAuto); err == nil {
		t.Error("expected an error for non-XLSX bytes")
	}
}

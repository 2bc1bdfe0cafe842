// Package statement turns raw statement text into an ordered sequence of
// transaction rows with a resolved column mapping. It understands two shapes:
// plain tabular CSV, and multi-section bank-statement dumps where the
// transaction table is buried between a preamble and account-summary footers.
package statement

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"
)

// Format is an optional hint about the statement's shape.
type Format string

const (
	FormatAuto Format = "auto"
	FormatCSV  Format = "csv"
	FormatDump Format = "dump"
)

// transactionsMarker announces the transaction table inside a statement dump.
const transactionsMarker = "statement of transactions"

// footerMarkers end the transaction body when one appears in a row.
var footerMarkers = []string{
	"savings account number",
	"account summary",
	"closing balance",
	"end of statement",
}

// RawRow is one line of the detected transaction table after amount and date
// resolution. Exactly one amount representation survives normalization: the
// absolute Amount plus the Credit direction flag.
type RawRow struct {
	Line        int    // 1-based position in the source
	DateText    string // original date cell, kept for error reporting
	Date        time.Time
	Description string
	Reference   string   // MODE / reference column when present
	Amount      float64  // absolute value
	Credit      bool     // true when money in
	Balance     *float64 // running balance when present

	// BalanceForward marks an opening-balance row retained only so its date
	// can extend the statement's date range. It never becomes a transaction.
	BalanceForward bool
}

// ColumnMapping is the resolved header→role assignment. Indexes are -1 when
// the role did not resolve.
type ColumnMapping struct {
	Date        int
	Description int
	Amount      int // single signed-amount column
	Deposit     int // credit column in two-column formats
	Withdrawal  int // debit column in two-column formats
	Balance     int
	Reference   int
}

func emptyMapping() ColumnMapping {
	return ColumnMapping{Date: -1, Description: -1, Amount: -1, Deposit: -1, Withdrawal: -1, Balance: -1, Reference: -1}
}

// twoColumn reports whether amounts arrive as a deposit/withdrawal pair.
func (m ColumnMapping) twoColumn() bool {
	return m.Deposit >= 0 || m.Withdrawal >= 0
}

// width is the minimum record length a data row must have to be usable.
func (m ColumnMapping) width() int {
	max := m.Date
	for _, idx := range []int{m.Description, m.Amount, m.Deposit, m.Withdrawal} {
		if idx > max {
			max = idx
		}
	}
	return max + 1
}

// Document is the normalizer's output: rows in file order plus the mapping
// they were parsed with. Skipped collects per-row issues that did not abort
// the parse.
type Document struct {
	Rows    []RawRow
	Mapping ColumnMapping
	Skipped []string
}

// EmptyStatementError means no usable data rows remained after the header.
type EmptyStatementError struct{}

func (e *EmptyStatementError) Error() string {
	return "statement contains no transaction rows"
}

// UnrecognizedFormatError means the date or amount column could not be
// resolved, so the input is not a transaction table.
type UnrecognizedFormatError struct {
	Reason string
}

func (e *UnrecognizedFormatError) Error() string {
	return fmt.Sprintf("unrecognized statement format: %s", e.Reason)
}

// Normalize tokenizes raw statement text and extracts the transaction table.
func Normalize(text string, hint Format) (*Document, error) {
	records, lines, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	return normalizeRecords(records, lines, hint)
}

// NormalizeRows extracts the transaction table from already-tokenized rows,
// e.g. spreadsheet cells. Row numbers reported in errors are 1-based.
func NormalizeRows(records [][]string, hint Format) (*Document, error) {
	lines := make([]int, len(records))
	for i := range records {
		lines[i] = i + 1
	}
	return normalizeRecords(records, lines, hint)
}

// tokenize splits text into per-line CSV records. Parsing line by line keeps
// dump segmentation simple while still respecting quoted fields, so commas
// inside descriptions do not shift columns.
func tokenize(text string) ([][]string, []int, error) {
	var records [][]string
	var lines []int

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		r := csv.NewReader(strings.NewReader(line))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		rec, err := r.Read()
		if err != nil {
			// A preamble line that is not valid CSV is kept verbatim as a
			// single field so marker detection still sees it.
			rec = []string{line}
		}
		records = append(records, rec)
		lines = append(lines, i+1)
	}

	if len(records) == 0 {
		return nil, nil, &EmptyStatementError{}
	}
	return records, lines, nil
}

func normalizeRecords(records [][]string, lines []int, hint Format) (*Document, error) {
	if len(records) == 0 {
		return nil, &EmptyStatementError{}
	}

	headerIdx, mapping, err := locateHeader(records, hint)
	if err != nil {
		return nil, err
	}

	doc := &Document{Mapping: mapping}
	dump := headerIdx > 0 || hint == FormatDump

	for i := headerIdx + 1; i < len(records); i++ {
		rec := records[i]

		if dump {
			if isFooter(rec) {
				break
			}
			// Short records are common when trailing empty cells are trimmed
			// (spreadsheet readers and hand-edited CSV both do this), so a
			// column-count mismatch alone is not conclusive. A short record
			// without a date ends the transaction body; one with a date is
			// parsed as if the missing cells were empty.
			if len(rec) < mapping.width() {
				if _, err := ParseDate(cell(rec, mapping.Date)); err != nil {
					break
				}
			}
		}

		row, skip, err := parseRow(rec, lines[i], mapping)
		if err != nil {
			doc.Skipped = append(doc.Skipped, err.Error())
			continue
		}
		if skip {
			continue
		}
		doc.Rows = append(doc.Rows, row)
	}

	if len(doc.Rows) == 0 && len(doc.Skipped) == 0 {
		return nil, &EmptyStatementError{}
	}
	return doc, nil
}

// locateHeader finds the header record and resolves its column mapping.
//
// Dump shape: a marker record equal to "STATEMENT OF TRANSACTIONS" announces
// the table; the next non-blank record is the header. Without a marker, the
// first record that resolves both a date and an amount role is the header,
// which also covers the plain-CSV path (header on the first line).
func locateHeader(records [][]string, hint Format) (int, ColumnMapping, error) {
	if hint != FormatCSV {
		for i, rec := range records {
			if !isMarker(rec) {
				continue
			}
			if i+1 >= len(records) {
				return 0, ColumnMapping{}, &EmptyStatementError{}
			}
			mapping, err := resolveColumns(records[i+1])
			if err != nil {
				return 0, ColumnMapping{}, err
			}
			return i + 1, mapping, nil
		}
	}

	// Plain-CSV path: the first record is the header.
	mapping, err := resolveColumns(records[0])
	if err == nil {
		return 0, mapping, nil
	}
	if hint == FormatCSV {
		return 0, ColumnMapping{}, err
	}

	// Dump without a marker: scan past the preamble for a record that looks
	// like a transaction-table header.
	for i := 1; i < len(records); i++ {
		if m, e := resolveColumns(records[i]); e == nil {
			return i, m, nil
		}
	}
	return 0, ColumnMapping{}, err
}

func isMarker(rec []string) bool {
	for _, cell := range rec {
		if strings.EqualFold(strings.TrimSpace(cell), transactionsMarker) {
			return true
		}
	}
	return false
}

func isFooter(rec []string) bool {
	joined := strings.ToLower(strings.Join(rec, " "))
	for _, marker := range footerMarkers {
		if strings.Contains(joined, marker) {
			return true
		}
	}
	return false
}

// role names in resolution priority order. A header cell is claimed by the
// first role whose keyword it contains; a second cell claiming an
// already-assigned role is an error rather than a silent overwrite.
var headerRoles = []struct {
	name     string
	keywords []string
}{
	{"date", []string{"date"}},
	{"description", []string{"description", "particulars", "narration", "memo", "payee", "details"}},
	{"deposit", []string{"deposit", "credit"}},
	{"withdrawal", []string{"withdrawal", "debit"}},
	{"amount", []string{"amount"}},
	{"balance", []string{"balance"}},
	{"reference", []string{"mode", "ref", "cheque"}},
}

// resolveColumns assigns header cells to roles by substring containment.
func resolveColumns(header []string) (ColumnMapping, error) {
	mapping := emptyMapping()

	assign := func(role string, idx int) error {
		var target *int
		switch role {
		case "date":
			target = &mapping.Date
		case "description":
			target = &mapping.Description
		case "deposit":
			target = &mapping.Deposit
		case "withdrawal":
			target = &mapping.Withdrawal
		case "amount":
			target = &mapping.Amount
		case "balance":
			target = &mapping.Balance
		case "reference":
			target = &mapping.Reference
		}
		if *target >= 0 {
			return &UnrecognizedFormatError{Reason: fmt.Sprintf("duplicate %s column (%d and %d)", role, *target+1, idx+1)}
		}
		*target = idx
		return nil
	}

	for idx, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		if name == "" {
			continue
		}
		for _, role := range headerRoles {
			matched := false
			for _, kw := range role.keywords {
				if strings.Contains(name, kw) {
					matched = true
					break
				}
			}
			if matched {
				if err := assign(role.name, idx); err != nil {
					return ColumnMapping{}, err
				}
				break
			}
		}
	}

	if mapping.Date < 0 {
		return ColumnMapping{}, &UnrecognizedFormatError{Reason: "no date column resolved"}
	}
	if mapping.Amount < 0 && !mapping.twoColumn() {
		return ColumnMapping{}, &UnrecognizedFormatError{Reason: "no amount, debit or credit column resolved"}
	}
	if mapping.Amount >= 0 && mapping.twoColumn() {
		return ColumnMapping{}, &UnrecognizedFormatError{Reason: "both a signed amount column and a debit/credit pair resolved"}
	}
	return mapping, nil
}

// balanceForwardPatterns identify opening-balance rows, which carry no amount
// but whose date still bounds the statement period.
var balanceForwardPatterns = []string{"b/f", "balance forward", "brought forward", "opening balance"}

func isBalanceForward(desc string) bool {
	lower := strings.ToLower(desc)
	for _, p := range balanceForwardPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

// parseRow converts one record into a RawRow. skip=true drops the row
// silently (zero-amount non-transactions); an error reports a skipped row.
func parseRow(rec []string, line int, mapping ColumnMapping) (RawRow, bool, error) {
	row := RawRow{
		Line:        line,
		DateText:    cell(rec, mapping.Date),
		Description: cell(rec, mapping.Description),
		Reference:   cell(rec, mapping.Reference),
	}

	date, err := ParseDate(row.DateText)
	if err != nil {
		return RawRow{}, false, fmt.Errorf("row %d: unparseable date %q", line, row.DateText)
	}
	row.Date = date

	if bal := cell(rec, mapping.Balance); bal != "" {
		if v, err := ParseAmount(bal); err == nil {
			row.Balance = &v
		}
	}

	if mapping.twoColumn() {
		deposit, err := parseOptionalAmount(cell(rec, mapping.Deposit))
		if err != nil {
			return RawRow{}, false, fmt.Errorf("row %d: bad deposit value: %v", line, err)
		}
		withdrawal, err := parseOptionalAmount(cell(rec, mapping.Withdrawal))
		if err != nil {
			return RawRow{}, false, fmt.Errorf("row %d: bad withdrawal value: %v", line, err)
		}

		switch {
		case deposit != 0 && withdrawal != 0:
			return RawRow{}, false, fmt.Errorf("row %d: both deposit and withdrawal are non-zero", line)
		case deposit != 0:
			row.Amount = deposit
			row.Credit = true
		case withdrawal != 0:
			row.Amount = withdrawal
			row.Credit = false
		default:
			// Zero in both columns: a balance-forward row is retained for
			// its date, anything else is not a transaction.
			if isBalanceForward(row.Description) {
				row.BalanceForward = true
				return row, false, nil
			}
			return RawRow{}, true, nil
		}
		if row.Amount < 0 {
			return RawRow{}, false, fmt.Errorf("row %d: negative value in %s column", line, map[bool]string{true: "deposit", false: "withdrawal"}[row.Credit])
		}
		return row, false, nil
	}

	signed, err := ParseAmount(cell(rec, mapping.Amount))
	if err != nil {
		return RawRow{}, false, fmt.Errorf("row %d: bad amount value: %v", line, err)
	}
	if signed == 0 {
		if isBalanceForward(row.Description) {
			row.BalanceForward = true
			return row, false, nil
		}
		return RawRow{}, true, nil
	}
	row.Credit = signed > 0
	if signed < 0 {
		signed = -signed
	}
	row.Amount = signed
	return row, false, nil
}

func parseOptionalAmount(s string) (float64, error) {
	if s == "" || s == "-" {
		return 0, nil
	}
	return ParseAmount(s)
}

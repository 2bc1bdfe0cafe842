// Package classify assigns category, merchant and direction to normalized
// statement rows. Two interchangeable strategies exist behind one interface:
// a batched Gemini call and a deterministic keyword fallback that needs no
// network and can never fail.
package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/dhruvpathak/finimport/internal/domain"
	"github.com/dhruvpathak/finimport/internal/statement"
)

// Strategy converts raw rows into normalized transactions. Implementations
// must be pure functions of their input rows: no state carried between calls.
type Strategy interface {
	Name() string
	Classify(ctx context.Context, rows []statement.RawRow) ([]domain.Transaction, error)
}

// banks recognized in self-transfer descriptions.
var transferBanks = []string{
	"idfc", "hdfc", "icici", "sbi", "axis", "kotak", "yes bank", "pnb",
	"bank of baroda", "canara", "indusind", "federal",
}

// IsTransfer reports whether a description marks a transfer between the
// user's own accounts: an explicit "transfer" keyword, or "self" alongside a
// recognized bank name (e.g. "Self trans/IDFC FIRST").
func IsTransfer(desc string) bool {
	lower := strings.ToLower(desc)
	if strings.Contains(lower, "transfer") {
		return true
	}
	if !strings.Contains(lower, "self") {
		return false
	}
	for _, bank := range transferBanks {
		if strings.Contains(lower, bank) {
			return true
		}
	}
	return false
}

var (
	merchantNoise = regexp.MustCompile(`(?i)\b(deposit|withdrawal|credit|debit|atm|online|purchase)\b`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// CleanMerchant strips transactional noise words from a description and
// collapses whitespace. When stripping empties the string the original
// description is returned verbatim: a merchant is never empty.
func CleanMerchant(desc string) string {
	cleaned := merchantNoise.ReplaceAllString(desc, " ")
	cleaned = strings.TrimSpace(whitespace.ReplaceAllString(cleaned, " "))
	cleaned = strings.Trim(cleaned, "-/., ")
	if cleaned == "" {
		return strings.TrimSpace(desc)
	}
	return cleaned
}

// rowType derives the transaction direction from the row. The transfer check
// runs on the original description regardless of strategy so AI and fallback
// agree on direction.
func rowType(row statement.RawRow) domain.TransactionType {
	if IsTransfer(row.Description) {
		return domain.TypeTransfer
	}
	if row.Credit {
		return domain.TypeIncome
	}
	return domain.TypeExpense
}

// rowID derives a stable content-hash identifier, so re-running the same
// import yields the same IDs and callers can upsert idempotently.
func rowID(row statement.RawRow) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%.2f|%s|%d",
		row.Date.Format("2006-01-02"), row.Amount, row.Description, row.Line)))
	return hex.EncodeToString(h[:12])
}

package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dhruvpathak/finimport/internal/domain"
)

// defaultMaxAmount guards against parse corruption, e.g. a spreadsheet-
// mangled account number landing in an amount column.
const defaultMaxAmount = 1e8

// validateAmountsStep drops transactions whose amount is implausible. Drops
// are reported per row, never fatal.
type validateAmountsStep struct{}

func (s *validateAmountsStep) Execute(_ context.Context, state *State) error {
	if !state.Options.ValidateAmounts {
		return nil
	}
	max := state.Options.MaxAmount
	if max <= 0 {
		max = defaultMaxAmount
	}

	kept := state.Transactions[:0]
	for _, tx := range state.Transactions {
		switch {
		case math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0):
			state.Errors = append(state.Errors, fmt.Sprintf("%s %q: amount is not finite", tx.Date.Format("2006-01-02"), tx.Description))
		case tx.Amount > max:
			state.Errors = append(state.Errors, fmt.Sprintf("%s %q: amount %.2f exceeds plausibility ceiling %.0f", tx.Date.Format("2006-01-02"), tx.Description, tx.Amount, max))
		default:
			kept = append(kept, tx)
		}
	}
	state.Transactions = kept
	return nil
}

// mergeDuplicatesStep collapses transactions sharing date, absolute amount
// and normalized description to the first occurrence in file order.
type mergeDuplicatesStep struct{}

func (s *mergeDuplicatesStep) Execute(_ context.Context, state *State) error {
	if !state.Options.MergeDuplicates {
		return nil
	}

	seen := make(map[string]bool, len(state.Transactions))
	kept := state.Transactions[:0]
	for _, tx := range state.Transactions {
		key := duplicateKey(tx)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, tx)
	}
	state.Transactions = kept
	return nil
}

func duplicateKey(tx domain.Transaction) string {
	desc := strings.Join(strings.Fields(strings.ToLower(tx.Description)), " ")
	return fmt.Sprintf("%s|%.2f|%s", tx.Date.Format("2006-01-02"), tx.Amount, desc)
}

// assemble builds the final ParseResult: signed totals (transfers excluded
// from the net), the min/max date range, and the success flag.
func assemble(state *State) *domain.ParseResult {
	result := &domain.ParseResult{
		Transactions: state.Transactions,
		AIUsed:       state.AIUsed,
		Errors:       state.Errors,
	}
	if result.Transactions == nil {
		result.Transactions = []domain.Transaction{}
	}
	if result.Errors == nil {
		result.Errors = []string{}
	}

	for i := range result.Transactions {
		result.TotalAmount += result.Transactions[i].SignedAmount()
	}

	var r *domain.DateRange
	for _, tx := range result.Transactions {
		r = extendRange(r, tx.Date)
	}
	// Balance-forward rows bound the statement period even though they are
	// not transactions.
	for _, row := range state.Doc.Rows {
		if row.BalanceForward {
			r = extendRange(r, row.Date)
		}
	}
	if len(result.Transactions) > 0 {
		result.DateRange = r
		result.Success = true
	}
	return result
}

func extendRange(r *domain.DateRange, d time.Time) *domain.DateRange {
	if r == nil {
		return &domain.DateRange{Start: d, End: d}
	}
	if d.Before(r.Start) {
		r.Start = d
	}
	if d.After(r.End) {
		r.End = d
	}
	return r
}

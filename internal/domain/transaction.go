package domain

import (
	"time"
)

// TransactionType classifies the direction of a transaction. Amounts are
// always stored positive; the direction lives here and nowhere else.
type TransactionType string

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

// Transaction is one normalized transaction produced by the import pipeline.
// This is a domain struct, not a storage row; sinks map it into their own
// schema.
type Transaction struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"` // calendar date, timezone-naive
	Description string          `json:"description"`
	Amount      float64         `json:"amount"` // always > 0
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory,omitempty"`
	Merchant    string          `json:"merchant,omitempty"`
	Icon        string          `json:"icon,omitempty"`
	Metadata    Metadata        `json:"metadata"`
}

// Metadata carries provenance for a transaction.
type Metadata struct {
	Category  string `json:"category"`
	Reference string `json:"reference,omitempty"`
	Source    string `json:"source"` // "ai" or "rules"
}

// SignedAmount returns the transaction's contribution to a net total:
// income positive, expense negative, transfer zero.
func (t *Transaction) SignedAmount() float64 {
	switch t.Type {
	case TypeIncome:
		return t.Amount
	case TypeExpense:
		return -t.Amount
	default:
		return 0
	}
}

// DateRange is the inclusive [Start, End] span of parsed transaction dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ParseResult is the envelope returned by one parse invocation.
type ParseResult struct {
	Success      bool          `json:"success"`
	Transactions []Transaction `json:"transactions"`
	TotalAmount  float64       `json:"totalAmount"`
	DateRange    *DateRange    `json:"dateRange,omitempty"`
	AIUsed       bool          `json:"aiUsed"`
	Errors       []string      `json:"errors"`
}

// Options controls a single parse invocation.
type Options struct {
	// UseAI enables the AI classification strategy. When the AI call fails
	// for any reason the rule-based strategy classifies the whole batch
	// instead; AI and rule results are never mixed within one import.
	UseAI bool `json:"useAI"`

	// AutoCategorize enables category assignment. When false, transactions
	// keep category "Other" but type and merchant are still derived.
	AutoCategorize bool `json:"autoCategorize"`

	// MergeDuplicates collapses rows sharing date, absolute amount and
	// normalized description to the first occurrence in file order.
	MergeDuplicates bool `json:"mergeDuplicates"`

	// ValidateAmounts drops rows whose amount is non-finite or exceeds
	// MaxAmount. Dropped rows are reported in Errors, never fatal.
	ValidateAmounts bool `json:"validateAmounts"`

	// MaxAmount is the plausibility ceiling applied when ValidateAmounts is
	// set. Zero means the default of 100 million, which is generous for a
	// personal account but still catches account numbers leaking into
	// amount columns.
	MaxAmount float64 `json:"maxAmount,omitempty"`
}

// DefaultOptions matches the behaviour the mobile client expects when the
// user has not touched any import settings.
func DefaultOptions() Options {
	return Options{
		UseAI:           true,
		AutoCategorize:  true,
		MergeDuplicates: true,
		ValidateAmounts: true,
	}
}

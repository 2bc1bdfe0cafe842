package classify

import (
	"context"
	"strings"

	"github.com/dhruvpathak/finimport/internal/domain"
	"github.com/dhruvpathak/finimport/internal/statement"
)

// categoryRule is one (keywords, category) pair. The rule table is evaluated
// in order, first match wins, so specific keywords must precede generic ones.
type categoryRule struct {
	keywords    []string
	category    string
	subcategory string
	icon        string
}

// categoryRules is the fixed classification table for the keyword fallback.
// Order is significant.
var categoryRules = []categoryRule{
	{[]string{"salary", "payroll", "interest", "dividend", "deposit"}, "Income", "", "cash-plus"},
	{[]string{"swiggy", "zomato", "grocery", "supermarket", "restaurant", "food", "cafe", "dining"}, "Food & Dining", "", "silverware-fork-knife"},
	{[]string{"petrol", "fuel", "gas", "uber", "ola", "irctc", "metro", "transport"}, "Transportation", "", "car"},
	{[]string{"amazon", "flipkart", "myntra", "shopping", "online"}, "Shopping", "", "cart"},
	{[]string{"atm", "cash withdrawal", "withdrawal"}, "Cash Withdrawal", "", "cash-minus"},
	{[]string{"refund", "reversal", "cashback"}, "Refunds", "", "cash-refund"},
	{[]string{"electricity", "water bill", "broadband", "recharge", "dth", "utility"}, "Bills & Utilities", "", "flash"},
	{[]string{"rent", "maintenance"}, "Housing", "Rent", "home"},
	{[]string{"pharmacy", "hospital", "clinic", "medical"}, "Healthcare", "", "hospital-box"},
}

const (
	defaultCategory = "Other"
	defaultIcon     = "bank"
	transferIcon    = "bank-transfer"
)

// RuleClassifier is the deterministic keyword-based strategy. It is the
// always-available fallback when the AI path is disabled or fails.
type RuleClassifier struct {
	// AutoCategorize controls category lookup; when false every transaction
	// lands in the default category but type and merchant are still derived.
	AutoCategorize bool
}

// NewRuleClassifier returns a rule classifier with categorization enabled.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{AutoCategorize: true}
}

func (c *RuleClassifier) Name() string { return "rules" }

// Classify maps each row through the keyword table. It never fails.
func (c *RuleClassifier) Classify(_ context.Context, rows []statement.RawRow) ([]domain.Transaction, error) {
	txs := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		txType := rowType(row)

		category, subcategory, icon := defaultCategory, "", defaultIcon
		if c.AutoCategorize {
			category, subcategory, icon = lookupCategory(row.Description)
		}
		if txType == domain.TypeTransfer {
			category, subcategory, icon = "Transfer", "", transferIcon
		}

		txs = append(txs, domain.Transaction{
			ID:          rowID(row),
			Date:        row.Date,
			Description: row.Description,
			Amount:      row.Amount,
			Type:        txType,
			Category:    category,
			Subcategory: subcategory,
			Merchant:    CleanMerchant(row.Description),
			Icon:        icon,
			Metadata: domain.Metadata{
				Category:  category,
				Reference: row.Reference,
				Source:    "rules",
			},
		})
	}
	return txs, nil
}

// lookupCategory returns the first rule whose keyword appears in the
// description.
func lookupCategory(desc string) (category, subcategory, icon string) {
	lower := strings.ToLower(desc)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category, rule.subcategory, rule.icon
			}
		}
	}
	return defaultCategory, "", defaultIcon
}

// Categories lists the category names the rule table can produce, in table
// order. The AI prompt is constrained to the same taxonomy so both
// strategies emit comparable results.
func Categories() []string {
	out := make([]string, 0, len(categoryRules)+2)
	seen := map[string]bool{}
	for _, rule := range categoryRules {
		if !seen[rule.category] {
			out = append(out, rule.category)
			seen[rule.category] = true
		}
	}
	out = append(out, "Transfer", defaultCategory)
	return out
}

// IconFor returns the presentation icon the rule table associates with a
// category, so AI-classified transactions get the same icons.
func IconFor(category string) string {
	for _, rule := range categoryRules {
		if strings.EqualFold(rule.category, category) {
			return rule.icon
		}
	}
	if strings.EqualFold(category, "Transfer") {
		return transferIcon
	}
	return defaultIcon
}

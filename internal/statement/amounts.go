package statement

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// currency symbols and grouping characters stripped before numeric parsing.
var amountReplacer = strings.NewReplacer(
	"₹", "",
	"£", "",
	"$", "",
	"€", "",
	",", "",
	" ", "",
	" ", "",
)

// ParseAmount converts strings like "1,234.56", "₹5,000" or "(120.50)" to a
// float64. Parenthesized values are negative, matching accounting exports.
//
// Exponent notation is rejected outright: a legitimate statement amount is
// never written as "3.88113E+11", but a spreadsheet-mangled account number
// is, and accepting it would corrupt the import.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = amountReplacer.Replace(s)
	if s == "" || s == "-" {
		return 0, nil
	}

	if strings.ContainsAny(s, "eE") {
		return 0, fmt.Errorf("amount %q: exponent notation is not a statement amount", s)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("amount %q: not finite", s)
	}
	if negative {
		v = -v
	}
	return v, nil
}

package mapping

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency formats an amount as "$" followed by the amount rounded to a whole
// number. An invalid (absent) amount formats as "".
func Currency(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return "$" + d.Decimal.Round(0).String()
}

// Percent formats a percentage as "<n>%", or "" when absent.
func Percent(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String() + "%"
}

// YesNo renders a boolean flag for the checkbox columns of the sheet.
func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return strings.Join(kept, sep)
}

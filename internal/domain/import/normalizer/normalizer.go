// Package normalizer turns raw spreadsheet cell text into typed scalars and
// coerces scalars to numbers, understanding Brazilian/European money formats.
package normalizer

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
)

var ErrInvalidAmount = errors.New("invalid amount format")

var (
	spacePattern = regexp.MustCompile(`\s+`)
	moneyPattern = regexp.MustCompile(`^-?\s*(R\$|\$|€|US\$)?\s*-?[\d.,\s]+$`)
)

// ParseAmount converts a money string to a float.
// Supports both European/Brazilian (1.234,56) and American (1,234.56) formats.
func ParseAmount(raw string, isEuropean bool) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, ErrInvalidAmount
	}

	// Keep digits, separators and minus
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, raw)

	if cleaned == "" {
		return 0, ErrInvalidAmount
	}

	isNegative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")

	if isEuropean {
		// 1.234,56 -> 1234.56
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else {
		// 1,234.56 -> 1234.56
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}

	if isNegative {
		val = -val
	}
	return val, nil
}

// IsEuropeanFormat guesses the decimal separator of a money string: the last of
// ',' and '.' is the decimal one, and a lone '.' followed by exactly three digits
// is a thousands separator ("1.500").
func IsEuropeanFormat(raw string) bool {
	lastComma := strings.LastIndex(raw, ",")
	lastDot := strings.LastIndex(raw, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		return lastComma > lastDot
	case lastComma >= 0:
		return true
	case lastDot >= 0:
		return strings.Count(raw, ".") > 1 || len(strings.TrimSpace(raw[lastDot+1:])) == 3
	default:
		return false
	}
}

// parsePlain parses the strict numeric forms a spreadsheet stores ("1500", "-2.5", "1e3").
func parsePlain(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	if strings.ContainsAny(s, "xXpP_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseCell converts raw cell text. Blank cells report false and should be left
// out of the row. Text that is a plain number becomes a number, anything else
// stays text with surrounding whitespace trimmed.
func ParseCell(raw string) (dataset.Scalar, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return dataset.Null(), false
	}
	if f, ok := parsePlain(s); ok {
		return dataset.Number(f), true
	}
	return dataset.Text(s), true
}

// ParseNumber reads a number out of text, accepting plain numbers and money
// strings such as "R$ 1.500,00" or "1,234.56".
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if f, ok := parsePlain(s); ok {
		return f, true
	}
	if !moneyPattern.MatchString(s) {
		return 0, false
	}
	f, err := ParseAmount(s, IsEuropeanFormat(s))
	if err != nil {
		return 0, false
	}
	return f, true
}

// ToNumber coerces a scalar to a number. Null and non-numeric text report false.
func ToNumber(v dataset.Scalar) (float64, bool) {
	if f, ok := v.Num(); ok {
		return f, true
	}
	if s, ok := v.Str(); ok {
		return ParseNumber(s)
	}
	return 0, false
}

// CleanHeader trims a header cell and collapses inner whitespace runs.
func CleanHeader(raw string) string {
	return spacePattern.ReplaceAllString(strings.TrimSpace(raw), " ")
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

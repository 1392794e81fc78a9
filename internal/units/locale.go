package units

import (
	"strconv"
	"strings"
)

// ParseLocaleNumber parses a number written with Brazilian separators
// ("1.234,56"). Unparseable or empty input yields 0.
//
// When only dots are present, a final group of exactly three digits marks the
// dots as thousands separators ("1.234" is 1234); otherwise the dot is read as
// a decimal point ("12.5").
func ParseLocaleNumber(input string) float64 {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "R$")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")
	switch {
	case hasDot && hasComma:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	case hasDot:
		last := s[strings.LastIndex(s, ".")+1:]
		if len(last) == 3 && isDigits(last) {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return Finite(v)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// FormatNumber renders n with a fixed number of decimals using "." for
// thousands and "," for decimals.
func FormatNumber(n float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	n = Round(n, decimals)
	if n == 0 {
		// drop the sign of negative zero
		n = 0
	}

	negative := n < 0
	if negative {
		n = -n
	}

	raw := strconv.FormatFloat(n, 'f', decimals, 64)
	intPart, fracPart, _ := strings.Cut(raw, ".")

	result := addThousandsSeparator(intPart, '.')
	if decimals > 0 {
		result += "," + fracPart
	}
	if negative {
		result = "-" + result
	}
	return result
}

// FormatCurrencyBRL renders n as Brazilian reais, e.g. "R$ 1.852,00".
func FormatCurrencyBRL(n float64) string {
	formatted := FormatNumber(n, 2)
	if strings.HasPrefix(formatted, "-") {
		return "-R$ " + formatted[1:]
	}
	return "R$ " + formatted
}

func addThousandsSeparator(s string, sep byte) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	numSeps := (n - 1) / 3
	result := make([]byte, n+numSeps)

	j := len(result) - 1
	for i := n - 1; i >= 0; i-- {
		result[j] = s[i]
		j--

		pos := n - i
		if pos%3 == 0 && i > 0 {
			result[j] = sep
			j--
		}
	}

	return string(result)
}

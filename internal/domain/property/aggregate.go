package property

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Summary is the arithmetic combination of several listings. Pointer
// fields are nil when no listing contributed a usable value.
type Summary struct {
	Count        int
	AveragePrice *int64
	AverageSqft  *int
	PriceRange   *string
	SqftRange    *string
}

// Aggregate combines the given facts. Prices are parsed by dropping every
// character other than digits and '.'; non-positive or unparsable prices and
// square footages are ignored.
func Aggregate(facts []Facts) Summary {
	s := Summary{Count: len(facts)}

	var prices []float64
	var sqfts []int
	for i := range facts {
		if p, ok := ParsePrice(facts[i].Price); ok {
			prices = append(prices, p)
		}
		if facts[i].SquareFootage > 0 {
			sqfts = append(sqfts, facts[i].SquareFootage)
		}
	}

	if len(prices) > 0 {
		var sum float64
		lo, hi := prices[0], prices[0]
		for _, p := range prices {
			sum += p
			lo = math.Min(lo, p)
			hi = math.Max(hi, p)
		}
		avg := int64(math.Round(sum / float64(len(prices))))
		rng := fmt.Sprintf("$%s - $%s", formatNumber(lo), formatNumber(hi))
		s.AveragePrice, s.PriceRange = &avg, &rng
	}

	if len(sqfts) > 0 {
		sum := 0
		lo, hi := sqfts[0], sqfts[0]
		for _, v := range sqfts {
			sum += v
			lo = min(lo, v)
			hi = max(hi, v)
		}
		avg := int(math.Round(float64(sum) / float64(len(sqfts))))
		rng := fmt.Sprintf("%s - %s sq ft", formatNumber(float64(lo)), formatNumber(float64(hi)))
		s.AverageSqft, s.SqftRange = &avg, &rng
	}

	return s
}

// ParsePrice extracts a positive amount from a free-text price such as
// "$1,800,000".
func ParsePrice(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// formatNumber renders v with comma thousands separators and at most three
// fraction digits, e.g. 2500000 -> "2,500,000", 1234.5 -> "1,234.5".
func formatNumber(v float64) string {
	str := strconv.FormatFloat(v, 'f', 3, 64)
	intPart, fracPart, _ := strings.Cut(str, ".")
	fracPart = strings.TrimRight(fracPart, "0")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}

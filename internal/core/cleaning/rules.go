package cleaning

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"tally/internal/core/normalize"

	"github.com/shopspring/decimal"
)

// Stage names as reported in StageCount and Rejected.Stage
const (
	StageMissing   = "missing"
	StageText      = "text"
	StageInteger   = "integer"
	StageTimestamp = "timestamp"
	StageDecimal   = "decimal"
)

// Rejection reasons
const (
	ReasonMissing    = "missing value"
	ReasonNotInteger = "not an integer"
	// TimestampFormat is the accepted layout in strftime notation
	TimestampFormat = "%Y-%m-%dT%H:%M:%S.%f%z"
	ReasonTimestamp = "date format is not: '" + TimestampFormat + "'"
)

// DefaultMaxFraction is the number of digits allowed after the decimal point of a charge
const DefaultMaxFraction = 6

// DefaultMaxWhole is the number of digits allowed before the decimal point of a charge,
// the headroom numeric(18,6) leaves
const DefaultMaxWhole = 12

// maxInt64Digits is the digit count of math.MaxInt64
const maxInt64Digits = 19

// CurrencyReason is the rejection reason of the decimal rule for a given precision
func CurrencyReason(maxFraction int) string {
	return fmt.Sprintf("wrong currency format. Tip: should be a maximum %d digits after a decimal point", maxFraction)
}

// DefaultNullTokens are the strings read as missing besides blanks
var DefaultNullTokens = []string{
	"NA", "N/A", "NaN", "nan", "NULL", "null", "None", "#N/A", "n/a", "-NaN", "-nan",
	"<NA>", "#NA", "1.#IND", "-1.#IND", "1.#QNAN", "-1.#QNAN", "#N/A N/A",
}

// Missing rejects rows where any column is missing, using DefaultNullTokens.
// With no columns every column of the batch is checked
func Missing(b Batch, columns []string) (Batch, []Rejected) {
	return MissingTokens(DefaultNullTokens)(b, columns)
}

// MissingTokens builds a missing rule with a custom null token set
func MissingTokens(tokens []string) Rule {
	nulls := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		nulls[t] = struct{}{}
	}
	return func(b Batch, columns []string) (Batch, []Rejected) {
		idx := b.targets(columns)
		if len(columns) == 0 {
			idx = b.targets(b.Columns)
		}
		kept := make([]Row, 0, len(b.Rows))
		var rejected []Rejected
		for _, r := range b.Rows {
			if rowMissing(r, idx, nulls) {
				rejected = append(rejected, reject(r, StageMissing, ReasonMissing))
				continue
			}
			kept = append(kept, r)
		}
		return b.with(kept), rejected
	}
}

func rowMissing(r Row, idx []int, nulls map[string]struct{}) bool {
	for _, i := range idx {
		if i >= len(r.Values) || isMissing(r.Values[i], nulls) {
			return true
		}
	}
	return false
}

func isMissing(v any, nulls map[string]struct{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		if _, ok := nulls[x]; ok {
			return true
		}
		return isBlank(x)
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	default:
		return false
	}
}

// isBlank reports whether s has nothing a label could keep: whitespace, format
// and control runes or invalid bytes only
func isBlank(s string) bool {
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if r == utf8.RuneError && size == 1 {
			continue
		}
		if unicode.IsSpace(r) || unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			continue
		}
		return false
	}
	return true
}

// Texts canonicalizes free-text columns with n; it never rejects
func Texts(n *normalize.Normalizer) Rule {
	return func(b Batch, columns []string) (Batch, []Rejected) {
		return perColumn(b, columns, StageText, func(v any) (any, string, bool) {
			s, ok := v.(string)
			if !ok {
				s = fmt.Sprint(v)
			}
			return n.Normalize(s), "", true
		})
	}
}

// Integers coerces columns to int64. Numbers with a nonzero fraction, text that is not
// a number and values outside the int64 range are rejected
func Integers(b Batch, columns []string) (Batch, []Rejected) {
	return perColumn(b, columns, StageInteger, func(v any) (any, string, bool) {
		n, ok := toInt64(v)
		if !ok {
			return nil, ReasonNotInteger, false
		}
		return n, "", true
	})
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return uintToInt64(uint64(x))
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return uintToInt64(x)
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	case decimal.Decimal:
		return decimalToInt64(x)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return decimalToInt64(d)
	default:
		return 0, false
	}
}

func uintToInt64(u uint64) (int64, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	// float64(MaxInt64) rounds up to 2^63, which is already out of range
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func decimalToInt64(d decimal.Decimal) (int64, bool) {
	if d.Sign() == 0 {
		return 0, true
	}
	// IsInteger and BigInt scale by 10^|exponent|, so settle the range on digits first
	digits, exp := d.NumDigits(), int(d.Exponent())
	if exp > 0 && digits+exp > maxInt64Digits {
		return 0, false
	}
	if exp < 0 && -exp > digits { // 0 < |d| < 1
		return 0, false
	}
	if !d.IsInteger() {
		return 0, false
	}
	bi := d.BigInt()
	if !bi.IsInt64() {
		return 0, false
	}
	return bi.Int64(), true
}

// timestampRe is the strict shape of TimestampFormat: 1 to 6 fractional digits and an
// offset of Z, ±HH:MM or ±HHMM
var timestampRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{1,6})(Z|[+-]\d{2}:?\d{2})$`)

// Timestamps parses columns against TimestampFormat into time.Time
func Timestamps(b Batch, columns []string) (Batch, []Rejected) {
	return perColumn(b, columns, StageTimestamp, func(v any) (any, string, bool) {
		t, ok := toTime(v)
		if !ok {
			return nil, ReasonTimestamp, false
		}
		return t, "", true
	})
}

// ParseTimestamp parses one value in TimestampFormat
func ParseTimestamp(s string) (time.Time, bool) {
	m := timestampRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	off := m[2]
	if len(off) == 5 { // ±HHMM
		off = off[:3] + ":" + off[3:]
	}
	t, err := time.Parse(time.RFC3339Nano, m[1]+off)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case string:
		return ParseTimestamp(x)
	default:
		return time.Time{}, false
	}
}

// Decimals coerces columns to decimal.Decimal allowing DefaultMaxWhole digits before
// and DefaultMaxFraction digits after the point
func Decimals(b Batch, columns []string) (Batch, []Rejected) {
	return DecimalsBounded(DefaultMaxWhole, DefaultMaxFraction)(b, columns)
}

// DecimalsWithin builds a decimal rule for maxFraction digits after the point
func DecimalsWithin(maxFraction int) Rule {
	return DecimalsBounded(DefaultMaxWhole, maxFraction)
}

// DecimalsBounded builds a decimal rule for maxWhole digits before and maxFraction digits
// after the point. Trailing zeros do not count; values that are not numbers, or too large
// for the column, get the same reason
func DecimalsBounded(maxWhole, maxFraction int) Rule {
	if maxFraction < 0 {
		maxFraction = 0
	}
	if maxWhole <= 0 {
		maxWhole = DefaultMaxWhole
	}
	reason := CurrencyReason(maxFraction)
	return func(b Batch, columns []string) (Batch, []Rejected) {
		return perColumn(b, columns, StageDecimal, func(v any) (any, string, bool) {
			d, ok := toDecimal(v)
			if !ok || !withinDigits(d, maxWhole, maxFraction) {
				return nil, reason, false
			}
			if d.Sign() == 0 {
				return decimal.Zero, "", true
			}
			if !d.Equal(d.Truncate(int32(maxFraction))) {
				return nil, reason, false
			}
			return d, "", true
		})
	}
}

// withinDigits bounds d by its coefficient digits and exponent alone. Truncate rescales by
// 10^|exponent|, so anything it could not finish quickly is ruled out here
func withinDigits(d decimal.Decimal, maxWhole, maxFraction int) bool {
	if d.Sign() == 0 {
		return true
	}
	digits, exp := d.NumDigits(), int(d.Exponent())
	if digits+exp > maxWhole {
		return false
	}
	// at most digits-1 trailing zeros can be shed, leaving more than maxFraction
	if exp < 0 && -exp >= digits+maxFraction {
		return false
	}
	return true
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(x), true
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat32(x), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
	if n, ok := toInt64(v); ok {
		return decimal.NewFromInt(n), true
	}
	return decimal.Decimal{}, false
}

package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/danaru/lending-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// PeriodsPerYear maps a repayment frequency to how many periods fit in a
// year. This table drives both the installment count and the periodic rate.
var PeriodsPerYear = map[string]int{
	domain.FreqWeekly:     52,
	domain.FreqBiWeekly:   26,
	domain.FreqMonthly:    12,
	domain.FreqQuarterly:  4,
	domain.FreqSemiAnnual: 2,
	domain.FreqYearly:     1,
}

// InstallmentCount converts a tenure (value + unit) and repayment frequency
// into the number of installments, rounded to the nearest whole period.
//
// Conversion: tenure is normalized to years (months divide by 12), then
// multiplied by the frequency's periods-per-year. A 12-month tenure paid
// monthly yields 12; paid weekly it yields 52; an 18-month tenure paid
// quarterly yields 6. A result that rounds to zero is reported as invalid.
func InstallmentCount(tenureValue int, tenureUnit, frequency string) (int, error) {
	ppy, ok := PeriodsPerYear[frequency]
	if !ok {
		return 0, fmt.Errorf("unknown repayment frequency %q", frequency)
	}

	var years float64
	switch tenureUnit {
	case domain.TenureMonths:
		years = float64(tenureValue) / 12.0
	case domain.TenureYears:
		years = float64(tenureValue)
	default:
		return 0, fmt.Errorf("unknown tenure unit %q", tenureUnit)
	}

	n := int(math.Round(years * float64(ppy)))
	if n < 1 {
		return 0, fmt.Errorf("tenure %d %s is shorter than one %s period", tenureValue, tenureUnit, frequency)
	}
	return n, nil
}

// AddPeriods returns start advanced by k whole periods of the given
// frequency. Week-based frequencies move in whole days; the rest move in
// calendar months so due dates stay on the same day of month.
func AddPeriods(start time.Time, frequency string, k int) time.Time {
	switch frequency {
	case domain.FreqWeekly:
		return start.AddDate(0, 0, 7*k)
	case domain.FreqBiWeekly:
		return start.AddDate(0, 0, 14*k)
	case domain.FreqMonthly:
		return start.AddDate(0, k, 0)
	case domain.FreqQuarterly:
		return start.AddDate(0, 3*k, 0)
	case domain.FreqSemiAnnual:
		return start.AddDate(0, 6*k, 0)
	case domain.FreqYearly:
		return start.AddDate(k, 0, 0)
	default:
		return start
	}
}

// PeriodicRate converts an annual percentage rate to the per-period decimal
// rate for the given frequency.
func PeriodicRate(annualRatePercent decimal.Decimal, frequency string) decimal.Decimal {
	ppy := PeriodsPerYear[frequency]
	if ppy == 0 {
		return decimal.Zero
	}
	return annualRatePercent.Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(ppy)))
}

// ParseFlexTime normalizes the timestamp shapes that show up in stored
// records and client payloads: epoch seconds (number), RFC3339 string, or a
// bare yyyy-mm-dd date. Everything past the adapter boundary works with the
// single time.Time this returns.
func ParseFlexTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("timestamp is missing")
	case time.Time:
		return t, nil
	case float64:
		return time.Unix(int64(t), 0).UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, fmt.Errorf("timestamp is empty")
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC(), nil
		}
		if parsed, err := time.Parse(time.RFC3339, s); err == nil {
			return parsed, nil
		}
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			return parsed, nil
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	default:
		return time.Time{}, fmt.Errorf("unrecognized timestamp type %T", v)
	}
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

package planning

import (
	"time"

	"github.com/Veraticus/goalpost/internal/model"
)

// NextPaymentDate returns the first payment date on or after today. Days
// past the end of a month clamp to its last day.
func NextPaymentDate(today time.Time, paymentDay int) time.Time {
	today = model.StartOfDay(today)
	candidate := paymentDate(today.Year(), today.Month(), paymentDay)
	if candidate.Before(today) {
		candidate = paymentDate(today.Year(), today.Month()+1, paymentDay)
	}
	return candidate
}

// AddPaymentMonths advances a payment date by n calendar months keeping
// paymentDay, clamped to month length.
func AddPaymentMonths(first time.Time, n, paymentDay int) time.Time {
	return paymentDate(first.Year(), first.Month()+time.Month(n), paymentDay)
}

func paymentDate(year int, month time.Month, day int) time.Time {
	// Normalize month overflow before clamping.
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := LastDayOfMonth(first)
	day = max(1, min(day, last.Day()))
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// LastDayOfMonth returns midnight UTC of the last day of t's month.
func LastDayOfMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

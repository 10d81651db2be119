package types

import (
	"fmt"
	"time"
)

// NextBillingDate calculates the next billing date based on the given start
// time and billing period. This leverages clamped date addition which
// properly handles leap years and month-boundary issues, so a subscription
// anchored on the 31st bills on the last day of shorter months.
func NextBillingDate(start time.Time, period BillingPeriod) (time.Time, error) {
	switch period {
	case BILLING_PERIOD_WEEKLY:
		return AddClampedDate(start, 0, 0, 7), nil
	case BILLING_PERIOD_MONTHLY:
		return AddClampedDate(start, 0, 1, 0), nil
	case BILLING_PERIOD_QUARTERLY:
		return AddClampedDate(start, 0, 3, 0), nil
	case BILLING_PERIOD_YEARLY:
		return AddClampedDate(start, 1, 0, 0), nil
	default:
		return start, fmt.Errorf("invalid billing period type: %s", period)
	}
}

// CalendarPeriodStart snaps a point in time to the start of its calendar
// billing period for calendar-anchored subscriptions.
func CalendarPeriodStart(t time.Time, period BillingPeriod) (time.Time, error) {
	t = t.UTC()
	switch period {
	case BILLING_PERIOD_WEEKLY:
		// ISO weeks start on Monday
		offset := (int(t.Weekday()) + 6) % 7
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return day.AddDate(0, 0, -offset), nil
	case BILLING_PERIOD_MONTHLY:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	case BILLING_PERIOD_QUARTERLY:
		quarterMonth := time.Month(((int(t.Month())-1)/3)*3 + 1)
		return time.Date(t.Year(), quarterMonth, 1, 0, 0, 0, 0, time.UTC), nil
	case BILLING_PERIOD_YEARLY:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return t, fmt.Errorf("invalid billing period type: %s", period)
	}
}

// AddClampedDate adds the given years, months and days clamping the day to
// the last valid day of the target month instead of overflowing into the
// next one the way time.AddDate does. Day arithmetic still rolls over month
// boundaries normally.
func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	newY := y + years
	newM := time.Month(int(m) + months)

	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	// Find the last valid day of the new month
	firstOfNextMonth := time.Date(newY, newM+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNextMonth.Add(-24 * time.Hour).Day()

	newD := d
	if newD > lastDay {
		newD = lastDay
	}

	result := time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location())
	if days != 0 {
		result = result.AddDate(0, 0, days)
	}
	return result
}

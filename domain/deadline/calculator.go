// Package deadline provides business-day deadline arithmetic.
package deadline

import (
	"math"
	"time"
)

// Calculator computes deadlines relative to a clock.
type Calculator struct {
	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

// New creates a calculator using the given clock.
func New(now func() time.Time) Calculator {
	return Calculator{Now: now}
}

func (c Calculator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// IsBusinessDay reports whether t falls on Monday through Friday.
func IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// AddBusinessDays returns the instant n business days after now, keeping the
// time of day. It returns nil when n is not positive. Holidays are not
// considered.
func (c Calculator) AddBusinessDays(n int) *time.Time {
	if n <= 0 {
		return nil
	}
	t := AddBusinessDays(c.now(), n)
	return &t
}

// AddBusinessDays steps one calendar day at a time from start and returns
// the day on which the n-th weekday is counted.
func AddBusinessDays(start time.Time, n int) time.Time {
	t := start
	for counted := 0; counted < n; {
		t = t.AddDate(0, 0, 1)
		if IsBusinessDay(t) {
			counted++
		}
	}
	return t
}

// DaysOverdue returns the whole days elapsed since the deadline, clamped at
// zero. It returns nil when there is no deadline.
func (c Calculator) DaysOverdue(deadline *time.Time) *int {
	if deadline == nil {
		return nil
	}
	days := Overdue(c.now(), *deadline)
	return &days
}

// Overdue returns floor((now - deadline) / 24h), clamped at zero.
func Overdue(now, deadline time.Time) int {
	elapsed := now.Sub(deadline)
	if elapsed <= 0 {
		return 0
	}
	return int(math.Floor(elapsed.Hours() / 24))
}

// IsOverdue reports whether the deadline lies strictly before now.
func (c Calculator) IsOverdue(deadline *time.Time) bool {
	return deadline != nil && deadline.Before(c.now())
}

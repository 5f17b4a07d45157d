//go:build property

package deadline

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_AddBusinessDays(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	properties.Property("result is a weekday", prop.ForAll(
		func(offset, n int) bool {
			start := base.AddDate(0, 0, offset)
			got := New(func() time.Time { return start }).AddBusinessDays(n)
			return got != nil && IsBusinessDay(*got)
		},
		gen.IntRange(0, 730),
		gen.IntRange(1, 60),
	))

	properties.Property("exactly n weekdays lie in (start, result]", prop.ForAll(
		func(offset, n int) bool {
			start := base.AddDate(0, 0, offset)
			got := AddBusinessDays(start, n)
			count := 0
			for d := start.AddDate(0, 0, 1); !d.After(got); d = d.AddDate(0, 0, 1) {
				if IsBusinessDay(d) {
					count++
				}
			}
			return count == n
		},
		gen.IntRange(0, 730),
		gen.IntRange(1, 60),
	))

	properties.Property("time of day is preserved", prop.ForAll(
		func(offset, n, minutes int) bool {
			start := base.AddDate(0, 0, offset).Add(time.Duration(minutes) * time.Minute)
			got := AddBusinessDays(start, n)
			return got.Hour() == start.Hour() && got.Minute() == start.Minute()
		},
		gen.IntRange(0, 365),
		gen.IntRange(1, 30),
		gen.IntRange(0, 600),
	))

	properties.Property("non-positive counts yield no deadline", prop.ForAll(
		func(n int) bool {
			return New(func() time.Time { return base }).AddBusinessDays(n) == nil
		},
		gen.IntRange(-100, 0),
	))

	properties.TestingRun(t)
}

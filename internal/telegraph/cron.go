package telegraph

import (
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCron reports whether expr is a valid 5-field cron expression.
func ValidateCron(expr string) error {
	_, err := cronParser.Parse(expr)
	return err
}

// nextCronTime returns the first fire time of expr after from, evaluated
// in loc. Returns the zero time on parse error.
func nextCronTime(expr string, from time.Time, loc *time.Location) time.Time {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return sched.Next(from.In(loc))
}

// nextCronDuration parses a 5-field cron expression and returns the duration
// until the next fire time in loc. Returns 0 on parse error.
func nextCronDuration(expr string, loc *time.Location) time.Duration {
	next := nextCronTime(expr, time.Now(), loc)
	if next.IsZero() {
		return 0
	}
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

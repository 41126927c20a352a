// Package schedule assembles five-field cron expressions from structured schedule settings and labels them back.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Mode is the frequency mode of a structured schedule.
type Mode string

const (
	EveryNMinutes      Mode = "every_n_minutes"
	HourlyAtMinute     Mode = "hourly_at_minute"
	DailyAtTime        Mode = "daily_at_time"
	WeeklyOnDayAtTime  Mode = "weekly_on_day_at_time"
	MonthlyOnDayAtTime Mode = "monthly_on_day_at_time"
	RawExpression      Mode = "raw_expression"
)

var (
	ErrUnknownMode     = errors.New("unknown schedule mode")
	ErrOutOfRange      = errors.New("schedule value out of range")
	ErrInvalidTime     = errors.New("invalid time of day, expected HH:MM")
	ErrEmptyExpression = errors.New("cron expression is empty")
)

// Spec is the structured form of a schedule. Only the fields used by Mode are read.
type Spec struct {
	Mode       Mode   `json:"mode"`
	Interval   int    `json:"interval,omitempty"`
	Minute     int    `json:"minute,omitempty"`
	Time       string `json:"time,omitempty"`
	Weekday    int    `json:"weekday,omitempty"`
	DayOfMonth int    `json:"day_of_month,omitempty"`
	Expression string `json:"expression,omitempty"`
}

// Derive returns the cron expression for s. Raw expressions pass through unmodified.
func Derive(s Spec) (string, error) {
	switch s.Mode {
	case EveryNMinutes:
		if err := inRange("interval", s.Interval, 1, 59); err != nil {
			return "", err
		}

		return fmt.Sprintf("*/%d * * * *", s.Interval), nil
	case HourlyAtMinute:
		if err := inRange("minute", s.Minute, 0, 59); err != nil {
			return "", err
		}

		return fmt.Sprintf("%d * * * *", s.Minute), nil
	case DailyAtTime:
		hour, minute, err := ParseTime(s.Time)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case WeeklyOnDayAtTime:
		if err := inRange("weekday", s.Weekday, 0, 7); err != nil {
			return "", err
		}

		hour, minute, err := ParseTime(s.Time)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%d %d * * %d", minute, hour, s.Weekday), nil
	case MonthlyOnDayAtTime:
		if err := inRange("day of month", s.DayOfMonth, 1, 31); err != nil {
			return "", err
		}

		hour, minute, err := ParseTime(s.Time)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%d %d %d * *", minute, hour, s.DayOfMonth), nil
	case RawExpression:
		return s.Expression, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s.Mode)
	}
}

func inRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrOutOfRange, name, lo, hi, v)
	}

	return nil
}

// ParseTime reads a 24-hour "HH:MM" time of day.
func ParseTime(s string) (hour, minute int, err error) {
	h, m, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	hour, herr := strconv.Atoi(h)
	minute, merr := strconv.Atoi(m)

	if herr != nil || merr != nil || len(m) != 2 || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	return hour, minute, nil
}

// FormatTime renders a time of day as zero-padded "HH:MM".
func FormatTime(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// Parse recovers the structured spec of expr. It succeeds only when deriving the result
// reproduces expr exactly; everything else must be edited as a raw expression.
func Parse(expr string) (Spec, bool) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return Spec{}, false
	}

	spec, ok := match(fields)
	if !ok {
		return Spec{}, false
	}

	derived, err := Derive(spec)
	if err != nil || derived != expr {
		return Spec{}, false
	}

	return spec, true
}

func match(f []string) (Spec, bool) {
	minute, hour, dom, month, dow := f[0], f[1], f[2], f[3], f[4]

	if month != "*" {
		return Spec{}, false
	}

	if n, ok := strings.CutPrefix(minute, "*/"); ok {
		if hour != "*" || dom != "*" || dow != "*" {
			return Spec{}, false
		}

		interval, err := strconv.Atoi(n)

		return Spec{Mode: EveryNMinutes, Interval: interval}, err == nil
	}

	m, err := strconv.Atoi(minute)
	if err != nil {
		return Spec{}, false
	}

	if hour == "*" {
		if dom != "*" || dow != "*" {
			return Spec{}, false
		}

		return Spec{Mode: HourlyAtMinute, Minute: m}, true
	}

	h, err := strconv.Atoi(hour)
	if err != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return Spec{}, false
	}

	at := FormatTime(h, m)

	switch {
	case dom == "*" && dow == "*":
		return Spec{Mode: DailyAtTime, Time: at}, true
	case dom == "*":
		d, err := strconv.Atoi(dow)
		return Spec{Mode: WeeklyOnDayAtTime, Time: at, Weekday: d}, err == nil
	case dow == "*":
		d, err := strconv.Atoi(dom)
		return Spec{Mode: MonthlyOnDayAtTime, Time: at, DayOfMonth: d}, err == nil
	default:
		return Spec{}, false
	}
}

// EditState returns the structured spec for expr, or a raw-expression spec holding expr verbatim.
func EditState(expr string) Spec {
	if spec, ok := Parse(expr); ok {
		return spec
	}

	return Spec{Mode: RawExpression, Expression: expr}
}

var weekdays = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Label describes expr in words when it matches a canonical template, else returns expr unchanged.
func Label(expr string) string {
	spec, ok := Parse(expr)
	if !ok {
		return expr
	}

	switch spec.Mode {
	case EveryNMinutes:
		return fmt.Sprintf("Every %d minutes", spec.Interval)
	case HourlyAtMinute:
		return fmt.Sprintf("Every hour at minute %d", spec.Minute)
	case DailyAtTime:
		return "Every day at " + spec.Time
	case WeeklyOnDayAtTime:
		return fmt.Sprintf("Every week on %s at %s", weekdays[spec.Weekday], spec.Time)
	case MonthlyOnDayAtTime:
		return fmt.Sprintf("Every month on the %s at %s", Ordinal(spec.DayOfMonth), spec.Time)
	default:
		return expr
	}
}

// Ordinal renders n with its English suffix: 1st, 2nd, 3rd, 11th, 22nd.
func Ordinal(n int) string {
	suffix := "th"

	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}

	return strconv.Itoa(n) + suffix
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Check reports whether expr is a valid five-field cron expression.
func Check(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return ErrEmptyExpression
	}

	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	return nil
}

// CheckTimezone reports whether tz names a known IANA zone. Empty means UTC.
func CheckTimezone(tz string) error {
	if tz == "" {
		return nil
	}

	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return nil
}

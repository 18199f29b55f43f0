package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/arnavshah/roster-planner-go/pkg/models"
)

const (
	isoLayout     = "2006-01-02"
	minutesPerDay = 24 * 60
	maxRangeDays  = 3660
)

var isoPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// Date is a parsed calendar date
type Date struct {
	Year  int
	Month int
	Day   int
}

// Time returns the date at midnight UTC
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// ISO formats the date as YYYY-MM-DD
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// ParseISODate parses a strict YYYY-MM-DD string. Month and day are checked against
// their nominal ranges only.
func ParseISODate(s string) (Date, bool) {
	m := isoPattern.FindStringSubmatch(s)
	if m == nil {
		return Date{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// ShiftDateISO adds deltaDays to a date, crossing month and year boundaries.
// It returns "" when the date cannot be parsed.
func ShiftDateISO(dateISO string, deltaDays int) string {
	d, ok := ParseISODate(dateISO)
	if !ok {
		return ""
	}
	return d.Time().AddDate(0, 0, deltaDays).Format(isoLayout)
}

// Weekday returns the day of week of a date
func Weekday(dateISO string) (time.Weekday, bool) {
	d, ok := ParseISODate(dateISO)
	if !ok {
		return time.Sunday, false
	}
	return d.Time().Weekday(), true
}

// ISOWeek returns a "YYYY-Www" label used to bucket dates by week
func ISOWeek(dateISO string) string {
	d, ok := ParseISODate(dateISO)
	if !ok {
		return ""
	}
	year, week := d.Time().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// HolidaySet is a set of ISO dates
type HolidaySet map[string]struct{}

// NewHolidaySet builds a set from a list of dates, skipping malformed entries
func NewHolidaySet(days []string) HolidaySet {
	set := make(HolidaySet, len(days))
	for _, d := range days {
		if _, ok := ParseISODate(d); ok {
			set[d] = struct{}{}
		}
	}
	return set
}

// Contains reports whether the date is a holiday
func (h HolidaySet) Contains(dateISO string) bool {
	_, ok := h[dateISO]
	return ok
}

// IsWeekendOrHoliday reports whether the date is a Saturday, a Sunday, or a holiday.
func IsWeekendOrHoliday(dateISO string, holidays HolidaySet) bool {
	wd, ok := Weekday(dateISO)
	if !ok {
		return false
	}
	if wd == time.Saturday || wd == time.Sunday {
		return true
	}
	return holidays.Contains(dateISO)
}

// RowActiveOn reports whether a class row is staffed on the given date according to its day type
func RowActiveOn(row models.Row, dateISO string, holidays HolidaySet) bool {
	if row.Kind != models.RowKindClass {
		return false
	}
	if _, ok := ParseISODate(dateISO); !ok {
		return false
	}
	switch row.DayType {
	case models.DayTypeWeekday:
		return !IsWeekendOrHoliday(dateISO, holidays)
	case models.DayTypeWeekend:
		return IsWeekendOrHoliday(dateISO, holidays)
	default:
		return true
	}
}

// Range lists every date from `from` to `to` inclusive. It returns nil for malformed
// bounds or an inverted range.
func Range(from, to string) []string {
	start, ok := ParseISODate(from)
	if !ok {
		return nil
	}
	end, ok := ParseISODate(to)
	if !ok {
		return nil
	}
	s, e := start.Time(), end.Time()
	if e.Before(s) {
		return nil
	}
	var out []string
	for d := s; !d.After(e) && len(out) < maxRangeDays; d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(isoLayout))
	}
	return out
}

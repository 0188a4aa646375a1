package calendar

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoDate is returned for values that carry no usable date at all
	// ("", "TBA", "미정").
	ErrNoDate = errors.New("calendar: no date")
	// ErrYearOnly is returned for values that only carry a year
	// ("2025", "2025년", "2025년 4분기"). Such records are unscheduled.
	ErrYearOnly = errors.New("calendar: year-only date")
)

const dayLayout = "2006-01-02"

// Date is a parsed update_date/end_date value.
type Date struct {
	Time    time.Time
	HasTime bool
}

// Day returns the calendar day in loc as "2006-01-02".
func (d Date) Day(loc *time.Location) string {
	return d.Time.In(loc).Format(dayLayout)
}

// Format renders the value the way the calendar widget expects it:
// date-only for all-day values, RFC 3339 in loc otherwise.
func (d Date) Format(loc *time.Location) string {
	if !d.HasTime {
		return d.Day(loc)
	}
	return d.Time.In(loc).Format(time.RFC3339)
}

// localPattern matches the loose local forms the data uses:
// 2025, 2025-01, 2025-01-15, 2025/1/5, 20250115, 2025-01-15T10:00,
// 2025-01-15 10:00:00.123.
var localPattern = regexp.MustCompile(`^(\d{4})[-/]?(\d{1,2})?[-/]?(\d{0,2})[Tt\s]*(\d{1,2})?:?(\d{1,2})?:?(\d{1,2})?[.:]?(\d+)?$`)

var (
	koreanDatePattern = regexp.MustCompile(`^(\d{4})\s*년\s*(\d{1,2})\s*월\s*(\d{1,2})\s*일`)
	dottedDatePattern = regexp.MustCompile(`^(\d{4})\s*\.\s*(\d{1,2})\s*\.\s*(\d{1,2})\.?$`)
	yearPattern       = regexp.MustCompile(`\d{4}`)
)

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
}

var englishLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2 Jan, 2006",
	"2 January, 2006",
	"2 Jan 2006",
}

// ParseDate parses a date value from the documents. Values without an
// explicit offset are interpreted in loc. Only values with a "T" date/time
// separator count as timed; "2025-01-15 10:00" stays an all-day value.
func ParseDate(s string, loc *time.Location) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrNoDate
	}
	if loc == nil {
		loc = time.Local
	}

	d, err := parseDate(s, loc)
	if err != nil {
		return Date{}, err
	}
	d.HasTime = d.HasTime && strings.Contains(s, "T")
	return d, nil
}

func parseDate(s string, loc *time.Location) (Date, error) {
	if !strings.HasSuffix(strings.ToUpper(s), "Z") {
		if m := localPattern.FindStringSubmatch(s); m != nil {
			return parseLocal(m, loc)
		}
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t, HasTime: true}, nil
		}
	}

	if m := koreanDatePattern.FindStringSubmatch(s); m != nil {
		return civilDate(m[1], m[2], m[3], loc)
	}
	if m := dottedDatePattern.FindStringSubmatch(s); m != nil {
		return civilDate(m[1], m[2], m[3], loc)
	}
	for _, layout := range englishLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return Date{Time: t}, nil
		}
	}

	if yearPattern.MatchString(s) {
		return Date{}, ErrYearOnly
	}
	return Date{}, ErrNoDate
}

func parseLocal(m []string, loc *time.Location) (Date, error) {
	if m[2] == "" {
		return Date{}, ErrYearOnly
	}
	day := m[3]
	if day == "" {
		day = "1"
	}
	d, err := civilDate(m[1], m[2], day, loc)
	if err != nil || m[4] == "" {
		return d, err
	}

	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(orZero(m[5]))
	sec, _ := strconv.Atoi(orZero(m[6]))
	if hour > 23 || minute > 59 || sec > 59 {
		return Date{}, ErrNoDate
	}
	nsec := 0
	if m[7] != "" {
		frac := m[7]
		if len(frac) > 9 {
			frac = frac[:9]
		}
		nsec, _ = strconv.Atoi(frac + strings.Repeat("0", 9-len(frac)))
	}

	t := d.Time
	return Date{
		Time:    time.Date(t.Year(), t.Month(), t.Day(), hour, minute, sec, nsec, loc),
		HasTime: true,
	}, nil
}

// civilDate builds a midnight time in loc, rejecting out-of-range parts
// instead of letting time.Date roll them over.
func civilDate(ys, ms, ds string, loc *time.Location) (Date, error) {
	y, _ := strconv.Atoi(ys)
	mo, _ := strconv.Atoi(ms)
	d, _ := strconv.Atoi(ds)
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, loc)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return Date{}, ErrNoDate
	}
	return Date{Time: t}, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// startOfDay truncates t to midnight in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// subtractMonths moves t back n calendar months, clamping the day to the
// end of the target month (May 31 minus 3 months is Feb 28).
func subtractMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m-time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// Package dates turns the heterogeneous date strings found on job records
// into comparable timestamps.
//
// The backend has written dates in several shapes over time: ISO 8601,
// en-IN locale strings such as "3/12/2025, 4:05:09 pm", and whatever a
// browser's Date.toString produced. Parse never fails loudly; anything it
// cannot read becomes the zero sentinel, which sorts as the oldest value.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Zone is the fixed offset used whenever a date is assembled from
// components or carries no zone of its own. It is UTC+05:30 regardless of
// where the service runs.
var Zone = time.FixedZone("IST", 5*60*60+30*60)

var isoPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}`)

var isoZoned = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

var isoLocal = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// zone-aware layouts tried by the generic fallback
var fallbackZoned = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.UnixDate,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
}

// layouts without a zone, read in Zone
var fallbackLocal = []string{
	time.ANSIC,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"January 2, 2006 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02 Jan 2006",
	"Mon Jan 02 2006",
}

// Parse reads s using, in order, the ISO fast path, the locale
// "D/M/YYYY, h:mm:ss am/pm" form and a set of generic layouts. The boolean
// is false when nothing matched.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if isoPrefix.MatchString(s) {
		if t, ok := parseISO(s); ok {
			return t, true
		}
	}

	if strings.Contains(s, ",") {
		if t, ok := parseLocale(s); ok {
			return t, true
		}
	}

	return parseFallback(s)
}

// Timestamp returns s as unix milliseconds, or 0 when s is unparseable.
func Timestamp(s string) int64 {
	t, ok := Parse(s)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

func parseISO(s string) (time.Time, bool) {
	for _, layout := range isoZoned {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range isoLocal {
		if t, err := time.ParseInLocation(layout, s, Zone); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseLocale handles "D/M/YYYY, h:mm:ss am/pm". When the first number is
// above 12 it must be the day; otherwise it is read as the month. Values
// where both parts are <= 12 are ambiguous and always come out month-first,
// so "01/12/2025" is 12 January 2025, not 1 December.
func parseLocale(s string) (time.Time, bool) {
	datePart, timePart, _ := strings.Cut(s, ",")

	fields := strings.Split(strings.TrimSpace(datePart), "/")
	if len(fields) != 3 {
		return time.Time{}, false
	}
	nums := make([]int, 3)
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || n < 0 {
			return time.Time{}, false
		}
		nums[i] = n
	}

	var day, month int
	if nums[0] > 12 {
		day, month = nums[0], nums[1]
	} else {
		month, day = nums[0], nums[1]
	}
	year := nums[2]
	if year < 100 {
		year += 2000
	}

	hour, minute, second, ok := parseClock(timePart)
	if !ok {
		return time.Time{}, false
	}

	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, Zone)
	// time.Date normalises overflow (31/02 -> March); reject instead
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// parseClock reads "h:mm", "h:mm:ss" with an optional am/pm marker. An
// empty clock is midnight.
func parseClock(s string) (hour, minute, second int, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, 0, 0, true
	}

	meridiem := ""
	for _, m := range []string{"a.m.", "p.m.", "am", "pm"} {
		if strings.HasSuffix(s, m) {
			meridiem = m[:1]
			s = strings.TrimSpace(strings.TrimSuffix(s, m))
			break
		}
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, false
	}
	vals := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, 0, 0, false
		}
		vals[i] = n
	}
	hour, minute, second = vals[0], vals[1], vals[2]

	switch meridiem {
	case "a":
		if hour < 1 || hour > 12 {
			return 0, 0, 0, false
		}
		if hour == 12 {
			hour = 0
		}
	case "p":
		if hour < 1 || hour > 12 {
			return 0, 0, 0, false
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return 0, 0, 0, false
		}
	}
	if minute > 59 || second > 59 {
		return 0, 0, 0, false
	}
	return hour, minute, second, true
}

func parseFallback(s string) (time.Time, bool) {
	// Date.toString appends "(India Standard Time)"
	if i := strings.Index(s, " ("); i > 0 && strings.HasSuffix(s, ")") {
		s = s[:i]
	}

	// bare dates are UTC midnight, as browsers read them
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	for _, layout := range fallbackZoned {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range fallbackLocal {
		if t, err := time.ParseInLocation(layout, s, Zone); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DaysInPeriod is the length of the lookahead window.
	DaysInPeriod = 7
	// SlotStep is the spacing of the slot grid.
	SlotStep = 30 * time.Minute

	firstSlotMinute = 9 * 60
	lastSlotMinute  = 17*60 + 30

	// DefaultBusinessDayTag marks calendar events that open a day for booking.
	DefaultBusinessDayTag = "営業日"

	dateISOLayout = "2006-01-02T15:04:05.000Z"
	clockLayout   = "15:04"
)

// ErrInvalidInput marks a malformed cutoff, duration or period start.
var ErrInvalidInput = errors.New("invalid availability input")

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Event is a calendar entry from the availability source.
type Event struct {
	Title string
	Start time.Time
	End   time.Time
}

// IsBusinessDay reports whether the event's title carries tag.
func (e Event) IsBusinessDay(tag string) bool {
	return strings.Contains(e.Title, tag)
}

// DayAvailability lists the bookable "HH:MM" slot starts for one day. DateISO is
// UTC midnight of the day's local calendar date.
type DayAvailability struct {
	DateISO        string   `json:"date"`
	AvailableTimes []string `json:"availableTimes"`
}

// Options controls how events map onto days. Zero values select Asia/Tokyo and
// DefaultBusinessDayTag.
type Options struct {
	Location       *time.Location
	BusinessDayTag string
}

func (o Options) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return defaultLocation
}

func (o Options) tag() string {
	if o.BusinessDayTag != "" {
		return o.BusinessDayTag
	}
	return DefaultBusinessDayTag
}

var defaultLocation = loadDefaultLocation()

func loadDefaultLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

// SlotStarts returns the fixed grid of slot start labels, 09:00 through 17:30.
func SlotStarts() []string {
	out := make([]string, 0, (lastSlotMinute-firstSlotMinute)/30+1)
	for m := firstSlotMinute; m <= lastSlotMinute; m += int(SlotStep / time.Minute) {
		out = append(out, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return out
}

// ParseClock converts "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: clock %q", ErrInvalidInput, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// GenerateWeek computes bookable slot starts for the seven days beginning at
// periodStart's local date.
//
// A slot of totalMinutes starting at a grid time is bookable when it fits in a
// business window of that day (or, on days without business windows, the day
// is not a Sunday), it overlaps no other event of that day, it ends no later
// than lastAcceptableEnd and it starts strictly after now.
func GenerateWeek(events []Event, periodStart time.Time, totalMinutes int, lastAcceptableEnd string, now time.Time, opts Options) ([]DayAvailability, error) {
	if totalMinutes < 0 {
		return nil, fmt.Errorf("%w: negative duration %d", ErrInvalidInput, totalMinutes)
	}
	cutoff, err := ParseClock(lastAcceptableEnd)
	if err != nil {
		return nil, err
	}

	loc := opts.location()
	tag := opts.tag()
	duration := time.Duration(totalMinutes) * time.Minute
	first := periodStart.In(loc)

	days := make([]DayAvailability, 0, DaysInPeriod)
	for i := 0; i < DaysInPeriod; i++ {
		dayStart := time.Date(first.Year(), first.Month(), first.Day()+i, 0, 0, 0, 0, loc)
		business, busy := partition(events, dayStart, loc, tag)

		times := make([]string, 0)
		for m := firstSlotMinute; m <= lastSlotMinute; m += int(SlotStep / time.Minute) {
			start := time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(), 0, m, 0, 0, loc)
			end := start.Add(duration)

			if !inBusiness(start, end, dayStart, business) {
				continue
			}
			if overlapsAny(start, end, busy) {
				continue
			}
			if !endsBeforeLimit(end, dayStart, cutoff) {
				continue
			}
			if !start.After(now) {
				continue
			}
			times = append(times, start.Format(clockLayout))
		}

		days = append(days, DayAvailability{
			DateISO:        time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(), 0, 0, 0, 0, time.UTC).Format(dateISOLayout),
			AvailableTimes: times,
		})
	}
	return days, nil
}

// Period returns the fetch window [start, end) covering the seven local days
// that begin at periodStart's date.
func Period(periodStart time.Time, opts Options) (time.Time, time.Time) {
	loc := opts.location()
	p := periodStart.In(loc)
	start := time.Date(p.Year(), p.Month(), p.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, DaysInPeriod)
}

// partition splits the events starting on dayStart's date into business
// windows and busy windows.
func partition(events []Event, dayStart time.Time, loc *time.Location, tag string) (business, busy []Interval) {
	y, m, d := dayStart.Date()
	for _, e := range events {
		ey, em, ed := e.Start.In(loc).Date()
		if ey != y || em != m || ed != d {
			continue
		}
		iv := Interval{Start: e.Start, End: e.End}
		if e.IsBusinessDay(tag) {
			business = append(business, iv)
		} else {
			busy = append(busy, iv)
		}
	}
	return business, busy
}

func inBusiness(start, end, dayStart time.Time, business []Interval) bool {
	if len(business) == 0 {
		return dayStart.Weekday() != time.Sunday
	}
	for _, w := range business {
		if !start.Before(w.Start) && !end.After(w.End) {
			return true
		}
	}
	return false
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		// Open intervals: (start,end) overlaps (b.Start,b.End) iff start < b.End && b.Start < end.
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

// endsBeforeLimit measures the end from the slot's own midnight, so a slot
// running past midnight never satisfies a same-day cutoff.
func endsBeforeLimit(end, dayStart time.Time, cutoffMinute int) bool {
	return end.Sub(dayStart) <= time.Duration(cutoffMinute)*time.Minute
}

package delivery

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	isoDate = "2006-01-02"

	windowStartOffset = 1
	windowEndOffset   = 7
	maxProbes         = 10
)

var (
	ErrDateMissing     = errors.New("please choose a delivery date")
	ErrDateInvalid     = errors.New("delivery date is not a valid date")
	ErrDateOutOfWindow = errors.New("delivery date must be between tomorrow and seven days from today")
	ErrDateSunday      = errors.New("we do not deliver on sundays")
	ErrDateOffDay      = errors.New("we do not deliver on this day")

	// ErrNoDeliveryDay means the whole window is blocked: the customer cannot fix this
	ErrNoDeliveryDay = errors.New("no available delivery day in range")
)

// ShopLocation determines what "today" means for the delivery window
var ShopLocation = mustLoadLocation("Europe/Istanbul")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("TRT", 3*60*60)
	}
	return loc
}

type BlockReason int

const (
	NotBlocked BlockReason = iota
	BlockedBySunday
	BlockedByOffDay
)

// Calendar answers date questions relative to a single "today"; create a fresh one per evaluation
type Calendar struct {
	today   time.Time
	offDays map[string]bool
}

func NewCalendar(now time.Time, offDays []string) Calendar {
	set := make(map[string]bool, len(offDays))
	for _, d := range offDays {
		parsed, err := ParseDate(d)
		if err != nil {
			continue
		}
		set[FormatDate(parsed)] = true
	}
	return Calendar{
		today:   DateOf(now),
		offDays: set,
	}
}

// DateOf drops the clock: the local shop date at midnight UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.In(ShopLocation).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts a plain date or a full RFC 3339 timestamp, which counts on its shop date
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	d, err := time.Parse(isoDate, raw)
	if err == nil {
		return d, nil
	}
	ts, tsErr := time.Parse(time.RFC3339, raw)
	if tsErr != nil {
		return time.Time{}, err
	}
	return DateOf(ts), nil
}

func FormatDate(d time.Time) string {
	return d.Format(isoDate)
}

func (c Calendar) Today() time.Time {
	return c.today
}

func (c Calendar) Window() (time.Time, time.Time) {
	return c.today.AddDate(0, 0, windowStartOffset), c.today.AddDate(0, 0, windowEndOffset)
}

func (c Calendar) InWindow(d time.Time) bool {
	first, last := c.Window()
	d = dateOnly(d)
	return !d.Before(first) && !d.After(last)
}

func (c Calendar) clamp(d time.Time) (time.Time, bool) {
	first, last := c.Window()
	d = dateOnly(d)
	if d.Before(first) {
		return first, true
	}
	if d.After(last) {
		return last, true
	}
	return d, false
}

func (c Calendar) IsBlocked(d time.Time) bool {
	return c.BlockReason(d) != NotBlocked
}

// BlockReason gives the sunday-rule precedence over off-days
func (c Calendar) BlockReason(d time.Time) BlockReason {
	d = dateOnly(d)
	if d.Weekday() == time.Sunday {
		return BlockedBySunday
	}
	if c.offDays[FormatDate(d)] {
		return BlockedByOffDay
	}
	return NotBlocked
}

// NextAllowed scans forward from preferred (or the start of the window) and never leaves the window
func (c Calendar) NextAllowed(preferred *time.Time) (time.Time, bool) {
	start, _ := c.Window()
	if preferred != nil {
		start, _ = c.clamp(*preferred)
	}

	for probe := 0; probe < maxProbes; probe++ {
		candidate := start.AddDate(0, 0, probe)
		if !c.InWindow(candidate) {
			break
		}
		if !c.IsBlocked(candidate) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

func (c Calendar) previousAllowed(from time.Time) (time.Time, bool) {
	first, _ := c.Window()
	for candidate := from.AddDate(0, 0, -1); !candidate.Before(first); candidate = candidate.AddDate(0, 0, -1) {
		if !c.IsBlocked(candidate) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// AllowedDates lists every deliverable date in the window, in order
func (c Calendar) AllowedDates() []time.Time {
	first, last := c.Window()
	result := []time.Time{}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if !c.IsBlocked(d) {
			result = append(result, d)
		}
	}
	return result
}

type Selection struct {
	Date                 time.Time
	Notice               string
	Clamped              bool
	Advanced             bool
	NeedsAcknowledgement bool
}

// ApplyManualSelection bounds the date to the window first and resolves blocking afterwards.
// An admin off-day is a hard stop: the date is kept and must be acknowledged and re-chosen.
// A sunday is moved to the next allowed day, or the closest earlier one at the end of the window.
func (c Calendar) ApplyManualSelection(raw string) (Selection, error) {
	if strings.TrimSpace(raw) == "" {
		return Selection{}, ErrDateMissing
	}
	requested, err := ParseDate(raw)
	if err != nil {
		return Selection{}, ErrDateInvalid
	}

	selection := Selection{}
	selection.Date, selection.Clamped = c.clamp(requested)
	if selection.Clamped {
		first, _ := c.Window()
		if selection.Date.Equal(first) {
			selection.Notice = fmt.Sprintf("The earliest possible delivery date is %s.", FormatDate(selection.Date))
		} else {
			selection.Notice = fmt.Sprintf("The latest possible delivery date is %s.", FormatDate(selection.Date))
		}
	}

	switch c.BlockReason(selection.Date) {
	case BlockedByOffDay:
		selection.NeedsAcknowledgement = true
		selection.Notice = fmt.Sprintf("We do not deliver on %s. Please choose another date.", FormatDate(selection.Date))
		return selection, nil

	case BlockedBySunday:
		blocked := selection.Date
		next, found := c.NextAllowed(&blocked)
		if !found {
			next, found = c.previousAllowed(blocked)
		}
		if !found {
			return Selection{}, ErrNoDeliveryDay
		}
		selection.Date = next
		selection.Advanced = true
		selection.Notice = fmt.Sprintf("We do not deliver on sundays, your delivery date was moved to %s.", FormatDate(next))
	}

	return selection, nil
}

// ValidateDate reports why a date cannot be used without changing it
func (c Calendar) ValidateDate(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrDateMissing
	}
	d, err := ParseDate(raw)
	if err != nil {
		return ErrDateInvalid
	}
	if !c.InWindow(d) {
		return ErrDateOutOfWindow
	}
	switch c.BlockReason(d) {
	case BlockedBySunday:
		return ErrDateSunday
	case BlockedByOffDay:
		return ErrDateOffDay
	}
	return nil
}

func dateOnly(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

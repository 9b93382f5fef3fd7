package banking

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"advancer/models"
)

// ErrInvalidStartTime is returned when an ACH computation is given a zero
// start timestamp.
var ErrInvalidStartTime = errors.New("invalid ACH start time")

const (
	// achCutoffHour is the Pacific-local hour after which a banking day's
	// ACH transactions count against the next banking day
	achCutoffHour = 15

	// DefaultACHBankingDays is the standard ACH settlement window
	DefaultACHBankingDays = 3

	// Payback dates are offered between 4 and 11 days out, inclusive
	paybackWindowMinDays = 4
	paybackWindowMaxDays = 11

	dateLayout = "2006-01-02"
)

var pacific = mustLoadLocation("America/Los_Angeles")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("failed to load location %s: %v", name, err))
	}
	return loc
}

// Calendar answers banking-day questions against a holiday source. The
// per-year holiday set is cached for the process lifetime; recomputing it
// under a race is harmless because the computation is pure, so no lock is
// taken around the cache.
type Calendar struct {
	source HolidaySource
	cache  sync.Map // year -> map[string]bool of observed bank holiday dates
}

// NewCalendar creates a calendar backed by the given holiday source
func NewCalendar(source HolidaySource) *Calendar {
	return &Calendar{source: source}
}

// NewFederalCalendar creates a calendar over the computed US federal holidays
func NewFederalCalendar() *Calendar {
	return NewCalendar(FederalHolidaySource{})
}

// bankHolidays returns the observed bank holiday dates for a year, keyed
// by YYYY-MM-DD. Holidays in the roll-forward exception set that were
// shifted back to a Friday are excluded: banks stay open that day.
func (c *Calendar) bankHolidays(year int) map[string]bool {
	if cached, ok := c.cache.Load(year); ok {
		return cached.(map[string]bool)
	}

	set := make(map[string]bool)
	for _, h := range c.source.HolidaysForYear(year) {
		if rollForwardExceptions[h.Name] && h.Observed.Before(h.Date) {
			continue
		}
		set[h.Observed.Format(dateLayout)] = true
	}

	c.cache.Store(year, set)
	return set
}

// Preload computes and caches the holiday set for a year ahead of use,
// so the first request of a day never pays for it.
func (c *Calendar) Preload(year int) {
	c.bankHolidays(year)
}

// IsBankingDay reports whether the date (in its own timezone) is neither a
// weekend nor an observed bank holiday.
func (c *Calendar) IsBankingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.bankHolidays(t.Year())[t.Format(dateLayout)]
}

// NextBankingDay returns t unchanged when it already is a banking day.
// Otherwise it walks one calendar day at a time in the sign of direction,
// consuming one step per banking day landed on, until |direction| steps
// are consumed.
func (c *Calendar) NextBankingDay(t time.Time, direction int) time.Time {
	if c.IsBankingDay(t) {
		return t
	}

	step := 1
	if direction < 0 {
		step = -1
		direction = -direction
	}

	remaining := direction
	for remaining > 0 {
		t = t.AddDate(0, 0, step)
		if c.IsBankingDay(t) {
			remaining--
		}
	}
	return t
}

// AddBankingDaysForACH computes the date an ACH transfer started at the
// given time settles, counting numBankingDays banking days from the
// eligible start. A transfer initiated on a banking day before the 3 PM
// Pacific cutoff is eligible the same day; anything else is eligible the
// next banking day.
func (c *Calendar) AddBankingDaysForACH(start time.Time, numBankingDays int) (time.Time, error) {
	if start.IsZero() {
		return time.Time{}, fmt.Errorf("%w: zero start timestamp", ErrInvalidStartTime)
	}

	local := start.In(pacific)

	var eligible time.Time
	if c.IsBankingDay(local) && local.Hour() < achCutoffHour {
		eligible = startOfDay(local)
	} else {
		eligible = c.NextBankingDay(local.AddDate(0, 0, 1), 1)
	}

	d := eligible
	remaining := numBankingDays
	for remaining > 0 {
		d = d.AddDate(0, 0, 1)
		if c.IsBankingDay(d) {
			remaining--
		}
	}
	return d, nil
}

// ExpectedDelivery returns when an advance created at createdAt should
// reach the user's account. Express disbursals land within 8-9 hours
// rounded to the hour; standard disbursals settle over ACH.
func (c *Calendar) ExpectedDelivery(createdAt time.Time, deliveryType models.DeliveryType) (time.Time, error) {
	switch deliveryType {
	case models.DeliveryTypeExpress:
		if createdAt.Minute() < 30 {
			return createdAt.Add(8 * time.Hour).Truncate(time.Hour), nil
		}
		return createdAt.Add(9 * time.Hour).Truncate(time.Hour), nil
	case models.DeliveryTypeStandard:
		delivery, err := c.AddBankingDaysForACH(createdAt, DefaultACHBankingDays)
		if err != nil {
			return time.Time{}, err
		}
		return delivery.In(time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("unknown delivery type: %s", deliveryType)
	}
}

// DateRange is an inclusive range of calendar dates
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Dates enumerates every calendar date in the range, inclusive
func (r DateRange) Dates() []time.Time {
	var dates []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Contains reports whether t's date falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	d := startOfDay(t.In(r.Start.Location()))
	return !d.Before(r.Start) && !d.After(r.End)
}

// PossiblePaybackDates returns the window of dates an approval's payback
// may be scheduled on: 4 through 11 days out from start, at Pacific
// start-of-day.
func (c *Calendar) PossiblePaybackDates(start time.Time) DateRange {
	s := startOfDay(start.In(pacific))
	return DateRange{
		Start: s.AddDate(0, 0, paybackWindowMinDays),
		End:   s.AddDate(0, 0, paybackWindowMaxDays),
	}
}

// BankingDaysIn returns the banking days inside the range, ascending
func (c *Calendar) BankingDaysIn(r DateRange) []time.Time {
	var days []time.Time
	for _, d := range r.Dates() {
		if c.IsBankingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

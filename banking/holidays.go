package banking

import (
	"time"
)

// Holiday is a single federal holiday for a year, with the date it is
// actually observed after weekend shifting.
type Holiday struct {
	Name     string
	Date     time.Time
	Observed time.Time
}

// HolidaySource provides the federal holidays for a given year
type HolidaySource interface {
	HolidaysForYear(year int) []Holiday
}

// Federal holiday names. The rollForwardExceptions set lists holidays that
// are calendar-rolled onto the preceding Friday when they fall on a
// Saturday but are NOT observed by the banking/ACH network on that Friday.
const (
	HolidayNewYearsDay        = "New Year's Day"
	HolidayMLKDay             = "Birthday of Martin Luther King, Jr."
	HolidayWashingtonBirthday = "Washington's Birthday"
	HolidayMemorialDay        = "Memorial Day"
	HolidayJuneteenth         = "Juneteenth National Independence Day"
	HolidayIndependenceDay    = "Independence Day"
	HolidayLaborDay           = "Labor Day"
	HolidayColumbusDay        = "Columbus Day"
	HolidayVeteransDay        = "Veterans Day"
	HolidayThanksgiving       = "Thanksgiving Day"
	HolidayChristmas          = "Christmas Day"
)

var rollForwardExceptions = map[string]bool{
	HolidayNewYearsDay:     true,
	HolidayJuneteenth:      true,
	HolidayIndependenceDay: true,
	HolidayVeteransDay:     true,
	HolidayChristmas:       true,
}

// FederalHolidaySource computes US federal holidays for any year
type FederalHolidaySource struct{}

// HolidaysForYear returns the federal holidays for the given year with
// their observed dates (Saturday holidays observed the preceding Friday,
// Sunday holidays the following Monday).
func (FederalHolidaySource) HolidaysForYear(year int) []Holiday {
	fixed := func(name string, month time.Month, day int) Holiday {
		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		return Holiday{Name: name, Date: d, Observed: observedDate(d)}
	}
	floating := func(name string, d time.Time) Holiday {
		// Floating holidays always land on a weekday
		return Holiday{Name: name, Date: d, Observed: d}
	}

	holidays := []Holiday{
		fixed(HolidayNewYearsDay, time.January, 1),
		floating(HolidayMLKDay, nthWeekday(year, time.January, time.Monday, 3)),
		floating(HolidayWashingtonBirthday, nthWeekday(year, time.February, time.Monday, 3)),
		floating(HolidayMemorialDay, lastWeekday(year, time.May, time.Monday)),
		fixed(HolidayIndependenceDay, time.July, 4),
		floating(HolidayLaborDay, nthWeekday(year, time.September, time.Monday, 1)),
		floating(HolidayColumbusDay, nthWeekday(year, time.October, time.Monday, 2)),
		fixed(HolidayVeteransDay, time.November, 11),
		floating(HolidayThanksgiving, nthWeekday(year, time.November, time.Thursday, 4)),
		fixed(HolidayChristmas, time.December, 25),
	}

	// Juneteenth became a federal holiday in 2021
	if year >= 2021 {
		holidays = append(holidays, fixed(HolidayJuneteenth, time.June, 19))
	}

	return holidays
}

func observedDate(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

// nthWeekday returns the nth occurrence of a weekday in a month
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday returns the last occurrence of a weekday in a month
func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(weekday) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

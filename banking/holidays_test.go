package banking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holidayByName(t *testing.T, year int, name string) Holiday {
	t.Helper()
	for _, h := range (FederalHolidaySource{}).HolidaysForYear(year) {
		if h.Name == name {
			return h
		}
	}
	t.Fatalf("holiday %q not found for %d", name, year)
	return Holiday{}
}

func TestFederalHolidaySource_FloatingHolidays(t *testing.T) {
	tests := []struct {
		year int
		name string
		want time.Time
	}{
		{2019, HolidayThanksgiving, time.Date(2019, 11, 28, 0, 0, 0, 0, time.UTC)},
		{2020, HolidayThanksgiving, time.Date(2020, 11, 26, 0, 0, 0, 0, time.UTC)},
		{2020, HolidayMLKDay, time.Date(2020, 1, 20, 0, 0, 0, 0, time.UTC)},
		{2019, HolidayMemorialDay, time.Date(2019, 5, 27, 0, 0, 0, 0, time.UTC)},
		{2020, HolidayLaborDay, time.Date(2020, 9, 7, 0, 0, 0, 0, time.UTC)},
		{2019, HolidayColumbusDay, time.Date(2019, 10, 14, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := holidayByName(t, tt.year, tt.name)
			assert.Equal(t, tt.want, h.Date)
			assert.Equal(t, tt.want, h.Observed)
		})
	}
}

func TestFederalHolidaySource_Observance(t *testing.T) {
	t.Run("Sunday holiday observed Monday", func(t *testing.T) {
		// July 4 2021 is a Sunday
		h := holidayByName(t, 2021, HolidayIndependenceDay)
		assert.Equal(t, time.Date(2021, 7, 5, 0, 0, 0, 0, time.UTC), h.Observed)
	})

	t.Run("Saturday holiday observed preceding Friday", func(t *testing.T) {
		// July 4 2020 is a Saturday
		h := holidayByName(t, 2020, HolidayIndependenceDay)
		assert.Equal(t, time.Date(2020, 7, 3, 0, 0, 0, 0, time.UTC), h.Observed)
	})

	t.Run("Juneteenth only from 2021", func(t *testing.T) {
		for _, h := range (FederalHolidaySource{}).HolidaysForYear(2020) {
			require.NotEqual(t, HolidayJuneteenth, h.Name)
		}
		h := holidayByName(t, 2021, HolidayJuneteenth)
		assert.Equal(t, time.Date(2021, 6, 19, 0, 0, 0, 0, time.UTC), h.Date)
	})
}

func TestCalendar_HolidayCacheIsStable(t *testing.T) {
	cal := NewFederalCalendar()

	first := cal.bankHolidays(2020)
	second := cal.bankHolidays(2020)

	// Same map instance once cached
	assert.Equal(t, len(first), len(second))
	christmas := time.Date(2020, 12, 25, 0, 0, 0, 0, time.UTC)
	assert.True(t, first[christmas.Format(dateLayout)])
}

package numbering

import "time"

// FiscalCalendar maps calendar dates onto the organisation's numbered fiscal terms.
// The term starting on the rollover day of BaseYear is BaseTerm; every rollover adds one.
type FiscalCalendar struct {
	BaseTerm      int
	BaseYear      int
	RolloverMonth time.Month
	RolloverDay   int
}

// DefaultCalendar is the calendar in use since 2024-08-01 (term 56)
func DefaultCalendar() FiscalCalendar {
	return NewFiscalCalendar(56, 2024)
}

// NewFiscalCalendar creates a calendar that rolls over on August 1
func NewFiscalCalendar(baseTerm, baseYear int) FiscalCalendar {
	return FiscalCalendar{
		BaseTerm:      baseTerm,
		BaseYear:      baseYear,
		RolloverMonth: time.August,
		RolloverDay:   1,
	}
}

// ResolvePeriod returns the fiscal term containing date.
// The date is interpreted in its own location; no timezone conversion happens here.
func (c FiscalCalendar) ResolvePeriod(date time.Time) int {
	year := date.Year()
	rollover := time.Date(year, c.RolloverMonth, c.RolloverDay, 0, 0, 0, 0, date.Location())
	if date.Before(rollover) {
		year--
	}
	return c.BaseTerm + (year - c.BaseYear)
}

// PeriodStart returns the first day of the given term
func (c FiscalCalendar) PeriodStart(period int, loc *time.Location) time.Time {
	year := c.BaseYear + (period - c.BaseTerm)
	return time.Date(year, c.RolloverMonth, c.RolloverDay, 0, 0, 0, 0, loc)
}

package models

import "time"

// MaxLevel is the highest intensity a calendar day can carry.
const MaxLevel = 4

// DateLayout is the calendar-date wire format.
const DateLayout = "2006-01-02"

// IntensityCell is one painted calendar day
type IntensityCell struct {
	Date           time.Time `json:"date"`
	Level          int       `json:"level"`
	InSelectedYear bool      `json:"in_selected_year"`
}

// Active reports whether the cell contributes commit units to a run.
func (c IntensityCell) Active() bool {
	return c.Level > 0 && c.InSelectedYear
}

// FormattedDate returns the cell date as YYYY-MM-DD.
func (c IntensityCell) FormattedDate() string {
	return c.Date.Format(DateLayout)
}

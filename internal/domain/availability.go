package domain

import (
	"errors"
	"time"
)

const minutesPerDay = 24 * 60

// TimeWindow is a half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the window ends strictly after it starts.
func (w TimeWindow) Valid() bool {
	return w.End.After(w.Start)
}

// Contains reports whether other lies entirely inside w.
func (w TimeWindow) Contains(other TimeWindow) bool {
	return !other.Start.Before(w.Start) && !other.End.After(w.End)
}

// Overlaps reports whether the two windows share any instant.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// AvailabilityKind distinguishes recurring from one-off availability.
type AvailabilityKind string

const (
	AvailabilityOneOff AvailabilityKind = "ONE_OFF"
	AvailabilityWeekly AvailabilityKind = "WEEKLY"
)

var (
	ErrAvailabilityKind   = errors.New("unknown availability kind")
	ErrAvailabilityBounds = errors.New("availability must end after it starts")
	ErrAvailabilityDay    = errors.New("weekly availability must stay within one day")
	ErrAvailabilityZone   = errors.New("unknown availability timezone")
)

// Availability is one window during which a staff member can take work.
//
// ONE_OFF windows use StartsAt/EndsAt. WEEKLY windows repeat every Weekday from
// StartMinute to EndMinute (minutes after local midnight, EndMinute may be 1440)
// in Timezone, defaulting to UTC.
type Availability struct {
	ID          string           `json:"id"`
	StaffID     string           `json:"staff_id"`
	Kind        AvailabilityKind `json:"kind"`
	StartsAt    time.Time        `json:"starts_at,omitempty"`
	EndsAt      time.Time        `json:"ends_at,omitempty"`
	Weekday     time.Weekday     `json:"weekday"`
	StartMinute int              `json:"start_minute"`
	EndMinute   int              `json:"end_minute"`
	Timezone    string           `json:"timezone,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Validate checks the window is internally consistent.
func (a Availability) Validate() error {
	switch a.Kind {
	case AvailabilityOneOff:
		if !a.EndsAt.After(a.StartsAt) {
			return ErrAvailabilityBounds
		}
	case AvailabilityWeekly:
		if a.Weekday < time.Sunday || a.Weekday > time.Saturday {
			return ErrAvailabilityDay
		}
		if a.StartMinute < 0 || a.EndMinute > minutesPerDay {
			return ErrAvailabilityDay
		}
		if a.EndMinute <= a.StartMinute {
			return ErrAvailabilityBounds
		}
		if _, err := a.location(); err != nil {
			return ErrAvailabilityZone
		}
	default:
		return ErrAvailabilityKind
	}
	return nil
}

// Contains reports whether the requested window fits entirely inside this availability.
// A weekly window only covers requests that start and end on the same occurrence.
func (a Availability) Contains(req TimeWindow) bool {
	if !req.Valid() {
		return false
	}
	switch a.Kind {
	case AvailabilityOneOff:
		return TimeWindow{Start: a.StartsAt, End: a.EndsAt}.Contains(req)
	case AvailabilityWeekly:
		loc, err := a.location()
		if err != nil {
			return false
		}
		start := req.Start.In(loc)
		if start.Weekday() != a.Weekday {
			return false
		}
		occurrence := TimeWindow{
			Start: time.Date(start.Year(), start.Month(), start.Day(), 0, a.StartMinute, 0, 0, loc),
			End:   time.Date(start.Year(), start.Month(), start.Day(), 0, a.EndMinute, 0, 0, loc),
		}
		return occurrence.Contains(req)
	default:
		return false
	}
}

func (a Availability) location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(a.Timezone)
}

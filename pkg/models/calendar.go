package models

import "time"

// TimeBucket is the part of the day a run falls into.
type TimeBucket string

const (
	BucketMorning      TimeBucket = "morning"
	BucketNight        TimeBucket = "night"
	BucketWorkingHours TimeBucket = "work_hours"
)

// AllBuckets lists the valid time buckets in declaration order.
func AllBuckets() []TimeBucket {
	return []TimeBucket{BucketMorning, BucketNight, BucketWorkingHours}
}

// AllDays lists the valid days, Monday first.
func AllDays() []time.Weekday {
	return []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}
}

// CalendarState is computed once per run and never changes afterwards.
type CalendarState struct {
	Day    time.Weekday `json:"day"`
	Bucket TimeBucket   `json:"bucket"`
}

func (s CalendarState) IsWeekend() bool {
	return s.Day == time.Saturday || s.Day == time.Sunday
}

// ClockTime is a time of day in UTC.
type ClockTime struct {
	Hours   int `mapstructure:"hours" yaml:"hours" json:"hours"`
	Minutes int `mapstructure:"minutes" yaml:"minutes" json:"minutes"`
}

// SinceMidnight returns the offset of the clock time from midnight.
func (c ClockTime) SinceMidnight() time.Duration {
	return time.Duration(c.Hours)*time.Hour + time.Duration(c.Minutes)*time.Minute
}

func (c ClockTime) Valid() bool {
	return c.Hours >= 0 && c.Hours < 24 && c.Minutes >= 0 && c.Minutes < 60
}

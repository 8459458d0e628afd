// Package calendar resolves the current instant into the day of week and the
// time bucket a run operates in.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

var ErrInvalidOverride = errors.New("invalid calendar override")

type Config struct {
	Timezone  string
	ScaleUp   models.ClockTime
	ScaleDown models.ClockTime
	// Day and Status force the calendar state for controlled runs.
	Day    string
	Status string
}

// Resolve computes the calendar state for now. The day is taken in the
// configured timezone, the bucket from the UTC time of day.
func Resolve(now time.Time, cfg Config) (models.CalendarState, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return models.CalendarState{}, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	state := models.CalendarState{
		Day:    now.In(loc).Weekday(),
		Bucket: Bucket(now, cfg.ScaleUp, cfg.ScaleDown),
	}

	if cfg.Day != "" {
		day, err := ParseDay(cfg.Day)
		if err != nil {
			return models.CalendarState{}, err
		}
		state.Day = day
	}

	if cfg.Status != "" {
		bucket, err := ParseBucket(cfg.Status)
		if err != nil {
			return models.CalendarState{}, err
		}
		state.Bucket = bucket
	}

	return state, nil
}

// Bucket places now relative to the two UTC boundaries.
func Bucket(now time.Time, scaleUp, scaleDown models.ClockTime) models.TimeBucket {
	utc := now.UTC()
	sinceMidnight := utc.Sub(time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC))

	switch {
	case sinceMidnight < scaleUp.SinceMidnight():
		return models.BucketMorning
	case sinceMidnight >= scaleDown.SinceMidnight():
		return models.BucketNight
	default:
		return models.BucketWorkingHours
	}
}

func ParseDay(value string) (time.Weekday, error) {
	for _, d := range models.AllDays() {
		if strings.EqualFold(value, d.String()) {
			return d, nil
		}
	}

	choices := make([]string, 0, 7)
	for _, d := range models.AllDays() {
		choices = append(choices, d.String())
	}
	return 0, fmt.Errorf("%w: %q is not a valid day, please choose from %v", ErrInvalidOverride, value, choices)
}

func ParseBucket(value string) (models.TimeBucket, error) {
	for _, b := range models.AllBuckets() {
		if strings.EqualFold(value, string(b)) {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not a valid status, please choose from %v", ErrInvalidOverride, value, models.AllBuckets())
}

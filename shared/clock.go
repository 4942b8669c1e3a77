package shared

import "time"

// TimeFormat is fixed-width so stored timestamps sort lexicographically.
const TimeFormat = "2006-01-02T15:04:05.000000Z07:00"

// IClock stamps rows with created/updated times.
type IClock interface {
	// Now returns the current UTC time formatted with TimeFormat.
	Now() string
}

type clock struct{}

func NewClock() IClock {
	return &clock{}
}

func (*clock) Now() string {
	return time.Now().UTC().Format(TimeFormat)
}

package service

import (
	"time"

	"cafepos/internal/model"
)

// Clock supplies the current timestamp and the service-day boundary used to
// decide whether a table's existing tab still counts as today's.
type Clock interface {
	Now() time.Time
	ServiceDay() string
}

type utcClock struct{}

// NewClock returns the production clock. Service days roll over at UTC
// midnight.
func NewClock() Clock {
	return utcClock{}
}

func (utcClock) Now() time.Time {
	return time.Now().UTC()
}

func (utcClock) ServiceDay() string {
	return time.Now().UTC().Format(model.ServiceDayFormat)
}

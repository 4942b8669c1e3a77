package fakes

import (
	"bot_manager/shared"
	"sync"
	"time"
)

// StepClock returns a strictly increasing time on every call, one second apart.
type StepClock struct {
	mu   sync.Mutex
	next time.Time
}

func NewStepClock(start time.Time) *StepClock {
	return &StepClock{next: start.UTC()}
}

func (sc *StepClock) Now() string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	res := sc.next.Format(shared.TimeFormat)
	sc.next = sc.next.Add(time.Second)
	return res
}

package keyfs

import "time"

type TimeSource interface {
	Now() time.Time
	Since(time.Time) time.Duration
}

type TimeSourceAdvancer interface {
	TimeSource
	Advance(by time.Duration)
}

// FixedTimeSource provides a source of time that always returns the
// specified time until advanced.
func FixedTimeSource(at time.Time) TimeSourceAdvancer {
	return &fixedTimeSource{time: at}
}

func DefaultTimeSource() TimeSource {
	return &utcTimeSource{}
}

type utcTimeSource struct{}

func (u *utcTimeSource) Now() time.Time {
	return time.Now().UTC()
}

func (u *utcTimeSource) Since(t time.Time) time.Duration {
	return time.Since(t)
}

type fixedTimeSource struct {
	time time.Time
}

func (l *fixedTimeSource) Now() time.Time {
	return l.time
}

func (l *fixedTimeSource) Since(t time.Time) time.Duration {
	return t.Sub(l.time)
}

func (l *fixedTimeSource) Advance(by time.Duration) {
	l.time = l.time.Add(by)
}

package clock

import "time"

// Clock abstracts wall-clock reads so time-sensitive code can be tested
// deterministically.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

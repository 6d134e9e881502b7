package reminder

import "time"

// Clock supplies the dispatcher's notion of now.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

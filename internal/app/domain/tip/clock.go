package tip

import "time"

// Clock supplies record timestamps as unsigned 64-bit seconds.
type Clock interface {
	Now() uint64
}

// SystemClock reads the host wall clock.
type SystemClock struct{}

// Now returns the current Unix time in seconds.
func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

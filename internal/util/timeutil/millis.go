package timeutil

import "time"

// Millis is a timestamp in milliseconds since the Unix epoch. This is the wire
// format the sheet backend stores and the JSON API exposes, so it is used for
// all persisted timestamps instead of time.Time.
type Millis int64

func NowMillis() Millis {
	return Millis(time.Now().UnixMilli())
}

func MillisFromTime(t time.Time) Millis {
	return Millis(t.UnixMilli())
}

func (m Millis) Time() time.Time {
	return time.UnixMilli(int64(m))
}

func (m Millis) IsZero() bool {
	return m == 0
}

func (m Millis) Add(d time.Duration) Millis {
	return m + Millis(d.Milliseconds())
}

// Sub returns the duration elapsed from u to m.
func (m Millis) Sub(u Millis) time.Duration {
	return time.Duration(m-u) * time.Millisecond
}

package randutil

import (
	"math/rand/v2"
	"strings"
)

const (
	ridAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	ridLen      = 16
)

// RequestID returns a short random identifier for correlating log lines.
// Not suitable for anything security-sensitive.
func RequestID() string {
	var b strings.Builder
	for range ridLen {
		_ = b.WriteByte(ridAlphabet[rand.IntN(len(ridAlphabet))])
	}
	return b.String()
}

// Package style renders ANSI escapes for terminal output, degrading to plain
// text when stdout is not a color-capable terminal.
package style

import (
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
)

var (
	// Respect https://no-color.org/.
	noColor = os.Getenv("NO_COLOR") != ""

	isTTY   = isatty.IsTerminal(os.Stdout.Fd())
	isColor = isTTY && !noColor
)

// S emits the escape sequence for the given SGR codes; no codes means reset.
func S(ms ...int) string {
	if !isColor {
		return ""
	}
	if len(ms) == 0 {
		return "\033[0m"
	}
	var b strings.Builder
	_, _ = b.WriteString("\033[")
	for i, m := range ms {
		if i != 0 {
			_ = b.WriteByte(';')
		}
		_, _ = b.WriteString(strconv.FormatInt(int64(m), 10))
	}
	_ = b.WriteByte('m')
	return b.String()
}

func WithS(s string, ms ...int) string { return S(ms...) + s + S() }

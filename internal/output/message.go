package output

import (
	"fmt"
	"io"
)

// Notices are for humans and always go to w as plain text, even in JSON mode,
// so callers point them at stderr when stdout carries machine output.

// Info prints an informational notice.
func Info(w io.Writer, format string, args ...any) {
	notice(w, "ℹ️  ", format, args...)
}

// Warn prints a warning notice.
func Warn(w io.Writer, format string, args ...any) {
	notice(w, "⚠️  ", format, args...)
}

// Success prints a success notice.
func Success(w io.Writer, format string, args ...any) {
	notice(w, "✅ ", format, args...)
}

func notice(w io.Writer, prefix, format string, args ...any) {
	if w == nil {
		return
	}
	_, _ = fmt.Fprintln(w, prefix+fmt.Sprintf(format, args...))
}

package vpk

import "fmt"

// ProgressFunc receives human-readable progress strings at well-defined
// points during a long Verify* or Write call.
type ProgressFunc func(string)

func report(fn ProgressFunc, format string, args ...any) {
	if fn == nil {
		return
	}
	fn(fmt.Sprintf(format, args...))
}

// formatBytesSI renders n using SI byte prefixes (kB, MB, ...).
func formatBytesSI(n uint64) string {
	const unit = 1000
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "kMGTPE"[exp])
}

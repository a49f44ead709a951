package timer

import (
	"fmt"
	"time"
)

// FormatClock renders d as MM:SS. Minutes are not wrapped into hours.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatPrecise renders d as MM:SS.cc with hundredths of a second.
func FormatPrecise(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	centis := int64(d%time.Second) / int64(10*time.Millisecond)
	return fmt.Sprintf("%s.%02d", FormatClock(d), centis)
}

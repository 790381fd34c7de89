package quota

import (
	"math"
	"strconv"
	"time"
)

// FormatCountdown renders a time-until-reset for display, rounding up to
// whole seconds: 1ms becomes "1s", zero or negative becomes "0s".
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return strconv.FormatInt(int64(math.Ceil(d.Seconds())), 10) + "s"
}

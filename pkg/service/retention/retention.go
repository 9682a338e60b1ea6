// Package retention models the Ebbinghaus forgetting curve. It maps
// elapsed time since a memory was created to a retention weight that
// retrieval multiplies into the similarity score.
package retention

import (
	"math"
	"time"
)

const (
	// OneHour is the defined retention at the 1-hour mark. The decay
	// constant of the curve is derived from this value.
	OneHour = 0.44

	// Floor is the lower bound of retention. Old memories never decay
	// below this, so an old-but-relevant memory stays discoverable when
	// no fresher alternative exists.
	Floor = 0.2

	// Unknown is the conservative retention assumed for records whose
	// creation timestamp is missing or malformed.
	Unknown = 0.9
)

// decayK = -ln(OneHour), so that Calc(1) == OneHour exactly
var decayK = -math.Log(OneHour)

// Calc returns the retention weight for a memory created the given
// number of hours ago. The result is 1.0 at or before creation time,
// monotonically non-increasing, and bounded to [Floor, 1.0]. It is
// deterministic and performs no I/O.
func Calc(hoursElapsed float64) float64 {
	if hoursElapsed <= 0 {
		return 1.0
	}
	return math.Max(math.Exp(-decayK*hoursElapsed), Floor)
}

// Since returns the retention weight for a memory created at the given
// time, evaluated at now. A zero createdAt yields Unknown.
func Since(createdAt, now time.Time) float64 {
	if createdAt.IsZero() {
		return Unknown
	}
	return Calc(now.Sub(createdAt).Hours())
}

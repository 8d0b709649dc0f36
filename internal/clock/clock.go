package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = func() time.Time { return time.Now().UTC() }

// Now returns the current UTC time via NowFunc. All expiry comparisons and
// persisted timestamps go through this function.
func Now() time.Time { return NowFunc() }

package audio

import "math"

// volumeToPower maps a linear 0..1 volume onto beep's base-2 exponent scale,
// where 0 is unity gain. Values at or below 1% are treated as silence by the
// Silent flag, so the returned floor is never actually heard.
func volumeToPower(vol float64) float64 {
	if vol <= 0.01 {
		return -10
	}
	return math.Log2(vol)
}

package client

import (
	"math"
	"time"
)

// backoffDelay returns the wait before retry number attempt (1-based):
// min(base·1.5^(attempt−1), cap). With the defaults the sequence runs
// 2000, 3000, 4500, 6750, 10125 … ms and never exceeds 30s.
func backoffDelay(attempt int, base, cap time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(base) * math.Pow(1.5, float64(attempt-1)))
	if d > cap || d <= 0 {
		return cap
	}
	return d
}

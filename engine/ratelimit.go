package engine

import (
	"math/rand"
	"time"
)

// RateLimiter caps a single worker's request rate. After each gated
// operation the worker calls Wait; if less than 1/R has elapsed since the
// previous gate, the worker sleeps for the remainder scaled by a random
// factor in [1, S]. The random smear staggers workers' request bursts so
// they do not bunch at identical phase.
//
// State is local to one worker; the ceiling applies per worker, not to the
// pool. Not safe for concurrent use.
type RateLimiter struct {
	interval time.Duration
	smear    float64
	last     time.Time

	now   func() time.Time
	sleep func(time.Duration)
	rnd   *rand.Rand
}

// NewRateLimiter creates a limiter with a ceiling of rps requests per second
// and a smear factor smear >= 1. An rps <= 0 disables the gate entirely.
func NewRateLimiter(rps, smear float64) *RateLimiter {
	var interval time.Duration
	if rps > 0 {
		interval = time.Duration(float64(time.Second) / rps)
	}
	if smear < 1 {
		smear = 1
	}
	return &RateLimiter{
		interval: interval,
		smear:    smear,
		now:      time.Now,
		sleep:    time.Sleep,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait gates the calling worker. The first call records the gate time and
// returns immediately.
func (l *RateLimiter) Wait() {
	if l.interval <= 0 {
		return
	}

	now := l.now()
	if !l.last.IsZero() {
		elapsed := now.Sub(l.last)
		if elapsed < l.interval {
			wait := l.interval - elapsed
			u := 1.0
			if l.smear > 1 {
				u = 1 + l.rnd.Float64()*(l.smear-1)
			}
			l.sleep(time.Duration(float64(wait) * u))
		}
	}
	l.last = l.now()
}

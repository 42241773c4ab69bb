package auth

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// TimingConfig sets the floor for failed login latency
type TimingConfig struct {
	BaseDelayMs   int // every failure takes at least this long
	RandomDelayMs int // plus up to this much jitter
}

// TimingDelay pads failed logins so an unknown email and a wrong password
// take the same time to answer.
type TimingDelay struct {
	base   time.Duration
	jitter time.Duration
}

func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		base:   time.Duration(max(0, config.BaseDelayMs)) * time.Millisecond,
		jitter: time.Duration(max(0, config.RandomDelayMs)) * time.Millisecond,
	}
}

// Target draws the padded duration for one failure, between base and base+jitter
func (td *TimingDelay) Target() time.Duration {
	if td.jitter <= 0 {
		return td.base
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(td.jitter)))
	if err != nil {
		return td.base
	}
	return td.base + time.Duration(n.Int64())
}

// WaitFrom blocks until Target has elapsed since start, or ctx is done.
// Work already done since start counts toward the delay.
func (td *TimingDelay) WaitFrom(ctx context.Context, start time.Time) {
	remaining := td.Target() - time.Since(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

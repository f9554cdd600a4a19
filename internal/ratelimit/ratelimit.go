// Package ratelimit paces consecutive search round-trips so batch runs do
// not hammer a target site.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer gates the start of each query in a batch.
type Pacer interface {
	Wait(ctx context.Context) error
}

// QueryPacer enforces a jittered minimum gap between queries. The first
// call never waits.
type QueryPacer struct {
	minDelay  time.Duration
	maxDelay  time.Duration
	lastQuery time.Time
	mu        sync.Mutex
}

func NewQueryPacer(minDelay, maxDelay time.Duration) *QueryPacer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &QueryPacer{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (p *QueryPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	elapsed := time.Since(p.lastQuery)
	if delay := p.nextDelay(); elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	p.lastQuery = time.Now()
	return nil
}

// nextDelay picks a delay in [minDelay, maxDelay). Jitter keeps the query
// cadence from looking mechanical.
func (p *QueryPacer) nextDelay() time.Duration {
	if p.maxDelay <= p.minDelay {
		return p.minDelay
	}
	jitter := time.Duration(rand.Int63n(int64(p.maxDelay - p.minDelay)))
	return p.minDelay + jitter
}

// AdaptivePacer widens the gap after repeated query failures and slowly
// tightens it again while queries keep succeeding.
type AdaptivePacer struct {
	*QueryPacer
	errorCount   int
	successCount int

	errorThreshold int
	backoffFactor  float64
}

func NewAdaptivePacer(minDelay, maxDelay time.Duration) *AdaptivePacer {
	return &AdaptivePacer{
		QueryPacer:     NewQueryPacer(minDelay, maxDelay),
		errorThreshold: 3,
		backoffFactor:  1.5,
	}
}

func (a *AdaptivePacer) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successCount++
	a.errorCount = 0

	if a.successCount > 5 {
		newMin := time.Duration(float64(a.minDelay) * 0.9)
		if newMin < time.Second {
			newMin = time.Second
		}
		a.minDelay = newMin
		a.successCount = 0
	}
}

func (a *AdaptivePacer) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorCount++
	a.successCount = 0

	if a.errorCount >= a.errorThreshold {
		a.minDelay = capDelay(time.Duration(float64(a.minDelay)*a.backoffFactor), 60*time.Second)
		a.maxDelay = capDelay(time.Duration(float64(a.maxDelay)*a.backoffFactor), 120*time.Second)
		a.errorCount = 0
	}
}

func capDelay(d, max time.Duration) time.Duration {
	if d > max {
		return max
	}
	return d
}

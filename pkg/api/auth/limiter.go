package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/naughtyden-us/naughty-den/pkg/timeutil"
)

const (
	limiterIdleTTL = 10 * time.Minute
	limiterSweep   = time.Minute
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiterPool holds one token bucket per client key and forgets keys that
// have been idle for longer than ttl.
type limiterPool struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
}

// newLimiterPool starts the idle sweep when rps is positive; otherwise every
// request is allowed and no goroutine runs.
func newLimiterPool(rps float64, burst int, ttl, every time.Duration) *limiterPool {
	p := &limiterPool{
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	if rps > 0 {
		go p.sweepLoop(every)
	}
	return p
}

// Allow spends one token for key.
func (p *limiterPool) Allow(key string) bool {
	if p.limit <= 0 {
		return true
	}
	now := timeutil.Now()
	p.mu.Lock()
	b, ok := p.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(p.limit, p.burst)}
		p.buckets[key] = b
	}
	b.seen = now
	p.mu.Unlock()
	return b.lim.AllowN(now, 1)
}

// sweep drops buckets idle since before now-ttl and reports how many went.
func (p *limiterPool) sweep(now time.Time) int {
	cutoff := now.Add(-p.ttl)
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for k, b := range p.buckets {
		if b.seen.Before(cutoff) {
			delete(p.buckets, k)
			n++
		}
	}
	return n
}

func (p *limiterPool) sweepLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			p.sweep(timeutil.Now())
		case <-p.stop:
			return
		}
	}
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets)
}

// Shutdown stops the sweep. Safe to call more than once.
func (p *limiterPool) Shutdown() {
	p.stopOnce.Do(func() { close(p.stop) })
}

package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SendLimiter throttles message sends per sender. A sender's bucket is
// forgotten once it has been idle long enough to refill completely, so
// dropping it changes nothing.
type SendLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[int64]*senderBucket
	lastSweep time.Time
}

type senderBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const minIdleEviction = time.Minute

func NewSendLimiter(perSecond float64, burst int) *SendLimiter {
	if burst <= 0 {
		burst = 1
	}
	l := &SendLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
		limiters: make(map[int64]*senderBucket),
	}
	if perSecond > 0 {
		l.idle = time.Duration(float64(burst) / perSecond * float64(time.Second))
		if l.idle < minIdleEviction {
			l.idle = minIdleEviction
		}
	}
	return l
}

func (l *SendLimiter) Allow(senderID int64) bool {
	if l == nil {
		return true
	}

	now := l.now()
	l.mu.Lock()
	l.sweep(now)
	bucket, ok := l.limiters[senderID]
	if !ok {
		bucket = &senderBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[senderID] = bucket
	}
	bucket.lastSeen = now
	l.mu.Unlock()

	return bucket.limiter.AllowN(now, 1)
}

// sweep drops idle buckets at most once per idle period. Callers hold l.mu.
// A zero rate never refills, so those buckets are kept.
func (l *SendLimiter) sweep(now time.Time) {
	if l.idle == 0 || now.Sub(l.lastSweep) < l.idle {
		return
	}
	for id, bucket := range l.limiters {
		if now.Sub(bucket.lastSeen) >= l.idle {
			delete(l.limiters, id)
		}
	}
	l.lastSweep = now
}

func (l *SendLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

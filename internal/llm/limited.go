package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limited wraps a Generator with a per-minute rate limit and a daily quota.
// The daily counter resets at UTC midnight.
type Limited struct {
	next    Generator
	limiter *rate.Limiter
	daily   int
	now     func() time.Time

	mu    sync.Mutex
	day   string
	count int
}

// NewLimited allows perMinute requests per minute (bursting up to the same
// number) and at most perDay requests per UTC day. perDay <= 0 disables the
// quota; perMinute <= 0 disables the rate limit.
func NewLimited(next Generator, perMinute, perDay int) *Limited {
	limit := rate.Inf
	burst := 0
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
		burst = perMinute
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		daily:   perDay,
		now:     time.Now,
	}
}

func (l *Limited) Generate(ctx context.Context, prompt, contextBlock string, history []Message) (Generation, error) {
	if err := l.reserveDaily(); err != nil {
		return Generation{}, err
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return Generation{}, fmt.Errorf("rate limit wait: %w", err)
	}
	return l.next.Generate(ctx, prompt, contextBlock, history)
}

// Remaining returns how many requests are left in today's quota, or -1 when
// the quota is disabled.
func (l *Limited) Remaining() int {
	if l.daily <= 0 {
		return -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDay()
	return l.daily - l.count
}

func (l *Limited) reserveDaily() error {
	if l.daily <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDay()
	if l.count >= l.daily {
		return ErrQuotaExceeded
	}
	l.count++
	return nil
}

func (l *Limited) rollDay() {
	today := l.now().UTC().Format("2006-01-02")
	if today != l.day {
		l.day = today
		l.count = 0
	}
}

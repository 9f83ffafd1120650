package pipeline

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// hostLimiters hands out one token-bucket limiter per hostname so the
// pipeline never hammers a single storefront, no matter how many of its
// pages made the candidate set.
type hostLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
}

func newHostLimiters(rps float64) *hostLimiters {
	return &hostLimiters{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
	}
}

// wait blocks until the host's limiter grants a slot or ctx is done.
func (h *hostLimiters) wait(ctx context.Context, host string) error {
	h.mu.Lock()
	lim, ok := h.limiters[host]
	if !ok {
		lim = rate.NewLimiter(h.rps, 1)
		h.limiters[host] = lim
	}
	h.mu.Unlock()
	return lim.Wait(ctx)
}

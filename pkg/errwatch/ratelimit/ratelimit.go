// Package ratelimit provides before-send callbacks that cap notice volume
// on the client side.
package ratelimit

import (
	"sync"

	"github.com/strongdm/errwatch/pkg/errwatch"
	"golang.org/x/time/rate"
)

// Limiter drops notices above a rate. Safe for concurrent use.
type Limiter struct {
	global *rate.Limiter

	perClassLimit rate.Limit
	perClassBurst int

	mu      sync.Mutex
	classes map[string]*rate.Limiter
}

// Option configures a Limiter.
type Option func(*Limiter)

// PerClass additionally limits each error class to limit notices per
// second with the given burst.
func PerClass(limit rate.Limit, burst int) Option {
	return func(l *Limiter) {
		l.perClassLimit = limit
		l.perClassBurst = burst
		l.classes = make(map[string]*rate.Limiter)
	}
}

// New creates a Limiter allowing limit notices per second with burst.
func New(limit rate.Limit, burst int, opts ...Option) *Limiter {
	l := &Limiter{global: rate.NewLimiter(limit, burst)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether a notice of class may be sent now. A notice refused
// by its class limiter does not consume a global token.
func (l *Limiter) Allow(class string) bool {
	if l.classes != nil && !l.classLimiter(class).Allow() {
		return false
	}
	return l.global.Allow()
}

func (l *Limiter) classLimiter(class string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.classes[class]
	if !ok {
		lim = rate.NewLimiter(l.perClassLimit, l.perClassBurst)
		l.classes[class] = lim
	}
	return lim
}

// BeforeSend returns a callback dropping notices over the limit.
func (l *Limiter) BeforeSend() errwatch.BeforeSend {
	return func(n *errwatch.Notice) bool {
		return l.Allow(n.ErrorClass)
	}
}

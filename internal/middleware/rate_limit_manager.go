package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitManager manages per-IP rate limiters with lifecycle control.
type RateLimitManager struct {
	visitors   map[string]*visitor
	visitorsMu sync.RWMutex

	uploadLimiters   map[string]*visitor
	uploadLimitersMu sync.RWMutex
	enrollLimiters   map[string]*visitor
	enrollLimitersMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimitManager creates a rate limit manager with context-based lifecycle.
func NewRateLimitManager(ctx context.Context) *RateLimitManager {
	managerCtx, cancel := context.WithCancel(ctx)

	m := &RateLimitManager{
		visitors:       make(map[string]*visitor),
		uploadLimiters: make(map[string]*visitor),
		enrollLimiters: make(map[string]*visitor),
		ctx:            managerCtx,
		cancel:         cancel,
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// GetVisitor retrieves or creates the general rate limiter for the given IP.
func (m *RateLimitManager) GetVisitor(ip string, requestsPerWindow int, windowSeconds int, burst int) *rate.Limiter {
	m.visitorsMu.Lock()
	defer m.visitorsMu.Unlock()

	if requestsPerWindow <= 0 {
		return nil
	}

	v, exists := m.visitors[ip]
	if !exists {
		if windowSeconds <= 0 {
			windowSeconds = 60
		}

		limitPerSecond := float64(requestsPerWindow) / float64(windowSeconds)
		limit := rate.Limit(limitPerSecond)
		if limitPerSecond <= 0 {
			limit = rate.Inf
		}

		if burst < requestsPerWindow {
			burst = requestsPerWindow
		}

		limiter := rate.NewLimiter(limit, burst)
		m.visitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// GetOperationLimiter retrieves or creates a tighter limiter for expensive
// operations. Supported operations are "upload" (document uploads) and
// "enroll" (kiosk badge enrollment).
func (m *RateLimitManager) GetOperationLimiter(ip string, operation string, requestsPerWindow int, windowSeconds int) *rate.Limiter {
	var limiters map[string]*visitor
	var mu *sync.RWMutex

	switch operation {
	case "upload":
		limiters = m.uploadLimiters
		mu = &m.uploadLimitersMu
	case "enroll":
		limiters = m.enrollLimiters
		mu = &m.enrollLimitersMu
	default:
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	if requestsPerWindow <= 0 {
		return nil
	}

	v, exists := limiters[ip]
	if !exists {
		if windowSeconds <= 0 {
			windowSeconds = 60
		}

		limitPerSecond := float64(requestsPerWindow) / float64(windowSeconds)
		limit := rate.Limit(limitPerSecond)
		if limitPerSecond <= 0 {
			limit = rate.Inf
		}

		limiter := rate.NewLimiter(limit, requestsPerWindow)
		limiters[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (m *RateLimitManager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *RateLimitManager) cleanup() {
	m.visitorsMu.Lock()
	for ip, v := range m.visitors {
		if time.Since(v.lastSeen) > 3*time.Minute {
			delete(m.visitors, ip)
		}
	}
	m.visitorsMu.Unlock()

	m.uploadLimitersMu.Lock()
	for ip, v := range m.uploadLimiters {
		if time.Since(v.lastSeen) > 10*time.Minute {
			delete(m.uploadLimiters, ip)
		}
	}
	m.uploadLimitersMu.Unlock()

	m.enrollLimitersMu.Lock()
	for ip, v := range m.enrollLimiters {
		if time.Since(v.lastSeen) > 10*time.Minute {
			delete(m.enrollLimiters, ip)
		}
	}
	m.enrollLimitersMu.Unlock()
}

// Shutdown stops the cleanup goroutine and waits for it to finish.
func (m *RateLimitManager) Shutdown() error {
	m.cancel()
	m.wg.Wait()
	return nil
}

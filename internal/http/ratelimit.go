package http

import (
	"net/http"
	"path"
	"sync"
	"sync/atomic"
	"time"
)

// defaultRateLimit is the number of edits a client may send per minute.
const defaultRateLimit = 60

const rateWindow = time.Minute

// limitClass groups mutating routes that share a request budget.
type limitClass string

const (
	// classEdit covers single-item changes: add, patch, delete, move, toggle.
	classEdit limitClass = "edit"
	// classBulk covers whole-month or whole-document rewrites.
	classBulk limitClass = "bulk"
)

// bulkDivisor scales the edit limit down for bulk operations.
const bulkDivisor = 10

// classify returns the budget a request draws from. Reads are not limited.
func classify(r *http.Request) (limitClass, bool) {
	if !isMutation(r.Method) {
		return "", false
	}
	switch path.Base(r.URL.Path) {
	case "import", "copy", "clear":
		return classBulk, true
	default:
		return classEdit, true
	}
}

type bucketKey struct {
	client string
	class  limitClass
}

// window is a fixed one-minute counting window.
type window struct {
	start time.Time
	count int
}

// rateLimiter counts mutating requests per client IP and limit class.
type rateLimiter struct {
	mu      sync.Mutex
	limits  map[limitClass]int
	buckets map[bucketKey]*window
	now     func() time.Time

	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		limit = defaultRateLimit
	}
	rl := &rateLimiter{
		limits: map[limitClass]int{
			classEdit: limit,
			classBulk: max(1, limit/bulkDivisor),
		},
		buckets:     make(map[bucketKey]*window),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupExpired()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupExpired drops windows that ended, so idle clients cost nothing.
func (rl *rateLimiter) cleanupExpired() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, w := range rl.buckets {
		if now.Sub(w.start) >= rateWindow {
			delete(rl.buckets, key)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// allow records a request from client in class. When the budget is spent it
// returns false and how long until the window resets.
func (rl *rateLimiter) allow(client string, class limitClass, metrics *securityMetrics) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	key := bucketKey{client: client, class: class}
	w, ok := rl.buckets[key]
	if !ok || now.Sub(w.start) >= rateWindow {
		rl.buckets[key] = &window{start: now, count: 1}
		return true, 0
	}

	if w.count >= rl.limits[class] {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false, w.start.Add(rateWindow).Sub(now)
	}
	w.count++
	return true, 0
}

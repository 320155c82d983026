package status

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Backend reachability poller. The public site degrades gracefully when the
// backend is down; this exposes the current reachability so pages can show a
// connection notice without each request paying for a probe.

type State string

const (
	StateChecking State = "checking"
	StateOnline   State = "online"
	StateOffline  State = "offline"
)

// Pinger probes the backend. *backend.Client satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Checker struct {
	pinger   Pinger
	interval time.Duration

	mu        sync.RWMutex
	state     State
	lastCheck time.Time
}

func NewChecker(pinger Pinger, interval time.Duration) *Checker {
	return &Checker{
		pinger:   pinger,
		interval: interval,
		state:    StateChecking,
	}
}

// Start probes immediately and then on every tick until ctx is cancelled.
func (ch *Checker) Start(ctx context.Context) {
	ch.check(ctx)

	ticker := time.NewTicker(ch.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ch.check(ctx)
		}
	}
}

func (ch *Checker) check(ctx context.Context) {
	state := StateOnline
	if err := ch.pinger.Ping(ctx); err != nil {
		log.Printf("status: backend unreachable: %v", err)
		state = StateOffline
	}

	ch.mu.Lock()
	ch.state = state
	ch.lastCheck = time.Now()
	ch.mu.Unlock()
}

func (ch *Checker) State() State {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.state
}

func (ch *Checker) LastCheck() time.Time {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.lastCheck
}

func (ch *Checker) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/status", func(c *gin.Context) {
		ch.mu.RLock()
		state, last := ch.state, ch.lastCheck
		ch.mu.RUnlock()

		c.JSON(http.StatusOK, gin.H{
			"status":     state,
			"last_check": last,
		})
	})
}

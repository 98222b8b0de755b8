package changefeed

import (
	"strings"
	"sync"
	"time"
)

// Suppressor remembers writes this process made on behalf of a client so
// the echo of that write coming back through the feed can be skipped for
// the same client. Best effort only: a missed suppression just means one
// extra refresh. Writes without a client origin are never recorded, so an
// anonymous write cannot hide events from other anonymous dashboards.
type Suppressor struct {
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	local map[string]time.Time
}

func NewSuppressor(window time.Duration) *Suppressor {
	return &Suppressor{
		window: window,
		now:    time.Now,
		local:  make(map[string]time.Time),
	}
}

func suppressKey(orderID, origin string) string {
	return strings.TrimSpace(orderID) + "|" + strings.TrimSpace(origin)
}

func (s *Suppressor) MarkLocal(orderID, origin string) {
	if s == nil || s.window <= 0 || strings.TrimSpace(orderID) == "" || strings.TrimSpace(origin) == "" {
		return
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.local[suppressKey(orderID, origin)] = now
	for key, at := range s.local {
		if now.Sub(at) > s.window {
			delete(s.local, key)
		}
	}
}

func (s *Suppressor) ShouldSuppress(evt Event, origin string) bool {
	if s == nil || s.window <= 0 || strings.TrimSpace(origin) == "" {
		return false
	}
	key := suppressKey(evt.OrderID, origin)

	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.local[key]
	if !ok {
		return false
	}
	if s.now().Sub(at) > s.window {
		delete(s.local, key)
		return false
	}
	return true
}

package middleware

import (
	"bufio"
	"errors"
	"math"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const latencySamplesPerGroup = 200

// RouteLatency is the rolling latency of one route group, served on /api/telemetry.
type RouteLatency struct {
	Group   string `json:"group"`
	P50ms   int64  `json:"p50Ms"`
	P95ms   int64  `json:"p95Ms"`
	MaxMs   int64  `json:"maxMs"`
	Samples int    `json:"samples"`
	Errors  int    `json:"errors"`
}

// routeGroup collapses a chi route pattern onto the surface it belongs to:
// "/api/orders/{orderId}/proofs/{proofId}" and "/api/orders" are both "orders",
// "/ws/dashboard" is "ws".
func routeGroup(pattern string) string {
	pattern = strings.Trim(pattern, "/")
	if pattern == "" {
		return "other"
	}
	segments := strings.Split(pattern, "/")
	switch segments[0] {
	case "api":
		if len(segments) < 2 || segments[1] == "" || strings.HasPrefix(segments[1], "{") {
			return "other"
		}
		return segments[1]
	case "ws", "health":
		return segments[0]
	}
	return "other"
}

type latencyRing struct {
	samples []int64
	next    int
	errors  int
}

func (r *latencyRing) add(ms int64, size int) {
	if len(r.samples) < size {
		r.samples = append(r.samples, ms)
		return
	}
	r.samples[r.next] = ms
	r.next = (r.next + 1) % size
}

func (r *latencyRing) sorted() []int64 {
	out := append([]int64(nil), r.samples...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type latencyBook struct {
	mu     sync.Mutex
	size   int
	groups map[string]*latencyRing
}

func newLatencyBook(size int) *latencyBook {
	return &latencyBook{size: size, groups: make(map[string]*latencyRing)}
}

func (b *latencyBook) record(group string, ms int64, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ring, ok := b.groups[group]
	if !ok {
		ring = &latencyRing{}
		b.groups[group] = ring
	}
	ring.add(ms, b.size)
	if failed {
		ring.errors++
	}
}

func (b *latencyBook) summary() []RouteLatency {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]RouteLatency, 0, len(b.groups))
	for group, ring := range b.groups {
		values := ring.sorted()
		if len(values) == 0 {
			continue
		}
		out = append(out, RouteLatency{
			Group:   group,
			P50ms:   percentile(values, 0.5),
			P95ms:   percentile(values, 0.95),
			MaxMs:   values[len(values)-1],
			Samples: len(values),
			Errors:  ring.errors,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}

// percentile is nearest-rank over sorted values.
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

var routeLatency = newLatencyBook(latencySamplesPerGroup)

func LatencySnapshot() []RouteLatency {
	return routeLatency.summary()
}

type telemetryRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *telemetryRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *telemetryRecorder) Write(data []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(data)
	r.bytes += n
	return n, err
}

// Hijack keeps websocket upgrades working behind the recorder.
func (r *telemetryRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *telemetryRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Telemetry logs one line per request and feeds the per-group latency book.
func Telemetry(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &telemetryRecorder{ResponseWriter: w}

			next.ServeHTTP(recorder, r)

			status := recorder.status
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start).Milliseconds()

			pattern := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				pattern = rc.RoutePattern()
			}
			group := routeGroup(pattern)
			routeLatency.record(group, elapsed, status >= 500)

			if logger == nil {
				return
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("route", pattern),
				zap.String("group", group),
				zap.String("requestId", readRequestID(r)),
				zap.String("clientId", r.Header.Get(ClientOriginHeader)),
				zap.Int("status", status),
				zap.Int("bytes", recorder.bytes),
				zap.Int64("duration_ms", elapsed),
			}
			if status >= 500 {
				logger.Warn("http_request", fields...)
			} else {
				logger.Info("http_request", fields...)
			}
		})
	}
}

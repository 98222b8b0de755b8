package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
)

const (
	requestIDKey    contextKey = "requestId"
	clientOriginKey contextKey = "clientOrigin"
)

// ClientOriginHeader identifies the dashboard tab that issued a write, so the
// realtime feed can skip echoing that write back to the same tab.
const ClientOriginHeader = "X-Client-Id"

func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := readRequestID(r)
			if requestID == "" {
				requestID = generateRequestID()
			}
			r.Header.Set("X-Request-Id", requestID)
			w.Header().Set("X-Request-Id", requestID)

			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			if origin := strings.TrimSpace(r.Header.Get(ClientOriginHeader)); origin != "" {
				ctx = context.WithValue(ctx, clientOriginKey, origin)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// ClientOriginFromContext returns the X-Client-Id of the request, if any.
func ClientOriginFromContext(ctx context.Context) string {
	v, _ := ctx.Value(clientOriginKey).(string)
	return v
}

func readRequestID(r *http.Request) string {
	for _, key := range []string{"X-Request-Id", "X-Correlation-Id"} {
		if value := strings.TrimSpace(r.Header.Get(key)); value != "" {
			return value
		}
	}
	return ""
}

func generateRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

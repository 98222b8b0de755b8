package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"courier-reconciliation-service/internal/auth"
)

type contextKey string

const authContextKey contextKey = "authContext"

// AuthContext is the authenticated actor of a request.
type AuthContext struct {
	UserID    string
	Role      auth.UserRole
	Name      string
	CourierID *string
}

func (a *AuthContext) IsAdmin() bool {
	return a != nil && a.Role == auth.RoleAdmin
}

// ActorName is what gets written into audit fields such as hold_fee_created_by.
func (a *AuthContext) ActorName() string {
	if a == nil {
		return ""
	}
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return a.UserID
}

// CanAccessCourier reports whether the actor may read or write data for courierID.
func (a *AuthContext) CanAccessCourier(courierID string) bool {
	if a == nil {
		return false
	}
	if a.IsAdmin() {
		return true
	}
	return a.CourierID != nil && *a.CourierID == strings.TrimSpace(courierID)
}

func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	value := ctx.Value(authContextKey)
	if value == nil {
		return nil, false
	}
	ac, ok := value.(*AuthContext)
	return ac, ok
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	writeAuthErrorDebug(w, status, message, "")
}

func writeAuthErrorDebug(w http.ResponseWriter, status int, message string, debug string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	code := "UNAUTHORIZED"
	if status == http.StatusForbidden {
		code = "FORBIDDEN"
	}
	payload := map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	}

	if os.Getenv("APP_ENV") == "development" && strings.TrimSpace(debug) != "" {
		payload["debug"] = debug
	}

	_ = json.NewEncoder(w).Encode(payload)
}

// UserAuth accepts admin and courier access tokens.
func UserAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			claims, err := auth.VerifyAccessToken(token, jwtSecret)
			if err != nil {
				writeAuthErrorDebug(w, http.StatusUnauthorized, "Authorization token required", err.Error())
				return
			}

			ctx := WithAuthContext(r.Context(), &AuthContext{
				UserID:    claims.UserID,
				Role:      claims.Role,
				Name:      claims.Name,
				CourierID: claims.CourierID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission must run after UserAuth.
func RequirePermission(perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx, ok := GetAuthContext(r.Context())
			if !ok || authCtx == nil {
				writeAuthError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}
			if !auth.HasPermission(authCtx.Role, perm) {
				writeAuthError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package httpapi

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"courier-reconciliation-service/internal/auth"
	"courier-reconciliation-service/internal/config"
	"courier-reconciliation-service/internal/http/handlers"
	"courier-reconciliation-service/internal/middleware"
	"courier-reconciliation-service/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func NewRouter(h *handlers.Handler, logger *zap.Logger, cfg config.Config, hub *ws.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(logger))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"X-Request-Id",
				middleware.ClientOriginHeader,
				"Cache-Control",
				"Pragma",
			},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(setResponseHeader("Cache-Control", "no-store"))

		r.With(middleware.CronAuth(cfg.CronSecret)).Post("/cron/import-orders", h.CronImportOrders)

		r.Group(func(r chi.Router) {
			r.Use(middleware.UserAuth(cfg.JWTSecret))

			r.With(middleware.RequirePermission(auth.PermViewCourierList)).Get("/couriers", h.ListCouriers)

			r.With(middleware.RequirePermission(auth.PermViewOwnOrders)).Get("/orders", h.ListOrders)
			r.With(middleware.RequirePermission(auth.PermViewOwnOrders)).Get("/orders/{orderId}", h.GetOrder)
			r.With(middleware.RequirePermission(auth.PermUpdateOrder)).Patch("/orders/{orderId}", h.PatchOrder)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(auth.PermManageHoldFees))
				r.Get("/hold-fees", h.ListHoldFees)
				r.Put("/orders/{orderId}/hold-fee", h.PutHoldFee)
				r.Delete("/orders/{orderId}/hold-fee", h.DeleteHoldFee)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(auth.PermManageProofs))
				r.Post("/orders/{orderId}/proofs", h.UploadProof)
				r.Delete("/orders/{orderId}/proofs/{proofId}", h.DeleteProof)
			})

			r.Route("/reconciliation", func(r chi.Router) {
				r.Use(middleware.RequirePermission(auth.PermViewReports))
				r.Get("/", h.Reconciliation)
				r.Get("/report.pdf", h.ReconciliationReportPDF)
				r.With(middleware.RequirePermission(auth.PermViewAllOrders)).Get("/couriers", h.CourierReconciliation)
			})

			r.With(middleware.RequirePermission(auth.PermViewReports)).Get("/courier-fees", h.GetCourierFee)
			r.With(middleware.RequirePermission(auth.PermManageFees)).Put("/courier-fees", h.PutCourierFee)

			r.With(middleware.RequirePermission(auth.PermViewAllOrders)).Get("/telemetry", h.Telemetry)
		})
	})

	if hub != nil {
		r.Get("/ws/dashboard", hub.DashboardWS)
	}

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestId", middleware.RequestIDFromContext(r.Context())),
			)
		})
	}
}

func setResponseHeader(name string, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(name, value)
			next.ServeHTTP(w, r)
		})
	}
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"courier-reconciliation-service/internal/middleware"
	"courier-reconciliation-service/internal/reconcile"
	"courier-reconciliation-service/internal/store"
	"courier-reconciliation-service/internal/utils"
	"courier-reconciliation-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func readPathString(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}

func readQueryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(key)))
	return err == nil && v
}

var errInvalidDate = errors.New("dates must be YYYY-MM-DD")

// readDateRange parses from/to as calendar days in loc; to is inclusive and
// returned as the exclusive start of the following day.
func readDateRange(r *http.Request, loc *time.Location) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		d, err := utils.ParseDay(v, loc)
		if err != nil {
			return nil, nil, errInvalidDate
		}
		from = &d
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		d, err := utils.ParseDay(v, loc)
		if err != nil {
			return nil, nil, errInvalidDate
		}
		end := d.AddDate(0, 0, 1)
		to = &end
	}
	return from, to, nil
}

// resolveCourierScope returns the courier filter for the caller: couriers
// are pinned to themselves, admins may pick any courier or none.
func resolveCourierScope(authCtx *middleware.AuthContext, requested string) (*string, bool) {
	requested = strings.TrimSpace(requested)
	if authCtx == nil {
		return nil, false
	}
	if authCtx.IsAdmin() {
		if requested == "" {
			return nil, true
		}
		return &requested, true
	}
	if authCtx.CourierID == nil {
		return nil, false
	}
	if requested != "" && requested != *authCtx.CourierID {
		return nil, false
	}
	id := *authCtx.CourierID
	return &id, true
}

func requireAuth(w http.ResponseWriter, r *http.Request) (*middleware.AuthContext, bool) {
	authCtx, ok := middleware.GetAuthContext(r.Context())
	if !ok || authCtx == nil {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization token required")
		return nil, false
	}
	return authCtx, true
}

// loadOrderForActor fetches an order and enforces courier ownership.
func (h *Handler) loadOrderForActor(w http.ResponseWriter, r *http.Request, authCtx *middleware.AuthContext, orderID string) (reconcile.Order, bool) {
	order, err := h.Orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeStoreError(w, err, "Failed to load order")
		return reconcile.Order{}, false
	}
	if !authCtx.IsAdmin() {
		if authCtx.CourierID == nil || !order.BelongsTo(*authCtx.CourierID) {
			response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
			return reconcile.Order{}, false
		}
	}
	return order, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}
	h.logger().Error(message, zap.Error(err))
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

// markLocalWrite records the write for echo suppression on the caller's tab.
func (h *Handler) markLocalWrite(r *http.Request, orderID string) {
	if h.Suppressor == nil {
		return
	}
	h.Suppressor.MarkLocal(orderID, middleware.ClientOriginFromContext(r.Context()))
}

func (h *Handler) decorateProofs(orders []reconcile.Order) {
	if h.Proofs == nil {
		return
	}
	for i := range orders {
		for j := range orders[i].Proofs {
			orders[i].Proofs[j].ImageURL = h.Proofs.DisplayURL(orders[i].Proofs[j].ImageURL)
		}
	}
}

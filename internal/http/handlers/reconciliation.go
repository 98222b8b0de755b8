package handlers

import (
	"net/http"
	"strings"
	"time"

	"courier-reconciliation-service/internal/reconcile"
	"courier-reconciliation-service/internal/store"
	"courier-reconciliation-service/pkg/response"
)

type reconciliationQuery struct {
	CourierID   *string
	From        *time.Time
	To          *time.Time
	IncludeHeld bool
}

func (h *Handler) readReconciliationQuery(w http.ResponseWriter, r *http.Request) (reconciliationQuery, bool) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return reconciliationQuery{}, false
	}
	courierID, allowed := resolveCourierScope(authCtx, r.URL.Query().Get("courierId"))
	if !allowed {
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Couriers can only view their own reconciliation")
		return reconciliationQuery{}, false
	}
	from, to, err := readDateRange(r, h.loc())
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return reconciliationQuery{}, false
	}
	return reconciliationQuery{
		CourierID:   courierID,
		From:        from,
		To:          to,
		IncludeHeld: readQueryBool(r, "includeHeld"),
	}, true
}

func (h *Handler) computeReconciliation(r *http.Request, q reconciliationQuery) ([]reconcile.Order, reconcile.Metrics, error) {
	orders, err := h.Orders.FetchOrders(r.Context(), store.OrderFilter{
		CourierID: q.CourierID,
		From:      q.From,
		To:        q.To,
	})
	if err != nil {
		return nil, reconcile.Metrics{}, err
	}
	metrics := reconcile.ComputeMetrics(orders, reconcile.MetricsFilter{
		CourierID:         q.CourierID,
		IncludeHeldOrders: q.IncludeHeld,
	})
	return orders, metrics, nil
}

// Reconciliation returns the dashboard metrics for one courier or for all orders.
func (h *Handler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	q, ok := h.readReconciliationQuery(w, r)
	if !ok {
		return
	}
	orders, metrics, err := h.computeReconciliation(r, q)
	if err != nil {
		h.writeStoreError(w, err, "Failed to compute reconciliation")
		return
	}

	data := map[string]any{
		"metrics":    metrics,
		"orderCount": len(orders),
	}
	if q.CourierID != nil && h.CourierFees != nil {
		if day := strings.TrimSpace(r.URL.Query().Get("from")); day != "" {
			if fee, found := h.CourierFees.Get(*q.CourierID, day); found {
				data["courierFee"] = fee
			}
		}
	}
	if h.Modified != nil {
		data["modifiedByCourier"] = h.Modified.List()
	}
	response.Success(w, data)
}

// CourierReconciliation lists per-courier metrics for the admin overview.
func (h *Handler) CourierReconciliation(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAuth(w, r); !ok {
		return
	}
	from, to, err := readDateRange(r, h.loc())
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	couriers, err := h.Orders.ListCouriers(r.Context())
	if err != nil {
		h.writeStoreError(w, err, "Failed to load couriers")
		return
	}
	orders, err := h.Orders.FetchOrders(r.Context(), store.OrderFilter{From: from, To: to, AssignedOnly: true})
	if err != nil {
		h.writeStoreError(w, err, "Failed to load orders")
		return
	}

	response.Success(w, reconcile.CourierSummaries(orders, couriers, readQueryBool(r, "includeHeld")))
}

func (h *Handler) ListCouriers(w http.ResponseWriter, r *http.Request) {
	couriers, err := h.Orders.ListCouriers(r.Context())
	if err != nil {
		h.writeStoreError(w, err, "Failed to load couriers")
		return
	}
	response.Success(w, couriers)
}

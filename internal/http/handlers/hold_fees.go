package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"courier-reconciliation-service/internal/reconcile"
	"courier-reconciliation-service/internal/store"
	"courier-reconciliation-service/internal/utils"
	"courier-reconciliation-service/pkg/response"
)

func (h *Handler) PutHoldFee(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}
	orderID := readPathString(r, "orderId")

	var body struct {
		Amount  any    `json:"amount"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid JSON body")
		return
	}
	amount, err := parseOptionalAmount(body.Amount)
	if err != nil || amount == nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Hold fee amount is required")
		return
	}

	if _, ok := h.loadOrderForActor(w, r, authCtx, orderID); !ok {
		return
	}

	// amount <= 0 is recorded as a removal
	patch := reconcile.AddOrUpdateHoldFee(*amount, strings.TrimSpace(body.Comment), authCtx.ActorName(), h.now())
	h.markLocalWrite(r, orderID)
	updated, err := h.Orders.ApplyHoldFee(r.Context(), orderID, patch)
	if err != nil {
		h.writeStoreError(w, err, "Failed to save hold fee")
		return
	}
	response.Success(w, h.toOrderView(updated))
}

func (h *Handler) DeleteHoldFee(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}
	orderID := readPathString(r, "orderId")
	if _, ok := h.loadOrderForActor(w, r, authCtx, orderID); !ok {
		return
	}

	patch := reconcile.RemoveHoldFee(authCtx.ActorName(), h.now())
	h.markLocalWrite(r, orderID)
	updated, err := h.Orders.ApplyHoldFee(r.Context(), orderID, patch)
	if err != nil {
		h.writeStoreError(w, err, "Failed to remove hold fee")
		return
	}
	response.Success(w, h.toOrderView(updated))
}

type holdFeeRow struct {
	orderView
	EffectiveHoldDate *time.Time `json:"effective_hold_date"`
}

// ListHoldFees is the hold-fee ledger view, filtered by effective hold date.
func (h *Handler) ListHoldFees(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}
	courierID, allowed := resolveCourierScope(authCtx, r.URL.Query().Get("courierId"))
	if !allowed {
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Couriers can only view their own hold fees")
		return
	}

	kind, valid := reconcile.ParseHoldDateFilter(r.URL.Query().Get("filter"))
	if !valid {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "filter must be one of today, yesterday, last7days, last30days, custom, all")
		return
	}
	var custom *time.Time
	if kind == reconcile.HoldFilterCustom {
		if v := strings.TrimSpace(r.URL.Query().Get("date")); v != "" {
			d, err := utils.ParseDay(v, h.loc())
			if err != nil {
				response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", errInvalidDate.Error())
				return
			}
			custom = &d
		}
	}

	orders, err := h.Orders.FetchOrders(r.Context(), store.OrderFilter{CourierID: courierID, HoldActivityOnly: true})
	if err != nil {
		h.writeStoreError(w, err, "Failed to load hold fees")
		return
	}

	filtered := reconcile.FilterByHoldDate(orders, kind, custom, h.now(), h.loc())
	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := reconcile.EffectiveHoldDate(filtered[i]), reconcile.EffectiveHoldDate(filtered[j])
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})

	rows := make([]holdFeeRow, 0, len(filtered))
	totalHeld := 0.0
	for _, o := range filtered {
		if o.HoldFee != nil && o.HoldFeeRemovedAt == nil {
			totalHeld += *o.HoldFee
		}
		rows = append(rows, holdFeeRow{orderView: h.toOrderView(o), EffectiveHoldDate: reconcile.EffectiveHoldDate(o)})
	}

	response.Success(w, map[string]any{
		"filter":    kind,
		"orders":    rows,
		"count":     len(rows),
		"totalHeld": totalHeld,
	})
}

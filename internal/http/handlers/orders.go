package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"courier-reconciliation-service/internal/auth"
	"courier-reconciliation-service/internal/reconcile"
	"courier-reconciliation-service/internal/store"
	"courier-reconciliation-service/internal/utils"
	"courier-reconciliation-service/pkg/response"

	"go.uber.org/zap"
)

type orderView struct {
	reconcile.Order
	DisplayChannel     string  `json:"display_channel"`
	CourierAmount      float64 `json:"courier_amount"`
	TotalCourierAmount float64 `json:"total_courier_amount"`
	ModifiedByCourier  bool    `json:"modified_by_courier"`
}

func (h *Handler) toOrderView(o reconcile.Order) orderView {
	v := orderView{
		Order:              o,
		DisplayChannel:     reconcile.DisplayChannel(o),
		CourierAmount:      reconcile.CourierOrderAmount(o),
		TotalCourierAmount: reconcile.TotalCourierAmount(o),
	}
	if h.Modified != nil {
		v.ModifiedByCourier = h.Modified.IsModified(o.ID)
	}
	return v
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}

	courierID, allowed := resolveCourierScope(authCtx, r.URL.Query().Get("courierId"))
	if !allowed {
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Couriers can only view their own orders")
		return
	}

	from, to, err := readDateRange(r, h.loc())
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	orders, err := h.Orders.FetchOrders(r.Context(), store.OrderFilter{
		CourierID:    courierID,
		From:         from,
		To:           to,
		AssignedOnly: readQueryBool(r, "assignedOnly"),
	})
	if err != nil {
		h.writeStoreError(w, err, "Failed to load orders")
		return
	}
	h.decorateProofs(orders)

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, h.toOrderView(o))
	}
	response.Success(w, views)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}
	orderID := readPathString(r, "orderId")
	if orderID == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Order ID is required")
		return
	}

	order, ok := h.loadOrderForActor(w, r, authCtx, orderID)
	if !ok {
		return
	}
	single := []reconcile.Order{order}
	h.decorateProofs(single)
	response.Success(w, h.toOrderView(single[0]))
}

// orderPatchBody is a partial update. An absent amount field is left
// untouched; an explicit null or "" clears the stored value.
type orderPatchBody struct {
	Status            *string         `json:"status"`
	DeliveryFee       json.RawMessage `json:"delivery_fee"`
	PartialPaidAmount json.RawMessage `json:"partial_paid_amount"`
	PaymentSubType    *string         `json:"payment_sub_type"`
	CollectedBy       *string         `json:"collected_by"`
	SplitPayments     json.RawMessage `json:"onther_payments"`
	AdminDeliveryFee  json.RawMessage `json:"admin_delivery_fee"`
	ExtraFee          json.RawMessage `json:"extra_fee"`
	AssignedCourierID *string         `json:"assigned_courier_id"`
}

func (b orderPatchBody) toPatch() (store.OrderPatch, error) {
	var p store.OrderPatch
	if b.Status != nil {
		st, err := reconcile.NormalizeStatus(*b.Status)
		if err != nil {
			return p, err
		}
		p.Status = &st
	}

	amounts := []struct {
		column string
		raw    json.RawMessage
		dst    **float64
	}{
		{store.ColumnDeliveryFee, b.DeliveryFee, &p.DeliveryFee},
		{store.ColumnPartialPaidAmount, b.PartialPaidAmount, &p.PartialPaidAmount},
		{store.ColumnAdminDeliveryFee, b.AdminDeliveryFee, &p.AdminDeliveryFee},
		{store.ColumnExtraFee, b.ExtraFee, &p.ExtraFee},
	}
	for _, a := range amounts {
		v, clear, err := readPatchAmount(a.raw)
		if err != nil {
			return p, &reconcile.ValidationError{Code: "INVALID_AMOUNT", Field: a.column, Message: a.column + " must be a number", StatusCode: http.StatusBadRequest}
		}
		if clear {
			p.Clear = append(p.Clear, a.column)
			continue
		}
		*a.dst = v
	}

	p.PaymentSubType = trimmedPtr(b.PaymentSubType)
	p.CollectedBy = trimmedPtr(b.CollectedBy)
	if len(b.SplitPayments) > 0 {
		split := reconcile.ParseSplitPayments(json.RawMessage(b.SplitPayments))
		p.SplitPayments = &split
	}
	p.AssignedCourierID = trimmedPtr(b.AssignedCourierID)
	return p, nil
}

// readPatchAmount returns (nil, false) for an absent field and (nil, true)
// for an explicit null or empty string.
func readPatchAmount(raw json.RawMessage) (*float64, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, err
	}
	parsed, err := parseOptionalAmount(value)
	if err != nil {
		return nil, false, err
	}
	if parsed == nil {
		return nil, true, nil
	}
	return parsed, false, nil
}

// PatchOrder validates a courier/admin update before writing it. If the
// write fails the pre-update snapshot is returned so the client can undo its
// optimistic edit.
func (h *Handler) PatchOrder(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}
	orderID := readPathString(r, "orderId")
	if orderID == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Order ID is required")
		return
	}

	var body orderPatchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid JSON body")
		return
	}
	patch, err := body.toPatch()
	if err != nil {
		response.Validation(w, err)
		return
	}
	if patch.AssignedCourierID != nil && !auth.HasPermission(authCtx.Role, auth.PermAssignOrder) {
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Only admins can reassign orders")
		return
	}
	if err := reconcile.ValidateCourierUpdate(patch.CourierUpdate); err != nil {
		response.Validation(w, err)
		return
	}

	previous, ok := h.loadOrderForActor(w, r, authCtx, orderID)
	if !ok {
		return
	}

	h.markLocalWrite(r, orderID)
	updated, err := h.Orders.UpdateOrder(r.Context(), orderID, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
			return
		}
		h.logger().Error("order update failed", zap.String("orderId", orderID), zap.Error(err))
		response.ErrorWithData(w, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to save order, changes were not applied", map[string]any{
			"previous": h.toOrderView(previous),
		})
		return
	}

	if h.Modified != nil {
		if authCtx.IsAdmin() {
			h.Modified.Clear(orderID)
		} else {
			h.Modified.Mark(orderID)
		}
	}

	single := []reconcile.Order{updated}
	h.decorateProofs(single)
	response.Success(w, h.toOrderView(single[0]))
}

func parseOptionalAmount(value any) (*float64, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		return &v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, nil
		}
		parsed := utils.ParseAmount(trimmed)
		if parsed == 0 && strings.Trim(trimmed, "0.,") != "" {
			return nil, fmt.Errorf("invalid amount %q", v)
		}
		return &parsed, nil
	default:
		return nil, fmt.Errorf("invalid amount type %T", value)
	}
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

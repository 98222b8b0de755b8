package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"courier-reconciliation-service/internal/utils"
	"courier-reconciliation-service/pkg/response"
)

func (h *Handler) GetCourierFee(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}
	courierID, allowed := resolveCourierScope(authCtx, r.URL.Query().Get("courierId"))
	if !allowed || courierID == nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "courierId is required")
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = h.now().In(h.loc()).Format("2006-01-02")
	}
	if _, err := utils.ParseDay(date, h.loc()); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", errInvalidDate.Error())
		return
	}

	data := map[string]any{"courierId": *courierID, "date": date, "fee": nil}
	if h.CourierFees != nil {
		if fee, found := h.CourierFees.Get(*courierID, date); found {
			data["fee"] = fee
		}
	}
	response.Success(w, data)
}

func (h *Handler) PutCourierFee(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CourierID string `json:"courierId"`
		Date      string `json:"date"`
		Fee       any    `json:"fee"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid JSON body")
		return
	}
	courierID := strings.TrimSpace(body.CourierID)
	if courierID == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "courierId is required")
		return
	}
	if _, err := utils.ParseDay(strings.TrimSpace(body.Date), h.loc()); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", errInvalidDate.Error())
		return
	}
	fee, err := parseOptionalAmount(body.Fee)
	if err != nil || fee == nil || *fee < 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "fee must be a non-negative number")
		return
	}
	if h.CourierFees == nil {
		response.Error(w, http.StatusServiceUnavailable, "CACHE_DISABLED", "Courier fees are not available")
		return
	}

	h.CourierFees.Set(courierID, strings.TrimSpace(body.Date), *fee)
	response.Success(w, map[string]any{"courierId": courierID, "date": strings.TrimSpace(body.Date), "fee": *fee})
}

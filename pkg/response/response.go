package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"courier-reconciliation-service/internal/reconcile"
)

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}

func SuccessMessage(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, map[string]any{
		"success": true,
		"data":    data,
		"message": message,
	})
}

func Error(w http.ResponseWriter, status int, code string, message string) {
	JSON(w, status, map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	})
}

// ErrorWithData carries extra context, e.g. the pre-update snapshot a client
// should roll back to.
func ErrorWithData(w http.ResponseWriter, status int, code string, message string, data any) {
	JSON(w, status, map[string]any{
		"success": false,
		"error":   code,
		"message": message,
		"data":    data,
	})
}

// Validation writes a *reconcile.ValidationError, falling back to a generic 400.
func Validation(w http.ResponseWriter, err error) {
	var ve *reconcile.ValidationError
	if errors.As(err, &ve) {
		status := ve.StatusCode
		if status == 0 {
			status = http.StatusBadRequest
		}
		JSON(w, status, map[string]any{
			"success": false,
			"error":   string(ve.Code),
			"field":   ve.Field,
			"message": ve.Message,
		})
		return
	}
	Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
}

package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"courier-reconciliation-service/internal/storage"
	"courier-reconciliation-service/internal/store"
	"courier-reconciliation-service/internal/utils"
	"courier-reconciliation-service/pkg/response"

	"go.uber.org/zap"
)

type fileReadErrorKind string

const (
	fileReadErrMissing    fileReadErrorKind = "missing"
	fileReadErrReadFailed fileReadErrorKind = "read_failed"
	fileReadErrTooLarge   fileReadErrorKind = "too_large"
)

type fileReadError struct {
	Kind    fileReadErrorKind
	Message string
	Err     error
}

func readFileBytes(r *http.Request, field string, maxBytes int64) ([]byte, string, *fileReadError) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", &fileReadError{Kind: fileReadErrMissing, Message: "File is required", Err: err}
	}
	defer file.Close()

	if maxBytes <= 0 {
		maxBytes = 8 * 1024 * 1024
	}
	maxSizeMB := maxBytes / (1024 * 1024)
	if maxSizeMB <= 0 {
		maxSizeMB = 1
	}
	data, readErr := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if readErr != nil {
		return nil, "", &fileReadError{Kind: fileReadErrReadFailed, Message: "Failed to read file", Err: readErr}
	}
	if int64(len(data)) > maxBytes {
		return nil, "", &fileReadError{Kind: fileReadErrTooLarge, Message: fmt.Sprintf("File size must be less than %dMB.", maxSizeMB)}
	}
	return data, strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type"))), nil
}

// UploadProof stores a delivery proof photo for an order.
func (h *Handler) UploadProof(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}
	if h.Proofs == nil {
		response.Error(w, http.StatusServiceUnavailable, "STORAGE_DISABLED", "Proof storage is not configured")
		return
	}
	orderID := readPathString(r, "orderId")
	order, ok := h.loadOrderForActor(w, r, authCtx, orderID)
	if !ok {
		return
	}

	data, declared, readErr := readFileBytes(r, "file", h.Config.MaxFileSizeBytes)
	if readErr != nil {
		status := http.StatusBadRequest
		if readErr.Kind == fileReadErrTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		response.Error(w, status, "INVALID_FILE", readErr.Message)
		return
	}

	jpegBytes, _, err := utils.NormalizeProofImage(data, declared)
	if err != nil {
		if errors.Is(err, utils.ErrUnsupportedImage) {
			response.Error(w, http.StatusBadRequest, "INVALID_FILE", "Invalid file type. Please upload an image file.")
			return
		}
		response.Error(w, http.StatusBadRequest, "INVALID_FILE", "Could not read image")
		return
	}

	key := storage.ProofKey(order.OrderNumber, h.now())
	url, err := h.Proofs.PutObject(r.Context(), key, jpegBytes, "image/jpeg", "")
	if err != nil {
		h.logger().Error("proof upload failed", zap.String("orderId", orderID), zap.Error(err))
		response.Error(w, http.StatusBadGateway, "UPLOAD_FAILED", "Failed to upload proof")
		return
	}

	proof, err := h.Orders.InsertOrderProof(r.Context(), orderID, url)
	if err != nil {
		if delErr := h.Proofs.DeleteURL(r.Context(), url); delErr != nil {
			h.logger().Warn("orphaned proof object", zap.String("url", url), zap.Error(delErr))
		}
		h.writeStoreError(w, err, "Failed to save proof")
		return
	}
	h.markLocalWrite(r, orderID)

	proof.ImageURL = h.Proofs.DisplayURL(proof.ImageURL)
	response.SuccessMessage(w, http.StatusCreated, "Proof uploaded", proof)
}

func (h *Handler) DeleteProof(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}
	orderID := readPathString(r, "orderId")
	proofID := readPathString(r, "proofId")
	if _, ok := h.loadOrderForActor(w, r, authCtx, orderID); !ok {
		return
	}

	proof, err := h.Orders.DeleteOrderProof(r.Context(), orderID, proofID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "PROOF_NOT_FOUND", "Proof not found")
			return
		}
		h.writeStoreError(w, err, "Failed to delete proof")
		return
	}
	h.markLocalWrite(r, orderID)

	if h.Proofs != nil {
		if err := h.Proofs.DeleteURL(r.Context(), proof.ImageURL); err != nil {
			h.logger().Warn("proof object delete failed", zap.String("url", proof.ImageURL), zap.Error(err))
		}
	}
	response.Success(w, map[string]any{"id": proof.ID, "deleted": true})
}

package reconcile

import (
	"net/http"
	"strings"
)

type ErrorCode string

const (
	ErrInvalidStatus             ErrorCode = "INVALID_STATUS"
	ErrDeliveryFeeMethodRequired ErrorCode = "DELIVERY_FEE_METHOD_REQUIRED"
	ErrPartialAmountRequired     ErrorCode = "PARTIAL_AMOUNT_REQUIRED"
	ErrSplitPaymentsRequired     ErrorCode = "SPLIT_PAYMENTS_REQUIRED"
	ErrNegativeAmount            ErrorCode = "NEGATIVE_AMOUNT"
)

type ValidationError struct {
	Code       ErrorCode
	Field      string
	Message    string
	StatusCode int
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(code ErrorCode, field, message string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: message, StatusCode: http.StatusBadRequest}
}

func invalidStatusError() *ValidationError {
	return newValidationError(ErrInvalidStatus, "status", "Status must be one of assigned, delivered, canceled, partial, hand_to_hand, return, receiving_part")
}

// NormalizeStatus maps a submitted status onto its stored form, so
// "Delivered" and " delivered " both become StatusDelivered.
func NormalizeStatus(value string) (Status, error) {
	if s, ok := ParseStatus(value); ok {
		return s, nil
	}
	return "", invalidStatusError()
}

// CourierUpdate is the set of fields a courier or admin submits when closing
// out an order. Nil fields are left untouched.
type CourierUpdate struct {
	Status            *Status
	DeliveryFee       *float64
	PartialPaidAmount *float64
	PaymentSubType    *string
	CollectedBy       *string
	SplitPayments     *SplitPayments
	AdminDeliveryFee  *float64
	ExtraFee          *float64
}

// ValidateCourierUpdate rejects an update before anything is written.
func ValidateCourierUpdate(u CourierUpdate) error {
	if u.Status != nil {
		if canonical, ok := ParseStatus(string(*u.Status)); !ok || canonical != *u.Status {
			return invalidStatusError()
		}
	}

	amounts := []struct {
		field string
		value *float64
	}{
		{"delivery_fee", u.DeliveryFee},
		{"partial_paid_amount", u.PartialPaidAmount},
		{"admin_delivery_fee", u.AdminDeliveryFee},
		{"extra_fee", u.ExtraFee},
	}
	for _, a := range amounts {
		if a.value != nil && *a.value < 0 {
			return newValidationError(ErrNegativeAmount, a.field, a.field+" cannot be negative")
		}
	}

	if valueOrZero(u.DeliveryFee) > 0 {
		_, hasSub := nonEmpty(u.PaymentSubType)
		_, hasCollector := nonEmpty(u.CollectedBy)
		if !hasSub && !hasCollector {
			return newValidationError(ErrDeliveryFeeMethodRequired, "payment_sub_type", "Select how the delivery fee was collected")
		}
	}

	if u.Status != nil && *u.Status == StatusPartial && valueOrZero(u.PartialPaidAmount) <= 0 {
		return newValidationError(ErrPartialAmountRequired, "partial_paid_amount", "Partial orders require the collected amount")
	}

	if u.PaymentSubType != nil && strings.TrimSpace(*u.PaymentSubType) == SplitSubType {
		positive := false
		if u.SplitPayments != nil {
			for _, e := range u.SplitPayments.Entries() {
				if e.Amount > 0 && strings.TrimSpace(e.Method) != "" {
					positive = true
					break
				}
			}
		}
		if !positive {
			return newValidationError(ErrSplitPaymentsRequired, "onther_payments", "Split payments need at least one method with an amount")
		}
	}

	return nil
}

// ApplyCourierUpdate mirrors a validated update on an in-memory order.
func ApplyCourierUpdate(o *Order, u CourierUpdate) {
	if u.Status != nil {
		o.Status = *u.Status
	}
	if u.DeliveryFee != nil {
		o.DeliveryFee = u.DeliveryFee
	}
	if u.PartialPaidAmount != nil {
		o.PartialPaidAmount = u.PartialPaidAmount
	}
	if u.PaymentSubType != nil {
		o.PaymentSubType = u.PaymentSubType
	}
	if u.CollectedBy != nil {
		o.CollectedBy = u.CollectedBy
	}
	if u.SplitPayments != nil {
		o.SplitPayments = *u.SplitPayments
	}
	if u.AdminDeliveryFee != nil {
		o.AdminDeliveryFee = u.AdminDeliveryFee
	}
	if u.ExtraFee != nil {
		o.ExtraFee = u.ExtraFee
	}
}

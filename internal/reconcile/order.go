package reconcile

import (
	"strings"
	"time"
)

type Status string

const (
	StatusAssigned      Status = "assigned"
	StatusDelivered     Status = "delivered"
	StatusCanceled      Status = "canceled"
	StatusPartial       Status = "partial"
	StatusHandToHand    Status = "hand_to_hand"
	StatusReturn        Status = "return"
	StatusReceivingPart Status = "receiving_part"
)

var allStatuses = []Status{
	StatusAssigned,
	StatusDelivered,
	StatusCanceled,
	StatusPartial,
	StatusHandToHand,
	StatusReturn,
	StatusReceivingPart,
}

// AllStatuses returns the order lifecycle statuses in display order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func ParseStatus(value string) (Status, bool) {
	v := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range allStatuses {
		if s == v {
			return s, true
		}
	}
	return "", false
}

// SplitSubType marks an order whose payment was split across several channels.
const SplitSubType = "onther"

// CollectedByCourier is the collected_by value for money held by the courier.
const CollectedByCourier = "courier"

const copySuffix = "(copy)"

type Order struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	Status      Status `json:"status"`

	TotalOrderFees    float64  `json:"total_order_fees"`
	DeliveryFee       *float64 `json:"delivery_fee"`
	PartialPaidAmount *float64 `json:"partial_paid_amount"`
	HoldFee           *float64 `json:"hold_fee"`
	AdminDeliveryFee  *float64 `json:"admin_delivery_fee"`
	ExtraFee          *float64 `json:"extra_fee"`

	PaymentMethod  string        `json:"payment_method"`
	PaymentSubType *string       `json:"payment_sub_type"`
	CollectedBy    *string       `json:"collected_by"`
	SplitPayments  SplitPayments `json:"onther_payments"`

	HoldFeeComment   *string    `json:"hold_fee_comment"`
	HoldFeeCreatedBy *string    `json:"hold_fee_created_by"`
	HoldFeeCreatedAt *time.Time `json:"hold_fee_created_at"`
	HoldFeeAddedAt   *time.Time `json:"hold_fee_added_at"`
	HoldFeeRemovedAt *time.Time `json:"hold_fee_removed_at"`

	AssignedCourierID *string    `json:"assigned_courier_id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	AssignedAt        *time.Time `json:"assigned_at"`

	Proofs []Proof `json:"proofs"`
}

// IsCopy reports whether the order was duplicated from another order.
func (o Order) IsCopy() bool {
	return strings.HasSuffix(strings.TrimSpace(o.OrderNumber), copySuffix)
}

// IsSplit reports whether the courier recorded the payment as split across channels.
func (o Order) IsSplit() bool {
	return o.PaymentSubType != nil && strings.TrimSpace(*o.PaymentSubType) == SplitSubType
}

func (o Order) BelongsTo(courierID string) bool {
	return o.AssignedCourierID != nil && *o.AssignedCourierID == courierID
}

type Courier struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Proof struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func nonEmpty(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

package reconcile

// CourierOrderAmount is the order-level amount the courier collected, before
// fees and holdbacks. A partial collection overrides the status rule.
func CourierOrderAmount(o Order) float64 {
	if partial := valueOrZero(o.PartialPaidAmount); partial > 0 {
		return partial
	}
	switch o.Status {
	case StatusDelivered, StatusPartial, StatusHandToHand:
		return o.TotalOrderFees
	default:
		return 0
	}
}

// BaseOrderAmount is the order-level part of TotalCourierAmount. Canceled and
// returned orders contribute nothing; split orders contribute the sum of their
// sub-payments (0 when the recorded list could not be parsed).
func BaseOrderAmount(o Order) float64 {
	switch o.Status {
	case StatusCanceled, StatusReturn:
		return 0
	}
	if o.IsSplit() && o.SplitPayments.Present() {
		return o.SplitPayments.Total()
	}
	return CourierOrderAmount(o)
}

// Deductions is everything subtracted from the collected amount.
func Deductions(o Order) float64 {
	return valueOrZero(o.HoldFee) + valueOrZero(o.AdminDeliveryFee) + valueOrZero(o.ExtraFee)
}

// TotalCourierAmount is what the courier ended up holding for the order:
// base amount plus delivery fee, minus hold fee, admin delivery fee and extra fee.
func TotalCourierAmount(o Order) float64 {
	return BaseOrderAmount(o) + valueOrZero(o.DeliveryFee) - Deductions(o)
}

package reconcile

// PaymentChannelEntry is one order, or one sub-payment of a split order,
// attributed to a payment channel.
type PaymentChannelEntry struct {
	Order   Order          `json:"order"`
	Channel PaymentChannel `json:"channel"`
	Amount  float64        `json:"amount"`
}

// SourceMethod picks the most specific payment information recorded on the
// order: the courier's sub-type, then collected_by, then the imported method.
// normalize is false for collected_by, which is already a concrete identifier.
func SourceMethod(o Order) (method string, normalize bool) {
	if sub, ok := nonEmpty(o.PaymentSubType); ok && sub != SplitSubType {
		return sub, true
	}
	if by, ok := nonEmpty(o.CollectedBy); ok {
		return by, false
	}
	return o.PaymentMethod, true
}

// DisplayChannel is the label shown for an order's payment.
func DisplayChannel(o Order) string {
	method, normalize := SourceMethod(o)
	if !normalize {
		return method
	}
	return string(Normalize(method))
}

func HasHoldActivity(o Order) bool {
	return o.HoldFeeAddedAt != nil || o.HoldFeeRemovedAt != nil
}

// FlattenForChannelSummary expands orders into per-channel entries. Split
// orders yield one entry per positive sub-payment. Other orders yield one entry
// when their total is positive, or always when they reconcile as cash on hand.
func FlattenForChannelSummary(orders []Order, includeHeldOrders bool) []PaymentChannelEntry {
	entries := make([]PaymentChannelEntry, 0, len(orders))
	for _, o := range orders {
		if !includeHeldOrders && HasHoldActivity(o) {
			continue
		}

		if o.IsSplit() && o.SplitPayments.Parsed() {
			for _, sub := range o.SplitPayments.Entries() {
				if sub.Amount <= 0 {
					continue
				}
				entries = append(entries, PaymentChannelEntry{
					Order:   o,
					Channel: Normalize(sub.Method),
					Amount:  sub.Amount,
				})
			}
			continue
		}

		method, _ := SourceMethod(o)
		channel := Normalize(method)
		amount := TotalCourierAmount(o)
		if amount > 0 || channel == ChannelOnHand {
			entries = append(entries, PaymentChannelEntry{Order: o, Channel: channel, Amount: amount})
		}
	}
	return entries
}

// ShouldIncludeOrder decides whether an order counts toward the collected
// rollups. Zero-value returns, hand-to-hand and receiving-part orders are left out.
func ShouldIncludeOrder(o Order) bool {
	amount := TotalCourierAmount(o)
	if amount > 0 {
		return true
	}
	if amount == 0 {
		switch o.Status {
		case StatusDelivered, StatusPartial, StatusAssigned:
			return true
		}
	}
	return false
}

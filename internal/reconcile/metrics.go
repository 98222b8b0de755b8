package reconcile

import "sort"

type StatusMetrics struct {
	Count            int     `json:"count"`
	OriginalValue    float64 `json:"originalValue"`
	CourierCollected float64 `json:"courierCollected"`
}

type ChannelMetrics struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

func (c ChannelMetrics) add(other ChannelMetrics) ChannelMetrics {
	return ChannelMetrics{Count: c.Count + other.Count, Amount: c.Amount + other.Amount}
}

// IncludedTotals are the rollups restricted to orders passing ShouldIncludeOrder.
type IncludedTotals struct {
	Total     ChannelMetrics `json:"total"`
	Assigned  ChannelMetrics `json:"assigned"`
	Delivered ChannelMetrics `json:"delivered"`
}

type MetricsFilter struct {
	CourierID         *string
	IncludeHeldOrders bool
}

type Metrics struct {
	ByStatus  map[Status]StatusMetrics          `json:"byStatus"`
	ByChannel map[PaymentChannel]ChannelMetrics `json:"byChannel"`
	Included  IncludedTotals                    `json:"included"`

	TotalCODOrders        ChannelMetrics `json:"totalCodOrders"`
	TotalHandToAccounting float64        `json:"totalHandToAccounting"`
	TotalCollectedOverall float64        `json:"totalCollectedOverall"`
	TotalNotDelivered     float64        `json:"totalNotDelivered"`
	AccountingDifference  float64        `json:"accountingDifference"`
}

// StatusMetricsFor sums count, nominal value and courier total for one status.
func StatusMetricsFor(orders []Order, status Status) StatusMetrics {
	var m StatusMetrics
	for _, o := range orders {
		if o.Status != status {
			continue
		}
		m.Count++
		m.OriginalValue += o.TotalOrderFees
		m.CourierCollected += TotalCourierAmount(o)
	}
	return m
}

// PaymentMethodMetrics sums the flattened entries of one channel.
func PaymentMethodMetrics(entries []PaymentChannelEntry, channel PaymentChannel) ChannelMetrics {
	var m ChannelMetrics
	for _, e := range entries {
		if e.Channel != channel {
			continue
		}
		m.Count++
		m.Amount += e.Amount
	}
	return m
}

func filterByCourier(orders []Order, courierID *string) []Order {
	if courierID == nil || *courierID == "" {
		return orders
	}
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.BelongsTo(*courierID) {
			out = append(out, o)
		}
	}
	return out
}

func positiveGap(original, collected float64) float64 {
	if gap := original - collected; gap > 0 {
		return gap
	}
	return 0
}

// ComputeMetrics folds a snapshot of orders into status, channel and
// accounting rollups. It is pure and safe to re-run on every trigger.
func ComputeMetrics(orders []Order, f MetricsFilter) Metrics {
	scoped := filterByCourier(orders, f.CourierID)

	m := Metrics{
		ByStatus:  make(map[Status]StatusMetrics, len(allStatuses)),
		ByChannel: make(map[PaymentChannel]ChannelMetrics, len(allChannels)),
	}
	for _, s := range allStatuses {
		m.ByStatus[s] = StatusMetricsFor(scoped, s)
	}

	entries := FlattenForChannelSummary(scoped, f.IncludeHeldOrders)
	for _, c := range allChannels {
		m.ByChannel[c] = PaymentMethodMetrics(entries, c)
	}

	for _, o := range scoped {
		if !ShouldIncludeOrder(o) {
			continue
		}
		one := ChannelMetrics{Count: 1, Amount: TotalCourierAmount(o)}
		m.Included.Total = m.Included.Total.add(one)
		switch o.Status {
		case StatusAssigned:
			m.Included.Assigned = m.Included.Assigned.add(one)
		case StatusDelivered:
			m.Included.Delivered = m.Included.Delivered.add(one)
		}
	}

	for _, c := range CashLikeChannels {
		m.TotalCODOrders = m.TotalCODOrders.add(m.ByChannel[c])
	}
	m.TotalHandToAccounting = m.ByChannel[ChannelOnHand].Amount

	assigned := m.ByStatus[StatusAssigned]
	delivered := m.ByStatus[StatusDelivered]
	canceled := m.ByStatus[StatusCanceled]
	partial := m.ByStatus[StatusPartial]
	handToHand := m.ByStatus[StatusHandToHand]
	returned := m.ByStatus[StatusReturn]
	receivingPart := m.ByStatus[StatusReceivingPart]

	m.TotalCollectedOverall = delivered.CourierCollected +
		partial.CourierCollected +
		receivingPart.CourierCollected +
		handToHand.CourierCollected +
		canceled.CourierCollected +
		returned.CourierCollected

	// Canceled, assigned and returned count at full value; fees collected on
	// them are not netted.
	m.TotalNotDelivered = canceled.OriginalValue +
		positiveGap(partial.OriginalValue, partial.CourierCollected) +
		positiveGap(handToHand.OriginalValue, handToHand.CourierCollected) +
		positiveGap(receivingPart.OriginalValue, receivingPart.CourierCollected) +
		assigned.OriginalValue +
		returned.OriginalValue

	m.AccountingDifference = assigned.CourierCollected - m.TotalCollectedOverall

	return m
}

type CourierSummary struct {
	Courier Courier `json:"courier"`
	Metrics Metrics `json:"metrics"`
}

// CourierSummaries computes Metrics per courier, in courier name order.
// Orders without a courier are ignored.
func CourierSummaries(orders []Order, couriers []Courier, includeHeldOrders bool) []CourierSummary {
	sorted := make([]Courier, len(couriers))
	copy(sorted, couriers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	out := make([]CourierSummary, 0, len(sorted))
	for _, c := range sorted {
		id := c.ID
		out = append(out, CourierSummary{
			Courier: c,
			Metrics: ComputeMetrics(orders, MetricsFilter{CourierID: &id, IncludeHeldOrders: includeHeldOrders}),
		})
	}
	return out
}

package reconcile

import (
	"testing"
	"time"
)

func TestDisplayChannel(t *testing.T) {
	cases := []struct {
		name     string
		order    Order
		expected string
	}{
		{"raw method", Order{PaymentMethod: "Cash on delivery"}, "cash"},
		{"sub type wins", Order{PaymentMethod: "paymob", PaymentSubType: str("instapay"), CollectedBy: str("sdm")}, "instapay"},
		{"collected by used verbatim", Order{PaymentMethod: "paymob", CollectedBy: str("Accountant Sara")}, "Accountant Sara"},
		{"split sentinel skipped", Order{PaymentMethod: "visa card", PaymentSubType: str(SplitSubType)}, "paymob"},
		{"blank sub type skipped", Order{PaymentMethod: "wallet", PaymentSubType: str("  ")}, "wallet"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DisplayChannel(tc.order); got != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestFlattenSplitOrder(t *testing.T) {
	o := Order{
		ID:             "1",
		Status:         StatusDelivered,
		TotalOrderFees: 500,
		PaymentSubType: str(SplitSubType),
		SplitPayments:  ParseSplitPayments(`[{"method":"cash","amount":"50"},{"method":"paymob","amount":"30.5"},{"method":"wallet","amount":"0"}]`),
	}

	entries := FlattenForChannelSummary([]Order{o}, true)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Channel != ChannelCash || !almostEqual(entries[0].Amount, 50) {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Channel != ChannelPaymob || !almostEqual(entries[1].Amount, 30.5) {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
	if entries[0].Order.ID != "1" {
		t.Fatalf("entry should reference its order")
	}
}

func TestFlattenOnHandZeroRetained(t *testing.T) {
	onHand := Order{ID: "a", Status: StatusDelivered, TotalOrderFees: 100, HoldFee: f64(100), PaymentMethod: "on_hand"}
	paymobZero := Order{ID: "b", Status: StatusDelivered, TotalOrderFees: 100, HoldFee: f64(100), PaymentMethod: "paymob"}
	returned := Order{ID: "c", Status: StatusReturn, TotalOrderFees: 100, PaymentMethod: "cash"}

	entries := FlattenForChannelSummary([]Order{onHand, paymobZero, returned}, true)
	if len(entries) != 1 {
		t.Fatalf("expected only the on_hand entry, got %d", len(entries))
	}
	if entries[0].Channel != ChannelOnHand || entries[0].Amount != 0 {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestFlattenExcludesHeldOrders(t *testing.T) {
	now := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	added := Order{ID: "added", Status: StatusDelivered, TotalOrderFees: 300, PaymentMethod: "cash", HoldFeeAddedAt: &now}
	removed := Order{ID: "removed", Status: StatusDelivered, TotalOrderFees: 300, PaymentMethod: "cash", HoldFeeRemovedAt: &now}
	clean := Order{ID: "clean", Status: StatusDelivered, TotalOrderFees: 300, PaymentMethod: "cash"}

	entries := FlattenForChannelSummary([]Order{added, removed, clean}, false)
	if len(entries) != 1 || entries[0].Order.ID != "clean" {
		t.Fatalf("expected only the clean order, got %+v", entries)
	}

	entries = FlattenForChannelSummary([]Order{added, removed, clean}, true)
	if len(entries) != 3 {
		t.Fatalf("expected all orders when held orders are included, got %d", len(entries))
	}
}

func TestFlattenUnparsedSplitFallsBack(t *testing.T) {
	o := Order{
		Status:         StatusDelivered,
		TotalOrderFees: 100,
		DeliveryFee:    f64(20),
		PaymentMethod:  "instapay",
		PaymentSubType: str(SplitSubType),
		SplitPayments:  ParseSplitPayments("{broken"),
	}
	entries := FlattenForChannelSummary([]Order{o}, true)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Channel != ChannelInstapay || !almostEqual(entries[0].Amount, 20) {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestShouldIncludeOrder(t *testing.T) {
	cases := []struct {
		name     string
		order    Order
		expected bool
	}{
		{"positive amount", Order{Status: StatusDelivered, TotalOrderFees: 10}, true},
		{"zero delivered", Order{Status: StatusDelivered}, true},
		{"zero partial", Order{Status: StatusPartial}, true},
		{"zero assigned", Order{Status: StatusAssigned, TotalOrderFees: 500}, true},
		{"zero return", Order{Status: StatusReturn, TotalOrderFees: 500}, false},
		{"zero receiving part", Order{Status: StatusReceivingPart, TotalOrderFees: 500}, false},
		{"zero hand to hand", Order{Status: StatusHandToHand}, false},
		{"zero canceled", Order{Status: StatusCanceled, TotalOrderFees: 500}, false},
		{"return with fee", Order{Status: StatusReturn, DeliveryFee: f64(30)}, true},
		{"negative delivered", Order{Status: StatusDelivered, TotalOrderFees: 10, HoldFee: f64(20)}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldIncludeOrder(tc.order); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

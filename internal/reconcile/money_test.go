package reconcile

import (
	"math"
	"testing"
)

func f64(v float64) *float64 { return &v }

func str(v string) *string { return &v }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCourierOrderAmount(t *testing.T) {
	cases := []struct {
		name     string
		order    Order
		expected float64
	}{
		{"delivered uses total", Order{Status: StatusDelivered, TotalOrderFees: 200}, 200},
		{"partial without amount uses total", Order{Status: StatusPartial, TotalOrderFees: 300}, 300},
		{"hand to hand uses total", Order{Status: StatusHandToHand, TotalOrderFees: 90}, 90},
		{"partial amount wins", Order{Status: StatusDelivered, TotalOrderFees: 300, PartialPaidAmount: f64(120)}, 120},
		{"partial amount on return", Order{Status: StatusReturn, TotalOrderFees: 300, PartialPaidAmount: f64(50)}, 50},
		{"zero partial ignored", Order{Status: StatusDelivered, TotalOrderFees: 300, PartialPaidAmount: f64(0)}, 300},
		{"assigned is zero", Order{Status: StatusAssigned, TotalOrderFees: 300}, 0},
		{"return is zero", Order{Status: StatusReturn, TotalOrderFees: 300}, 0},
		{"receiving part is zero", Order{Status: StatusReceivingPart, TotalOrderFees: 300}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CourierOrderAmount(tc.order); !almostEqual(got, tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestTotalCourierAmount(t *testing.T) {
	cases := []struct {
		name     string
		order    Order
		expected float64
	}{
		{
			name:     "hold fee netting",
			order:    Order{Status: StatusDelivered, TotalOrderFees: 200, DeliveryFee: f64(20), HoldFee: f64(50)},
			expected: 170,
		},
		{
			name:     "return is zero regardless of value",
			order:    Order{Status: StatusReturn, TotalOrderFees: 999, DeliveryFee: f64(0), HoldFee: f64(0)},
			expected: 0,
		},
		{
			name:     "return ignores partial amount",
			order:    Order{Status: StatusReturn, TotalOrderFees: 999, PartialPaidAmount: f64(100)},
			expected: 0,
		},
		{
			name:     "canceled keeps delivery fee",
			order:    Order{Status: StatusCanceled, TotalOrderFees: 500, DeliveryFee: f64(30)},
			expected: 30,
		},
		{
			name: "all deductions",
			order: Order{
				Status:           StatusDelivered,
				TotalOrderFees:   400,
				DeliveryFee:      f64(40),
				HoldFee:          f64(10),
				AdminDeliveryFee: f64(15),
				ExtraFee:         f64(5),
			},
			expected: 410,
		},
		{
			name: "split payments replace status amount",
			order: Order{
				Status:         StatusDelivered,
				TotalOrderFees: 1000,
				PaymentSubType: str(SplitSubType),
				SplitPayments:  ParseSplitPayments(`[{"method":"cash","amount":"50"},{"method":"paymob","amount":"30.5"}]`),
			},
			expected: 80.5,
		},
		{
			name: "malformed split json counts zero",
			order: Order{
				Status:         StatusDelivered,
				TotalOrderFees: 1000,
				DeliveryFee:    f64(25),
				PaymentSubType: str(SplitSubType),
				SplitPayments:  ParseSplitPayments(`[{"method":"cash"`),
			},
			expected: 25,
		},
		{
			name: "split sub type without payments falls back",
			order: Order{
				Status:         StatusDelivered,
				TotalOrderFees: 150,
				PaymentSubType: str(SplitSubType),
			},
			expected: 150,
		},
		{
			name: "split on canceled order is zero",
			order: Order{
				Status:         StatusCanceled,
				PaymentSubType: str(SplitSubType),
				SplitPayments:  ParseSplitPayments(`[{"method":"cash","amount":80}]`),
			},
			expected: 0,
		},
		{
			name:     "fully offset by hold fee",
			order:    Order{Status: StatusDelivered, TotalOrderFees: 100, HoldFee: f64(100)},
			expected: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TotalCourierAmount(tc.order); !almostEqual(got, tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestBaseOrderAmountSplit(t *testing.T) {
	o := Order{
		Status:         StatusPartial,
		PaymentSubType: str(SplitSubType),
		SplitPayments:  ParseSplitPayments(`[{"method":"cash","amount":"50"},{"method":"paymob","amount":"30.5"}]`),
		DeliveryFee:    f64(10),
		HoldFee:        f64(5),
	}
	if got := BaseOrderAmount(o); !almostEqual(got, 80.5) {
		t.Fatalf("expected base 80.5, got %v", got)
	}
	if got := TotalCourierAmount(o); !almostEqual(got, 85.5) {
		t.Fatalf("expected total 85.5, got %v", got)
	}
}

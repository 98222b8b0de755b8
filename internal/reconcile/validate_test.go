package reconcile

import (
	"errors"
	"testing"
)

func statusPtr(s Status) *Status { return &s }

func TestValidateCourierUpdate(t *testing.T) {
	split := ParseSplitPayments(`[{"method":"cash","amount":"20"}]`)
	emptySplit := ParseSplitPayments(`[{"method":"cash","amount":"0"}]`)

	cases := []struct {
		name     string
		update   CourierUpdate
		code     ErrorCode
		field    string
		hasError bool
	}{
		{name: "delivered ok", update: CourierUpdate{Status: statusPtr(StatusDelivered)}},
		{name: "unknown status", update: CourierUpdate{Status: statusPtr("lost")}, hasError: true, code: ErrInvalidStatus, field: "status"},
		{name: "non-canonical status", update: CourierUpdate{Status: statusPtr("Delivered")}, hasError: true, code: ErrInvalidStatus, field: "status"},
		{
			name:     "delivery fee without method",
			update:   CourierUpdate{Status: statusPtr(StatusDelivered), DeliveryFee: f64(25)},
			hasError: true,
			code:     ErrDeliveryFeeMethodRequired,
			field:    "payment_sub_type",
		},
		{name: "delivery fee with sub type", update: CourierUpdate{DeliveryFee: f64(25), PaymentSubType: str("instapay")}},
		{name: "delivery fee with collector", update: CourierUpdate{DeliveryFee: f64(25), CollectedBy: str("courier")}},
		{
			name:     "partial without amount",
			update:   CourierUpdate{Status: statusPtr(StatusPartial)},
			hasError: true,
			code:     ErrPartialAmountRequired,
			field:    "partial_paid_amount",
		},
		{name: "partial with amount", update: CourierUpdate{Status: statusPtr(StatusPartial), PartialPaidAmount: f64(40)}},
		{
			name:     "split without entries",
			update:   CourierUpdate{PaymentSubType: str(SplitSubType), SplitPayments: &emptySplit},
			hasError: true,
			code:     ErrSplitPaymentsRequired,
			field:    "onther_payments",
		},
		{name: "split with entry", update: CourierUpdate{PaymentSubType: str(SplitSubType), SplitPayments: &split}},
		{
			name:     "negative fee",
			update:   CourierUpdate{ExtraFee: f64(-1)},
			hasError: true,
			code:     ErrNegativeAmount,
			field:    "extra_fee",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCourierUpdate(tc.update)
			if !tc.hasError {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Code != tc.code || verr.Field != tc.field {
				t.Fatalf("expected %s on %s, got %s on %s", tc.code, tc.field, verr.Code, verr.Field)
			}
		})
	}
}

func TestApplyCourierUpdate(t *testing.T) {
	o := Order{Status: StatusAssigned, TotalOrderFees: 100}
	ApplyCourierUpdate(&o, CourierUpdate{Status: statusPtr(StatusDelivered), DeliveryFee: f64(15), PaymentSubType: str("wallet")})

	if o.Status != StatusDelivered {
		t.Fatalf("status not applied")
	}
	if !almostEqual(TotalCourierAmount(o), 115) {
		t.Fatalf("expected 115, got %v", TotalCourierAmount(o))
	}
	if DisplayChannel(o) != "wallet" {
		t.Fatalf("expected wallet, got %s", DisplayChannel(o))
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"delivered", StatusDelivered, true},
		{"Delivered", StatusDelivered, true},
		{"  HAND_TO_HAND ", StatusHandToHand, true},
		{"Receiving_Part", StatusReceivingPart, true},
		{"lost", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NormalizeStatus(tc.in)
			if (err == nil) != tc.ok {
				t.Fatalf("NormalizeStatus(%q) err = %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("NormalizeStatus(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if !tc.ok {
				var ve *ValidationError
				if !errors.As(err, &ve) || ve.Code != ErrInvalidStatus {
					t.Fatalf("expected INVALID_STATUS, got %v", err)
				}
			}
		})
	}
}

package store

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"courier-reconciliation-service/internal/reconcile"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.values) || r.values[i] == nil {
			continue
		}
		switch target := d.(type) {
		case *string:
			*target = r.values[i].(string)
		case *pgtype.Numeric:
			*target = r.values[i].(pgtype.Numeric)
		case *pgtype.Text:
			*target = r.values[i].(pgtype.Text)
		case *pgtype.Timestamptz:
			*target = r.values[i].(pgtype.Timestamptz)
		case *[]byte:
			*target = r.values[i].([]byte)
		case *time.Time:
			*target = r.values[i].(time.Time)
		}
	}
	return nil
}

func numeric(cents int64) pgtype.Numeric {
	return pgtype.Numeric{Int: big.NewInt(cents), Exp: -2, Valid: true}
}

func TestScanOrder(t *testing.T) {
	now := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	row := fakeRow{values: []any{
		"o1", "1001 (copy)", "delivered", numeric(20000),
		numeric(2000), pgtype.Numeric{}, numeric(5000), pgtype.Numeric{}, pgtype.Numeric{},
		"Cash on Delivery", pgtype.Text{String: "onther", Valid: true}, pgtype.Text{}, []byte(`[{"method":"cash","amount":"50"}]`),
		pgtype.Text{String: "dispute", Valid: true}, pgtype.Text{String: "admin", Valid: true},
		pgtype.Timestamptz{Time: now, Valid: true}, pgtype.Timestamptz{Time: now, Valid: true}, pgtype.Timestamptz{},
		pgtype.Text{String: "c1", Valid: true}, pgtype.Timestamptz{Time: now, Valid: true}, now, now,
	}}

	o, err := scanOrder(row)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if o.Status != reconcile.StatusDelivered || o.TotalOrderFees != 200 {
		t.Fatalf("unexpected order: %+v", o)
	}
	if o.DeliveryFee == nil || *o.DeliveryFee != 20 {
		t.Fatalf("expected delivery fee 20")
	}
	if o.PartialPaidAmount != nil {
		t.Fatalf("null numeric should stay nil")
	}
	if !o.IsSplit() || o.SplitPayments.Total() != 50 {
		t.Fatalf("expected split payments parsed at scan time")
	}
	if !o.IsCopy() {
		t.Fatalf("expected copy suffix detected")
	}
	if o.HoldFeeRemovedAt != nil || o.HoldFeeAddedAt == nil {
		t.Fatalf("unexpected hold timestamps")
	}
	if got := reconcile.TotalCourierAmount(o); got != 20 {
		t.Fatalf("expected 50 + 20 - 50 = 20, got %v", got)
	}
}

func TestScanOrderNotFound(t *testing.T) {
	_, err := scanOrder(fakeRow{err: pgx.ErrNoRows})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNullableText(t *testing.T) {
	if nullableText("  ") != nil {
		t.Fatalf("blank should be NULL")
	}
	if nullableText(" cash ") != "cash" {
		t.Fatalf("expected trimmed value")
	}
}

func TestOrderPatchApplyToClears(t *testing.T) {
	fee, paid, extra := 20.0, 60.0, 5.0
	newFee := 25.0
	empty := " "

	tests := []struct {
		name  string
		patch OrderPatch
		check func(o reconcile.Order) bool
	}{
		{
			name:  "clear partial amount",
			patch: OrderPatch{Clear: []string{ColumnPartialPaidAmount}},
			check: func(o reconcile.Order) bool {
				return o.PartialPaidAmount == nil && o.DeliveryFee != nil && o.ExtraFee != nil
			},
		},
		{
			name:  "clear wins over set",
			patch: OrderPatch{CourierUpdate: reconcile.CourierUpdate{DeliveryFee: &newFee}, Clear: []string{ColumnDeliveryFee, ColumnExtraFee}},
			check: func(o reconcile.Order) bool {
				return o.DeliveryFee == nil && o.ExtraFee == nil && o.PartialPaidAmount != nil
			},
		},
		{
			name:  "unknown column ignored",
			patch: OrderPatch{Clear: []string{"hold_fee"}},
			check: func(o reconcile.Order) bool {
				return o.DeliveryFee != nil && o.PartialPaidAmount != nil && o.ExtraFee != nil
			},
		},
		{
			name:  "blank courier unassigns",
			patch: OrderPatch{AssignedCourierID: &empty},
			check: func(o reconcile.Order) bool { return o.AssignedCourierID == nil },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c1 := "c1"
			f, p, e := fee, paid, extra
			o := reconcile.Order{ID: "1", DeliveryFee: &f, PartialPaidAmount: &p, ExtraFee: &e, AssignedCourierID: &c1}
			tc.patch.ApplyTo(&o)
			if !tc.check(o) {
				t.Fatalf("unexpected order after patch: %+v", o)
			}
		})
	}
}

package store

import (
	"context"
	"time"
)

// ImportedOrder is one order pulled from the external storefront.
type ImportedOrder struct {
	ExternalID      string
	OrderNumber     string
	TotalOrderFees  float64
	PaymentMethod   string
	PaymentStatus   string
	FinancialStatus string
	SourceCreatedAt *time.Time
	SourceUpdatedAt *time.Time
}

type UpsertResult struct {
	OrderID  string
	Inserted bool
	Assigned bool
}

// UpsertImportedOrder inserts a new order or refreshes an existing one. Once a
// courier is assigned only storefront metadata (totals, financial status,
// source timestamps) is refreshed; status, assignment, payment fields and
// updated_at stay as the courier left them.
func (s *OrderStore) UpsertImportedOrder(ctx context.Context, in ImportedOrder) (UpsertResult, error) {
	var res UpsertResult
	err := s.db.QueryRow(ctx, `
		insert into orders (
			external_id, order_number, total_order_fees, payment_method, payment_status,
			financial_status, source_created_at, source_updated_at, status
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, 'assigned')
		on conflict (external_id) do update set
			total_order_fees = excluded.total_order_fees,
			financial_status = excluded.financial_status,
			source_created_at = excluded.source_created_at,
			source_updated_at = excluded.source_updated_at,
			order_number = case when orders.assigned_courier_id is null then excluded.order_number else orders.order_number end,
			payment_method = case when orders.assigned_courier_id is null then excluded.payment_method else orders.payment_method end,
			payment_status = case when orders.assigned_courier_id is null then excluded.payment_status else orders.payment_status end,
			updated_at = case when orders.assigned_courier_id is null then now() else orders.updated_at end
		returning id, (xmax = 0), assigned_courier_id is not null
	`,
		in.ExternalID, in.OrderNumber, in.TotalOrderFees, in.PaymentMethod, in.PaymentStatus,
		in.FinancialStatus, in.SourceCreatedAt, in.SourceUpdatedAt,
	).Scan(&res.OrderID, &res.Inserted, &res.Assigned)
	return res, err
}

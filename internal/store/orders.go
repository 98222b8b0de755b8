package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"courier-reconciliation-service/internal/reconcile"
	"courier-reconciliation-service/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type OrderStore struct {
	db *pgxpool.Pool
}

func NewOrderStore(db *pgxpool.Pool) *OrderStore {
	return &OrderStore{db: db}
}

type OrderFilter struct {
	CourierID        *string
	From             *time.Time
	To               *time.Time
	AssignedOnly     bool
	HoldActivityOnly bool
}

// Amount columns a patch may reset to null.
const (
	ColumnDeliveryFee       = "delivery_fee"
	ColumnPartialPaidAmount = "partial_paid_amount"
	ColumnAdminDeliveryFee  = "admin_delivery_fee"
	ColumnExtraFee          = "extra_fee"
)

var clearableColumns = map[string]bool{
	ColumnDeliveryFee:       true,
	ColumnPartialPaidAmount: true,
	ColumnAdminDeliveryFee:  true,
	ColumnExtraFee:          true,
}

// OrderPatch lists the columns an update may touch; nil fields are skipped.
// Clear names amount columns to set to null; unknown names are ignored.
type OrderPatch struct {
	reconcile.CourierUpdate
	AssignedCourierID *string
	Clear             []string
}

// ApplyTo mirrors the patch on an in-memory order.
func (p OrderPatch) ApplyTo(o *reconcile.Order) {
	reconcile.ApplyCourierUpdate(o, p.CourierUpdate)
	for _, column := range p.Clear {
		switch column {
		case ColumnDeliveryFee:
			o.DeliveryFee = nil
		case ColumnPartialPaidAmount:
			o.PartialPaidAmount = nil
		case ColumnAdminDeliveryFee:
			o.AdminDeliveryFee = nil
		case ColumnExtraFee:
			o.ExtraFee = nil
		}
	}
	if p.AssignedCourierID != nil {
		if id := strings.TrimSpace(*p.AssignedCourierID); id != "" {
			o.AssignedCourierID = &id
		} else {
			o.AssignedCourierID = nil
		}
	}
}

const orderColumns = `
	o.id, o.order_number, o.status, o.total_order_fees,
	o.delivery_fee, o.partial_paid_amount, o.hold_fee, o.admin_delivery_fee, o.extra_fee,
	o.payment_method, o.payment_sub_type, o.collected_by, o.onther_payments,
	o.hold_fee_comment, o.hold_fee_created_by, o.hold_fee_created_at, o.hold_fee_added_at, o.hold_fee_removed_at,
	o.assigned_courier_id, o.assigned_at, o.created_at, o.updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (reconcile.Order, error) {
	var (
		o                 reconcile.Order
		status            string
		totalOrderFees    pgtype.Numeric
		deliveryFee       pgtype.Numeric
		partialPaidAmount pgtype.Numeric
		holdFee           pgtype.Numeric
		adminDeliveryFee  pgtype.Numeric
		extraFee          pgtype.Numeric
		paymentSubType    pgtype.Text
		collectedBy       pgtype.Text
		splitRaw          []byte
		holdComment       pgtype.Text
		holdCreatedBy     pgtype.Text
		holdCreatedAt     pgtype.Timestamptz
		holdAddedAt       pgtype.Timestamptz
		holdRemovedAt     pgtype.Timestamptz
		courierID         pgtype.Text
		assignedAt        pgtype.Timestamptz
	)

	err := row.Scan(
		&o.ID, &o.OrderNumber, &status, &totalOrderFees,
		&deliveryFee, &partialPaidAmount, &holdFee, &adminDeliveryFee, &extraFee,
		&o.PaymentMethod, &paymentSubType, &collectedBy, &splitRaw,
		&holdComment, &holdCreatedBy, &holdCreatedAt, &holdAddedAt, &holdRemovedAt,
		&courierID, &assignedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return o, ErrNotFound
		}
		return o, err
	}

	o.Status = reconcile.Status(status)
	o.TotalOrderFees = utils.NumericToFloat64(totalOrderFees)
	o.DeliveryFee = utils.NumericPtr(deliveryFee)
	o.PartialPaidAmount = utils.NumericPtr(partialPaidAmount)
	o.HoldFee = utils.NumericPtr(holdFee)
	o.AdminDeliveryFee = utils.NumericPtr(adminDeliveryFee)
	o.ExtraFee = utils.NumericPtr(extraFee)
	o.PaymentSubType = textPtr(paymentSubType)
	o.CollectedBy = textPtr(collectedBy)
	o.SplitPayments = reconcile.ParseSplitPayments(splitRaw)
	o.HoldFeeComment = textPtr(holdComment)
	o.HoldFeeCreatedBy = textPtr(holdCreatedBy)
	o.HoldFeeCreatedAt = timePtr(holdCreatedAt)
	o.HoldFeeAddedAt = timePtr(holdAddedAt)
	o.HoldFeeRemovedAt = timePtr(holdRemovedAt)
	o.AssignedCourierID = textPtr(courierID)
	o.AssignedAt = timePtr(assignedAt)
	return o, nil
}

func (s *OrderStore) FetchOrders(ctx context.Context, f OrderFilter) ([]reconcile.Order, error) {
	whereClauses := []string{"true"}
	args := []any{}

	if f.CourierID != nil && strings.TrimSpace(*f.CourierID) != "" {
		whereClauses = append(whereClauses, "o.assigned_courier_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, strings.TrimSpace(*f.CourierID))
	}
	if f.AssignedOnly {
		whereClauses = append(whereClauses, "o.assigned_courier_id is not null")
	}
	if f.From != nil {
		whereClauses = append(whereClauses, "coalesce(o.assigned_at, o.created_at) >= $"+strconv.Itoa(len(args)+1))
		args = append(args, *f.From)
	}
	if f.To != nil {
		whereClauses = append(whereClauses, "coalesce(o.assigned_at, o.created_at) < $"+strconv.Itoa(len(args)+1))
		args = append(args, *f.To)
	}
	if f.HoldActivityOnly {
		whereClauses = append(whereClauses, "(o.hold_fee_added_at is not null or o.hold_fee_removed_at is not null or o.hold_fee_created_at is not null)")
	}

	query := `
		select ` + orderColumns + `
		from orders o
		where ` + strings.Join(whereClauses, " and ") + `
		order by coalesce(o.assigned_at, o.created_at) desc, o.id
	`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]reconcile.Order, 0)
	ids := make([]string, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	proofs, err := s.proofsByOrder(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Proofs = proofs[orders[i].ID]
	}
	return orders, nil
}

func (s *OrderStore) GetOrder(ctx context.Context, id string) (reconcile.Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx, `select `+orderColumns+` from orders o where o.id = $1`, id))
	if err != nil {
		return o, err
	}
	proofs, err := s.proofsByOrder(ctx, []string{o.ID})
	if err != nil {
		return o, err
	}
	o.Proofs = proofs[o.ID]
	return o, nil
}

// UpdateOrder writes the non-nil patch fields and returns the stored row.
// A column named in Clear is set to null even when the patch also carries a value.
func (s *OrderStore) UpdateOrder(ctx context.Context, id string, p OrderPatch) (reconcile.Order, error) {
	sets := make([]string, 0, 10)
	args := make([]any, 0, 11)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	cleared := make(map[string]bool, len(p.Clear))
	for _, column := range p.Clear {
		if clearableColumns[column] && !cleared[column] {
			cleared[column] = true
			sets = append(sets, column+" = null")
		}
	}
	amount := func(column string, value *float64) {
		if value != nil && !cleared[column] {
			add(column, *value)
		}
	}

	if p.Status != nil {
		add("status", string(*p.Status))
	}
	amount(ColumnDeliveryFee, p.DeliveryFee)
	amount(ColumnPartialPaidAmount, p.PartialPaidAmount)
	if p.PaymentSubType != nil {
		add("payment_sub_type", nullableText(*p.PaymentSubType))
	}
	if p.CollectedBy != nil {
		add("collected_by", nullableText(*p.CollectedBy))
	}
	if p.SplitPayments != nil {
		encoded, err := json.Marshal(*p.SplitPayments)
		if err != nil {
			return reconcile.Order{}, err
		}
		add("onther_payments", string(encoded))
	}
	amount(ColumnAdminDeliveryFee, p.AdminDeliveryFee)
	amount(ColumnExtraFee, p.ExtraFee)
	if p.AssignedCourierID != nil {
		courier := strings.TrimSpace(*p.AssignedCourierID)
		if courier == "" {
			add("assigned_courier_id", nil)
			sets = append(sets, "assigned_at = null")
		} else {
			add("assigned_courier_id", courier)
			sets = append(sets, "assigned_at = now()")
		}
	}

	if len(sets) == 0 {
		return s.GetOrder(ctx, id)
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	query := `update orders o set ` + strings.Join(sets, ", ") + ` where o.id = $` + strconv.Itoa(len(args)) + ` returning ` + orderColumns
	o, err := scanOrder(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return o, err
	}
	proofs, err := s.proofsByOrder(ctx, []string{o.ID})
	if err != nil {
		return o, err
	}
	o.Proofs = proofs[o.ID]
	return o, nil
}

// ApplyHoldFee writes one hold-fee ledger action.
func (s *OrderStore) ApplyHoldFee(ctx context.Context, id string, p reconcile.HoldFeePatch) (reconcile.Order, error) {
	query := `
		update orders o
		set hold_fee = $1,
			hold_fee_comment = $2,
			hold_fee_created_by = $3,
			hold_fee_created_at = $4,
			hold_fee_removed_at = $5,
			hold_fee_added_at = case when $6 then $7 else o.hold_fee_added_at end,
			updated_at = now()
		where o.id = $8
		returning ` + orderColumns

	o, err := scanOrder(s.db.QueryRow(ctx, query,
		p.HoldFee, p.HoldFeeComment, p.HoldFeeCreatedBy, p.HoldFeeCreatedAt, p.HoldFeeRemovedAt,
		p.SetAddedAt, p.HoldFeeAddedAt, id,
	))
	if err != nil {
		return o, err
	}
	proofs, err := s.proofsByOrder(ctx, []string{o.ID})
	if err != nil {
		return o, err
	}
	o.Proofs = proofs[o.ID]
	return o, nil
}

func (s *OrderStore) ListCouriers(ctx context.Context) ([]reconcile.Courier, error) {
	rows, err := s.db.Query(ctx, `select id, name from couriers order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]reconcile.Courier, 0)
	for rows.Next() {
		var c reconcile.Courier
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullableText(v string) any {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return trimmed
}

func textPtr(v pgtype.Text) *string {
	if v.Valid {
		return &v.String
	}
	return nil
}

func timePtr(v pgtype.Timestamptz) *time.Time {
	if v.Valid {
		return &v.Time
	}
	return nil
}

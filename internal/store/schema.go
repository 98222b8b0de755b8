package store

import "context"

const schemaSQL = `
create table if not exists couriers (
	id text primary key default gen_random_uuid()::text,
	name text not null,
	created_at timestamptz not null default now()
);

create table if not exists orders (
	id text primary key default gen_random_uuid()::text,
	order_number text not null,
	external_id text unique,
	status text not null default 'assigned',
	total_order_fees numeric(12,2) not null default 0,
	delivery_fee numeric(12,2),
	partial_paid_amount numeric(12,2),
	hold_fee numeric(12,2),
	admin_delivery_fee numeric(12,2),
	extra_fee numeric(12,2),
	payment_method text not null default '',
	payment_status text,
	financial_status text,
	payment_sub_type text,
	collected_by text,
	onther_payments jsonb,
	hold_fee_comment text,
	hold_fee_created_by text,
	hold_fee_created_at timestamptz,
	hold_fee_added_at timestamptz,
	hold_fee_removed_at timestamptz,
	assigned_courier_id text references couriers(id) on delete set null,
	assigned_at timestamptz,
	source_created_at timestamptz,
	source_updated_at timestamptz,
	created_at timestamptz not null default now(),
	updated_at timestamptz not null default now()
);

create index if not exists orders_courier_assigned_idx on orders (assigned_courier_id, assigned_at);
create index if not exists orders_hold_idx on orders (hold_fee_removed_at, hold_fee_added_at);

create table if not exists order_proofs (
	id text primary key default gen_random_uuid()::text,
	order_id text not null references orders(id) on delete cascade,
	image_url text not null,
	created_at timestamptz not null default now()
);

create index if not exists order_proofs_order_idx on order_proofs (order_id);

create or replace function notify_order_change() returns trigger as $$
declare
	payload json;
	row_data orders;
begin
	if tg_op = 'DELETE' then
		row_data := old;
	else
		row_data := new;
	end if;
	payload := json_build_object(
		'eventType', lower(tg_op),
		'table', tg_table_name,
		'orderId', row_data.id,
		'courierId', row_data.assigned_courier_id,
		'updatedAt', row_data.updated_at
	);
	perform pg_notify('order_changes', payload::text);
	return null;
end;
$$ language plpgsql;

drop trigger if exists orders_notify_change on orders;
create trigger orders_notify_change
	after insert or update or delete on orders
	for each row execute function notify_order_change();
`

// Migrate applies the idempotent schema, including the change-notification trigger.
func (s *OrderStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

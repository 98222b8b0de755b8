package store

import (
	"context"
	"errors"

	"courier-reconciliation-service/internal/reconcile"

	"github.com/jackc/pgx/v5"
)

func (s *OrderStore) proofsByOrder(ctx context.Context, orderIDs []string) (map[string][]reconcile.Proof, error) {
	out := make(map[string][]reconcile.Proof, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.Query(ctx, `
		select id, order_id, image_url, created_at
		from order_proofs
		where order_id = any($1)
		order by created_at
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p reconcile.Proof
		if err := rows.Scan(&p.ID, &p.OrderID, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		out[p.OrderID] = append(out[p.OrderID], p)
	}
	return out, rows.Err()
}

func (s *OrderStore) InsertOrderProof(ctx context.Context, orderID string, imageURL string) (reconcile.Proof, error) {
	var p reconcile.Proof
	err := s.db.QueryRow(ctx, `
		insert into order_proofs (order_id, image_url)
		values ($1, $2)
		returning id, order_id, image_url, created_at
	`, orderID, imageURL).Scan(&p.ID, &p.OrderID, &p.ImageURL, &p.CreatedAt)
	return p, err
}

// DeleteOrderProof removes the record and returns it so the caller can clean
// up the stored image.
func (s *OrderStore) DeleteOrderProof(ctx context.Context, orderID string, proofID string) (reconcile.Proof, error) {
	var p reconcile.Proof
	err := s.db.QueryRow(ctx, `
		delete from order_proofs
		where id = $1 and order_id = $2
		returning id, order_id, image_url, created_at
	`, proofID, orderID).Scan(&p.ID, &p.OrderID, &p.ImageURL, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creatorlane/marketplace/internal/domain"
)

// DeliverableRepository persists submitted deliverable descriptors.
type DeliverableRepository interface {
	Create(ctx context.Context, deliverable *domain.Deliverable) error
	// CreateBatchWithTransition inserts all rows and applies the order status
	// compare-and-set in one transaction. Nothing persists when the order was
	// not in the expected current status or any insert fails.
	CreateBatchWithTransition(ctx context.Context, orderID string, deliverables []*domain.Deliverable, current, next domain.OrderStatus) (bool, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.Deliverable, error)
}

type deliverableRepository struct {
	pool *pgxpool.Pool
}

// NewDeliverableRepository constructs repository.
func NewDeliverableRepository(pool *pgxpool.Pool) DeliverableRepository {
	return &deliverableRepository{pool: pool}
}

func (r *deliverableRepository) Create(ctx context.Context, deliverable *domain.Deliverable) error {
	const query = `
        INSERT INTO deliverables (order_id, url, file_name, file_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		deliverable.OrderID,
		deliverable.URL,
		deliverable.FileName,
		deliverable.FileType,
		deliverable.SizeBytes,
	).Scan(&deliverable.ID, &deliverable.CreatedAt)
}

func (r *deliverableRepository) CreateBatchWithTransition(ctx context.Context, orderID string, deliverables []*domain.Deliverable, current, next domain.OrderStatus) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	const insert = `
        INSERT INTO deliverables (order_id, url, file_name, file_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	for _, deliverable := range deliverables {
		if err := tx.QueryRow(ctx, insert,
			orderID,
			deliverable.URL,
			deliverable.FileName,
			deliverable.FileType,
			deliverable.SizeBytes,
		).Scan(&deliverable.ID, &deliverable.CreatedAt); err != nil {
			return false, err
		}
		deliverable.OrderID = orderID
	}

	const transition = `
        UPDATE orders SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3`
	cmd, err := tx.Exec(ctx, transition, next, orderID, current)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() == 0 {
		return false, nil
	}
	return true, tx.Commit(ctx)
}

func (r *deliverableRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.Deliverable, error) {
	const query = `
        SELECT id, order_id, url, file_name, file_type, size_bytes, created_at
        FROM deliverables WHERE order_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Deliverable
	for rows.Next() {
		var deliverable domain.Deliverable
		if err := rows.Scan(
			&deliverable.ID,
			&deliverable.OrderID,
			&deliverable.URL,
			&deliverable.FileName,
			&deliverable.FileType,
			&deliverable.SizeBytes,
			&deliverable.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, deliverable)
	}
	return result, rows.Err()
}

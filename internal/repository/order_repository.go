package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creatorlane/marketplace/internal/domain"
)

// OrderFilter captures listing parameters for order views.
type OrderFilter struct {
	BrandID   *string
	CreatorID *string
	Statuses  []domain.OrderStatus
	Limit     int
	Offset    int
}

// OrderRepository encapsulates order persistence.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Update(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListWithFilter(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	UpdateStatusIfCurrent(ctx context.Context, id string, current, next domain.OrderStatus, rejectionMessage *string) (bool, error)
}

type orderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository instantiates repository.
func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &orderRepository{pool: pool}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	const query = `
        INSERT INTO orders (brand_id, creator_id, package_id, quantity, currency, total_amount_cents,
            status, additional_instructions, reference_links, delivery_estimate_days)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		order.BrandID,
		order.CreatorID,
		order.PackageID,
		order.Quantity,
		order.Currency,
		order.TotalAmountCents,
		order.Status,
		order.AdditionalInstructions,
		order.ReferenceLinks,
		order.DeliveryEstimateDays,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	const query = `
        UPDATE orders SET status=$1, rejection_message=$2, additional_instructions=$3,
            reference_links=$4, delivery_estimate_days=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		order.Status,
		order.RejectionMessage,
		order.AdditionalInstructions,
		order.ReferenceLinks,
		order.DeliveryEstimateDays,
		order.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const query = `
        SELECT id, brand_id, creator_id, package_id, quantity, currency, total_amount_cents,
               status, rejection_message, additional_instructions, reference_links,
               delivery_estimate_days, created_at, updated_at
        FROM orders WHERE id=$1`

	var order domain.Order
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.BrandID,
		&order.CreatorID,
		&order.PackageID,
		&order.Quantity,
		&order.Currency,
		&order.TotalAmountCents,
		&order.Status,
		&order.RejectionMessage,
		&order.AdditionalInstructions,
		&order.ReferenceLinks,
		&order.DeliveryEstimateDays,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatusIfCurrent performs a compare-and-set on the status column so
// concurrent transitions cannot both win. Returns false when the row was not
// in the expected current status.
func (r *orderRepository) UpdateStatusIfCurrent(ctx context.Context, id string, current, next domain.OrderStatus, rejectionMessage *string) (bool, error) {
	const query = `
        UPDATE orders SET status=$1, rejection_message=COALESCE($2, rejection_message), updated_at=NOW()
        WHERE id=$3 AND status=$4`
	cmd, err := r.pool.Exec(ctx, query, next, rejectionMessage, id, current)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *orderRepository) ListWithFilter(ctx context.Context, filter OrderFilter) ([]domain.Order, error) {
	base := `SELECT id, brand_id, creator_id, package_id, quantity, currency, total_amount_cents,
                    status, rejection_message, additional_instructions, reference_links,
                    delivery_estimate_days, created_at, updated_at
             FROM orders`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.BrandID != nil {
		args = append(args, *filter.BrandID)
		clauses = append(clauses, fmt.Sprintf("brand_id=$%d", len(args)))
	}
	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.BrandID,
			&order.CreatorID,
			&order.PackageID,
			&order.Quantity,
			&order.Currency,
			&order.TotalAmountCents,
			&order.Status,
			&order.RejectionMessage,
			&order.AdditionalInstructions,
			&order.ReferenceLinks,
			&order.DeliveryEstimateDays,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	return result, rows.Err()
}

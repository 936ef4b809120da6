package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/domain"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/interfaces"
)

type orderRepository struct {
	db     DB
	policy RetryPolicy
}

func NewOrderRepository(db DB, policy RetryPolicy) interfaces.OrderRepository {
	return &orderRepository{db: db, policy: policy}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	return withTx(ctx, r.db, r.policy, func(tx Tx) error {
		query := `
			INSERT INTO orders (id, status, customer_ref, addr_line1, addr_city, addr_postal_code,
			                    addr_lat, addr_lon, payment_method, items_total, shipping_fee, tax,
			                    grand_total, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`
		_, err := tx.Exec(ctx, query,
			order.ID, order.Status, order.CustomerRef,
			order.ShippingAddress.Line1, order.ShippingAddress.City, order.ShippingAddress.PostalCode,
			order.ShippingAddress.Coordinates.Lat, order.ShippingAddress.Coordinates.Lon,
			order.PaymentMethod,
			order.Amounts.ItemsTotal, order.Amounts.ShippingFee, order.Amounts.Tax, order.Amounts.GrandTotal,
			order.CreatedAt, order.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i := range order.Items {
			itemQuery := `
				INSERT INTO order_items (order_id, product_ref, name, unit_price, quantity)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`
			err = tx.QueryRow(ctx, itemQuery,
				order.ID, order.Items[i].ProductRef, order.Items[i].Name,
				order.Items[i].UnitPrice, order.Items[i].Quantity,
			).Scan(&order.Items[i].ID)
			if err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
			order.Items[i].OrderID = order.ID
		}

		logQuery := `
			INSERT INTO order_status_log (order_id, status, actor_ref, message, changed_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.Exec(ctx, logQuery, order.ID, order.Status, order.CustomerRef, "", order.CreatedAt); err != nil {
			return fmt.Errorf("failed to log status: %w", err)
		}

		return nil
	})
}

const orderColumns = `
	id, status, customer_ref, addr_line1, addr_city, addr_postal_code,
	addr_lat, addr_lon, payment_method, items_total, shipping_fee, tax,
	grand_total, assigned_agent_id, estimated_completion_at, cancel_reason,
	created_at, updated_at
`

func scanOrder(row Row) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID, &order.Status, &order.CustomerRef,
		&order.ShippingAddress.Line1, &order.ShippingAddress.City, &order.ShippingAddress.PostalCode,
		&order.ShippingAddress.Coordinates.Lat, &order.ShippingAddress.Coordinates.Lon,
		&order.PaymentMethod,
		&order.Amounts.ItemsTotal, &order.Amounts.ShippingFee, &order.Amounts.Tax, &order.Amounts.GrandTotal,
		&order.AssignedAgentRef, &order.EstimatedCompletionAt, &order.CancelReason,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	itemsQuery := `
		SELECT id, order_id, product_ref, name, unit_price, quantity
		FROM order_items WHERE order_id = $1 ORDER BY id
	`
	rows, err := r.db.Query(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductRef, &item.Name, &item.UnitPrice, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	return order, nil
}

func (r *orderRepository) GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusEntry, error) {
	query := `
		SELECT id, order_id, status, actor_ref, message, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.StatusEntry
	for rows.Next() {
		var entry domain.StatusEntry
		if err := rows.Scan(&entry.ID, &entry.OrderID, &entry.Status, &entry.ActorRef, &entry.Message, &entry.At); err != nil {
			return nil, fmt.Errorf("failed to scan status entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	return entries, nil
}

func (r *orderRepository) ListActive(ctx context.Context) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status NOT IN ($1, $2) ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, domain.StatusDelivered, domain.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to query active orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rowAdapter{rows})
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, nil
}

// rowAdapter lets scanOrder consume a Rows cursor position.
type rowAdapter struct {
	rows Rows
}

func (a rowAdapter) Scan(dest ...any) error { return a.rows.Scan(dest...) }

func (r *orderRepository) CommitTransition(ctx context.Context, order *domain.Order, entry *domain.StatusEntry, releaseAgentID string) error {
	return withTx(ctx, r.db, r.policy, func(tx Tx) error {
		query := `
			UPDATE orders
			SET status = $1, estimated_completion_at = $2, cancel_reason = $3, updated_at = $4
			WHERE id = $5
		`
		tag, err := tx.Exec(ctx, query,
			order.Status, order.EstimatedCompletionAt, order.CancelReason, order.UpdatedAt, order.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrOrderNotFound
		}

		if err := insertStatusEntry(ctx, tx, entry); err != nil {
			return err
		}

		if releaseAgentID != "" {
			if err := releaseAgent(ctx, tx, releaseAgentID); err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *orderRepository) CommitAssignment(ctx context.Context, order *domain.Order, entry *domain.StatusEntry, agent *domain.DeliveryAgent, createAgent bool, releaseAgentID string) error {
	return withTx(ctx, r.db, r.policy, func(tx Tx) error {
		// The agent row goes in first on the quick-create path so
		// order and agent land in one commit.
		if createAgent {
			if err := insertAgent(ctx, tx, agent); err != nil {
				return err
			}
		}

		query := `
			UPDATE orders
			SET status = $1, assigned_agent_id = $2, estimated_completion_at = $3, updated_at = $4
			WHERE id = $5
		`
		tag, err := tx.Exec(ctx, query,
			order.Status, order.AssignedAgentRef, order.EstimatedCompletionAt, order.UpdatedAt, order.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrOrderNotFound
		}

		if entry != nil {
			if err := insertStatusEntry(ctx, tx, entry); err != nil {
				return err
			}
		}

		// Claiming an existing agent is conditional on the row still
		// being available, so two orders racing for the same agent
		// cannot both commit: the loser's transaction rolls back with
		// ErrAgentUnavailable.
		if !createAgent {
			claimQuery := `
				UPDATE delivery_agents
				SET availability = $1, available_since = $2
				WHERE id = $3 AND availability = $4
			`
			tag, err := tx.Exec(ctx, claimQuery, agent.Availability, agent.AvailableSince, agent.ID, domain.AgentAvailable)
			if err != nil {
				return fmt.Errorf("failed to claim agent: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return domain.ErrAgentUnavailable
			}
		}

		if releaseAgentID != "" {
			if err := releaseAgent(ctx, tx, releaseAgentID); err != nil {
				return err
			}
		}

		return nil
	})
}

func insertStatusEntry(ctx context.Context, tx Tx, entry *domain.StatusEntry) error {
	query := `
		INSERT INTO order_status_log (order_id, status, actor_ref, message, changed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	if err := tx.QueryRow(ctx, query, entry.OrderID, entry.Status, entry.ActorRef, entry.Message, entry.At).Scan(&entry.ID); err != nil {
		return fmt.Errorf("failed to log status: %w", err)
	}
	return nil
}

func releaseAgent(ctx context.Context, tx Tx, agentID string) error {
	query := `
		UPDATE delivery_agents SET availability = $1, available_since = $2 WHERE id = $3
	`
	if _, err := tx.Exec(ctx, query, domain.AgentAvailable, time.Now().UTC(), agentID); err != nil {
		return fmt.Errorf("failed to release agent: %w", err)
	}
	return nil
}

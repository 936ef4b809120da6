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

type agentRepository struct {
	db DB
}

func NewAgentRepository(db DB) interfaces.AgentRepository {
	return &agentRepository{db: db}
}

const agentColumns = `
	id, name, phone, vehicle_info, lat, lon, rating_score, availability, available_since, created_at
`

func (r *agentRepository) Create(ctx context.Context, agent *domain.DeliveryAgent) error {
	return insertAgent(ctx, r.db, agent)
}

// insertAgent is shared with the order repository's quick-create
// assignment commit.
func insertAgent(ctx context.Context, execer interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
}, agent *domain.DeliveryAgent) error {
	var lat, lon *float64
	if agent.CurrentLocation != nil {
		lat, lon = &agent.CurrentLocation.Lat, &agent.CurrentLocation.Lon
	}

	query := `
		INSERT INTO delivery_agents (id, name, phone, vehicle_info, lat, lon, rating_score,
		                             availability, available_since, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := execer.Exec(ctx, query,
		agent.ID, agent.Name, agent.Phone, agent.VehicleInfo, lat, lon,
		agent.RatingScore, agent.Availability, agent.AvailableSince, agent.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert agent: %w", err)
	}
	return nil
}

func scanAgent(row Row) (*domain.DeliveryAgent, error) {
	var (
		agent    domain.DeliveryAgent
		lat, lon *float64
	)
	err := row.Scan(
		&agent.ID, &agent.Name, &agent.Phone, &agent.VehicleInfo, &lat, &lon,
		&agent.RatingScore, &agent.Availability, &agent.AvailableSince, &agent.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAgentNotFound
		}
		return nil, fmt.Errorf("failed to scan agent: %w", err)
	}
	if lat != nil && lon != nil {
		agent.CurrentLocation = &domain.Coordinates{Lat: *lat, Lon: *lon}
	}
	return &agent, nil
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.DeliveryAgent, error) {
	query := `SELECT ` + agentColumns + ` FROM delivery_agents WHERE id = $1`
	return scanAgent(r.db.QueryRow(ctx, query, id))
}

func (r *agentRepository) ListAvailable(ctx context.Context) ([]*domain.DeliveryAgent, error) {
	query := `SELECT ` + agentColumns + ` FROM delivery_agents WHERE availability = $1 ORDER BY available_since`
	return r.list(ctx, query, domain.AgentAvailable)
}

func (r *agentRepository) ListAll(ctx context.Context) ([]*domain.DeliveryAgent, error) {
	query := `SELECT ` + agentColumns + ` FROM delivery_agents ORDER BY created_at`
	return r.list(ctx, query)
}

func (r *agentRepository) list(ctx context.Context, query string, args ...any) ([]*domain.DeliveryAgent, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	var agents []*domain.DeliveryAgent
	for rows.Next() {
		agent, err := scanAgent(rowAdapter{rows})
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}

	return agents, nil
}

func (r *agentRepository) UpdateLocation(ctx context.Context, id string, c domain.Coordinates) error {
	query := `UPDATE delivery_agents SET lat = $1, lon = $2 WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, c.Lat, c.Lon, id)
	if err != nil {
		return fmt.Errorf("failed to update agent location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAgentNotFound
	}
	return nil
}

func (r *agentRepository) SetAvailability(ctx context.Context, id string, av domain.Availability) error {
	query := `UPDATE delivery_agents SET availability = $1, available_since = $2 WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, av, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update agent availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAgentNotFound
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/repository"
)

const defaultRobotPageSize = 100

// RobotRepository reads the fleet projection from PostgreSQL.
type RobotRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRobotRepository wires a PostgreSQL-backed fleet read model.
func NewRobotRepository(pool *pgxpool.Pool) *RobotRepository {
	return &RobotRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// NewRobotRepositoryWithExecutor constructs a repository over any executor,
// primarily for tests.
func NewRobotRepositoryWithExecutor(exec pgExecutor) *RobotRepository {
	return &RobotRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var robotColumns = []string{"id", "name", "fleet_id", "status", "updated_at"}

// GetByID returns one robot.
func (r *RobotRepository) GetByID(ctx context.Context, id string) (*domain.Robot, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("robot id is required")
	}

	query := r.builder.Select(robotColumns...).
		From("robots").
		Where(squirrel.Eq{"id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build robot sql: %w", err)
	}

	var robot domain.Robot
	row := r.exec.QueryRow(ctx, sqlStr, args...)
	if err := row.Scan(&robot.ID, &robot.Name, &robot.FleetID, &robot.Status, &robot.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan robot: %w", err)
	}

	return &robot, nil
}

// List returns a stable page of robots ordered by name.
func (r *RobotRepository) List(ctx context.Context, limit, offset int) ([]domain.Robot, error) {
	if limit <= 0 {
		limit = defaultRobotPageSize
	}
	if offset < 0 {
		offset = 0
	}

	query := r.builder.Select(robotColumns...).
		From("robots").
		OrderBy("name ASC", "id ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build robot list sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list robots: %w", err)
	}
	defer rows.Close()

	var robots []domain.Robot
	for rows.Next() {
		var robot domain.Robot
		if err := rows.Scan(&robot.ID, &robot.Name, &robot.FleetID, &robot.Status, &robot.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan robot row: %w", err)
		}
		robots = append(robots, robot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate robots: %w", err)
	}

	return robots, nil
}

// Overview aggregates robot counts per status.
func (r *RobotRepository) Overview(ctx context.Context) (*domain.FleetOverview, error) {
	query := r.builder.Select("status", "COUNT(*)").
		From("robots").
		GroupBy("status")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build fleet overview sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("fleet overview: %w", err)
	}
	defer rows.Close()

	overview := &domain.FleetOverview{
		ByStatus:    make(map[domain.RobotStatus]int),
		GeneratedAt: time.Now().UTC(),
	}

	for rows.Next() {
		var (
			status domain.RobotStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan overview row: %w", err)
		}
		overview.ByStatus[status] = count
		overview.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overview: %w", err)
	}

	return overview, nil
}

var _ port.RobotRepository = (*RobotRepository)(nil)

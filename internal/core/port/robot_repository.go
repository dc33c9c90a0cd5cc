package port

import (
	"context"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
)

// RobotRepository exposes the fleet read model.
type RobotRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Robot, error)
	List(ctx context.Context, limit, offset int) ([]domain.Robot, error)
	Overview(ctx context.Context) (*domain.FleetOverview, error)
}

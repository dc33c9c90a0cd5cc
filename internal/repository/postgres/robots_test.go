package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/repository"
)

func TestRobotRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRobotRepositoryWithExecutor(mock)

	updatedAt := time.Now().UTC()
	rows := pgxmock.NewRows(robotColumns).AddRow(
		"robot-1", "welder-alpha", "fleet-1", domain.RobotStatusWorking, updatedAt,
	)

	mock.ExpectQuery(`SELECT .* FROM robots WHERE id = \$1`).
		WithArgs("robot-1").
		WillReturnRows(rows)

	robot, err := repo.GetByID(context.Background(), "robot-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if robot.Name != "welder-alpha" {
		t.Fatalf("expected welder-alpha, got %s", robot.Name)
	}
	if robot.Status != domain.RobotStatusWorking {
		t.Fatalf("expected status %s, got %s", domain.RobotStatusWorking, robot.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRobotRepository_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRobotRepositoryWithExecutor(mock)

	mock.ExpectQuery(`SELECT .* FROM robots WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows(robotColumns))

	if _, err := repo.GetByID(context.Background(), "ghost"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRobotRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRobotRepositoryWithExecutor(mock)

	updatedAt := time.Now().UTC()
	rows := pgxmock.NewRows(robotColumns).
		AddRow("robot-2", "drill-beta", "fleet-1", domain.RobotStatusIdle, updatedAt).
		AddRow("robot-1", "welder-alpha", "fleet-1", domain.RobotStatusCharging, updatedAt)

	mock.ExpectQuery(`SELECT .* FROM robots ORDER BY name ASC, id ASC LIMIT 10 OFFSET 5`).
		WillReturnRows(rows)

	robots, err := repo.List(context.Background(), 10, 5)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(robots) != 2 {
		t.Fatalf("expected 2 robots, got %d", len(robots))
	}
	if robots[0].ID != "robot-2" || robots[1].ID != "robot-1" {
		t.Fatalf("unexpected order: %s, %s", robots[0].ID, robots[1].ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRobotRepository_ListDefaultsPage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRobotRepositoryWithExecutor(mock)

	mock.ExpectQuery(`SELECT .* FROM robots ORDER BY name ASC, id ASC LIMIT 100 OFFSET 0`).
		WillReturnRows(pgxmock.NewRows(robotColumns))

	robots, err := repo.List(context.Background(), -1, -20)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(robots) != 0 {
		t.Fatalf("expected empty page, got %d robots", len(robots))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRobotRepository_Overview(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRobotRepositoryWithExecutor(mock)

	rows := pgxmock.NewRows([]string{"status", "count"}).
		AddRow(domain.RobotStatusIdle, 4).
		AddRow(domain.RobotStatusWorking, 7).
		AddRow(domain.RobotStatusOffline, 1)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM robots GROUP BY status`).
		WillReturnRows(rows)

	overview, err := repo.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview returned error: %v", err)
	}
	if overview.Total != 12 {
		t.Fatalf("expected total 12, got %d", overview.Total)
	}
	if overview.ByStatus[domain.RobotStatusWorking] != 7 {
		t.Fatalf("expected 7 working robots, got %d", overview.ByStatus[domain.RobotStatusWorking])
	}
	if overview.GeneratedAt.IsZero() {
		t.Fatal("expected GeneratedAt to be stamped")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

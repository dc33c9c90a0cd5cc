package domain

import "time"

// RobotStatus is the lifecycle state a robot reports.
type RobotStatus string

const (
	RobotStatusIdle        RobotStatus = "IDLE"
	RobotStatusWorking     RobotStatus = "WORKING"
	RobotStatusCharging    RobotStatus = "CHARGING"
	RobotStatusMaintenance RobotStatus = "MAINTENANCE"
	RobotStatusOffline     RobotStatus = "OFFLINE"
)

// Robot is the read-model projection of one fleet member.
type Robot struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	FleetID   string      `json:"fleet_id"`
	Status    RobotStatus `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// FleetOverview aggregates robot counts per status for the dashboard query.
type FleetOverview struct {
	Total       int                 `json:"total"`
	ByStatus    map[RobotStatus]int `json:"by_status"`
	GeneratedAt time.Time           `json:"generated_at"`
}

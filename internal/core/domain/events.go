package domain

import (
	"encoding/json"
	"time"
)

// Channel names a real-time event topic with an independent subscriber set.
type Channel string

const (
	ChannelRobotStatus   Channel = "ROBOT_STATUS"
	ChannelTaskUpdates   Channel = "TASK_UPDATES"
	ChannelPolicyBreach  Channel = "POLICY_BREACHES"
	ChannelFleetUpdates  Channel = "FLEET_UPDATES"
	ChannelBellowsStream Channel = "BELLOWS_STREAM"
)

// Channels lists every declared topic.
var Channels = []Channel{
	ChannelRobotStatus,
	ChannelTaskUpdates,
	ChannelPolicyBreach,
	ChannelFleetUpdates,
	ChannelBellowsStream,
}

// Valid reports whether the channel belongs to the declared set.
func (c Channel) Valid() bool {
	for _, known := range Channels {
		if c == known {
			return true
		}
	}
	return false
}

// Event is the discriminated payload carried on a channel. Payload holds the
// decoded JSON document; when decoding fails on receipt, Payload is nil and Raw
// carries the undecoded bytes so consumers can handle both shapes.
type Event struct {
	Channel     Channel         `json:"channel"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	PublishedAt time.Time       `json:"published_at"`
	Raw         []byte          `json:"-"`
}

// Malformed reports whether the event arrived with an undecodable payload.
func (e Event) Malformed() bool {
	return e.Payload == nil && len(e.Raw) > 0
}

// RobotStatusEvent reports a robot state transition.
type RobotStatusEvent struct {
	RobotID   string  `json:"robot_id"`
	FleetID   string  `json:"fleet_id"`
	Status    string  `json:"status"`
	Battery   float64 `json:"battery,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// TaskEvent reports task lifecycle changes.
type TaskEvent struct {
	TaskID   string   `json:"task_id"`
	FleetID  string   `json:"fleet_id,omitempty"`
	Status   string   `json:"status"`
	RobotIDs []string `json:"robot_ids,omitempty"`
}

// PolicyBreachEvent reports an operating policy violation.
type PolicyBreachEvent struct {
	BreachID string `json:"breach_id"`
	EdictID  string `json:"edict_id,omitempty"`
	RobotID  string `json:"robot_id,omitempty"`
	FleetID  string `json:"fleet_id,omitempty"`
	Severity string `json:"severity"`
	Detail   string `json:"detail,omitempty"`
}

// FleetEvent reports fleet membership or configuration changes.
type FleetEvent struct {
	FleetID string `json:"fleet_id"`
	Status  string `json:"status,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

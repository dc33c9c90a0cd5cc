// Package transport holds the pieces shared between the HTTP and websocket
// surfaces, chiefly the static operation table that classifies every exposed
// operation and names its gating permission.
package transport

import "github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"

// OperationKind partitions operations by delivery shape: queries and mutations
// travel over HTTP, subscriptions over the websocket surface.
type OperationKind string

const (
	KindQuery        OperationKind = "query"
	KindMutation     OperationKind = "mutation"
	KindSubscription OperationKind = "subscription"
)

// Operation is one row of the static routing table. Classification is by name
// only; payloads are never inspected to decide kind or gating.
type Operation struct {
	Name       string
	Kind       OperationKind
	Permission domain.Permission
	Channel    domain.Channel

	// Public marks the few operations reachable without a session.
	Public bool
}

// Gated reports whether the operation requires a permission check beyond
// authentication.
func (o Operation) Gated() bool {
	return o.Permission != ""
}

var operations = []Operation{
	{Name: "login", Kind: KindMutation, Public: true},
	{Name: "logout", Kind: KindMutation},
	{Name: "refreshToken", Kind: KindMutation},
	{Name: "currentSession", Kind: KindQuery},

	{Name: "fleetOverview", Kind: KindQuery, Permission: domain.PermissionViewFleet},
	{Name: "robotDetail", Kind: KindQuery, Permission: domain.PermissionViewFleet},
	{Name: "taskList", Kind: KindQuery, Permission: domain.PermissionViewTasks},

	{Name: "publishRobotStatus", Kind: KindMutation, Permission: domain.PermissionManageFleet},
	{Name: "publishTaskUpdate", Kind: KindMutation, Permission: domain.PermissionAssignTask},
	{Name: "reportPolicyBreach", Kind: KindMutation, Permission: domain.PermissionManageRobots},
	{Name: "invalidateFleetCache", Kind: KindMutation, Permission: domain.PermissionManageFleet},

	{Name: "robotStatusFeed", Kind: KindSubscription, Permission: domain.PermissionViewFleet, Channel: domain.ChannelRobotStatus},
	{Name: "taskUpdateFeed", Kind: KindSubscription, Permission: domain.PermissionViewTasks, Channel: domain.ChannelTaskUpdates},
	{Name: "policyBreachFeed", Kind: KindSubscription, Permission: domain.PermissionViewEdicts, Channel: domain.ChannelPolicyBreach},
	{Name: "bellowsStreamFeed", Kind: KindSubscription, Permission: domain.PermissionViewBellows, Channel: domain.ChannelBellowsStream},
	{Name: "fleetUpdateFeed", Kind: KindSubscription, Permission: domain.PermissionViewFleet, Channel: domain.ChannelFleetUpdates},
}

var operationsByName = func() map[string]Operation {
	table := make(map[string]Operation, len(operations))
	for _, op := range operations {
		table[op.Name] = op
	}
	return table
}()

// Lookup resolves an operation by name.
func Lookup(name string) (Operation, bool) {
	op, ok := operationsByName[name]
	return op, ok
}

// Operations returns a copy of the full table.
func Operations() []Operation {
	out := make([]Operation, len(operations))
	copy(out, operations)
	return out
}

// Subscriptions returns the subscription rows keyed by channel.
func Subscriptions() map[domain.Channel]Operation {
	out := make(map[domain.Channel]Operation)
	for _, op := range operations {
		if op.Kind == KindSubscription {
			out[op.Channel] = op
		}
	}
	return out
}

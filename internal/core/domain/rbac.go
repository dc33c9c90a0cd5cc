package domain

// Permission defines a named capability checked before a privileged operation proceeds.
// The set is closed; permissions are never constructed from strings at runtime.
type Permission string

const (
	PermissionForgeSepulka    Permission = "FORGE_SEPULKA"
	PermissionEditSepulka     Permission = "EDIT_SEPULKA"
	PermissionDeleteSepulka   Permission = "DELETE_SEPULKA"
	PermissionCastIngot       Permission = "CAST_INGOT"
	PermissionTemperIngot     Permission = "TEMPER_INGOT"
	PermissionQuenchToFleet   Permission = "QUENCH_TO_FLEET"
	PermissionRecallFleet     Permission = "RECALL_FLEET"
	PermissionViewFleet       Permission = "VIEW_FLEET"
	PermissionManageFleet     Permission = "MANAGE_FLEET"
	PermissionViewRobots      Permission = "VIEW_ROBOTS"
	PermissionManageRobots    Permission = "MANAGE_ROBOTS"
	PermissionViewTasks       Permission = "VIEW_TASKS"
	PermissionCreateTask      Permission = "CREATE_TASK"
	PermissionAssignTask      Permission = "ASSIGN_TASK"
	PermissionCancelTask      Permission = "CANCEL_TASK"
	PermissionViewCatalog     Permission = "VIEW_CATALOG"
	PermissionManageAlloys    Permission = "MANAGE_ALLOYS"
	PermissionManagePatterns  Permission = "MANAGE_PATTERNS"
	PermissionViewEdicts      Permission = "VIEW_EDICTS"
	PermissionViewBellows     Permission = "VIEW_BELLOWS"
	PermissionExportTelemetry Permission = "EXPORT_TELEMETRY"
	PermissionManageSmiths    Permission = "MANAGE_SMITHS"
)

// AllPermissions enumerates every defined permission. Order is stable for
// deterministic snapshots.
var AllPermissions = []Permission{
	PermissionForgeSepulka,
	PermissionEditSepulka,
	PermissionDeleteSepulka,
	PermissionCastIngot,
	PermissionTemperIngot,
	PermissionQuenchToFleet,
	PermissionRecallFleet,
	PermissionViewFleet,
	PermissionManageFleet,
	PermissionViewRobots,
	PermissionManageRobots,
	PermissionViewTasks,
	PermissionCreateTask,
	PermissionAssignTask,
	PermissionCancelTask,
	PermissionViewCatalog,
	PermissionManageAlloys,
	PermissionManagePatterns,
	PermissionViewEdicts,
	PermissionViewBellows,
	PermissionExportTelemetry,
	PermissionManageSmiths,
}

var smithPermissions = []Permission{
	PermissionForgeSepulka,
	PermissionEditSepulka,
	PermissionCastIngot,
	PermissionViewFleet,
	PermissionViewRobots,
	PermissionViewTasks,
	PermissionCreateTask,
	PermissionViewCatalog,
	PermissionViewBellows,
}

var overSmithPermissions = append([]Permission{
	PermissionDeleteSepulka,
	PermissionTemperIngot,
	PermissionQuenchToFleet,
	PermissionRecallFleet,
	PermissionManageFleet,
	PermissionManageRobots,
	PermissionAssignTask,
	PermissionCancelTask,
	PermissionManageAlloys,
	PermissionManagePatterns,
	PermissionViewEdicts,
	PermissionExportTelemetry,
}, smithPermissions...)

// PermissionsForRole returns the fixed permission set granted to a role.
// Admin holds the union of every defined permission. The returned slice is a
// copy; callers may retain it as a session snapshot.
func PermissionsForRole(role Role) []Permission {
	var source []Permission
	switch role {
	case RoleSmith:
		source = smithPermissions
	case RoleOverSmith:
		source = overSmithPermissions
	case RoleAdmin:
		source = AllPermissions
	default:
		return nil
	}

	snapshot := make([]Permission, len(source))
	copy(snapshot, source)
	return snapshot
}

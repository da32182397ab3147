package rbac

import "strings"

type Role string
type Action string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionExport  Action = "export"
	ActionWrite   Action = "write"
	ActionRestore Action = "restore"
	ActionAdmin   Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleEditor:
		return action == ActionRead || action == ActionExport || action == ActionWrite || action == ActionRestore
	case RoleViewer:
		return action == ActionRead || action == ActionExport
	default:
		return false
	}
}

// Normalize maps a stored role to a known Role. Unknown roles get the least
// privileged one.
func Normalize(role string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(role))); r {
	case RoleViewer, RoleEditor, RoleAdmin:
		return r
	default:
		return RoleViewer
	}
}

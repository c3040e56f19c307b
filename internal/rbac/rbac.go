// Package rbac holds the role and permission model. Roles are flat,
// not hierarchical: each role lists exactly the actions it may perform.
package rbac

import "traction/api/internal/store"

type Role string

const (
	RoleViewer Role = "viewer"
	RoleMember Role = "member"
	RoleLeader Role = "leader"
	RoleAdmin  Role = "admin"
)

type Action string

const (
	ActionLeadRead       Action = "lead:read"
	ActionLeadWrite      Action = "lead:write"
	ActionLeadDelete     Action = "lead:delete"
	ActionTaskRead       Action = "task:read"
	ActionTaskWrite      Action = "task:write"
	ActionObjectiveRead  Action = "objective:read"
	ActionObjectiveWrite Action = "objective:write"
	ActionOrgManage      Action = "org:manage"
	ActionReportExport   Action = "report:export"
)

var permissions = map[Role]map[Action]bool{
	RoleViewer: {
		ActionLeadRead:      true,
		ActionTaskRead:      true,
		ActionObjectiveRead: true,
	},
	RoleMember: {
		ActionLeadRead:      true,
		ActionLeadWrite:     true,
		ActionTaskRead:      true,
		ActionTaskWrite:     true,
		ActionObjectiveRead: true,
	},
	RoleLeader: {
		ActionLeadRead:       true,
		ActionLeadWrite:      true,
		ActionLeadDelete:     true,
		ActionTaskRead:       true,
		ActionTaskWrite:      true,
		ActionObjectiveRead:  true,
		ActionObjectiveWrite: true,
		ActionReportExport:   true,
	},
	RoleAdmin: {
		ActionLeadRead:       true,
		ActionLeadWrite:      true,
		ActionLeadDelete:     true,
		ActionTaskRead:       true,
		ActionTaskWrite:      true,
		ActionObjectiveRead:  true,
		ActionObjectiveWrite: true,
		ActionOrgManage:      true,
		ActionReportExport:   true,
	},
}

// Normalize maps an arbitrary role string to a known Role, defaulting
// to viewer for anything unrecognized.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleMember, RoleLeader, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}

func Can(role Role, action Action) bool {
	actions, ok := permissions[role]
	if !ok {
		return false
	}
	return actions[action]
}

// CanMutateTask decides whether acting user may change the content of a
// task. Supervised tasks (leader_id set) belong to the leader alone:
// the assignee cannot edit them, and neither can anyone else. An
// unsupervised task may only be edited by its assignee.
func CanMutateTask(task store.Task, actingUserID string) bool {
	if task.LeaderID != nil {
		return actingUserID == *task.LeaderID
	}
	return actingUserID == task.UserID
}

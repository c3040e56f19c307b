package rbac

import (
	"testing"

	"traction/api/internal/store"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want Role
	}{
		{"admin", RoleAdmin},
		{"leader", RoleLeader},
		{"member", RoleMember},
		{"viewer", RoleViewer},
		{"", RoleViewer},
		{"superuser", RoleViewer},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCan(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleViewer, ActionLeadRead, true},
		{RoleViewer, ActionLeadWrite, false},
		{RoleMember, ActionLeadWrite, true},
		{RoleMember, ActionLeadDelete, false},
		{RoleMember, ActionObjectiveWrite, false},
		{RoleLeader, ActionLeadDelete, true},
		{RoleLeader, ActionObjectiveWrite, true},
		{RoleLeader, ActionOrgManage, false},
		{RoleAdmin, ActionOrgManage, true},
		{RoleAdmin, ActionReportExport, true},
		{Role("bogus"), ActionLeadRead, false},
	}
	for _, tc := range cases {
		if got := Can(tc.role, tc.action); got != tc.want {
			t.Errorf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}

func TestCanMutateTask(t *testing.T) {
	leader := "usr_leader"
	unsupervised := store.Task{ID: "tsk_1", UserID: "usr_assignee"}
	supervised := store.Task{ID: "tsk_2", UserID: "usr_assignee", LeaderID: &leader}

	if !CanMutateTask(unsupervised, "usr_assignee") {
		t.Error("assignee should mutate an unsupervised task")
	}
	if CanMutateTask(unsupervised, "usr_other") {
		t.Error("non-assignee should not mutate an unsupervised task")
	}
	if CanMutateTask(unsupervised, leader) {
		t.Error("leader has no claim on an unsupervised task")
	}

	if !CanMutateTask(supervised, leader) {
		t.Error("leader should mutate a supervised task")
	}
	if CanMutateTask(supervised, "usr_assignee") {
		t.Error("assignee should not mutate a supervised task")
	}
	if CanMutateTask(supervised, "usr_other") {
		t.Error("stranger should not mutate a supervised task")
	}
}

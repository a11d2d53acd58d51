package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_Table(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		role     Role
		want     bool
	}{
		{TaskStatusOpen, TaskStatusInProgress, RoleFacilityManager, true},
		{TaskStatusOpen, TaskStatusClosed, RoleAdmin, false},
		{TaskStatusOpen, TaskStatusOnHold, RoleFacilityManager, false},
		{TaskStatusInProgress, TaskStatusOnHold, RoleFacilityManager, true},
		{TaskStatusInProgress, TaskStatusBlocked, RoleFacilityManager, true},
		{TaskStatusInProgress, TaskStatusClosed, RoleFacilityManager, true},
		{TaskStatusInProgress, TaskStatusOpen, RoleAdmin, false},
		{TaskStatusOnHold, TaskStatusInProgress, RoleFacilityManager, true},
		{TaskStatusOnHold, TaskStatusClosed, RoleFacilityManager, true},
		{TaskStatusOnHold, TaskStatusBlocked, RoleFacilityManager, false},
		{TaskStatusBlocked, TaskStatusInProgress, RoleFacilityManager, true},
		{TaskStatusBlocked, TaskStatusClosed, RoleFacilityManager, true},
		{TaskStatusClosed, TaskStatusOpen, RoleFacilityManager, false},
		{TaskStatusClosed, TaskStatusOpen, RoleAdmin, true},
		{TaskStatusClosed, TaskStatusOpen, RoleSuperAdmin, true},
		{TaskStatusClosed, TaskStatusInProgress, RoleSuperAdmin, false},
	}

	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to, tc.role)
		assert.Equal(t, tc.want, got, "%s -> %s as %s", tc.from, tc.to, tc.role)
	}
}

func TestTask_OtherParty(t *testing.T) {
	task := &Task{CreatorID: 1, OwnerID: 2}

	assert.Equal(t, int64(1), task.OtherParty(2))
	assert.Equal(t, int64(2), task.OtherParty(1))
	assert.Equal(t, int64(2), task.OtherParty(99))

	self := &Task{CreatorID: 5, OwnerID: 5}
	assert.Equal(t, int64(0), self.OtherParty(5))
}

func TestTask_IsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)

	task := &Task{Status: TaskStatusInProgress, DueDate: &due}
	assert.True(t, task.IsOverdue(now))

	task.Status = TaskStatusClosed
	assert.False(t, task.IsOverdue(now))

	assert.False(t, (&Task{Status: TaskStatusOpen}).IsOverdue(now))
}

func TestDefaultTransitionComment(t *testing.T) {
	assert.Equal(t, "Status changed from OPEN to IN_PROGRESS",
		DefaultTransitionComment(TaskStatusOpen, TaskStatusInProgress))
}

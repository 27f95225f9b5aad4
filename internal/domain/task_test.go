package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskTransitions(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		ok       bool
	}{
		{TaskStatusOpen, TaskStatusAssigned, true},
		{TaskStatusOpen, TaskStatusCancelled, true},
		{TaskStatusOpen, TaskStatusCompleted, false},
		{TaskStatusAssigned, TaskStatusCompleted, true},
		{TaskStatusAssigned, TaskStatusCancelled, true},
		{TaskStatusAssigned, TaskStatusOpen, false},
		{TaskStatusCompleted, TaskStatusOpen, false},
		{TaskStatusCompleted, TaskStatusCancelled, false},
		{TaskStatusCancelled, TaskStatusAssigned, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, IsValidTaskTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTaskTransitionsSameStatus(t *testing.T) {
	for _, status := range []TaskStatus{TaskStatusOpen, TaskStatusAssigned, TaskStatusCompleted, TaskStatusCancelled} {
		assert.True(t, IsValidTaskTransition(status, status))
	}
}

func TestDispatchMetaEscalated(t *testing.T) {
	var meta DispatchMeta
	assert.False(t, meta.Escalated())

	now := time.Now()
	meta.EscalatedAt = &now
	assert.True(t, meta.Escalated())
}

func TestTaskAccessProjection(t *testing.T) {
	uid := "u1"
	task := DispatchTask{
		CreatedBy:      "creator",
		AssignedRole:   RoleDialer,
		AssignedUserID: &uid,
	}
	access := task.Access()
	assert.Equal(t, KindDispatch, access.Kind)
	assert.Equal(t, "creator", access.CreatedBy)
	assert.Equal(t, RoleDialer, access.AssignedRole)
	assert.Equal(t, "u1", access.AssignedUserID)

	task.AssignedUserID = nil
	assert.Empty(t, task.Access().AssignedUserID)
}

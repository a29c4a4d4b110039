package service

import (
	"solis/internal/model"
	"solis/internal/permission"
)

func allowed(actor *model.User, c permission.Capability) bool {
	return actor != nil && permission.Allows(actor.Permissions, c)
}

// canSee mirrors the visibility rule the task list query applies.
func canSee(actor *model.User, t *model.Task) bool {
	if allowed(actor, permission.ViewAllTasks) {
		return true
	}
	return t.Department == actor.Department || t.IsAssigned(actor.ID) || t.IsCreator(actor.ID)
}

// Package permission seeds capability sets from roles. The result is stored on
// the profile; authorization always reads the stored copy, never Derive.
package permission

import (
	"strings"

	"solis/internal/model"
)

// Capability names one of the six permission flags.
type Capability string

const (
	CreateTasks       Capability = "canCreateTasks"
	DeleteTasks       Capability = "canDeleteTasks"
	AssignTasks       Capability = "canAssignTasks"
	ViewAllTasks      Capability = "canViewAllTasks"
	ManageUsers       Capability = "canManageUsers"
	ManageAutomations Capability = "canManageAutomations"
)

// Roles lists the defined roles, most senior first.
var Roles = []string{
	model.RoleDirector,
	model.RoleGerente,
	model.RoleSupervisor,
	model.RoleLider,
	model.RoleOperativo,
}

// Departments lists the defined departments in display order.
var Departments = []string{
	model.DepartmentMarketing,
	model.DepartmentOpeners,
	model.DepartmentClosers,
	model.DepartmentAdmin,
	model.DepartmentFinanzas,
	model.DepartmentGeneral,
}

var table = map[string]model.Permissions{
	model.RoleDirector: {
		CanCreateTasks:       true,
		CanDeleteTasks:       true,
		CanAssignTasks:       true,
		CanViewAllTasks:      true,
		CanManageUsers:       true,
		CanManageAutomations: true,
	},
	model.RoleGerente: {
		CanCreateTasks:       true,
		CanDeleteTasks:       true,
		CanAssignTasks:       true,
		CanViewAllTasks:      true,
		CanManageAutomations: true,
	},
	model.RoleSupervisor: {
		CanCreateTasks:  true,
		CanAssignTasks:  true,
		CanViewAllTasks: true,
	},
	model.RoleLider: {
		CanCreateTasks: true,
		CanAssignTasks: true,
	},
	model.RoleOperativo: Default(),
}

// Default is the most restrictive set: create only.
func Default() model.Permissions {
	return model.Permissions{CanCreateTasks: true}
}

// Derive returns the seed permissions for role. Unknown roles get Default.
func Derive(role string) model.Permissions {
	if p, ok := table[strings.ToLower(strings.TrimSpace(role))]; ok {
		return p
	}
	return Default()
}

func ValidRole(role string) bool {
	_, ok := table[role]
	return ok
}

func ValidDepartment(dept string) bool {
	for _, d := range Departments {
		if d == dept {
			return true
		}
	}
	return false
}

// RoleRank orders roles by seniority; unknown roles sort last.
func RoleRank(role string) int {
	for i, r := range Roles {
		if r == role {
			return i
		}
	}
	return len(Roles)
}

// Allows reports whether the stored set p grants c.
func Allows(p model.Permissions, c Capability) bool {
	switch c {
	case CreateTasks:
		return p.CanCreateTasks
	case DeleteTasks:
		return p.CanDeleteTasks
	case AssignTasks:
		return p.CanAssignTasks
	case ViewAllTasks:
		return p.CanViewAllTasks
	case ManageUsers:
		return p.CanManageUsers
	case ManageAutomations:
		return p.CanManageAutomations
	}
	return false
}

package model

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Departments a profile or record can belong to.
const (
	DepartmentMarketing = "marketing"
	DepartmentOpeners   = "openers"
	DepartmentClosers   = "closers"
	DepartmentAdmin     = "admin"
	DepartmentFinanzas  = "finanzas"
	DepartmentGeneral   = "general"
)

// Roles, most senior first.
const (
	RoleDirector   = "director"
	RoleGerente    = "gerente"
	RoleSupervisor = "supervisor"
	RoleLider      = "lider"
	RoleOperativo  = "operativo"
)

// Permissions is the persisted capability set of a profile. It is seeded from
// the role but stored as data; checks always read the stored value.
type Permissions struct {
	CanCreateTasks       bool `json:"canCreateTasks"`
	CanDeleteTasks       bool `json:"canDeleteTasks"`
	CanAssignTasks       bool `json:"canAssignTasks"`
	CanViewAllTasks      bool `json:"canViewAllTasks"`
	CanManageUsers       bool `json:"canManageUsers"`
	CanManageAutomations bool `json:"canManageAutomations"`
}

// User is the profile record. The identity record (credentials or the hosted
// identity user) shares its ID.
type User struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string      `gorm:"uniqueIndex;not null" json:"email"`
	Name        string      `gorm:"not null" json:"name"`
	Avatar      string      `gorm:"size:2" json:"avatar"`
	Department  string      `gorm:"not null;default:general" json:"department"`
	Role        string      `gorm:"not null;default:operativo" json:"role"`
	IsActive    bool        `gorm:"not null;default:true" json:"isActive"`
	Permissions Permissions `gorm:"type:jsonb;serializer:json" json:"permissions"`
	LastSeenAt  *time.Time  `json:"lastSeenAt,omitempty"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Snapshot copies the fields embedded into other records at write time.
func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{ID: u.ID.String(), Name: u.Name, Avatar: u.Avatar}
}

// UserSnapshot is a denormalized copy of a user; it is never refreshed when the
// source profile changes.
type UserSnapshot struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Credential is the local identity record paired with a profile.
type Credential struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email          string    `gorm:"uniqueIndex;not null"`
	HashedPassword string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// Initials builds the two-letter avatar from a display name.
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		out = append(out, unicode.ToUpper(r))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "U"
	}
	return string(out)
}

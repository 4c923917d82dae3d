package models

import (
	"time"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleAgent    Role = "agent"
	RoleCustomer Role = "customer"
	RoleDriver   Role = "driver"
)

// UserStatus is the account status of a user.
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
)

// User represents a user in the system
type User struct {
	ID               string     `bson:"_id" json:"id"`
	Email            string     `bson:"email" json:"email" validate:"required,email"`
	FullName         string     `bson:"full_name" json:"full_name"`
	Roles            []Role     `bson:"roles" json:"roles" validate:"min=1,dive,oneof=admin manager agent customer driver"`
	Status           UserStatus `bson:"status" json:"status" validate:"omitempty,oneof=active suspended"`
	ManagerBranchIDs []string   `bson:"manager_branch_ids,omitempty" json:"manager_branch_ids,omitempty"`
	AgentBranchIDs   []string   `bson:"agent_branch_ids,omitempty" json:"agent_branch_ids,omitempty"`
	CreatedAt        time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at" json:"updated_at"`
}

// Actor is the authenticated caller of an operation.
// BranchIDs carries the manager profile or agent assignment, whichever applies.
type Actor struct {
	ID        string     `json:"id"`
	Roles     []Role     `json:"roles"`
	Status    UserStatus `json:"status"`
	BranchIDs []string   `json:"branch_ids,omitempty"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleAgent, RoleCustomer, RoleDriver:
		return true
	default:
		return false
	}
}

// HasRole reports whether the actor holds any of the given roles.
func (a *Actor) HasRole(roles ...Role) bool {
	if a == nil {
		return false
	}
	for _, have := range a.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// IsStaff reports whether the actor is an agent, manager or admin.
func (a *Actor) IsStaff() bool {
	return a.HasRole(RoleAgent, RoleManager, RoleAdmin)
}

// IsAdmin reports whether the actor is an admin.
func (a *Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// ActorFor builds the actor of a stored user. Manager branches win over agent ones.
func ActorFor(u *User) *Actor {
	a := &Actor{ID: u.ID, Roles: u.Roles, Status: u.Status}
	switch {
	case u.hasRole(RoleManager):
		a.BranchIDs = u.ManagerBranchIDs
	case u.hasRole(RoleAgent):
		a.BranchIDs = u.AgentBranchIDs
	}
	return a
}

func (u *User) hasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

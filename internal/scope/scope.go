// Package scope resolves what an actor may read or mutate.
package scope

import (
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
)

// Scope is resolved once per request and passed into every query.
// Exactly one of All, BranchIDs or UserID is in effect.
type Scope struct {
	All       bool
	BranchIDs []string
	UserID    string
	Staff     bool
}

// Unrestricted is the admin scope.
func Unrestricted() Scope {
	return Scope{All: true, Staff: true}
}

// Branches restricts to branches.
func Branches(ids ...string) Scope {
	return Scope{BranchIDs: ids, Staff: true}
}

// Self restricts to the rows of one user.
func Self(userID string) Scope {
	return Scope{UserID: userID}
}

// Resolve maps an actor to its scope. The most privileged role wins.
func Resolve(a *models.Actor) (Scope, error) {
	if a == nil || a.ID == "" {
		return Scope{}, errs.AuthRequired()
	}
	if a.Status == models.UserSuspended {
		return Scope{}, errs.Forbidden("account is suspended")
	}
	switch {
	case a.HasRole(models.RoleAdmin):
		return Unrestricted(), nil
	case a.HasRole(models.RoleManager):
		if len(a.BranchIDs) == 0 {
			return Scope{}, errs.Forbidden("manager profile has no branches")
		}
		return Branches(a.BranchIDs...), nil
	case a.HasRole(models.RoleAgent):
		if len(a.BranchIDs) == 0 {
			return Scope{}, errs.Forbidden("agent has no branch assignment")
		}
		return Branches(a.BranchIDs...), nil
	case a.HasRole(models.RoleCustomer, models.RoleDriver):
		return Self(a.ID), nil
	}
	return Scope{}, errs.Forbidden("no role grants access")
}

// AllowsBranch reports whether branch id is visible. Self scopes see no branch aggregates.
func (s Scope) AllowsBranch(id string) bool {
	if s.All {
		return true
	}
	for _, b := range s.BranchIDs {
		if b == id {
			return true
		}
	}
	return false
}

// AllowsReservation reports whether r is visible.
func (s Scope) AllowsReservation(r *models.Reservation) bool {
	switch {
	case s.All:
		return true
	case s.UserID != "":
		return r.UserID == s.UserID
	default:
		return s.AllowsBranch(r.Pickup.BranchID)
	}
}

// BranchFilter intersects requested branches with the scope. A requested branch out of
// scope is FORBIDDEN. The result is nil when nothing restricts branches.
func (s Scope) BranchFilter(requested []string) ([]string, error) {
	if s.UserID != "" && !s.All {
		return nil, errs.Forbidden("branch data requires a staff role")
	}
	for _, b := range requested {
		if !s.AllowsBranch(b) {
			return nil, errs.Forbidden("branch %s is outside your scope", b)
		}
	}
	if len(requested) > 0 {
		return requested, nil
	}
	if s.All {
		return nil, nil
	}
	return append([]string(nil), s.BranchIDs...), nil
}

// Reservations narrows f to the scope. Customers always get their own rows, whatever
// user they asked for.
func (s Scope) Reservations(f models.ReservationFilter) (models.ReservationFilter, error) {
	if s.All {
		return f, nil
	}
	if s.UserID != "" {
		f.UserID = s.UserID
		return f, nil
	}
	branches, err := s.BranchFilter(f.BranchIDs)
	if err != nil {
		return f, err
	}
	f.BranchIDs = branches
	return f, nil
}

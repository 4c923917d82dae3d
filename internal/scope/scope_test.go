package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		actor   *models.Actor
		want    Scope
		errKind errs.Kind
	}{
		{"no actor", nil, Scope{}, errs.KindAuthRequired},
		{"admin", &models.Actor{ID: "a", Roles: []models.Role{models.RoleAdmin}}, Unrestricted(), ""},
		{"manager", &models.Actor{ID: "m", Roles: []models.Role{models.RoleManager}, BranchIDs: []string{"B1"}}, Branches("B1"), ""},
		{"manager without branches", &models.Actor{ID: "m", Roles: []models.Role{models.RoleManager}}, Scope{}, errs.KindForbidden},
		{"agent", &models.Actor{ID: "g", Roles: []models.Role{models.RoleAgent}, BranchIDs: []string{"B2", "B3"}}, Branches("B2", "B3"), ""},
		{"agent without assignment", &models.Actor{ID: "g", Roles: []models.Role{models.RoleAgent}}, Scope{}, errs.KindForbidden},
		{"customer", &models.Actor{ID: "c", Roles: []models.Role{models.RoleCustomer}}, Self("c"), ""},
		{"driver", &models.Actor{ID: "d", Roles: []models.Role{models.RoleDriver}}, Self("d"), ""},
		{"admin wins over customer", &models.Actor{ID: "x", Roles: []models.Role{models.RoleCustomer, models.RoleAdmin}}, Unrestricted(), ""},
		{"suspended", &models.Actor{ID: "s", Roles: []models.Role{models.RoleAdmin}, Status: models.UserSuspended}, Scope{}, errs.KindForbidden},
		{"no roles", &models.Actor{ID: "n"}, Scope{}, errs.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.actor)
			if tt.errKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errKind, errs.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScope_Reservations(t *testing.T) {
	t.Run("customer filter is forced to self", func(t *testing.T) {
		f, err := Self("c1").Reservations(models.ReservationFilter{UserID: "someone-else"})
		require.NoError(t, err)
		assert.Equal(t, "c1", f.UserID)
	})

	t.Run("manager gets branch restriction", func(t *testing.T) {
		f, err := Branches("B1").Reservations(models.ReservationFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"B1"}, f.BranchIDs)
	})

	t.Run("manager asking for another branch", func(t *testing.T) {
		_, err := Branches("B1").Reservations(models.ReservationFilter{BranchIDs: []string{"B2"}})
		assert.Equal(t, errs.KindForbidden, errs.KindOf(err))
	})

	t.Run("admin filter untouched", func(t *testing.T) {
		in := models.ReservationFilter{BranchIDs: []string{"B9"}, UserID: "u"}
		f, err := Unrestricted().Reservations(in)
		require.NoError(t, err)
		assert.Equal(t, in, f)
	})
}

func TestScope_AllowsReservation(t *testing.T) {
	r := &models.Reservation{UserID: "c1", Pickup: models.Endpoint{BranchID: "B1"}}

	assert.True(t, Unrestricted().AllowsReservation(r))
	assert.True(t, Branches("B1").AllowsReservation(r))
	assert.False(t, Branches("B2").AllowsReservation(r))
	assert.True(t, Self("c1").AllowsReservation(r))
	assert.False(t, Self("c2").AllowsReservation(r))
}

func TestScope_BranchFilter(t *testing.T) {
	got, err := Unrestricted().BranchFilter(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = Branches("B1", "B2").BranchFilter([]string{"B2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B2"}, got)

	_, err = Self("c").BranchFilter(nil)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))
}

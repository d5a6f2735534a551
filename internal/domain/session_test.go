package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole("MEMBER")
	require.NoError(t, err)
	assert.Equal(t, RoleMember, r)

	r, err = ParseRole("COUNCIL")
	require.NoError(t, err)
	assert.Equal(t, RoleCouncil, r)

	for _, bad := range []string{"", "member", "ADMIN"} {
		_, err := ParseRole(bad)
		assert.Error(t, err, bad)
	}
}

func TestMergeIdentity(t *testing.T) {
	claims := Claims{Subject: "u1", Email: "token@ong.org", Role: RoleCouncil}

	t.Run("profile of the same subject fills names", func(t *testing.T) {
		cached := &Profile{ID: "u1", Email: "stale@ong.org", Role: RoleMember, Nombre: "Ana", Apellido: "Paz", Ong: "Techo"}

		id := MergeIdentity(claims, cached)

		assert.Equal(t, Identity{ID: "u1", Email: "token@ong.org", Role: RoleCouncil, Nombre: "Ana", Apellido: "Paz", Ong: "Techo"}, id)
	})

	t.Run("profile of another subject is ignored", func(t *testing.T) {
		id := MergeIdentity(claims, &Profile{ID: "u2", Nombre: "Otro"})

		assert.Equal(t, Identity{ID: "u1", Email: "token@ong.org", Role: RoleCouncil}, id)
	})

	t.Run("no profile", func(t *testing.T) {
		id := MergeIdentity(claims, nil)

		assert.Empty(t, id.Nombre)
		assert.Equal(t, "u1", id.ID)
	})
}

func TestIdentity_DisplayName(t *testing.T) {
	assert.Equal(t, "Ana Paz", Identity{Email: "a@b.c", Nombre: "Ana", Apellido: "Paz"}.DisplayName())
	assert.Equal(t, "Ana", Identity{Email: "a@b.c", Nombre: "Ana"}.DisplayName())
	assert.Equal(t, "a@b.c", Identity{Email: "a@b.c"}.DisplayName())
}

func TestIdentity_ProfileRoundTrip(t *testing.T) {
	id := Identity{ID: "u1", Email: "a@b.c", Role: RoleMember, Nombre: "Ana", Apellido: "Paz", Ong: "Techo"}

	p := id.Profile()

	assert.Equal(t, id, MergeIdentity(Claims{Subject: "u1", Email: "a@b.c", Role: RoleMember}, &p))
}

func TestObservacion_Deadline(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	o := Observacion{Estado: ObservationOpen, FechaLimite: now.Add(48 * time.Hour)}

	assert.Equal(t, 48*time.Hour, o.Remaining(now))
	assert.False(t, o.Overdue(now))
	assert.True(t, o.Overdue(now.Add(49*time.Hour)))

	o.Estado = ObservationClosed
	assert.False(t, o.Overdue(now.Add(49*time.Hour)), "resolved observations are never overdue")
}

func TestDashboardMetrics_CoverageRatio(t *testing.T) {
	assert.Zero(t, DashboardMetrics{}.CoverageRatio())
	assert.InDelta(t, 0.25, DashboardMetrics{PedidosTotales: 8, PedidosCubiertos: 2}.CoverageRatio(), 1e-9)
}

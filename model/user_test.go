package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleOrder(t *testing.T) {
	require.True(t, RoleAdmin.AtLeast(RoleLibrarian))
	require.True(t, RoleAdmin.AtLeast(RolePatron))
	require.True(t, RoleLibrarian.AtLeast(RolePatron))
	require.True(t, RolePatron.AtLeast(RolePatron))

	require.False(t, RolePatron.AtLeast(RoleLibrarian))
	require.False(t, RoleLibrarian.AtLeast(RoleAdmin))
}

func TestRoleValid(t *testing.T) {
	require.True(t, RoleAdmin.Valid())
	require.True(t, RoleLibrarian.Valid())
	require.True(t, RolePatron.Valid())
	require.False(t, Role("").Valid())
	require.False(t, Role("SUPERUSER").Valid())

	// unknown roles never outrank known ones
	require.False(t, Role("SUPERUSER").AtLeast(RolePatron))
}

package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleLevelsAscend(t *testing.T) {
	want := map[Role]int{
		RoleBuyer:           1,
		RoleRider:           2,
		RoleSeller:          3,
		RoleAgent:           4,
		RoleCustomerService: 5,
		RoleAdmin:           6,
		RoleSuperAdmin:      7,
	}
	for role, level := range want {
		assert.Equal(t, level, role.Level(), role)
	}
	assert.Equal(t, 0, Role("guest").Level())
	assert.False(t, Role("guest").IsValid())
}

func TestCompareRoles(t *testing.T) {
	assert.Equal(t, -1, CompareRoles(RoleRider, RoleSeller))
	assert.Equal(t, 0, CompareRoles(RoleAdmin, RoleAdmin))
	assert.Equal(t, 1, CompareRoles(RoleSuperAdmin, RoleAdmin))
	assert.True(t, RoleCustomerService.IsStaff())
	assert.False(t, RoleAgent.IsStaff())
	assert.True(t, RoleSuperAdmin.IsAdmin())
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("customer_service")
	require.NoError(t, err)
	assert.Equal(t, RoleCustomerService, role)

	_, err = ParseRole("owner")
	require.Error(t, err)
}

func TestEscrowStatusOnlyAdvances(t *testing.T) {
	assert.True(t, EscrowNotStarted.CanAdvanceTo(EscrowHeld))
	assert.False(t, EscrowNotStarted.CanAdvanceTo(EscrowReleasedToSellers))
	assert.True(t, EscrowHeld.CanAdvanceTo(EscrowReleasedToSellers))
	assert.True(t, EscrowHeld.CanAdvanceTo(EscrowRefundedToBuyer))
	assert.False(t, EscrowHeld.CanAdvanceTo(EscrowNotStarted))
	for _, terminal := range []EscrowStatus{EscrowReleasedToSellers, EscrowRefundedToBuyer} {
		for _, next := range validEscrowStatuses {
			assert.False(t, terminal.CanAdvanceTo(next), "%s -> %s", terminal, next)
		}
	}
}

func TestOrderStatusParsing(t *testing.T) {
	for _, status := range OrderStatuses() {
		parsed, err := ParseOrderStatus(status.String())
		require.NoError(t, err)
		assert.Equal(t, status, parsed)
	}
	_, err := ParseOrderStatus("completed")
	require.Error(t, err)
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusDelivered.IsTerminal())
}

func TestParseOutboxDLQErrorReason(t *testing.T) {
	for _, reason := range OutboxDLQErrorReasons() {
		parsed, err := ParseOutboxDLQErrorReason(reason.String())
		require.NoError(t, err)
		assert.Equal(t, reason, parsed)
	}
	_, err := ParseOutboxDLQErrorReason("timeout")
	assert.Error(t, err)
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationStatusJSON(t *testing.T) {
	data, err := json.Marshal(StatusAdminApproved)
	require.NoError(t, err)
	assert.Equal(t, `"ADMIN_APPROVED"`, string(data))

	var s ApplicationStatus
	require.NoError(t, json.Unmarshal([]byte(`"sag_verified"`), &s))
	assert.Equal(t, StatusSagVerified, s)
	require.NoError(t, json.Unmarshal([]byte(`3`), &s))
	assert.Equal(t, StatusDisbursed, s)
	assert.Error(t, json.Unmarshal([]byte(`"REJECTED"`), &s))
}

func TestApplicationStatusNext(t *testing.T) {
	next, ok := StatusApplied.Next()
	assert.True(t, ok)
	assert.Equal(t, StatusSagVerified, next)
	_, ok = StatusDisbursed.Next()
	assert.False(t, ok)
	assert.True(t, StatusApplied.Less(StatusDisbursed))
}

func TestSplitReferences(t *testing.T) {
	app := Application{DocumentsReference: "QmA, QmB,,QmC"}
	assert.Equal(t, []string{"QmA", "QmB", "QmC"}, app.DocumentReferences())
	assert.Empty(t, SplitReferences(""))
}

func TestCapabilityAllows(t *testing.T) {
	assert.True(t, Capability{Role: RoleAdmin, IsActive: true}.Allows(RoleAdmin))
	assert.False(t, Capability{Role: RoleAdmin}.Allows(RoleAdmin))
	assert.True(t, Capability{IsOwner: true}.Allows(RoleFinanceBureau))
	assert.Equal(t, RoleNone, Capability{Role: RoleAdmin}.EffectiveRole())
	assert.True(t, Capability{Role: RoleSagBureau, IsActive: true}.AllowsAny(RoleAdmin, RoleSagBureau))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("finance_bureau")
	require.NoError(t, err)
	assert.Equal(t, RoleFinanceBureau, r)
	_, err = ParseRole("NONE")
	assert.Error(t, err)
}

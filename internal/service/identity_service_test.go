package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/models"
	"github.com/noah-isme/scholarship-api/internal/repository"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
)

const ownerAddr = "0x7777777777777777777777777777777777777777"

type memoryIdentities struct {
	mu         sync.Mutex
	identities map[string]models.Identity
	owner      string
}

func (m *memoryIdentities) Get(ctx context.Context, address string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.identities[address]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &identity, nil
}

func (m *memoryIdentities) List(ctx context.Context) ([]models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Identity, 0, len(m.identities))
	for _, identity := range m.identities {
		out = append(out, identity)
	}
	return out, nil
}

func (m *memoryIdentities) Upsert(ctx context.Context, address string, role models.Role, assignedBy string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity := models.Identity{Address: address, Role: role, IsActive: true, AssignedBy: &assignedBy, UpdatedAt: time.Now()}
	m.identities[address] = identity
	return &identity, nil
}

func (m *memoryIdentities) RegisterStudent(ctx context.Context, address string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.identities[address]; ok && existing.IsActive && existing.Role != models.RoleStudent {
		return nil, repository.ErrConflictingRole
	}
	identity := models.Identity{Address: address, Role: models.RoleStudent, IsActive: true}
	m.identities[address] = identity
	return &identity, nil
}

func (m *memoryIdentities) Deactivate(ctx context.Context, address, by string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.identities[address]
	if !ok || !identity.IsActive {
		return nil, sql.ErrNoRows
	}
	identity.IsActive = false
	m.identities[address] = identity
	return &identity, nil
}

func (m *memoryIdentities) Owner(ctx context.Context) (*models.Ownership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner == "" {
		return nil, sql.ErrNoRows
	}
	return &models.Ownership{OwnerAddress: m.owner}, nil
}

func (m *memoryIdentities) SeedOwner(ctx context.Context, address string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != "" {
		return false, nil
	}
	m.owner = address
	return true, nil
}

func (m *memoryIdentities) TransferOwnership(ctx context.Context, current, next string) (*models.Ownership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != current {
		return nil, sql.ErrNoRows
	}
	m.owner = next
	return &models.Ownership{OwnerAddress: next}, nil
}

type invalidationRecorder struct {
	mu        sync.Mutex
	addresses []string
}

func (r *invalidationRecorder) Invalidate(ctx context.Context, addresses ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addresses = append(r.addresses, addresses...)
}

type identityFixture struct {
	svc         *IdentityService
	store       *memoryIdentities
	invalidated *invalidationRecorder
	events      *eventRecorder
}

func newIdentityFixture(t *testing.T) *identityFixture {
	t.Helper()
	store := &memoryIdentities{identities: map[string]models.Identity{}, owner: ownerAddr}
	caps := staticCapabilities{
		ownerAddr: {Address: ownerAddr, Role: models.RoleNone, IsOwner: true},
		adminA:    capabilityOf(adminA, models.RoleAdmin),
		sagA:      capabilityOf(sagA, models.RoleSagBureau),
		studentX:  {Address: studentX, Role: models.RoleNone},
	}
	invalidated := &invalidationRecorder{}
	events := &eventRecorder{}
	runner := newTestRunner(t, newOperationStoreStub(), OperationRunnerConfig{Workers: 1, ConfirmTimeout: time.Second})
	svc := NewIdentityService(store, NewGate(caps, nil), runner, invalidated, events, &auditRecorder{}, nil, nil)
	return &identityFixture{svc: svc, store: store, invalidated: invalidated, events: events}
}

func TestIdentityRegisterStudent(t *testing.T) {
	f := newIdentityFixture(t)

	identity, _, err := f.svc.RegisterStudent(context.Background(), studentX)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, identity.Role)
	assert.Equal(t, []string{studentX}, f.invalidated.addresses)
	assert.Equal(t, []models.EventType{models.EventRoleChanged}, f.events.types())

	// idempotent for an existing student
	_, _, err = f.svc.RegisterStudent(context.Background(), studentX)
	require.NoError(t, err)

	_, _, err = f.svc.RegisterStudent(context.Background(), ownerAddr)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestIdentityRegisterStudentRejectsOtherActiveRole(t *testing.T) {
	f := newIdentityFixture(t)
	_, err := f.store.Upsert(context.Background(), sagA, models.RoleSagBureau, ownerAddr)
	require.NoError(t, err)

	_, _, err = f.svc.RegisterStudent(context.Background(), sagA)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestIdentityAssignAndRevoke(t *testing.T) {
	f := newIdentityFixture(t)
	target := strings.ToLower("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")

	identity, _, err := f.svc.AssignRole(context.Background(), ownerAddr, target, dto.AssignRoleRequest{Role: "FINANCE_BUREAU"})
	require.NoError(t, err)
	assert.Equal(t, "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", identity.Address)
	assert.Equal(t, models.RoleFinanceBureau, identity.Role)

	role, err := f.svc.GetUserRole(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, "FINANCE_BUREAU", role.Role)
	assert.True(t, role.IsActive)

	revoked, _, err := f.svc.RevokeRole(context.Background(), adminA, target)
	require.NoError(t, err)
	assert.False(t, revoked.IsActive)

	_, _, err = f.svc.RevokeRole(context.Background(), adminA, target)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, _, err = f.svc.AssignRole(context.Background(), sagA, target, dto.AssignRoleRequest{Role: "ADMIN"})
	assert.ErrorIs(t, err, appErrors.ErrRoleRequired)

	_, _, err = f.svc.AssignRole(context.Background(), adminA, target, dto.AssignRoleRequest{Role: "NONE"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestIdentityGetUserRoleUnknown(t *testing.T) {
	f := newIdentityFixture(t)
	role, err := f.svc.GetUserRole(context.Background(), "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	require.NoError(t, err)
	assert.Equal(t, "NONE", role.Role)
	assert.False(t, role.IsActive)

	_, err = f.svc.GetUserRole(context.Background(), "nope")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestIdentityTransferOwnership(t *testing.T) {
	f := newIdentityFixture(t)
	next := "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"

	_, _, err := f.svc.TransferOwnership(context.Background(), adminA, dto.TransferOwnershipRequest{NewOwner: next})
	assert.ErrorIs(t, err, appErrors.ErrRoleRequired)

	owner, _, err := f.svc.TransferOwnership(context.Background(), ownerAddr, dto.TransferOwnershipRequest{NewOwner: next})
	require.NoError(t, err)
	assert.Equal(t, next, owner.OwnerAddress)
	assert.ElementsMatch(t, []string{ownerAddr, next}, f.invalidated.addresses)

	current, err := f.svc.Owner(context.Background())
	require.NoError(t, err)
	assert.Equal(t, next, current.OwnerAddress)
}

func TestIdentitySeedOwnerOnlyOnce(t *testing.T) {
	f := newIdentityFixture(t)
	f.store.owner = ""
	require.NoError(t, f.svc.SeedOwner(context.Background(), "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"))
	require.NoError(t, f.svc.SeedOwner(context.Background(), ownerAddr))
	assert.Equal(t, "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", f.store.owner)
}

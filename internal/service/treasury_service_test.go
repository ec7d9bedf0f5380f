package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
)

type poolStoreStub struct {
	balance int64
	entries []models.LedgerEntry
	err     error
}

func (p *poolStoreStub) Balance(ctx context.Context) (*models.PoolBalance, error) {
	return &models.PoolBalance{Balance: p.balance}, p.err
}

func (p *poolStoreStub) Deposit(ctx context.Context, actor string, amount int64) (*models.LedgerEntry, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.balance += amount
	entry := models.LedgerEntry{ID: int64(len(p.entries) + 1), Kind: models.LedgerDeposit, Amount: amount, ActorAddress: actor, BalanceAfter: p.balance}
	p.entries = append(p.entries, entry)
	return &entry, nil
}

func (p *poolStoreStub) Ledger(ctx context.Context, limit int) ([]models.LedgerEntry, error) {
	return p.entries, p.err
}

func newTreasuryFixture(t *testing.T, pool *poolStoreStub) (*TreasuryService, *eventRecorder, *auditRecorder) {
	t.Helper()
	caps := staticCapabilities{
		ownerAddr: {Address: ownerAddr, IsOwner: true},
		financeA:  capabilityOf(financeA, models.RoleFinanceBureau),
		studentX:  capabilityOf(studentX, models.RoleStudent),
	}
	events := &eventRecorder{}
	audit := &auditRecorder{}
	runner := newTestRunner(t, newOperationStoreStub(), OperationRunnerConfig{Workers: 1, ConfirmTimeout: time.Second})
	return NewTreasuryService(pool, NewGate(caps, nil), runner, events, newMemoryCache(), audit, nil, nil), events, audit
}

func TestTreasuryDeposit(t *testing.T) {
	pool := &poolStoreStub{}
	svc, events, audit := newTreasuryFixture(t, pool)

	entry, op, err := svc.Deposit(context.Background(), ownerAddr, dto.DepositRequest{Amount: 75000})
	require.NoError(t, err)
	assert.Equal(t, models.OperationConfirmed, op.Status)
	assert.Equal(t, int64(75000), entry.BalanceAfter)
	assert.Equal(t, []models.EventType{models.EventPoolDeposited}, events.types())
	assert.Equal(t, []string{models.AuditActionPoolDeposit}, audit.actions())

	balance, err := svc.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(75000), balance.Balance)
}

func TestTreasuryDepositRejections(t *testing.T) {
	pool := &poolStoreStub{}
	svc, _, _ := newTreasuryFixture(t, pool)

	_, _, err := svc.Deposit(context.Background(), studentX, dto.DepositRequest{Amount: 10})
	assert.ErrorIs(t, err, appErrors.ErrRoleRequired)

	_, _, err = svc.Deposit(context.Background(), financeA, dto.DepositRequest{Amount: 0})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Zero(t, pool.balance)

	pool.err = errors.New("db down")
	_, _, err = svc.Deposit(context.Background(), financeA, dto.DepositRequest{Amount: 10})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestTreasuryLedgerRequiresBureau(t *testing.T) {
	svc, _, _ := newTreasuryFixture(t, &poolStoreStub{})
	_, err := svc.Ledger(context.Background(), studentX, 10)
	assert.ErrorIs(t, err, appErrors.ErrRoleRequired)

	entries, err := svc.Ledger(context.Background(), financeA, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

package models

import "time"

// LedgerKind distinguishes pool movements.
type LedgerKind string

const (
	LedgerDeposit LedgerKind = "DEPOSIT"
	LedgerPayout  LedgerKind = "PAYOUT"
)

// LedgerEntry is one movement of pooled funds.
type LedgerEntry struct {
	ID                  int64      `db:"id" json:"id"`
	Kind                LedgerKind `db:"kind" json:"kind"`
	Amount              int64      `db:"amount" json:"amount"`
	ActorAddress        string     `db:"actor_address" json:"actor"`
	CounterpartyAddress *string    `db:"counterparty_address" json:"counterparty,omitempty"`
	ApplicationID       *int64     `db:"application_id" json:"applicationId,omitempty"`
	BalanceAfter        int64      `db:"balance_after" json:"balanceAfter"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
}

// PoolBalance is the current pooled funds.
type PoolBalance struct {
	Balance   int64     `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Disbursement is the result of a payout.
type Disbursement struct {
	Application *Application `json:"application"`
	Entry       *LedgerEntry `json:"ledgerEntry"`
}

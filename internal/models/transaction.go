package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxDeposit          TransactionType = "DEPOSIT"
	TxWithdrawal       TransactionType = "WITHDRAWAL"
	TxIncomingTransfer TransactionType = "INCOMING_TRANSFER"
	TxOutgoingTransfer TransactionType = "OUTGOING_TRANSFER"
)

type TransactionStatus string

const (
	TxConfirmed TransactionStatus = "CONFIRMED"
	TxCancelled TransactionStatus = "CANCELLED"
	TxDenied    TransactionStatus = "DENIED"
)

// Transaction is an append-only ledger row. Corrections are new rows.
type Transaction struct {
	ID               string            `json:"id" db:"id"`
	Type             TransactionType   `json:"type" db:"type"`
	AccountID        string            `json:"account_id" db:"account_id"`
	CounterAccountID *string           `json:"counter_account_id,omitempty" db:"counter_account_id"`
	VendorReference  *string           `json:"vendor_reference,omitempty" db:"vendor_reference"`
	Amount           decimal.Decimal   `json:"amount" db:"amount"`
	PreviousBalance  decimal.Decimal   `json:"previous_balance" db:"previous_balance"`
	NewBalance       decimal.Decimal   `json:"new_balance" db:"new_balance"`
	Fee              decimal.Decimal   `json:"fee" db:"fee"`
	Status           TransactionStatus `json:"status" db:"status"`
	Date             time.Time         `json:"date" db:"date"`
}

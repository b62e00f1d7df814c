package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountActive   AccountStatus = "ACTIVE"
	AccountInactive AccountStatus = "INACTIVE"
	AccountFrozen   AccountStatus = "FROZEN"
	AccountClosed   AccountStatus = "CLOSED"
)

type AccountType string

const (
	AccountChecking AccountType = "CHECKING"
	AccountSavings  AccountType = "SAVINGS"
	AccountLoan     AccountType = "LOAN"
)

// Account is a customer deposit or loan account. Balance is only changed by the
// ledger and always together with a Transaction row.
type Account struct {
	ID                   string          `json:"id" db:"id"`
	Type                 AccountType     `json:"type" db:"type"`
	ProductType          string          `json:"product_type" db:"product_type"`
	Number               string          `json:"number" db:"number"` // immutable once issued
	Status               AccountStatus   `json:"status" db:"status"`
	Balance              decimal.Decimal `json:"balance" db:"balance"`
	DateOpened           time.Time       `json:"date_opened" db:"date_opened"`
	DateClosed           *time.Time      `json:"date_closed,omitempty" db:"date_closed"`
	BeneficiaryAccountID *string         `json:"beneficiary_account_id,omitempty" db:"beneficiary_account_id"`
	Version              int             `json:"version" db:"version"` // for optimistic locking
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

func (a *Account) IsActive() bool {
	return a.Status == AccountActive
}

type OwnerRole string

const (
	OwnerPrimary     OwnerRole = "PRIMARY"
	OwnerSecondary   OwnerRole = "SECONDARY"
	OwnerBeneficiary OwnerRole = "BENEFICIARY"
)

// AccountOwner is the join between users and accounts.
type AccountOwner struct {
	UserID    string    `json:"user_id" db:"user_id"`
	AccountID string    `json:"account_id" db:"account_id"`
	Role      OwnerRole `json:"role" db:"role"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanSubmitted    LoanStatus = "SUBMITTED"
	LoanUnderReview  LoanStatus = "UNDER_REVIEW"
	LoanPreApproved  LoanStatus = "PRE_APPROVED"
	LoanApproved     LoanStatus = "APPROVED"
	LoanDisbursed    LoanStatus = "DISBURSED"
	LoanActive       LoanStatus = "ACTIVE"
	LoanDelinquent   LoanStatus = "DELINQUENT"
	LoanPaid         LoanStatus = "PAID"
	LoanDefaulted    LoanStatus = "DEFAULTED"
	LoanRestructured LoanStatus = "RESTRUCTURED"
	LoanRejected     LoanStatus = "REJECTED"
	LoanCancelled    LoanStatus = "CANCELLED"
)

// IsTerminal reports whether no transition may leave the status.
func (s LoanStatus) IsTerminal() bool {
	switch s {
	case LoanPaid, LoanDefaulted, LoanRejected, LoanCancelled:
		return true
	}
	return false
}

// LoanType is a catalog entry.
type LoanType struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	BaseInterestRate    decimal.Decimal `json:"base_interest_rate"` // annual, 0.12 = 12%
	SuggestedTermMonths int             `json:"suggested_term_months"`
}

// Loan is created on application and archived (never deleted) on a terminal status.
type Loan struct {
	ID                     string          `json:"id" db:"id"`
	Number                 string          `json:"number" db:"number"`
	AccountID              string          `json:"account_id" db:"account_id"`
	UserID                 string          `json:"user_id" db:"user_id"`
	LoanTypeID             string          `json:"loan_type_id" db:"loan_type_id"`
	LoanAmount             decimal.Decimal `json:"loan_amount" db:"loan_amount"`
	InterestRate           decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	InterestRatePerPayment decimal.Decimal `json:"interest_rate_per_payment" db:"interest_rate_per_payment"`
	InterestAmount         decimal.Decimal `json:"interest_amount" db:"interest_amount"`
	TermMonths             int             `json:"term_months" db:"term_months"`
	PaymentFrequency       int             `json:"payment_frequency" db:"payment_frequency"` // payments per year
	NumberOfPayments       int             `json:"number_of_payments" db:"number_of_payments"`
	PaymentsMade           int             `json:"payments_made" db:"payments_made"`
	PaymentAmount          decimal.Decimal `json:"payment_amount" db:"payment_amount"`
	RemainingLoanBalance   decimal.Decimal `json:"remaining_loan_balance" db:"remaining_loan_balance"`
	Status                 LoanStatus      `json:"status" db:"status"`
	ApplicationDate        time.Time       `json:"application_date" db:"application_date"`
	StartDate              *time.Time      `json:"start_date,omitempty" db:"start_date"`
	DueDate                *time.Time      `json:"due_date,omitempty" db:"due_date"`
	UpdatedAt              time.Time       `json:"updated_at" db:"updated_at"`
	EndDate                *time.Time      `json:"end_date,omitempty" db:"end_date"`
	LateFeeAssessedFor     *time.Time      `json:"late_fee_assessed_for,omitempty" db:"late_fee_assessed_for"`
	Purpose                string          `json:"purpose" db:"purpose"`
	Remarks                string          `json:"remarks" db:"remarks"`
	Version                int             `json:"version" db:"version"`
}

// LoanTransaction records one payment or late-fee assessment. Immutable.
type LoanTransaction struct {
	ID               string          `json:"id" db:"id"`
	LoanID           string          `json:"loan_id" db:"loan_id"`
	AmountPaid       decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	RemainingBalance decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	InterestPortion  decimal.Decimal `json:"interest_portion" db:"interest_portion"`
	PrincipalPortion decimal.Decimal `json:"principal_portion" db:"principal_portion"`
	LateFee          decimal.Decimal `json:"late_fee" db:"late_fee"`
	DueDate          time.Time       `json:"due_date" db:"due_date"`
	TransactionDate  time.Time       `json:"transaction_date" db:"transaction_date"`
	Notes            string          `json:"notes" db:"notes"`
}

// PortfolioSummary is the admin dashboard roll-up.
type PortfolioSummary struct {
	AccountCount       int                `json:"account_count"`
	TotalDeposits      decimal.Decimal    `json:"total_deposits"`
	LoansByStatus      map[LoanStatus]int `json:"loans_by_status"`
	OutstandingBalance decimal.Decimal    `json:"outstanding_balance"`
	DelinquentBalance  decimal.Decimal    `json:"delinquent_balance"`
	GeneratedAt        time.Time          `json:"generated_at"`
}

package lending

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ruralpay/backoffice/internal/models"
	"github.com/ruralpay/backoffice/internal/money"
)

// DefaultValidFrequencies are annual, semi-annual, quarterly and monthly payments.
var DefaultValidFrequencies = []int{1, 2, 4, 12}

var ErrInvalidLoanApplication = errors.New("invalid loan application")

// ValidationError names the first field of an application that failed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidLoanApplication, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidLoanApplication
}

// ValidateLoanApplication checks a draft in one pass and returns the first violation.
func ValidateLoanApplication(loan *models.Loan, minimumAmount decimal.Decimal, minimumTermMonths int, validFrequencies []int) error {
	if loan == nil {
		return &ValidationError{Field: "loan", Reason: "is required"}
	}
	if loan.LoanAmount.LessThan(minimumAmount) {
		return &ValidationError{Field: "loan_amount", Reason: fmt.Sprintf("must be at least %s", minimumAmount)}
	}
	if !money.IsCurrency(loan.LoanAmount) {
		return &ValidationError{Field: "loan_amount", Reason: "must be a whole number of cents"}
	}
	if loan.TermMonths < minimumTermMonths {
		return &ValidationError{Field: "term_months", Reason: fmt.Sprintf("must be at least %d", minimumTermMonths)}
	}
	if strings.TrimSpace(loan.Purpose) == "" {
		return &ValidationError{Field: "purpose", Reason: "is required"}
	}
	if strings.TrimSpace(loan.LoanTypeID) == "" {
		return &ValidationError{Field: "loan_type_id", Reason: "is required"}
	}
	if loan.PaymentFrequency == 0 || !slices.Contains(validFrequencies, loan.PaymentFrequency) {
		return &ValidationError{Field: "payment_frequency", Reason: fmt.Sprintf("must be one of %v", validFrequencies)}
	}
	if _, err := NumberOfPayments(loan.TermMonths, loan.PaymentFrequency); err != nil {
		return &ValidationError{Field: "term_months", Reason: err.Error()}
	}
	return nil
}

// IsLoanApplicationInvalid is the boolean form of ValidateLoanApplication.
func IsLoanApplicationInvalid(loan *models.Loan, minimumAmount decimal.Decimal, minimumTermMonths int, validFrequencies []int) bool {
	return ValidateLoanApplication(loan, minimumAmount, minimumTermMonths, validFrequencies) != nil
}

// LoanNumber is derived from the application timestamp and the account number.
func LoanNumber(applicationDate time.Time, accountNumber string) string {
	return fmt.Sprintf("LN-%s-%s", applicationDate.UTC().Format("20060102150405"), strings.TrimSpace(accountNumber))
}

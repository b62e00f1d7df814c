package services

import "errors"

var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountInactive        = errors.New("account is not active")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInvalidAmount          = errors.New("amount must be a positive whole number of cents")
	ErrSameAccount            = errors.New("source and destination accounts are the same")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrNoBeneficiary          = errors.New("account has no beneficiary")

	ErrUserNotFound     = errors.New("user not found")
	ErrLoanNotFound     = errors.New("loan not found")
	ErrLoanTypeNotFound = errors.New("loan type not found")
	ErrLoanNotPayable   = errors.New("loan does not accept payments in its current status")
	ErrNoDueDate        = errors.New("loan has no due date")
	ErrLoanNotOverdue   = errors.New("loan is not overdue")
	ErrInvalidRate      = errors.New("interest rate must not be negative")
)

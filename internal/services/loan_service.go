package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ruralpay/backoffice/internal/audit"
	"github.com/ruralpay/backoffice/internal/config"
	"github.com/ruralpay/backoffice/internal/lending"
	"github.com/ruralpay/backoffice/internal/models"
	"github.com/ruralpay/backoffice/internal/money"
	"github.com/ruralpay/backoffice/internal/repository"
)

const sweepBatchSize = 200

// LoanTypeCatalog is the read-only reference data for loan types.
type LoanTypeCatalog interface {
	LoanType(id string) (models.LoanType, bool)
}

// LoanApplication is what a customer submits. Loan carries the draft terms:
// LoanTypeID, LoanAmount, TermMonths, PaymentFrequency, Purpose and optionally a
// negotiated InterestRate (zero means the loan type's base rate).
type LoanApplication struct {
	Loan                 models.Loan
	AccountNumber        string
	UserID               string
	GrossAnnualIncome    decimal.Decimal
	GovernmentIDDocument string
	PayslipDocument      string
}

// LoanService registers applications, applies payments and late fees, and drives
// loans through their lifecycle. Each public method is one unit of work.
type LoanService struct {
	gateway repository.Gateway
	reports repository.Reports
	catalog LoanTypeCatalog
	policy  config.LendingPolicy
	audit   *audit.Logger
	cache   Invalidator
	now     func() time.Time
}

type LoanOption func(*LoanService)

func WithLoanClock(now func() time.Time) LoanOption {
	return func(s *LoanService) { s.now = now }
}

func WithLoanReports(cache Invalidator) LoanOption {
	return func(s *LoanService) { s.cache = cache }
}

func NewLoanService(gateway repository.Gateway, reports repository.Reports, catalog LoanTypeCatalog, policy config.LendingPolicy, auditLogger *audit.Logger, opts ...LoanOption) *LoanService {
	if len(policy.ValidFrequencies) == 0 {
		policy.ValidFrequencies = lending.DefaultValidFrequencies
	}
	s := &LoanService{
		gateway: gateway,
		reports: reports,
		catalog: catalog,
		policy:  policy,
		audit:   auditLogger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterLoanApplication prices the draft, stores it as SUBMITTED and updates the
// applicant's income and documents. Nothing is written unless all of it succeeds.
func (s *LoanService) RegisterLoanApplication(ctx context.Context, app LoanApplication) (*models.Loan, error) {
	loan := app.Loan
	err := runUnit(ctx, s.gateway, func(uow repository.UnitOfWork) error {
		user, err := uow.GetUser(ctx, app.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, app.UserID)
		}
		if err != nil {
			return err
		}
		account, err := uow.GetAccountByNumber(ctx, app.AccountNumber)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, app.AccountNumber)
		}
		if err != nil {
			return err
		}

		if err := lending.ValidateLoanApplication(&loan, s.policy.MinimumLoanAmount, s.policy.MinimumTermMonths, s.policy.ValidFrequencies); err != nil {
			return err
		}
		if app.GrossAnnualIncome.IsNegative() || !money.IsCurrency(app.GrossAnnualIncome) {
			return fmt.Errorf("%w: gross annual income %s", ErrInvalidAmount, app.GrossAnnualIncome)
		}
		loanType, ok := s.catalog.LoanType(loan.LoanTypeID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrLoanTypeNotFound, loan.LoanTypeID)
		}
		if loan.InterestRate.IsZero() {
			loan.InterestRate = loanType.BaseInterestRate
		}
		if loan.InterestRate.IsNegative() {
			return ErrInvalidRate
		}

		now := s.now()
		loan.ID = uuid.New().String()
		loan.AccountID = account.ID
		loan.UserID = user.ID
		loan.ApplicationDate = now
		loan.UpdatedAt = now
		loan.Number = lending.LoanNumber(now, account.Number)
		loan.Status = models.LoanSubmitted
		loan.StartDate, loan.DueDate, loan.EndDate, loan.LateFeeAssessedFor = nil, nil, nil, nil
		loan.Version = 0
		if err := lending.Price(&loan); err != nil {
			return err
		}

		user.GrossAnnualIncome = app.GrossAnnualIncome
		user.GovernmentIDDocument = app.GovernmentIDDocument
		user.PayslipDocument = app.PayslipDocument
		if err := uow.SaveUser(ctx, user); err != nil {
			return err
		}
		return uow.AddLoan(ctx, &loan)
	})
	if err != nil {
		return nil, s.fail("LOAN_APPLICATION", app.AccountNumber, err)
	}

	log.Printf("[LOAN] registered %s for %s at %s, %d payments of %s", loan.Number,
		loan.LoanAmount.StringFixed(2), loan.InterestRate, loan.NumberOfPayments, loan.PaymentAmount.StringFixed(2))
	s.audit.LogLoan("LOAN_APPLICATION", loan.ID, loan.LoanAmount, map[string]string{"number": loan.Number})
	s.invalidate(ctx)
	return &loan, nil
}

// UpdateLoanPayment applies amount to the loan: the remaining balance drops by the
// full amount, the installment is repriced over the payments left and the due
// date moves forward one period.
func (s *LoanService) UpdateLoanPayment(ctx context.Context, loanID string, paymentDate time.Time, amount decimal.Decimal) (*models.LoanTransaction, error) {
	if !validAmount(amount) {
		return nil, s.fail("LOAN_PAYMENT", loanID, ErrInvalidAmount)
	}

	var entry *models.LoanTransaction
	var loan *models.Loan
	var from models.LoanStatus
	err := runUnit(ctx, s.gateway, func(uow repository.UnitOfWork) error {
		var err error
		loan, err = s.loadLoan(ctx, uow, loanID)
		if err != nil {
			return err
		}
		from = loan.Status
		if !lending.IsPayable(loan.Status) {
			return fmt.Errorf("%w: %s is %s", ErrLoanNotPayable, loan.ID, loan.Status)
		}
		if loan.DueDate == nil {
			return fmt.Errorf("%w: %s", ErrNoDueDate, loan.ID)
		}

		paidDue := *loan.DueDate
		interest := money.Min(lending.PeriodInterest(loan.RemainingLoanBalance, loan.InterestRatePerPayment), amount)
		remaining := loan.RemainingLoanBalance.Sub(amount)
		notes := "installment"
		if remaining.IsNegative() {
			notes = fmt.Sprintf("overpayment of %s", remaining.Neg().StringFixed(2))
			remaining = decimal.Zero
		}

		loan.RemainingLoanBalance = remaining
		loan.PaymentsMade++
		next := lending.NextDueDate(paidDue, loan.PaymentFrequency)
		loan.DueDate = &next
		loan.UpdatedAt = s.now()
		lending.Reprice(loan)

		switch {
		case !remaining.IsPositive():
			if err := lending.Transition(loan, models.LoanPaid, s.now()); err != nil {
				return err
			}
		case loan.Status == models.LoanDelinquent && next.After(paymentDate):
			if err := lending.Transition(loan, models.LoanActive, s.now()); err != nil {
				return err
			}
		}

		entry = &models.LoanTransaction{
			ID:               uuid.New().String(),
			LoanID:           loan.ID,
			AmountPaid:       amount,
			RemainingBalance: remaining,
			InterestPortion:  interest,
			PrincipalPortion: amount.Sub(interest),
			LateFee:          decimal.Zero,
			DueDate:          paidDue,
			TransactionDate:  paymentDate,
			Notes:            notes,
		}
		if err := uow.AddLoanTransaction(ctx, entry); err != nil {
			return err
		}
		return uow.SaveLoan(ctx, loan)
	})
	if err != nil {
		return nil, s.fail("LOAN_PAYMENT", loanID, err)
	}

	s.logStatusChange(loan, from)
	log.Printf("[LOAN] payment of %s on %s, remaining %s, status %s", amount.StringFixed(2), loan.Number,
		loan.RemainingLoanBalance.StringFixed(2), loan.Status)
	s.audit.LogLoan("LOAN_PAYMENT", loan.ID, amount, map[string]string{
		"remaining_balance": loan.RemainingLoanBalance.StringFixed(2),
		"status":            string(loan.Status),
	})
	s.invalidate(ctx)
	return entry, nil
}

// GetCurrentPaymentAmount returns the installment due on paymentDate. When the
// date is past the due date and no late fee has been charged for that due date
// yet, the fee is added to the balance and the installment, recorded, and the loan
// becomes DELINQUENT.
func (s *LoanService) GetCurrentPaymentAmount(ctx context.Context, loanID string, paymentDate time.Time) (decimal.Decimal, error) {
	var loan *models.Loan
	var from models.LoanStatus
	var fee decimal.Decimal
	err := runUnit(ctx, s.gateway, func(uow repository.UnitOfWork) error {
		var err error
		loan, err = s.loadLoan(ctx, uow, loanID)
		if err != nil {
			return err
		}
		from = loan.Status
		if loan.DueDate == nil {
			return fmt.Errorf("%w: %w: %s", ErrLoanNotFound, ErrNoDueDate, loan.ID)
		}
		due := *loan.DueDate
		if !lending.IsPayable(loan.Status) || lending.DaysLate(due, paymentDate) <= 0 {
			return nil
		}
		if loan.LateFeeAssessedFor != nil && loan.LateFeeAssessedFor.Equal(due) {
			return nil
		}

		fee = lending.LateFee(loan.PaymentAmount, s.policy.LateFeeRate)
		loan.RemainingLoanBalance = loan.RemainingLoanBalance.Add(fee)
		loan.PaymentAmount = loan.PaymentAmount.Add(fee)
		loan.LateFeeAssessedFor = &due
		loan.UpdatedAt = s.now()
		if loan.Status == models.LoanActive {
			if err := lending.Transition(loan, models.LoanDelinquent, s.now()); err != nil {
				return err
			}
		}

		if err := uow.AddLoanTransaction(ctx, &models.LoanTransaction{
			ID:               uuid.New().String(),
			LoanID:           loan.ID,
			AmountPaid:       decimal.Zero,
			RemainingBalance: loan.RemainingLoanBalance,
			InterestPortion:  decimal.Zero,
			PrincipalPortion: decimal.Zero,
			LateFee:          fee,
			DueDate:          due,
			TransactionDate:  paymentDate,
			Notes:            fmt.Sprintf("late fee, %d days past due", lending.DaysLate(due, paymentDate)),
		}); err != nil {
			return err
		}
		return uow.SaveLoan(ctx, loan)
	})
	if err != nil {
		return decimal.Zero, s.fail("LOAN_PAYMENT_AMOUNT", loanID, err)
	}

	if fee.IsPositive() {
		log.Printf("[LOAN] late fee of %s charged on %s", fee.StringFixed(2), loan.Number)
		s.audit.LogLoan("LATE_FEE", loan.ID, fee, map[string]string{"due_date": loan.LateFeeAssessedFor.Format(time.DateOnly)})
		s.logStatusChange(loan, from)
		s.invalidate(ctx)
	}
	return loan.PaymentAmount, nil
}

// GetLoan reads a loan without changing it.
func (s *LoanService) GetLoan(ctx context.Context, loanID string) (*models.Loan, error) {
	uow, err := s.gateway.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()
	return s.loadLoan(ctx, uow, loanID)
}

// Schedule lays out the remaining installments of a loan from its next due date.
func (s *LoanService) Schedule(ctx context.Context, loanID string) ([]lending.ScheduleEntry, error) {
	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	first := lending.NextDueDate(loan.ApplicationDate, loan.PaymentFrequency)
	if loan.DueDate != nil {
		first = *loan.DueDate
	}
	return lending.Schedule(loan.RemainingLoanBalance, loan.InterestRatePerPayment,
		lending.PaymentsLeft(loan), loan.PaymentFrequency, first), nil
}

func (s *LoanService) BeginReview(ctx context.Context, loanID string) (*models.Loan, error) {
	return s.move(ctx, loanID, models.LoanUnderReview, nil)
}

func (s *LoanService) PreApprove(ctx context.Context, loanID string) (*models.Loan, error) {
	return s.move(ctx, loanID, models.LoanPreApproved, nil)
}

func (s *LoanService) Approve(ctx context.Context, loanID string) (*models.Loan, error) {
	return s.move(ctx, loanID, models.LoanApproved, nil)
}

// Disburse starts the repayment clock: the first installment falls due one period
// after disbursement.
func (s *LoanService) Disburse(ctx context.Context, loanID string) (*models.Loan, error) {
	return s.move(ctx, loanID, models.LoanDisbursed, func(loan *models.Loan) error {
		start := s.now()
		due := lending.NextDueDate(start, loan.PaymentFrequency)
		loan.StartDate = &start
		loan.DueDate = &due
		return nil
	})
}

// Activate is the hook for the external funds-released signal.
func (s *LoanService) Activate(ctx context.Context, loanID string) (*models.Loan, error) {
	return s.move(ctx, loanID, models.LoanActive, nil)
}

func (s *LoanService) Reject(ctx context.Context, loanID, remarks string) (*models.Loan, error) {
	return s.move(ctx, loanID, models.LoanRejected, func(loan *models.Loan) error {
		loan.Remarks = remarks
		return nil
	})
}

func (s *LoanService) Cancel(ctx context.Context, loanID, remarks string) (*models.Loan, error) {
	return s.move(ctx, loanID, models.LoanCancelled, func(loan *models.Loan) error {
		loan.Remarks = remarks
		return nil
	})
}

func (s *LoanService) MarkDefaulted(ctx context.Context, loanID string) (*models.Loan, error) {
	return s.move(ctx, loanID, models.LoanDefaulted, nil)
}

// MarkDelinquent flags an ACTIVE loan whose due date has passed as of asOf.
func (s *LoanService) MarkDelinquent(ctx context.Context, loanID string, asOf time.Time) (*models.Loan, error) {
	return s.move(ctx, loanID, models.LoanDelinquent, func(loan *models.Loan) error {
		if !lending.IsOverdue(loan, asOf) {
			return fmt.Errorf("%w: %s", ErrLoanNotOverdue, loan.ID)
		}
		return nil
	})
}

// Restructure re-terms an ACTIVE or DELINQUENT loan at newRate over newTermMonths
// from today, repricing the remaining balance, and returns it to ACTIVE.
func (s *LoanService) Restructure(ctx context.Context, loanID string, newRate decimal.Decimal, newTermMonths int) (*models.Loan, error) {
	if newRate.IsNegative() {
		return nil, s.fail("LOAN_RESTRUCTURE", loanID, ErrInvalidRate)
	}
	var loan *models.Loan
	var from models.LoanStatus
	err := runUnit(ctx, s.gateway, func(uow repository.UnitOfWork) error {
		var err error
		loan, err = s.loadLoan(ctx, uow, loanID)
		if err != nil {
			return err
		}
		payments, err := lending.NumberOfPayments(newTermMonths, loan.PaymentFrequency)
		if err != nil {
			return &lending.ValidationError{Field: "term_months", Reason: err.Error()}
		}
		from = loan.Status
		if err := lending.Transition(loan, models.LoanRestructured, s.now()); err != nil {
			return err
		}

		loan.InterestRate = newRate
		loan.TermMonths = newTermMonths
		loan.NumberOfPayments = payments
		loan.PaymentsMade = 0
		loan.InterestRatePerPayment = lending.RatePerPayment(newRate, loan.PaymentFrequency)
		loan.LateFeeAssessedFor = nil
		lending.Reprice(loan)
		due := lending.NextDueDate(s.now(), loan.PaymentFrequency)
		loan.DueDate = &due

		if err := lending.Transition(loan, models.LoanActive, s.now()); err != nil {
			return err
		}
		return uow.SaveLoan(ctx, loan)
	})
	if err != nil {
		return nil, s.fail("LOAN_RESTRUCTURE", loanID, err)
	}

	s.audit.LogLoanTransition(loan.ID, string(from), string(models.LoanRestructured))
	s.audit.LogLoanTransition(loan.ID, string(models.LoanRestructured), string(models.LoanActive))
	log.Printf("[LOAN] restructured %s at %s over %d months, installment %s", loan.Number, newRate,
		newTermMonths, loan.PaymentAmount.StringFixed(2))
	s.audit.LogLoan("LOAN_RESTRUCTURE", loan.ID, loan.RemainingLoanBalance, map[string]string{
		"interest_rate": newRate.String(),
		"payment":       loan.PaymentAmount.StringFixed(2),
	})
	s.invalidate(ctx)
	return loan, nil
}

// SweepDelinquent marks every ACTIVE loan that is past due as of asOf. Each loan
// is its own unit of work; failures are collected and the sweep carries on.
func (s *LoanService) SweepDelinquent(ctx context.Context, asOf time.Time) (int, error) {
	y, m, d := asOf.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, asOf.Location())

	marked := 0
	var errs []error
	for {
		loans, err := s.reports.ListLoans(ctx, repository.LoanFilter{
			Status:    models.LoanActive,
			DueBefore: &cutoff,
			Limit:     sweepBatchSize,
		})
		if err != nil {
			return marked, err
		}

		progressed := 0
		for _, l := range loans {
			if _, err := s.MarkDelinquent(ctx, l.ID, asOf); err != nil {
				errs = append(errs, err)
				continue
			}
			progressed++
		}
		marked += progressed
		if len(loans) < sweepBatchSize || progressed == 0 {
			break
		}
	}

	log.Printf("[LOAN] delinquency sweep as of %s marked %d loans", asOf.Format(time.DateOnly), marked)
	return marked, errors.Join(errs...)
}

// move runs one lifecycle transition in its own unit of work. prepare may veto it
// or adjust the loan before it is saved.
func (s *LoanService) move(ctx context.Context, loanID string, to models.LoanStatus, prepare func(*models.Loan) error) (*models.Loan, error) {
	var loan *models.Loan
	var from models.LoanStatus
	err := runUnit(ctx, s.gateway, func(uow repository.UnitOfWork) error {
		var err error
		loan, err = s.loadLoan(ctx, uow, loanID)
		if err != nil {
			return err
		}
		from = loan.Status
		if !lending.CanTransition(from, to) {
			return fmt.Errorf("%w: %s -> %s", lending.ErrInvalidLoanStateTransition, from, to)
		}
		if prepare != nil {
			if err := prepare(loan); err != nil {
				return err
			}
		}
		if err := lending.Transition(loan, to, s.now()); err != nil {
			return err
		}
		return uow.SaveLoan(ctx, loan)
	})
	if err != nil {
		return nil, s.fail("LOAN_TRANSITION", loanID, err)
	}

	log.Printf("[LOAN] %s moved %s -> %s", loan.Number, from, to)
	s.audit.LogLoanTransition(loan.ID, string(from), string(to))
	s.invalidate(ctx)
	return loan, nil
}

func (s *LoanService) logStatusChange(loan *models.Loan, from models.LoanStatus) {
	if loan.Status != from {
		log.Printf("[LOAN] %s moved %s -> %s", loan.Number, from, loan.Status)
		s.audit.LogLoanTransition(loan.ID, string(from), string(loan.Status))
	}
}

func (s *LoanService) loadLoan(ctx context.Context, uow repository.UnitOfWork, loanID string) (*models.Loan, error) {
	loan, err := uow.GetLoan(ctx, loanID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrLoanNotFound, loanID)
	}
	return loan, err
}

func (s *LoanService) fail(op, subject string, err error) error {
	log.Printf("[LOAN] %s on %s failed: %v", op, subject, err)
	s.audit.LogError(op, subject, err)
	return err
}

func (s *LoanService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

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
	"github.com/ruralpay/backoffice/internal/models"
	"github.com/ruralpay/backoffice/internal/money"
	"github.com/ruralpay/backoffice/internal/repository"
)

// AccountRef addresses an account either by its internal ID or by its public number.
type AccountRef struct {
	ID     string
	Number string
}

func ByID(id string) AccountRef {
	return AccountRef{ID: id}
}

func ByNumber(number string) AccountRef {
	return AccountRef{Number: number}
}

func (r AccountRef) String() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Number
}

// TransferResult holds both legs of a transfer.
type TransferResult struct {
	Outgoing *models.Transaction `json:"outgoing"`
	Incoming *models.Transaction `json:"incoming"`
}

// Invalidator is told when committed writes make cached reports stale.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// LedgerService applies deposits, withdrawals and transfers. Every operation reads
// the account, computes the new balance, appends the Transaction row and saves the
// account inside one unit of work.
type LedgerService struct {
	gateway    repository.Gateway
	audit      *audit.Logger
	reports    Invalidator
	maxRetries int
	now        func() time.Time
}

type LedgerOption func(*LedgerService)

func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(s *LedgerService) { s.now = now }
}

func WithLedgerReports(r Invalidator) LedgerOption {
	return func(s *LedgerService) { s.reports = r }
}

func NewLedgerService(gateway repository.Gateway, auditLogger *audit.Logger, maxRetries int, opts ...LedgerOption) *LedgerService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	s := &LedgerService{
		gateway:    gateway,
		audit:      auditLogger,
		maxRetries: maxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CalculateNewBalance applies the sign of txType to amount.
func CalculateNewBalance(txType models.TransactionType, currentBalance, amount decimal.Decimal) (decimal.Decimal, error) {
	switch txType {
	case models.TxDeposit, models.TxIncomingTransfer:
		return currentBalance.Add(amount), nil
	case models.TxWithdrawal, models.TxOutgoingTransfer:
		return currentBalance.Sub(amount), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidTransactionType, txType)
	}
}

func (s *LedgerService) Deposit(ctx context.Context, ref AccountRef, amount decimal.Decimal) (*models.Transaction, error) {
	return s.single(ctx, models.TxDeposit, ref, amount)
}

func (s *LedgerService) Withdraw(ctx context.Context, ref AccountRef, amount decimal.Decimal) (*models.Transaction, error) {
	return s.single(ctx, models.TxWithdrawal, ref, amount)
}

func (s *LedgerService) single(ctx context.Context, txType models.TransactionType, ref AccountRef, amount decimal.Decimal) (*models.Transaction, error) {
	if !validAmount(amount) {
		return nil, s.fail(string(txType), ref.String(), ErrInvalidAmount)
	}

	var tx *models.Transaction
	err := s.withRetry(ctx, func(uow repository.UnitOfWork) error {
		account, err := s.loadAccount(ctx, uow, ref)
		if err != nil {
			return err
		}
		tx, err = s.apply(ctx, uow, account, txType, amount, nil)
		return err
	})
	if err != nil {
		return nil, s.fail(string(txType), ref.String(), err)
	}

	log.Printf("[LEDGER] %s of %s on account %s, balance now %s", txType, amount.StringFixed(2), tx.AccountID, tx.NewBalance.StringFixed(2))
	s.audit.LogLedger(string(txType), tx.ID, tx.AccountID, tx.Amount, tx.NewBalance)
	s.invalidate(ctx)
	return tx, nil
}

// Transfer moves amount from one account to another. Both rows are written in the
// same unit of work and each references the other account.
func (s *LedgerService) Transfer(ctx context.Context, from, to AccountRef, amount decimal.Decimal) (*TransferResult, error) {
	const op = "TRANSFER"
	if !validAmount(amount) {
		return nil, s.fail(op, from.String(), ErrInvalidAmount)
	}

	var result *TransferResult
	err := s.withRetry(ctx, func(uow repository.UnitOfWork) error {
		var err error
		result, err = s.transferTx(ctx, uow, from, to, amount)
		return err
	})
	if err != nil {
		return nil, s.fail(op, from.String(), err)
	}

	log.Printf("[LEDGER] transfer of %s from %s to %s", amount.StringFixed(2), result.Outgoing.AccountID, result.Incoming.AccountID)
	s.audit.LogTransfer(result.Outgoing.ID, result.Outgoing.AccountID, result.Incoming.AccountID, amount)
	s.invalidate(ctx)
	return result, nil
}

// TransferToBeneficiary sends amount to the beneficiary registered on the source account.
func (s *LedgerService) TransferToBeneficiary(ctx context.Context, from AccountRef, amount decimal.Decimal) (*TransferResult, error) {
	uow, err := s.gateway.Begin(ctx)
	if err != nil {
		return nil, s.fail("TRANSFER", from.String(), err)
	}
	account, err := s.loadAccount(ctx, uow, from)
	uow.Rollback()
	if err != nil {
		return nil, s.fail("TRANSFER", from.String(), err)
	}
	if account.BeneficiaryAccountID == nil || *account.BeneficiaryAccountID == "" {
		return nil, s.fail("TRANSFER", from.String(), ErrNoBeneficiary)
	}
	return s.Transfer(ctx, ByID(account.ID), ByID(*account.BeneficiaryAccountID), amount)
}

// validAmount accepts positive amounts in whole cents.
func validAmount(amount decimal.Decimal) bool {
	return money.IsPositive(amount) && money.IsCurrency(amount)
}

func (s *LedgerService) transferTx(ctx context.Context, uow repository.UnitOfWork, from, to AccountRef, amount decimal.Decimal) (*TransferResult, error) {
	// Lock accounts in consistent order to prevent deadlocks
	firstRef, secondRef := from, to
	if to.String() < from.String() {
		firstRef, secondRef = to, from
	}
	firstLocked, err := s.loadAccount(ctx, uow, firstRef)
	if err != nil {
		return nil, err
	}
	secondLocked, err := s.loadAccount(ctx, uow, secondRef)
	if err != nil {
		return nil, err
	}
	source, destination := firstLocked, secondLocked
	if firstRef != from {
		source, destination = secondLocked, firstLocked
	}
	if source.ID == destination.ID {
		return nil, ErrSameAccount
	}

	first, second := source, destination
	firstType, secondType := models.TxOutgoingTransfer, models.TxIncomingTransfer
	if destination.ID < source.ID {
		first, second = destination, source
		firstType, secondType = models.TxIncomingTransfer, models.TxOutgoingTransfer
	}

	firstTx, err := s.apply(ctx, uow, first, firstType, amount, &second.ID)
	if err != nil {
		return nil, err
	}
	secondTx, err := s.apply(ctx, uow, second, secondType, amount, &first.ID)
	if err != nil {
		return nil, err
	}

	if firstType == models.TxOutgoingTransfer {
		return &TransferResult{Outgoing: firstTx, Incoming: secondTx}, nil
	}
	return &TransferResult{Outgoing: secondTx, Incoming: firstTx}, nil
}

// apply checks the account, computes the new balance and stages both the
// Transaction row and the account update on uow.
func (s *LedgerService) apply(ctx context.Context, uow repository.UnitOfWork, account *models.Account, txType models.TransactionType, amount decimal.Decimal, counter *string) (*models.Transaction, error) {
	if !account.IsActive() {
		return nil, fmt.Errorf("%w: %s is %s", ErrAccountInactive, account.ID, account.Status)
	}
	newBalance, err := CalculateNewBalance(txType, account.Balance, amount)
	if err != nil {
		return nil, err
	}
	if newBalance.IsNegative() {
		return nil, fmt.Errorf("%w: account %s has %s, needs %s", ErrInsufficientBalance, account.ID,
			account.Balance.StringFixed(2), amount.StringFixed(2))
	}

	tx := &models.Transaction{
		ID:               uuid.New().String(),
		Type:             txType,
		AccountID:        account.ID,
		CounterAccountID: counter,
		Amount:           amount,
		PreviousBalance:  account.Balance,
		NewBalance:       newBalance,
		Fee:              decimal.Zero,
		Status:           models.TxConfirmed,
		Date:             s.now(),
	}
	if err := uow.AddTransaction(ctx, tx); err != nil {
		return nil, err
	}

	account.Balance = newBalance
	if err := uow.SaveAccount(ctx, account); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *LedgerService) loadAccount(ctx context.Context, uow repository.UnitOfWork, ref AccountRef) (*models.Account, error) {
	var account *models.Account
	var err error
	switch {
	case ref.ID != "":
		account, err = uow.GetAccount(ctx, ref.ID)
	case ref.Number != "":
		account, err = uow.GetAccountByNumber(ctx, ref.Number)
	default:
		return nil, fmt.Errorf("%w: empty account reference", ErrAccountNotFound)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, ref)
	}
	return account, err
}

// withRetry runs fn in a fresh unit of work, retrying the whole unit when a
// concurrent writer won the race.
func (s *LedgerService) withRetry(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err = runUnit(ctx, s.gateway, fn)
		if !errors.Is(err, repository.ErrConcurrentUpdate) {
			return err
		}
		log.Printf("[LEDGER] concurrent update on attempt %d/%d, retrying", attempt, s.maxRetries)
	}
	return err
}

// runUnit begins a unit of work, runs fn and commits. Any failure rolls back.
func runUnit(ctx context.Context, gateway repository.Gateway, fn func(uow repository.UnitOfWork) error) error {
	uow, err := gateway.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}

func (s *LedgerService) fail(op, subject string, err error) error {
	log.Printf("[LEDGER] %s on %s failed: %v", op, subject, err)
	s.audit.LogError(op, subject, err)
	return err
}

func (s *LedgerService) invalidate(ctx context.Context) {
	if s.reports != nil {
		s.reports.Invalidate(ctx)
	}
}

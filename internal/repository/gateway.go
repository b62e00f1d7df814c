// Package repository is the persistence gateway the ledger and the loan engine
// depend on, plus the read-side query facade used by reporting. Two adapters are
// provided: PostgresGateway for production and MemoryGateway for tests and demos.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ruralpay/backoffice/internal/models"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrConcurrentUpdate = errors.New("concurrent update detected")
	ErrUnitClosed       = errors.New("unit of work already closed")
)

// Gateway opens units of work. Each public service operation uses exactly one.
type Gateway interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// UnitOfWork is one atomic read-modify-write scope. Reads of accounts and loans
// lock the row (or record its version) so that SaveAccount and SaveLoan fail with
// ErrConcurrentUpdate instead of losing another writer's change.
type UnitOfWork interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByNumber(ctx context.Context, number string) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error

	GetUser(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error

	GetLoan(ctx context.Context, id string) (*models.Loan, error)
	AddLoan(ctx context.Context, loan *models.Loan) error
	SaveLoan(ctx context.Context, loan *models.Loan) error

	AddTransaction(ctx context.Context, tx *models.Transaction) error
	AddLoanTransaction(ctx context.Context, tx *models.LoanTransaction) error

	Commit() error
	// Rollback discards the unit. It is a no-op after Commit.
	Rollback() error
}

type TransactionFilter struct {
	AccountID string
	Type      models.TransactionType
	Status    models.TransactionStatus
	From      *time.Time
	To        *time.Time
	Limit     int
}

type LoanFilter struct {
	Status    models.LoanStatus
	UserID    string
	AccountID string
	DueBefore *time.Time
	Limit     int
}

// DefaultLimit caps list queries that do not set one.
const DefaultLimit = 50

// Reports is the read-side facade behind admin dashboards.
type Reports interface {
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
	ListLoans(ctx context.Context, filter LoanFilter) ([]models.Loan, error)
	ListLoanTransactions(ctx context.Context, loanID string) ([]models.LoanTransaction, error)
	PortfolioSummary(ctx context.Context) (*models.PortfolioSummary, error)
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralpay/backoffice/internal/models"
)

var accountCols = []string{"id", "type", "product_type", "number", "status", "balance", "date_opened",
	"date_closed", "beneficiary_account_id", "version", "updated_at"}

var loanCols = []string{"id", "number", "account_id", "user_id", "loan_type_id", "loan_amount", "interest_rate",
	"interest_rate_per_payment", "interest_amount", "term_months", "payment_frequency", "number_of_payments",
	"payments_made", "payment_amount", "remaining_loan_balance", "status", "application_date", "start_date",
	"due_date", "updated_at", "end_date", "late_fee_assessed_for", "purpose", "remarks", "version"}

func newMockGateway(t *testing.T) (*PostgresGateway, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresGateway(db), mock
}

func TestPostgresGateway_GetAccount(t *testing.T) {
	ctx := context.Background()
	g, mock := newMockGateway(t)

	t.Run("existing account", func(t *testing.T) {
		opened := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs("acc-1").
			WillReturnRows(sqlmock.NewRows(accountCols).
				AddRow("acc-1", "CHECKING", "standard", "0012345678", "ACTIVE", "5000.00", opened, nil, "acc-2", 3, opened))

		uow, err := g.Begin(ctx)
		require.NoError(t, err)
		account, err := uow.GetAccount(ctx, "acc-1")
		require.NoError(t, err)

		assert.Equal(t, "acc-1", account.ID)
		assert.Equal(t, models.AccountChecking, account.Type)
		assert.Equal(t, models.AccountActive, account.Status)
		assert.True(t, decimal.NewFromInt(5000).Equal(account.Balance))
		assert.Nil(t, account.DateClosed)
		require.NotNil(t, account.BeneficiaryAccountID)
		assert.Equal(t, "acc-2", *account.BeneficiaryAccountID)
		assert.Equal(t, 3, account.Version)
	})

	t.Run("missing account", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE number = \\$1 FOR UPDATE").
			WithArgs("999").
			WillReturnRows(sqlmock.NewRows(accountCols))

		uow, err := g.Begin(ctx)
		require.NoError(t, err)
		_, err = uow.GetAccountByNumber(ctx, "999")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("driver failure is not a not-found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs("acc-1").
			WillReturnError(errors.New("connection reset"))

		uow, err := g.Begin(ctx)
		require.NoError(t, err)
		_, err = uow.GetAccount(ctx, "acc-1")
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotFound))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGateway_SaveAccount(t *testing.T) {
	ctx := context.Background()
	g, mock := newMockGateway(t)

	account := &models.Account{ID: "acc-1", Status: models.AccountActive, Balance: decimal.NewFromInt(4000), Version: 1}

	t.Run("successful update", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE accounts SET status = \\$1, balance = \\$2, date_closed = \\$3, beneficiary_account_id = \\$4, version = version \\+ 1, updated_at = \\$5 WHERE id = \\$6 AND version = \\$7").
			WithArgs("ACTIVE", decimal.NewFromInt(4000), nil, nil, sqlmock.AnyArg(), "acc-1", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		uow, err := g.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, uow.SaveAccount(ctx, account))
		assert.Equal(t, 2, account.Version)
	})

	t.Run("optimistic lock failure", func(t *testing.T) {
		stale := &models.Account{ID: "acc-1", Status: models.AccountActive, Balance: decimal.NewFromInt(4000), Version: 1}
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE accounts SET").
			WithArgs("ACTIVE", decimal.NewFromInt(4000), nil, nil, sqlmock.AnyArg(), "acc-1", 1).
			WillReturnResult(sqlmock.NewResult(0, 0))

		uow, err := g.Begin(ctx)
		require.NoError(t, err)
		err = uow.SaveAccount(ctx, stale)
		assert.True(t, errors.Is(err, ErrConcurrentUpdate))
		assert.Equal(t, 1, stale.Version)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGateway_AppendRowsAndCommit(t *testing.T) {
	ctx := context.Background()
	g, mock := newMockGateway(t)
	now := time.Now()
	counter := "acc-2"

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs("tx-1", "OUTGOING_TRANSFER", "acc-1", counter, nil,
			decimal.NewFromInt(200), decimal.NewFromInt(1000), decimal.NewFromInt(800), decimal.Zero, "CONFIRMED", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO loan_transactions").
		WithArgs("lt-1", "loan-1", decimal.NewFromInt(100), decimal.NewFromInt(900), decimal.NewFromInt(10),
			decimal.NewFromInt(90), decimal.Zero, now, now, "payment").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	uow, err := g.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.AddTransaction(ctx, &models.Transaction{
		ID: "tx-1", Type: models.TxOutgoingTransfer, AccountID: "acc-1", CounterAccountID: &counter,
		Amount: decimal.NewFromInt(200), PreviousBalance: decimal.NewFromInt(1000), NewBalance: decimal.NewFromInt(800),
		Fee: decimal.Zero, Status: models.TxConfirmed, Date: now,
	}))
	require.NoError(t, uow.AddLoanTransaction(ctx, &models.LoanTransaction{
		ID: "lt-1", LoanID: "loan-1", AmountPaid: decimal.NewFromInt(100), RemainingBalance: decimal.NewFromInt(900),
		InterestPortion: decimal.NewFromInt(10), PrincipalPortion: decimal.NewFromInt(90), LateFee: decimal.Zero,
		DueDate: now, TransactionDate: now, Notes: "payment",
	}))
	require.NoError(t, uow.Commit())
	// rollback after commit must not reach the driver
	require.NoError(t, uow.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGateway_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	g, mock := newMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	uow, err := g.Begin(ctx)
	require.NoError(t, err)
	err = uow.AddTransaction(ctx, &models.Transaction{ID: "tx-1"})
	assert.Error(t, err)
	require.NoError(t, uow.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func loanRow(id string, status models.LoanStatus, due any) []driver.Value {
	applied := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	return []driver.Value{id, "LN-1", "acc-1", "user-1", "personal", "12000", "0.12", "0.01", "120", 12, 12, 12,
		0, "1066.19", "12000", string(status), applied, nil, due, applied, nil, nil, "car", "", 0}
}

func TestPostgresGateway_Loans(t *testing.T) {
	ctx := context.Background()
	g, mock := newMockGateway(t)
	due := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	t.Run("get loan", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM loans WHERE id = \\$1 FOR UPDATE").
			WithArgs("loan-1").
			WillReturnRows(sqlmock.NewRows(loanCols).AddRow(loanRow("loan-1", models.LoanActive, due)...))

		uow, err := g.Begin(ctx)
		require.NoError(t, err)
		loan, err := uow.GetLoan(ctx, "loan-1")
		require.NoError(t, err)

		assert.Equal(t, models.LoanActive, loan.Status)
		assert.Equal(t, "1066.19", loan.PaymentAmount.StringFixed(2))
		require.NotNil(t, loan.DueDate)
		assert.Equal(t, due, *loan.DueDate)
		assert.Nil(t, loan.StartDate)
		assert.Nil(t, loan.LateFeeAssessedFor)
	})

	t.Run("save loan bumps version", func(t *testing.T) {
		loan := &models.Loan{ID: "loan-1", Status: models.LoanPaid, Version: 4}
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE loans SET (.+) WHERE id = \\$16 AND version = \\$17").
			WillReturnResult(sqlmock.NewResult(0, 1))

		uow, err := g.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, uow.SaveLoan(ctx, loan))
		assert.Equal(t, 5, loan.Version)
	})

	t.Run("list overdue loans", func(t *testing.T) {
		cutoff := due.AddDate(0, 0, 1)
		mock.ExpectQuery("SELECT (.+) FROM loans WHERE status = \\$1 AND due_date < \\$2 ORDER BY application_date DESC, id LIMIT \\$3").
			WithArgs("ACTIVE", cutoff, DefaultLimit).
			WillReturnRows(sqlmock.NewRows(loanCols).
				AddRow(loanRow("loan-1", models.LoanActive, due)...).
				AddRow(loanRow("loan-2", models.LoanActive, due)...))

		loans, err := g.ListLoans(ctx, LoanFilter{Status: models.LoanActive, DueBefore: &cutoff})
		require.NoError(t, err)
		assert.Len(t, loans, 2)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGateway_ListTransactions(t *testing.T) {
	ctx := context.Background()
	g, mock := newMockGateway(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM transactions WHERE account_id = \\$1 AND type = \\$2 ORDER BY date DESC LIMIT \\$3").
		WithArgs("acc-1", "DEPOSIT", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "account_id", "counter_account_id", "vendor_reference",
			"amount", "previous_balance", "new_balance", "fee", "status", "date"}).
			AddRow("tx-1", "DEPOSIT", "acc-1", nil, nil, "1500", "3000", "4500", "0", "CONFIRMED", now))

	txs, err := g.ListTransactions(ctx, TransactionFilter{AccountID: "acc-1", Type: models.TxDeposit, Limit: 10})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, decimal.NewFromInt(4500).Equal(txs[0].NewBalance))
	assert.Nil(t, txs[0].CounterAccountID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGateway_PortfolioSummary(t *testing.T) {
	ctx := context.Background()
	g, mock := newMockGateway(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\), (.+) FROM accounts").
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(3, "12500.50"))
	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\), (.+) FROM loans GROUP BY status").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count", "sum"}).
			AddRow("ACTIVE", 2, "20000").
			AddRow("DELINQUENT", 1, "5000").
			AddRow("PAID", 4, "0"))

	summary, err := g.PortfolioSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.AccountCount)
	assert.Equal(t, "12500.50", summary.TotalDeposits.StringFixed(2))
	assert.True(t, decimal.NewFromInt(25000).Equal(summary.OutstandingBalance))
	assert.True(t, decimal.NewFromInt(5000).Equal(summary.DelinquentBalance))
	assert.Equal(t, 4, summary.LoansByStatus[models.LoanPaid])

	assert.NoError(t, mock.ExpectationsWereMet())
}

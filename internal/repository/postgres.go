package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ruralpay/backoffice/internal/models"
)

const (
	accountColumns = `id, type, product_type, number, status, balance, date_opened, date_closed,
		beneficiary_account_id, version, updated_at`

	loanColumns = `id, number, account_id, user_id, loan_type_id, loan_amount, interest_rate,
		interest_rate_per_payment, interest_amount, term_months, payment_frequency,
		number_of_payments, payments_made, payment_amount, remaining_loan_balance, status,
		application_date, start_date, due_date, updated_at, end_date, late_fee_assessed_for,
		purpose, remarks, version`
)

// PostgresGateway runs each unit of work in one database transaction. Account and
// loan reads take row locks (FOR UPDATE) and saves check the version column, so a
// concurrent writer surfaces as ErrConcurrentUpdate rather than a lost update.
type PostgresGateway struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresGateway(db *sql.DB) *PostgresGateway {
	return &PostgresGateway{db: db, now: time.Now}
}

func (g *PostgresGateway) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	return &postgresUnit{tx: tx, now: g.now}, nil
}

type postgresUnit struct {
	tx     *sql.Tx
	now    func() time.Time
	closed bool
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	var dateClosed sql.NullTime
	var beneficiary sql.NullString
	err := row.Scan(&a.ID, &a.Type, &a.ProductType, &a.Number, &a.Status, &a.Balance,
		&a.DateOpened, &dateClosed, &beneficiary, &a.Version, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if dateClosed.Valid {
		a.DateClosed = &dateClosed.Time
	}
	if beneficiary.Valid {
		a.BeneficiaryAccountID = &beneficiary.String
	}
	return &a, nil
}

func notFound(err error, what, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, key, ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", what, key, err)
}

func (u *postgresUnit) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	row := u.tx.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
		FOR UPDATE`, id)
	a, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	return a, nil
}

func (u *postgresUnit) GetAccountByNumber(ctx context.Context, number string) (*models.Account, error) {
	row := u.tx.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE number = $1
		FOR UPDATE`, number)
	a, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err, "account number", number)
	}
	return a, nil
}

func (u *postgresUnit) SaveAccount(ctx context.Context, account *models.Account) error {
	updatedAt := u.now()
	result, err := u.tx.ExecContext(ctx, `
		UPDATE accounts
		SET status = $1, balance = $2, date_closed = $3, beneficiary_account_id = $4,
		    version = version + 1, updated_at = $5
		WHERE id = $6 AND version = $7`,
		account.Status, account.Balance, account.DateClosed, account.BeneficiaryAccountID,
		updatedAt, account.ID, account.Version)
	if err := checkVersioned(result, err, "account", account.ID); err != nil {
		return err
	}
	account.Version++
	account.UpdatedAt = updatedAt
	return nil
}

func checkVersioned(result sql.Result, err error, what, id string) error {
	if err != nil {
		return fmt.Errorf("save %s %s: %w", what, id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save %s %s: %w", what, id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrConcurrentUpdate)
	}
	return nil
}

func (u *postgresUnit) GetUser(ctx context.Context, id string) (*models.User, error) {
	var usr models.User
	err := u.tx.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, gross_annual_income,
		       government_id_document, payslip_document, updated_at
		FROM users
		WHERE id = $1
		FOR UPDATE`, id).Scan(&usr.ID, &usr.Email, &usr.FirstName, &usr.LastName,
		&usr.GrossAnnualIncome, &usr.GovernmentIDDocument, &usr.PayslipDocument, &usr.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return &usr, nil
}

func (u *postgresUnit) SaveUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = u.now()
	_, err := u.tx.ExecContext(ctx, `
		UPDATE users
		SET gross_annual_income = $1, government_id_document = $2, payslip_document = $3, updated_at = $4
		WHERE id = $5`,
		user.GrossAnnualIncome, user.GovernmentIDDocument, user.PayslipDocument, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("save user %s: %w", user.ID, err)
	}
	return nil
}

func scanLoan(row rowScanner) (*models.Loan, error) {
	var l models.Loan
	var startDate, dueDate, endDate, feeFor sql.NullTime
	err := row.Scan(&l.ID, &l.Number, &l.AccountID, &l.UserID, &l.LoanTypeID, &l.LoanAmount,
		&l.InterestRate, &l.InterestRatePerPayment, &l.InterestAmount, &l.TermMonths,
		&l.PaymentFrequency, &l.NumberOfPayments, &l.PaymentsMade, &l.PaymentAmount,
		&l.RemainingLoanBalance, &l.Status, &l.ApplicationDate, &startDate, &dueDate,
		&l.UpdatedAt, &endDate, &feeFor, &l.Purpose, &l.Remarks, &l.Version)
	if err != nil {
		return nil, err
	}
	l.StartDate = timePtr(startDate)
	l.DueDate = timePtr(dueDate)
	l.EndDate = timePtr(endDate)
	l.LateFeeAssessedFor = timePtr(feeFor)
	return &l, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func (u *postgresUnit) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	row := u.tx.QueryRowContext(ctx, `
		SELECT `+loanColumns+`
		FROM loans
		WHERE id = $1
		FOR UPDATE`, id)
	l, err := scanLoan(row)
	if err != nil {
		return nil, notFound(err, "loan", id)
	}
	return l, nil
}

func (u *postgresUnit) AddLoan(ctx context.Context, l *models.Loan) error {
	_, err := u.tx.ExecContext(ctx, `
		INSERT INTO loans (`+loanColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        $19, $20, $21, $22, $23, $24, $25)`,
		l.ID, l.Number, l.AccountID, l.UserID, l.LoanTypeID, l.LoanAmount, l.InterestRate,
		l.InterestRatePerPayment, l.InterestAmount, l.TermMonths, l.PaymentFrequency,
		l.NumberOfPayments, l.PaymentsMade, l.PaymentAmount, l.RemainingLoanBalance, l.Status,
		l.ApplicationDate, l.StartDate, l.DueDate, l.UpdatedAt, l.EndDate, l.LateFeeAssessedFor,
		l.Purpose, l.Remarks, l.Version)
	if err != nil {
		return fmt.Errorf("insert loan %s: %w", l.ID, err)
	}
	return nil
}

func (u *postgresUnit) SaveLoan(ctx context.Context, l *models.Loan) error {
	result, err := u.tx.ExecContext(ctx, `
		UPDATE loans
		SET interest_rate = $1, interest_rate_per_payment = $2, interest_amount = $3,
		    term_months = $4, number_of_payments = $5, payments_made = $6, payment_amount = $7,
		    remaining_loan_balance = $8, status = $9, start_date = $10, due_date = $11,
		    updated_at = $12, end_date = $13, late_fee_assessed_for = $14, remarks = $15,
		    version = version + 1
		WHERE id = $16 AND version = $17`,
		l.InterestRate, l.InterestRatePerPayment, l.InterestAmount, l.TermMonths,
		l.NumberOfPayments, l.PaymentsMade, l.PaymentAmount, l.RemainingLoanBalance, l.Status,
		l.StartDate, l.DueDate, l.UpdatedAt, l.EndDate, l.LateFeeAssessedFor, l.Remarks,
		l.ID, l.Version)
	if err := checkVersioned(result, err, "loan", l.ID); err != nil {
		return err
	}
	l.Version++
	return nil
}

func (u *postgresUnit) AddTransaction(ctx context.Context, t *models.Transaction) error {
	_, err := u.tx.ExecContext(ctx, `
		INSERT INTO transactions (id, type, account_id, counter_account_id, vendor_reference,
		                          amount, previous_balance, new_balance, fee, status, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.Type, t.AccountID, t.CounterAccountID, t.VendorReference,
		t.Amount, t.PreviousBalance, t.NewBalance, t.Fee, t.Status, t.Date)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", t.ID, err)
	}
	return nil
}

func (u *postgresUnit) AddLoanTransaction(ctx context.Context, t *models.LoanTransaction) error {
	_, err := u.tx.ExecContext(ctx, `
		INSERT INTO loan_transactions (id, loan_id, amount_paid, remaining_balance, interest_portion,
		                               principal_portion, late_fee, due_date, transaction_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.LoanID, t.AmountPaid, t.RemainingBalance, t.InterestPortion,
		t.PrincipalPortion, t.LateFee, t.DueDate, t.TransactionDate, t.Notes)
	if err != nil {
		return fmt.Errorf("insert loan transaction %s: %w", t.ID, err)
	}
	return nil
}

func (u *postgresUnit) Commit() error {
	if u.closed {
		return ErrUnitClosed
	}
	u.closed = true
	return u.tx.Commit()
}

func (u *postgresUnit) Rollback() error {
	if u.closed {
		return nil
	}
	u.closed = true
	return u.tx.Rollback()
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ruralpay/backoffice/internal/models"
)

func (g *PostgresGateway) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	var conditions []string
	var args []any
	argIndex := 1

	add := func(cond string, arg any) {
		conditions = append(conditions, fmt.Sprintf(cond, argIndex))
		args = append(args, arg)
		argIndex++
	}
	if filter.AccountID != "" {
		add("account_id = $%d", filter.AccountID)
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.From != nil {
		add("date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("date <= $%d", *filter.To)
	}

	query := `SELECT id, type, account_id, counter_account_id, vendor_reference, amount,
		previous_balance, new_balance, fee, status, date FROM transactions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY date DESC LIMIT $%d", argIndex)
	args = append(args, limitOrDefault(filter.Limit))

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		var counter, vendor sql.NullString
		if err := rows.Scan(&t.ID, &t.Type, &t.AccountID, &counter, &vendor, &t.Amount,
			&t.PreviousBalance, &t.NewBalance, &t.Fee, &t.Status, &t.Date); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if counter.Valid {
			t.CounterAccountID = &counter.String
		}
		if vendor.Valid {
			t.VendorReference = &vendor.String
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (g *PostgresGateway) ListLoans(ctx context.Context, filter LoanFilter) ([]models.Loan, error) {
	var conditions []string
	var args []any
	argIndex := 1

	add := func(cond string, arg any) {
		conditions = append(conditions, fmt.Sprintf(cond, argIndex))
		args = append(args, arg)
		argIndex++
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.AccountID != "" {
		add("account_id = $%d", filter.AccountID)
	}
	if filter.DueBefore != nil {
		add("due_date < $%d", *filter.DueBefore)
	}

	query := "SELECT " + loanColumns + " FROM loans"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY application_date DESC, id LIMIT $%d", argIndex)
	args = append(args, limitOrDefault(filter.Limit))

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	loans := []models.Loan{}
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, *l)
	}
	return loans, rows.Err()
}

func (g *PostgresGateway) ListLoanTransactions(ctx context.Context, loanID string) ([]models.LoanTransaction, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT id, loan_id, amount_paid, remaining_balance, interest_portion, principal_portion,
		       late_fee, due_date, transaction_date, notes
		FROM loan_transactions
		WHERE loan_id = $1
		ORDER BY transaction_date`, loanID)
	if err != nil {
		return nil, fmt.Errorf("list loan transactions: %w", err)
	}
	defer rows.Close()

	out := []models.LoanTransaction{}
	for rows.Next() {
		var t models.LoanTransaction
		if err := rows.Scan(&t.ID, &t.LoanID, &t.AmountPaid, &t.RemainingBalance, &t.InterestPortion,
			&t.PrincipalPortion, &t.LateFee, &t.DueDate, &t.TransactionDate, &t.Notes); err != nil {
			return nil, fmt.Errorf("scan loan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (g *PostgresGateway) PortfolioSummary(ctx context.Context) (*models.PortfolioSummary, error) {
	summary := &models.PortfolioSummary{
		LoansByStatus: make(map[models.LoanStatus]int),
		GeneratedAt:   g.now(),
	}

	err := g.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(balance) FILTER (WHERE type <> 'LOAN'), 0)
		FROM accounts`).Scan(&summary.AccountCount, &summary.TotalDeposits)
	if err != nil {
		return nil, fmt.Errorf("summarize accounts: %w", err)
	}

	rows, err := g.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(remaining_loan_balance), 0)
		FROM loans
		GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("summarize loans: %w", err)
	}
	defer rows.Close()

	summary.OutstandingBalance = decimal.Zero
	summary.DelinquentBalance = decimal.Zero
	for rows.Next() {
		var status models.LoanStatus
		var count int
		var balance decimal.Decimal
		if err := rows.Scan(&status, &count, &balance); err != nil {
			return nil, fmt.Errorf("scan loan summary: %w", err)
		}
		summary.LoansByStatus[status] = count
		switch status {
		case models.LoanActive, models.LoanRestructured, models.LoanDisbursed:
			summary.OutstandingBalance = summary.OutstandingBalance.Add(balance)
		case models.LoanDelinquent:
			summary.OutstandingBalance = summary.OutstandingBalance.Add(balance)
			summary.DelinquentBalance = summary.DelinquentBalance.Add(balance)
		}
	}
	return summary, rows.Err()
}

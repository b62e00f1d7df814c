package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ruralpay/backoffice/internal/models"
	"github.com/ruralpay/backoffice/internal/repository"
)

type MockReports struct {
	mock.Mock
}

func (m *MockReports) ListTransactions(ctx context.Context, filter repository.TransactionFilter) ([]models.Transaction, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *MockReports) ListLoans(ctx context.Context, filter repository.LoanFilter) ([]models.Loan, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Loan), args.Error(1)
}

func (m *MockReports) ListLoanTransactions(ctx context.Context, loanID string) ([]models.LoanTransaction, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LoanTransaction), args.Error(1)
}

func (m *MockReports) PortfolioSummary(ctx context.Context) (*models.PortfolioSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PortfolioSummary), args.Error(1)
}

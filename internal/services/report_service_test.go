package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ruralpay/backoffice/internal/models"
	"github.com/ruralpay/backoffice/internal/repository"
)

func sampleSummary() *models.PortfolioSummary {
	return &models.PortfolioSummary{
		AccountCount:       4,
		TotalDeposits:      dec("15250.75"),
		LoansByStatus:      map[models.LoanStatus]int{models.LoanActive: 2, models.LoanDelinquent: 1},
		OutstandingBalance: dec("30000"),
		DelinquentBalance:  dec("5000"),
		GeneratedAt:        time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestReportService_PortfolioSummary(t *testing.T) {
	ctx := context.Background()
	ttl := time.Minute

	t.Run("miss loads from store and caches", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		reports := &MockReports{}
		summary := sampleSummary()
		data, err := json.Marshal(summary)
		require.NoError(t, err)

		reports.On("PortfolioSummary", mock.Anything).Return(summary, nil).Once()
		redisMock.ExpectGet(summaryCacheKey).RedisNil()
		redisMock.ExpectSet(summaryCacheKey, data, ttl).SetVal("OK")

		service := NewReportService(reports, redisClient, ttl)
		got, err := service.PortfolioSummary(ctx)
		require.NoError(t, err)
		assert.Equal(t, summary, got)

		reports.AssertExpectations(t)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("hit skips the store", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		reports := &MockReports{}
		data, err := json.Marshal(sampleSummary())
		require.NoError(t, err)

		redisMock.ExpectGet(summaryCacheKey).SetVal(string(data))

		service := NewReportService(reports, redisClient, ttl)
		got, err := service.PortfolioSummary(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, got.AccountCount)
		assert.Equal(t, "15250.75", got.TotalDeposits.StringFixed(2))
		assert.Equal(t, 1, got.LoansByStatus[models.LoanDelinquent])

		reports.AssertNotCalled(t, "PortfolioSummary", mock.Anything)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("redis failure falls through to the store", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		reports := &MockReports{}
		summary := sampleSummary()
		data, err := json.Marshal(summary)
		require.NoError(t, err)

		reports.On("PortfolioSummary", mock.Anything).Return(summary, nil)
		redisMock.ExpectGet(summaryCacheKey).SetErr(errors.New("connection refused"))
		redisMock.ExpectSet(summaryCacheKey, data, ttl).SetErr(errors.New("connection refused"))

		service := NewReportService(reports, redisClient, ttl)
		got, err := service.PortfolioSummary(ctx)
		require.NoError(t, err)
		assert.Equal(t, summary, got)
	})

	t.Run("store error is returned", func(t *testing.T) {
		reports := &MockReports{}
		reports.On("PortfolioSummary", mock.Anything).Return(nil, errors.New("db down"))

		service := NewReportService(reports, nil, ttl)
		_, err := service.PortfolioSummary(ctx)
		assert.EqualError(t, err, "db down")
	})
}

func TestReportService_Invalidate(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	redisMock.ExpectDel(summaryCacheKey).SetVal(1)

	service := NewReportService(&MockReports{}, redisClient, time.Minute)
	service.Invalidate(context.Background())
	assert.NoError(t, redisMock.ExpectationsWereMet())

	// without redis it is a no-op
	NewReportService(&MockReports{}, nil, time.Minute).Invalidate(context.Background())
}

func TestReportService_Passthrough(t *testing.T) {
	ctx := context.Background()
	reports := &MockReports{}
	filter := repository.TransactionFilter{AccountID: "acc-1", Type: models.TxDeposit}
	reports.On("ListTransactions", ctx, filter).Return([]models.Transaction{{ID: "tx-1"}}, nil)
	reports.On("ListLoans", ctx, repository.LoanFilter{Status: models.LoanPaid}).Return([]models.Loan{}, nil)
	reports.On("ListLoanTransactions", ctx, "loan-1").Return(nil, errors.New("boom"))

	service := NewReportService(reports, nil, 0)

	txs, err := service.ListTransactions(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	loans, err := service.ListLoans(ctx, repository.LoanFilter{Status: models.LoanPaid})
	require.NoError(t, err)
	assert.Empty(t, loans)

	_, err = service.ListLoanTransactions(ctx, "loan-1")
	assert.Error(t, err)

	reports.AssertExpectations(t)
}

func TestReportService_WiredToLedger(t *testing.T) {
	g := repository.NewMemoryGateway()
	seedAccount(g, "acc-1", "1", "100")

	redisClient, redisMock := redismock.NewClientMock()
	reportService := NewReportService(g, redisClient, time.Minute)
	ledger := NewLedgerService(g, nil, 3, WithLedgerReports(reportService))

	redisMock.ExpectDel(summaryCacheKey).SetVal(0)
	_, err := ledger.Deposit(context.Background(), ByID("acc-1"), dec("50"))
	require.NoError(t, err)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

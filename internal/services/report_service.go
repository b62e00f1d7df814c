package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ruralpay/backoffice/internal/models"
	"github.com/ruralpay/backoffice/internal/repository"
)

const summaryCacheKey = "backoffice:reports:portfolio_summary"

// ReportService is the query facade used by the admin endpoints. The portfolio
// summary is cached in Redis; ledger and loan writes call Invalidate. A nil Redis
// client means every call goes to the store.
type ReportService struct {
	reports repository.Reports
	redis   *redis.Client
	ttl     time.Duration
}

func NewReportService(reports repository.Reports, redisClient *redis.Client, ttl time.Duration) *ReportService {
	return &ReportService{
		reports: reports,
		redis:   redisClient,
		ttl:     ttl,
	}
}

func (s *ReportService) ListTransactions(ctx context.Context, filter repository.TransactionFilter) ([]models.Transaction, error) {
	return s.reports.ListTransactions(ctx, filter)
}

func (s *ReportService) ListLoans(ctx context.Context, filter repository.LoanFilter) ([]models.Loan, error) {
	return s.reports.ListLoans(ctx, filter)
}

func (s *ReportService) ListLoanTransactions(ctx context.Context, loanID string) ([]models.LoanTransaction, error) {
	return s.reports.ListLoanTransactions(ctx, loanID)
}

func (s *ReportService) PortfolioSummary(ctx context.Context) (*models.PortfolioSummary, error) {
	if s.cached() {
		data, err := s.redis.Get(ctx, summaryCacheKey).Bytes()
		switch {
		case err == nil:
			var summary models.PortfolioSummary
			if err := json.Unmarshal(data, &summary); err == nil {
				return &summary, nil
			}
			log.Printf("[REPORTS] discarding unreadable cached summary")
		case !errors.Is(err, redis.Nil):
			log.Printf("[REPORTS] cache read failed: %v", err)
		}
	}

	summary, err := s.reports.PortfolioSummary(ctx)
	if err != nil {
		return nil, err
	}

	if s.cached() {
		data, err := json.Marshal(summary)
		if err == nil {
			err = s.redis.Set(ctx, summaryCacheKey, data, s.ttl).Err()
		}
		if err != nil {
			log.Printf("[REPORTS] cache write failed: %v", err)
		}
	}
	return summary, nil
}

// Invalidate drops the cached summary.
func (s *ReportService) Invalidate(ctx context.Context) {
	if !s.cached() {
		return
	}
	if err := s.redis.Del(ctx, summaryCacheKey).Err(); err != nil {
		log.Printf("[REPORTS] cache invalidation failed: %v", err)
	}
}

func (s *ReportService) cached() bool {
	return s.redis != nil && s.ttl > 0
}

package commands

import (
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/ruralpay/backoffice/internal/audit"
	"github.com/ruralpay/backoffice/internal/config"
	"github.com/ruralpay/backoffice/internal/database"
	"github.com/ruralpay/backoffice/internal/handlers"
	"github.com/ruralpay/backoffice/internal/repository"
	"github.com/ruralpay/backoffice/internal/services"
)

// app is the wired service graph shared by serve and the operator commands.
type app struct {
	db       *sql.DB
	redis    *redis.Client
	services handlers.Services
}

func newApp(cfg *config.Config) (*app, error) {
	catalog, err := config.LoadCatalog(cfg.Lending.CatalogPath)
	if err != nil {
		return nil, err
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	redisClient := database.InitRedis(cfg.Redis)

	gateway := repository.NewPostgresGateway(db)
	auditLogger := audit.NewLogger()
	reports := services.NewReportService(gateway, redisClient, cfg.Reports.CacheTTL)

	return &app{
		db:    db,
		redis: redisClient,
		services: handlers.Services{
			Ledger: services.NewLedgerService(gateway, auditLogger, cfg.Ledger.MaxRetries,
				services.WithLedgerReports(reports)),
			Loans: services.NewLoanService(gateway, gateway, catalog, cfg.Lending, auditLogger,
				services.WithLoanReports(reports)),
			Reports: reports,
		},
	}, nil
}

func (a *app) Close() error {
	if a.redis != nil {
		a.redis.Close()
	}
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/ruralpay/backoffice/docs"
	mW "github.com/ruralpay/backoffice/internal/middleware"
	"github.com/ruralpay/backoffice/internal/services"
)

// Services is everything the HTTP surface calls into.
type Services struct {
	Ledger  *services.LedgerService
	Loans   *services.LoanService
	Reports *services.ReportService
}

type RouterOptions struct {
	JWTSecret      string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(svc Services, opts RouterOptions) http.Handler {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"https://*", "http://*"}
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	ledger := NewLedgerHandler(svc.Ledger)
	loans := NewLoanHandler(svc.Loans)
	reports := NewReportHandler(svc.Reports)

	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Timeout(opts.RequestTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mW.Auth(opts.JWTSecret))

		r.Post("/accounts/{account}/deposits", ledger.Deposit)
		r.Post("/accounts/{account}/withdrawals", ledger.Withdraw)
		r.Post("/transfers", ledger.Transfer)

		r.Post("/loans", loans.Apply)
		r.Get("/loans/{id}", loans.Get)
		r.Post("/loans/{id}/payment-amount", loans.PaymentAmount)
		r.Post("/loans/{id}/payments", loans.Pay)
		r.Post("/loans/{id}/transitions", loans.Transition)
		r.Post("/loans/{id}/restructure", loans.Restructure)
		r.Get("/loans/{id}/schedule", loans.Schedule)

		r.Get("/reports/transactions", reports.Transactions)
		r.Get("/reports/loans", reports.Loans)
		r.Get("/reports/loans/{id}/transactions", reports.LoanTransactions)
		r.Get("/reports/summary", reports.Summary)
	})

	return r
}

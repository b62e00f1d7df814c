package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ruralpay/backoffice/internal/models"
	"github.com/ruralpay/backoffice/internal/repository"
	"github.com/ruralpay/backoffice/internal/services"
)

type ReportHandler struct {
	service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Transactions lists ledger rows, newest first
// @Summary List transactions
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param account_id query string false "Account ID"
// @Param type query string false "DEPOSIT, WITHDRAWAL, INCOMING_TRANSFER or OUTGOING_TRANSFER"
// @Param status query string false "CONFIRMED, CANCELLED or DENIED"
// @Param from query string false "Earliest date (YYYY-MM-DD or RFC 3339)"
// @Param to query string false "Latest date (YYYY-MM-DD or RFC 3339)"
// @Param limit query int false "Maximum rows (default 50)"
// @Success 200 {array} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Router /reports/transactions [get]
func (h *ReportHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.TransactionFilter{
		AccountID: q.Get("account_id"),
		Type:      models.TransactionType(q.Get("type")),
		Status:    models.TransactionStatus(q.Get("status")),
	}

	var err error
	if filter.From, err = queryDate(r, "from"); err != nil {
		services.SendErrorResponse(w, "Invalid from date", http.StatusBadRequest, nil)
		return
	}
	if filter.To, err = queryDate(r, "to"); err != nil {
		services.SendErrorResponse(w, "Invalid to date", http.StatusBadRequest, nil)
		return
	}
	if filter.Limit, err = queryLimit(r); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	transactions, err := h.service.ListTransactions(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	services.SendJSON(w, http.StatusOK, transactions)
}

// Loans lists loans, newest application first
// @Summary List loans
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param status query string false "Loan status"
// @Param user_id query string false "Borrower"
// @Param account_id query string false "Account ID"
// @Param due_before query string false "Only loans due before this date"
// @Param limit query int false "Maximum rows (default 50)"
// @Success 200 {array} models.Loan
// @Failure 400 {object} services.ErrorResponse
// @Router /reports/loans [get]
func (h *ReportHandler) Loans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.LoanFilter{
		Status:    models.LoanStatus(q.Get("status")),
		UserID:    q.Get("user_id"),
		AccountID: q.Get("account_id"),
	}

	var err error
	if filter.DueBefore, err = queryDate(r, "due_before"); err != nil {
		services.SendErrorResponse(w, "Invalid due_before date", http.StatusBadRequest, nil)
		return
	}
	if filter.Limit, err = queryLimit(r); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	loans, err := h.service.ListLoans(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if loans == nil {
		loans = []models.Loan{}
	}
	services.SendJSON(w, http.StatusOK, loans)
}

// LoanTransactions lists the payments and fees of one loan
// @Summary Loan history
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Success 200 {array} models.LoanTransaction
// @Router /reports/loans/{id}/transactions [get]
func (h *ReportHandler) LoanTransactions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListLoanTransactions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.LoanTransaction{}
	}
	services.SendJSON(w, http.StatusOK, entries)
}

// Summary returns the portfolio roll-up
// @Summary Portfolio summary
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.PortfolioSummary
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.PortfolioSummary(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, summary)
}

func queryDate(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ruralpay/backoffice/internal/middleware"
	"github.com/ruralpay/backoffice/internal/services"
)

type LedgerHandler struct {
	service   *services.LedgerService
	validator *services.ValidationHelper
}

func NewLedgerHandler(service *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string" example:"150.00"`
}

type transferRequest struct {
	From          string          `json:"from" validate:"required"`
	To            string          `json:"to" validate:"required_without=ToBeneficiary"`
	ToBeneficiary bool            `json:"to_beneficiary"`
	Amount        decimal.Decimal `json:"amount" swaggertype:"string" example:"150.00"`
}

// Deposit credits an account
// @Summary Deposit
// @Description Credit an account identified by ID or account number
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param account path string true "Account ID or number"
// @Param request body amountRequest true "Deposit amount"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /accounts/{account}/deposits [post]
func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	tx, err := h.service.Deposit(r.Context(), accountRef(chi.URLParam(r, "account")), req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.Printf("[LEDGER] deposit %s by %s", tx.ID, middleware.UserID(r.Context()))
	services.SendJSON(w, http.StatusCreated, tx)
}

// Withdraw debits an account
// @Summary Withdraw
// @Description Debit an account identified by ID or account number
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param account path string true "Account ID or number"
// @Param request body amountRequest true "Withdrawal amount"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /accounts/{account}/withdrawals [post]
func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	tx, err := h.service.Withdraw(r.Context(), accountRef(chi.URLParam(r, "account")), req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.Printf("[LEDGER] withdrawal %s by %s", tx.ID, middleware.UserID(r.Context()))
	services.SendJSON(w, http.StatusCreated, tx)
}

// Transfer moves funds between two accounts
// @Summary Transfer
// @Description Move funds between accounts. With to_beneficiary the destination is the source account's registered beneficiary.
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body transferRequest true "Transfer request"
// @Success 201 {object} services.TransferResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /transfers [post]
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	var result *services.TransferResult
	var err error
	if req.ToBeneficiary {
		result, err = h.service.TransferToBeneficiary(r.Context(), accountRef(req.From), req.Amount)
	} else {
		result, err = h.service.Transfer(r.Context(), accountRef(req.From), accountRef(req.To), req.Amount)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.Printf("[LEDGER] transfer %s by %s", result.Outgoing.ID, middleware.UserID(r.Context()))
	services.SendJSON(w, http.StatusCreated, result)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ruralpay/backoffice/internal/lending"
	"github.com/ruralpay/backoffice/internal/middleware"
	"github.com/ruralpay/backoffice/internal/models"
	"github.com/ruralpay/backoffice/internal/services"
)

type LoanHandler struct {
	service   *services.LoanService
	validator *services.ValidationHelper
	now       func() time.Time
}

func NewLoanHandler(service *services.LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: services.NewValidationHelper(),
		now:       time.Now,
	}
}

type loanApplicationRequest struct {
	UserID               string          `json:"user_id"`
	AccountNumber        string          `json:"account_number" validate:"required"`
	LoanTypeID           string          `json:"loan_type_id" validate:"required"`
	LoanAmount           decimal.Decimal `json:"loan_amount" swaggertype:"string" example:"12000.00"`
	InterestRate         decimal.Decimal `json:"interest_rate" swaggertype:"string" example:"0.12"`
	TermMonths           int             `json:"term_months" validate:"required,gt=0"`
	PaymentFrequency     int             `json:"payment_frequency" validate:"required,gt=0"`
	Purpose              string          `json:"purpose" validate:"required"`
	GrossAnnualIncome    decimal.Decimal `json:"gross_annual_income" swaggertype:"string" example:"60000.00"`
	GovernmentIDDocument string          `json:"government_id_document"`
	PayslipDocument      string          `json:"payslip_document"`
}

type loanPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" example:"1066.19"`
	PaymentDate string          `json:"payment_date" example:"2025-02-01"`
}

type paymentQuoteRequest struct {
	PaymentDate string `json:"payment_date" example:"2025-02-01"`
}

type transitionRequest struct {
	Action  string `json:"action" validate:"required,oneof=review pre-approve approve disburse activate reject cancel default delinquent"`
	Remarks string `json:"remarks"`
	AsOf    string `json:"as_of" example:"2025-02-02"`
}

type restructureRequest struct {
	InterestRate decimal.Decimal `json:"interest_rate" swaggertype:"string" example:"0.06"`
	TermMonths   int             `json:"term_months" validate:"required,gt=0"`
}

type paymentAmountResponse struct {
	LoanID      string          `json:"loan_id"`
	PaymentDate time.Time       `json:"payment_date"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string"`
}

// Apply registers a loan application
// @Summary Apply for a loan
// @Description Price a loan draft and store it as SUBMITTED. user_id defaults to the caller.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body loanApplicationRequest true "Loan application"
// @Success 201 {object} models.Loan
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /loans [post]
func (h *LoanHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req loanApplicationRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = middleware.UserID(r.Context())
	}
	if userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	loan, err := h.service.RegisterLoanApplication(r.Context(), services.LoanApplication{
		Loan: models.Loan{
			LoanTypeID:       req.LoanTypeID,
			LoanAmount:       req.LoanAmount,
			InterestRate:     req.InterestRate,
			TermMonths:       req.TermMonths,
			PaymentFrequency: req.PaymentFrequency,
			Purpose:          req.Purpose,
		},
		AccountNumber:        req.AccountNumber,
		UserID:               userID,
		GrossAnnualIncome:    req.GrossAnnualIncome,
		GovernmentIDDocument: req.GovernmentIDDocument,
		PayslipDocument:      req.PayslipDocument,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusCreated, loan)
}

// Get returns one loan
// @Summary Get loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Success 200 {object} models.Loan
// @Failure 404 {object} services.ErrorResponse
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.GetLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, loan)
}

// PaymentAmount quotes the installment due on a date
// @Summary Quote current payment
// @Description Returns the installment due on payment_date (default today). Quoting past the due date charges the late fee once for that due date.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Param request body paymentQuoteRequest false "Quote date"
// @Success 200 {object} paymentAmountResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /loans/{id}/payment-amount [post]
func (h *LoanHandler) PaymentAmount(w http.ResponseWriter, r *http.Request) {
	var req paymentQuoteRequest
	if r.ContentLength != 0 && !decodeBody(w, r, h.validator, &req) {
		return
	}
	date, err := optionalDate(req.PaymentDate, h.now())
	if err != nil {
		services.SendErrorResponse(w, "Invalid payment_date", http.StatusBadRequest, nil)
		return
	}

	loanID := chi.URLParam(r, "id")
	amount, err := h.service.GetCurrentPaymentAmount(r.Context(), loanID, date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, paymentAmountResponse{LoanID: loanID, PaymentDate: date, Amount: amount})
}

// Pay applies a payment
// @Summary Record loan payment
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Param request body loanPaymentRequest true "Payment"
// @Success 201 {object} models.LoanTransaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /loans/{id}/payments [post]
func (h *LoanHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req loanPaymentRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}
	date, err := optionalDate(req.PaymentDate, h.now())
	if err != nil {
		services.SendErrorResponse(w, "Invalid payment_date", http.StatusBadRequest, nil)
		return
	}

	entry, err := h.service.UpdateLoanPayment(r.Context(), chi.URLParam(r, "id"), date, req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusCreated, entry)
}

// Transition moves a loan through its lifecycle
// @Summary Change loan status
// @Description Actions: review, pre-approve, approve, disburse, activate, reject, cancel, default, delinquent
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Param request body transitionRequest true "Transition"
// @Success 200 {object} models.Loan
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /loans/{id}/transitions [post]
func (h *LoanHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}
	asOf, err := optionalDate(req.AsOf, h.now())
	if err != nil {
		services.SendErrorResponse(w, "Invalid as_of", http.StatusBadRequest, nil)
		return
	}

	loan, err := h.transition(r.Context(), chi.URLParam(r, "id"), req, asOf)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, loan)
}

func (h *LoanHandler) transition(ctx context.Context, id string, req transitionRequest, asOf time.Time) (*models.Loan, error) {
	switch req.Action {
	case "review":
		return h.service.BeginReview(ctx, id)
	case "pre-approve":
		return h.service.PreApprove(ctx, id)
	case "approve":
		return h.service.Approve(ctx, id)
	case "disburse":
		return h.service.Disburse(ctx, id)
	case "activate":
		return h.service.Activate(ctx, id)
	case "reject":
		return h.service.Reject(ctx, id, req.Remarks)
	case "cancel":
		return h.service.Cancel(ctx, id, req.Remarks)
	case "default":
		return h.service.MarkDefaulted(ctx, id)
	default:
		return h.service.MarkDelinquent(ctx, id, asOf)
	}
}

// Restructure re-terms a loan
// @Summary Restructure loan
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Param request body restructureRequest true "New terms"
// @Success 200 {object} models.Loan
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /loans/{id}/restructure [post]
func (h *LoanHandler) Restructure(w http.ResponseWriter, r *http.Request) {
	var req restructureRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	loan, err := h.service.Restructure(r.Context(), chi.URLParam(r, "id"), req.InterestRate, req.TermMonths)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, loan)
}

// Schedule lays out the remaining installments
// @Summary Amortization schedule
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Success 200 {array} lending.ScheduleEntry
// @Failure 404 {object} services.ErrorResponse
// @Router /loans/{id}/schedule [get]
func (h *LoanHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.service.Schedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if schedule == nil {
		schedule = []lending.ScheduleEntry{}
	}
	services.SendJSON(w, http.StatusOK, schedule)
}

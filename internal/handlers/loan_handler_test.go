package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralpay/backoffice/internal/lending"
	"github.com/ruralpay/backoffice/internal/models"
)

const applicationBody = `{
	"account_number": "0011223344",
	"loan_type_id": "personal",
	"loan_amount": "12000",
	"term_months": 12,
	"payment_frequency": 12,
	"purpose": "Greenhouse",
	"gross_annual_income": "48000",
	"government_id_document": "id-scan.pdf",
	"payslip_document": "payslip-dec.pdf"
}`

func (a *testAPI) apply() models.Loan {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/loans", applicationBody)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var loan models.Loan
	decodeInto(a.t, w, &loan)
	return loan
}

func (a *testAPI) transition(id, action string) *models.Loan {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/loans/"+id+"/transitions", fmt.Sprintf(`{"action":%q}`, action))
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var loan models.Loan
	decodeInto(a.t, w, &loan)
	return &loan
}

// activeLoan runs an application all the way to ACTIVE. Disbursed on Jan 15 2025,
// first due Feb 15 2025.
func (a *testAPI) activeLoan() models.Loan {
	a.t.Helper()
	loan := a.apply()
	for _, action := range []string{"review", "pre-approve", "approve", "disburse", "activate"} {
		a.transition(loan.ID, action)
	}
	w := a.do(http.MethodGet, "/api/v1/loans/"+loan.ID, "")
	require.Equal(a.t, http.StatusOK, w.Code)
	decodeInto(a.t, w, &loan)
	require.Equal(a.t, models.LoanActive, loan.Status)
	return loan
}

func TestApplyForLoan(t *testing.T) {
	api := newTestAPI(t)

	loan := api.apply()

	assert.Equal(t, models.LoanSubmitted, loan.Status)
	assert.Equal(t, borrowerID, loan.UserID)
	assert.Equal(t, checkingID, loan.AccountID)
	assert.True(t, dec("0.12").Equal(loan.InterestRate), "base rate of the loan type")
	assert.True(t, dec("1066.19").Equal(loan.PaymentAmount))
	assert.Equal(t, 12, loan.NumberOfPayments)
	assert.Equal(t, "LN-20250115100000-"+checkingNo, loan.Number)
}

func TestApplyForLoanErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"below minimum", `{"account_number":"0011223344","loan_type_id":"personal","loan_amount":"500","term_months":12,"payment_frequency":12,"purpose":"x"}`, http.StatusBadRequest},
		{"bad frequency", `{"account_number":"0011223344","loan_type_id":"personal","loan_amount":"5000","term_months":12,"payment_frequency":5,"purpose":"x"}`, http.StatusBadRequest},
		{"negative rate", `{"account_number":"0011223344","loan_type_id":"personal","loan_amount":"5000","interest_rate":"-0.01","term_months":12,"payment_frequency":12,"purpose":"x"}`, http.StatusBadRequest},
		{"missing purpose", `{"account_number":"0011223344","loan_type_id":"personal","loan_amount":"5000","term_months":12,"payment_frequency":12}`, http.StatusBadRequest},
		{"unknown type", `{"account_number":"0011223344","loan_type_id":"yacht","loan_amount":"5000","term_months":12,"payment_frequency":12,"purpose":"x"}`, http.StatusNotFound},
		{"unknown account", `{"account_number":"4040404040","loan_type_id":"personal","loan_amount":"5000","term_months":12,"payment_frequency":12,"purpose":"x"}`, http.StatusNotFound},
		{"unknown user", `{"user_id":"ghost","account_number":"0011223344","loan_type_id":"personal","loan_amount":"5000","term_months":12,"payment_frequency":12,"purpose":"x"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			w := api.do(http.MethodPost, "/api/v1/loans", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestGetLoanNotFound(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(http.MethodGet, "/api/v1/loans/"+unknownLoan, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoanLifecycle(t *testing.T) {
	api := newTestAPI(t)
	loan := api.activeLoan()

	require.NotNil(t, loan.DueDate)
	assert.Equal(t, "2025-02-15", loan.DueDate.Format("2006-01-02"))

	w := api.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/transitions", `{"action":"approve"}`)
	assert.Equal(t, http.StatusConflict, w.Code, "approve is not an edge out of ACTIVE")

	w = api.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/transitions", `{"action":"delinquent","as_of":"2025-02-01"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "not overdue yet")

	w = api.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/transitions", `{"action":"delinquent","as_of":"2025-02-20"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var delinquent models.Loan
	decodeInto(t, w, &delinquent)
	assert.Equal(t, models.LoanDelinquent, delinquent.Status)
}

func TestLoanTransitionValidation(t *testing.T) {
	api := newTestAPI(t)
	loan := api.apply()

	w := api.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/transitions", `{"action":"teleport"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	rejected := api.transition(loan.ID, "reject")
	assert.Equal(t, models.LoanRejected, rejected.Status)

	w = api.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/transitions", `{"action":"review"}`)
	assert.Equal(t, http.StatusConflict, w.Code, "rejected is terminal")
}

func TestLoanPayment(t *testing.T) {
	api := newTestAPI(t)
	loan := api.activeLoan()

	w := api.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/payment-amount", `{"payment_date":"2025-02-10"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var quote paymentAmountResponse
	decodeInto(t, w, &quote)
	assert.True(t, dec("1066.19").Equal(quote.Amount))

	w = api.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/payments", `{"amount":"1066.19","payment_date":"2025-02-10"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var entry models.LoanTransaction
	decodeInto(t, w, &entry)
	assert.True(t, dec("10933.81").Equal(entry.RemainingBalance))

	w = api.do(http.MethodGet, "/api/v1/reports/loans/"+loan.ID+"/transactions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.LoanTransaction
	decodeInto(t, w, &history)
	assert.Len(t, history, 1)
}

func TestLatePaymentQuoteChargesFee(t *testing.T) {
	api := newTestAPI(t)
	loan := api.activeLoan()

	for i := 0; i < 2; i++ {
		w := api.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/payment-amount", `{"payment_date":"2025-02-20"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var quote paymentAmountResponse
		decodeInto(t, w, &quote)
		assert.True(t, dec("1119.50").Equal(quote.Amount), "fee is charged once, got %s", quote.Amount)
	}

	w := api.do(http.MethodGet, "/api/v1/loans/"+loan.ID, "")
	var current models.Loan
	decodeInto(t, w, &current)
	assert.Equal(t, models.LoanDelinquent, current.Status)
}

func TestLoanPaymentErrors(t *testing.T) {
	api := newTestAPI(t)
	submitted := api.apply()

	w := api.do(http.MethodPost, "/api/v1/loans/"+submitted.ID+"/payments", `{"amount":"100"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "not payable while SUBMITTED")

	w = api.do(http.MethodPost, "/api/v1/loans/"+submitted.ID+"/payments", `{"amount":"0"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/v1/loans/"+submitted.ID+"/payments", `{"amount":"100","payment_date":"Feb 1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/v1/loans/"+unknownLoan+"/payments", `{"amount":"100"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestructure(t *testing.T) {
	api := newTestAPI(t)
	loan := api.activeLoan()

	w := api.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/restructure", `{"interest_rate":"0.06","term_months":24}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var restructured models.Loan
	decodeInto(t, w, &restructured)
	assert.Equal(t, models.LoanActive, restructured.Status)
	assert.True(t, dec("531.85").Equal(restructured.PaymentAmount), "got %s", restructured.PaymentAmount)

	w = api.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/restructure", `{"interest_rate":"-0.06","term_months":24}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchedule(t *testing.T) {
	api := newTestAPI(t)
	loan := api.activeLoan()

	w := api.do(http.MethodGet, "/api/v1/loans/"+loan.ID+"/schedule", "")
	require.Equal(t, http.StatusOK, w.Code)
	var schedule []lending.ScheduleEntry
	decodeInto(t, w, &schedule)
	require.Len(t, schedule, 12)
	assert.Equal(t, "2025-02-15", schedule[0].DueDate.Format("2006-01-02"))
	assert.True(t, schedule[11].RemainingBalance.IsZero())
}

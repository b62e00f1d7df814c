// Package audit writes one JSON line per committed money or loan mutation and per
// failed operation, prefixed with "AUDIT:" so log shippers can route them.
package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	Timestamp     time.Time        `json:"timestamp"`
	EventType     string           `json:"event_type"`
	TransactionID string           `json:"transaction_id,omitempty"`
	AccountID     string           `json:"account_id,omitempty"`
	LoanID        string           `json:"loan_id,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Status        string           `json:"status"`
	Details       any              `json:"details,omitempty"`
}

type Logger struct {
	out *log.Logger
	now func() time.Time
}

// NewLogger writes through the standard logger. A nil *Logger discards events.
func NewLogger() *Logger {
	return &Logger{out: log.Default(), now: time.Now}
}

// NewLoggerTo writes through l, mainly so tests can capture output.
func NewLoggerTo(l *log.Logger) *Logger {
	return &Logger{out: l, now: time.Now}
}

func (a *Logger) LogLedger(eventType, transactionID, accountID string, amount, newBalance decimal.Decimal) {
	a.log(Event{
		EventType:     eventType,
		TransactionID: transactionID,
		AccountID:     accountID,
		Amount:        &amount,
		Status:        "SUCCESS",
		Details:       map[string]string{"new_balance": newBalance.StringFixed(2)},
	})
}

func (a *Logger) LogTransfer(fromTxID, fromAccount, toAccount string, amount decimal.Decimal) {
	a.log(Event{
		EventType:     "TRANSFER",
		TransactionID: fromTxID,
		AccountID:     fromAccount,
		Amount:        &amount,
		Status:        "SUCCESS",
		Details: map[string]string{
			"from_account": fromAccount,
			"to_account":   toAccount,
		},
	})
}

func (a *Logger) LogLoan(eventType, loanID string, amount decimal.Decimal, details map[string]string) {
	a.log(Event{
		EventType: eventType,
		LoanID:    loanID,
		Amount:    &amount,
		Status:    "SUCCESS",
		Details:   details,
	})
}

func (a *Logger) LogLoanTransition(loanID, from, to string) {
	a.log(Event{
		EventType: "LOAN_TRANSITION",
		LoanID:    loanID,
		Status:    "SUCCESS",
		Details:   map[string]string{"from": from, "to": to},
	})
}

// LogError records a failed operation. subject is the account or loan it targeted.
func (a *Logger) LogError(operation, subject string, err error) {
	a.log(Event{
		EventType: operation,
		AccountID: subject,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	if a == nil {
		return
	}
	event.Timestamp = a.now()
	data, _ := json.Marshal(event)
	a.out.Printf("AUDIT: %s", string(data))
}

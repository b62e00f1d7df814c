// Package lending holds the pure loan math and the loan lifecycle rules.
// Nothing here touches storage; services load a loan, call into this package and
// persist the result.
package lending

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ruralpay/backoffice/internal/models"
	"github.com/ruralpay/backoffice/internal/money"
)

const monthsPerYear = 12

// NumberOfPayments is (termMonths / 12) * frequency. The product must be a whole
// number of payments.
func NumberOfPayments(termMonths, frequency int) (int, error) {
	if termMonths <= 0 {
		return 0, fmt.Errorf("term must be positive, got %d", termMonths)
	}
	if frequency <= 0 {
		return 0, fmt.Errorf("payment frequency must be positive, got %d", frequency)
	}
	if (termMonths*frequency)%monthsPerYear != 0 {
		return 0, fmt.Errorf("term of %d months does not split into whole payments at %d per year", termMonths, frequency)
	}
	return termMonths * frequency / monthsPerYear, nil
}

// RatePerPayment converts an annual rate into the per-period rate. Not rounded.
func RatePerPayment(annualRate decimal.Decimal, frequency int) decimal.Decimal {
	if frequency <= 0 {
		return decimal.Zero
	}
	return annualRate.Div(decimal.NewFromInt(int64(frequency)))
}

// PaymentAmount is the annuity payment that clears balance over n periods:
//
//	factor  = (1 + r)^n
//	payment = balance * r * factor / (factor - 1)
//
// A zero rate degenerates to balance / n. n <= 0 means the whole balance is due.
func PaymentAmount(balance, ratePerPeriod decimal.Decimal, n int) decimal.Decimal {
	if !money.IsPositive(balance) {
		return decimal.Zero
	}
	if n <= 0 {
		return money.Round(balance)
	}
	periods := decimal.NewFromInt(int64(n))
	if ratePerPeriod.IsZero() {
		return money.Round(balance.Div(periods))
	}
	factor := money.One.Add(ratePerPeriod).Pow(periods)
	denominator := factor.Sub(money.One)
	if denominator.IsZero() {
		return money.Round(balance.Div(periods))
	}
	return money.Round(balance.Mul(ratePerPeriod).Mul(factor).Div(denominator))
}

// PeriodInterest is the interest one period accrues on balance.
func PeriodInterest(balance, ratePerPeriod decimal.Decimal) decimal.Decimal {
	if !money.IsPositive(balance) {
		return decimal.Zero
	}
	return money.Round(balance.Mul(ratePerPeriod))
}

// MonthsPerPayment is the spacing between due dates.
func MonthsPerPayment(frequency int) int {
	if frequency <= 0 {
		return monthsPerYear
	}
	return monthsPerYear / frequency
}

// NextDueDate moves due forward by one payment period. The day of month is clamped
// to the last day of the target month, so Jan 31 becomes Feb 28 (or 29). Each due
// date is derived from the previous one, so a clamped day stays clamped: Jan 31,
// Feb 28, Mar 28.
func NextDueDate(due time.Time, frequency int) time.Time {
	return AddMonths(due, MonthsPerPayment(frequency))
}

// AddMonths adds whole calendar months without overflowing short months.
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysLate counts whole calendar days from due to paid. Zero or negative means on time.
func DaysLate(due, paid time.Time) int {
	dy, dm, dd := due.Date()
	py, pm, pd := paid.In(due.Location()).Date()
	dueDay := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	paidDay := time.Date(py, pm, pd, 0, 0, 0, 0, time.UTC)
	return int(paidDay.Sub(dueDay).Hours() / 24)
}

// LateFee is the penalty charged on an overdue payment.
func LateFee(payment, rate decimal.Decimal) decimal.Decimal {
	return money.Percent(payment, rate)
}

// PaymentsLeft is the number of scheduled payments not yet made, never below one
// while a balance remains.
func PaymentsLeft(loan *models.Loan) int {
	left := loan.NumberOfPayments - loan.PaymentsMade
	if left < 1 {
		return 1
	}
	return left
}

// Reprice recomputes InterestAmount and PaymentAmount against the current
// RemainingLoanBalance and InterestRatePerPayment.
func Reprice(loan *models.Loan) {
	loan.InterestAmount = PeriodInterest(loan.RemainingLoanBalance, loan.InterestRatePerPayment)
	loan.PaymentAmount = PaymentAmount(loan.RemainingLoanBalance, loan.InterestRatePerPayment, PaymentsLeft(loan))
}

// Price fills every derived field of a freshly applied loan from LoanAmount,
// InterestRate, TermMonths and PaymentFrequency.
func Price(loan *models.Loan) error {
	n, err := NumberOfPayments(loan.TermMonths, loan.PaymentFrequency)
	if err != nil {
		return err
	}
	loan.NumberOfPayments = n
	loan.PaymentsMade = 0
	loan.InterestRatePerPayment = RatePerPayment(loan.InterestRate, loan.PaymentFrequency)
	loan.RemainingLoanBalance = loan.LoanAmount
	Reprice(loan)
	return nil
}

// ScheduleEntry is one row of an amortization table.
type ScheduleEntry struct {
	Period           int             `json:"period"`
	DueDate          time.Time       `json:"due_date"`
	Payment          decimal.Decimal `json:"payment"`
	Interest         decimal.Decimal `json:"interest"`
	Principal        decimal.Decimal `json:"principal"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// Schedule lays out the level-payment table for balance. The last period absorbs
// rounding so the balance ends at exactly zero.
func Schedule(balance, ratePerPeriod decimal.Decimal, n, frequency int, firstDue time.Time) []ScheduleEntry {
	if n <= 0 || !money.IsPositive(balance) {
		return nil
	}

	payment := PaymentAmount(balance, ratePerPeriod, n)
	remaining := balance
	due := firstDue
	schedule := make([]ScheduleEntry, 0, n)

	for period := 1; period <= n; period++ {
		interest := PeriodInterest(remaining, ratePerPeriod)
		principal := payment.Sub(interest)
		if period == n || principal.GreaterThan(remaining) {
			principal = remaining
		}
		remaining = remaining.Sub(principal)

		schedule = append(schedule, ScheduleEntry{
			Period:           period,
			DueDate:          due,
			Payment:          principal.Add(interest),
			Interest:         interest,
			Principal:        principal,
			RemainingBalance: remaining,
		})
		if remaining.IsZero() {
			break
		}
		due = NextDueDate(due, frequency)
	}

	return schedule
}

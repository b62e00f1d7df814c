package lending

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralpay/backoffice/internal/models"
	"github.com/ruralpay/backoffice/internal/money"
)

func dec(s string) decimal.Decimal { return money.MustParse(s) }

func TestPaymentAmount(t *testing.T) {
	t.Run("standard annuity", func(t *testing.T) {
		got := PaymentAmount(dec("100000"), dec("0.01"), 12)
		assert.Equal(t, "8884.88", got.StringFixed(2))
	})

	t.Run("zero rate splits evenly", func(t *testing.T) {
		got := PaymentAmount(dec("12000"), decimal.Zero, 12)
		assert.True(t, dec("1000").Equal(got), "got %s", got)
	})

	t.Run("zero rate rounds to cents", func(t *testing.T) {
		got := PaymentAmount(dec("1000"), decimal.Zero, 3)
		assert.Equal(t, "333.33", got.StringFixed(2))
	})

	t.Run("no periods left means full balance", func(t *testing.T) {
		got := PaymentAmount(dec("250.50"), dec("0.01"), 0)
		assert.True(t, dec("250.50").Equal(got))
	})

	t.Run("nothing owed", func(t *testing.T) {
		assert.True(t, PaymentAmount(decimal.Zero, dec("0.01"), 12).IsZero())
		assert.True(t, PaymentAmount(dec("-5"), dec("0.01"), 12).IsZero())
	})
}

func TestNumberOfPayments(t *testing.T) {
	tests := []struct {
		term, freq int
		want       int
		wantErr    bool
	}{
		{12, 12, 12, false},
		{18, 12, 18, false},
		{24, 4, 8, false},
		{36, 1, 3, false},
		{18, 1, 0, true},
		{6, 1, 0, true},
		{0, 12, 0, true},
		{12, 0, 0, true},
	}
	for _, tt := range tests {
		got, err := NumberOfPayments(tt.term, tt.freq)
		if tt.wantErr {
			assert.Error(t, err, "NumberOfPayments(%d, %d)", tt.term, tt.freq)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "NumberOfPayments(%d, %d)", tt.term, tt.freq)
	}
}

func TestRatePerPayment(t *testing.T) {
	assert.True(t, dec("0.01").Equal(RatePerPayment(dec("0.12"), 12)))
	assert.True(t, dec("0.03").Equal(RatePerPayment(dec("0.12"), 4)))
	assert.True(t, RatePerPayment(dec("0.12"), 0).IsZero())
}

func TestNextDueDate(t *testing.T) {
	jan31 := time.Date(2025, time.January, 31, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.February, 28, 9, 0, 0, 0, time.UTC), NextDueDate(jan31, 12))

	mar15 := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC), NextDueDate(mar15, 4))
	assert.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), NextDueDate(mar15, 1))

	nov30 := time.Date(2025, time.November, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.December, 30, 0, 0, 0, 0, time.UTC), NextDueDate(nov30, 12))
	assert.Equal(t, time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC), AddMonths(nov30, 3))

	// a clamped day carries forward to later due dates
	feb28 := NextDueDate(jan31, 12)
	assert.Equal(t, time.Date(2025, time.March, 28, 9, 0, 0, 0, time.UTC), NextDueDate(feb28, 12))
}

func TestDaysLate(t *testing.T) {
	due := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysLate(due, due.Add(23*time.Hour)))
	assert.Equal(t, 2, DaysLate(due, time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, DaysLate(due, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)))
}

func TestLateFee(t *testing.T) {
	assert.Equal(t, "444.24", LateFee(dec("8884.88"), dec("0.05")).StringFixed(2))
}

func TestPrice(t *testing.T) {
	loan := &models.Loan{
		LoanAmount:       dec("12000"),
		InterestRate:     dec("0.12"),
		TermMonths:       12,
		PaymentFrequency: 12,
	}
	require.NoError(t, Price(loan))

	assert.Equal(t, 12, loan.NumberOfPayments)
	assert.True(t, dec("0.01").Equal(loan.InterestRatePerPayment))
	assert.True(t, dec("120").Equal(loan.InterestAmount))
	assert.Equal(t, "1066.19", loan.PaymentAmount.StringFixed(2))
	assert.True(t, dec("12000").Equal(loan.RemainingLoanBalance))

	bad := &models.Loan{LoanAmount: dec("1000"), TermMonths: 18, PaymentFrequency: 1}
	assert.Error(t, Price(bad))
}

func TestReprice(t *testing.T) {
	loan := &models.Loan{
		RemainingLoanBalance:   dec("6000"),
		InterestRatePerPayment: decimal.Zero,
		NumberOfPayments:       12,
		PaymentsMade:           6,
	}
	Reprice(loan)
	assert.True(t, dec("1000").Equal(loan.PaymentAmount))
	assert.True(t, loan.InterestAmount.IsZero())

	loan.PaymentsMade = 20
	Reprice(loan)
	assert.True(t, dec("6000").Equal(loan.PaymentAmount))
}

func TestSchedule(t *testing.T) {
	first := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	t.Run("amortizes to zero", func(t *testing.T) {
		rows := Schedule(dec("12000"), dec("0.01"), 12, 12, first)
		require.Len(t, rows, 12)

		principal := decimal.Zero
		for _, row := range rows {
			assert.True(t, row.Interest.Add(row.Principal).Equal(row.Payment), "period %d", row.Period)
			principal = principal.Add(row.Principal)
		}
		assert.True(t, dec("12000").Equal(principal))
		assert.True(t, rows[11].RemainingBalance.IsZero())
		assert.Equal(t, "1066.19", rows[0].Payment.StringFixed(2))
		assert.Equal(t, "120.00", rows[0].Interest.StringFixed(2))
		assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), rows[11].DueDate)
	})

	t.Run("zero rate", func(t *testing.T) {
		rows := Schedule(dec("1200"), decimal.Zero, 12, 12, first)
		require.Len(t, rows, 12)
		for _, row := range rows {
			assert.True(t, dec("100").Equal(row.Payment))
			assert.True(t, row.Interest.IsZero())
		}
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, Schedule(decimal.Zero, dec("0.01"), 12, 12, first))
		assert.Nil(t, Schedule(dec("100"), dec("0.01"), 0, 12, first))
	})
}

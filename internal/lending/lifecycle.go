package lending

import (
	"errors"
	"fmt"
	"time"

	"github.com/ruralpay/backoffice/internal/models"
)

// ErrInvalidLoanStateTransition is returned for every edge missing from the table.
var ErrInvalidLoanStateTransition = errors.New("invalid loan state transition")

// transitions lists the forward edges. Rejected and Cancelled are reachable from
// every non-terminal status and are added by CanTransition.
var transitions = map[models.LoanStatus][]models.LoanStatus{
	models.LoanSubmitted:    {models.LoanUnderReview},
	models.LoanUnderReview:  {models.LoanPreApproved},
	models.LoanPreApproved:  {models.LoanApproved},
	models.LoanApproved:     {models.LoanDisbursed},
	models.LoanDisbursed:    {models.LoanActive},
	models.LoanActive:       {models.LoanDelinquent, models.LoanPaid, models.LoanDefaulted, models.LoanRestructured},
	models.LoanDelinquent:   {models.LoanActive, models.LoanPaid, models.LoanDefaulted, models.LoanRestructured},
	models.LoanRestructured: {models.LoanActive},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to models.LoanStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == models.LoanRejected || to == models.LoanCancelled {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves loan to the target status or fails without touching it.
func Transition(loan *models.Loan, to models.LoanStatus, at time.Time) error {
	if !CanTransition(loan.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidLoanStateTransition, loan.Status, to)
	}
	loan.Status = to
	loan.UpdatedAt = at
	if to.IsTerminal() {
		end := at
		loan.EndDate = &end
	}
	return nil
}

// IsPayable reports whether payments may be applied in the loan's current status.
func IsPayable(status models.LoanStatus) bool {
	return status == models.LoanActive || status == models.LoanDelinquent
}

// IsOverdue reports whether an active loan has passed its due date with a balance left.
func IsOverdue(loan *models.Loan, asOf time.Time) bool {
	if loan.DueDate == nil || !loan.RemainingLoanBalance.IsPositive() {
		return false
	}
	return DaysLate(*loan.DueDate, asOf) > 0
}

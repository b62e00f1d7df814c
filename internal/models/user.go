package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the slice of the customer record the loan engine reads and updates.
// Identity and credentials live with the external identity system.
type User struct {
	ID                   string          `json:"id" db:"id"`
	Email                string          `json:"email" db:"email"`
	FirstName            string          `json:"first_name" db:"first_name"`
	LastName             string          `json:"last_name" db:"last_name"`
	GrossAnnualIncome    decimal.Decimal `json:"gross_annual_income" db:"gross_annual_income"`
	GovernmentIDDocument string          `json:"government_id_document" db:"government_id_document"`
	PayslipDocument      string          `json:"payslip_document" db:"payslip_document"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

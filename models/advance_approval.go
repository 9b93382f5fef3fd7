package models

import (
	"time"
)

// AdvanceApproval represents an approved short-term cash advance.
// The payback pipeline only ever rewrites DefaultPaybackDate; approvals
// are created and disbursed elsewhere.
type AdvanceApproval struct {
	ID                   int64     `db:"id"`
	UserID               int64     `db:"user_id"`
	BankAccountID        int64     `db:"bank_account_id"`
	Amount               float64   `db:"amount"`
	MicroAdvanceApproved bool      `db:"micro_advance_approved"`
	IncomeValid          bool      `db:"income_valid"`
	DefaultPaybackDate   time.Time `db:"default_payback_date"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

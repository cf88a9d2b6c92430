package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	KindIncome  EntryKind = "income"
	KindExpense EntryKind = "expense"
)

type LedgerEntry struct {
	ID          int64           `json:"id"`
	Kind        EntryKind       `json:"kind"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	MemberID    *int64          `json:"member_id"`
	CreatedBy   *int64          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// LedgerFilter narrows a ledger listing. From and To are inclusive YYYY-MM-DD dates.
type LedgerFilter struct {
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	Kind     EntryKind `json:"kind,omitempty"`
	Category string    `json:"category,omitempty"`
	MemberID *int64    `json:"member_id,omitempty"`
}

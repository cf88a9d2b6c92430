// Package ledger holds the church treasury rules: the fixed category lists
// and the totals shown on the finance page and the ledger report.
package ledger

import (
	"sort"

	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/shopspring/decimal"
)

var incomeCategories = []string{
	"Tithe",
	"Offering",
	"Special Donation",
	"Other Income",
}

var expenseCategories = []string{
	"Rent",
	"Utilities",
	"Supplies",
	"Salaries and Allowances",
	"Donations Made",
	"Event Expenses",
	"Transport",
	"Other Expenses",
}

// Categories returns a copy of the category list for kind, or nil for an
// unknown kind.
func Categories(kind model.EntryKind) []string {
	switch kind {
	case model.KindIncome:
		return append([]string(nil), incomeCategories...)
	case model.KindExpense:
		return append([]string(nil), expenseCategories...)
	}
	return nil
}

func ValidKind(kind model.EntryKind) bool {
	return kind == model.KindIncome || kind == model.KindExpense
}

func ValidCategory(kind model.EntryKind, category string) bool {
	for _, c := range Categories(kind) {
		if c == category {
			return true
		}
	}
	return false
}

type CategoryTotal struct {
	Kind     model.EntryKind `json:"kind"`
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

type MonthTotal struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

type Summary struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Balance      decimal.Decimal `json:"balance"`
	ByCategory   []CategoryTotal `json:"by_category"`
	ByMonth      []MonthTotal    `json:"by_month"`
}

// Summarize totals entries by kind, category and month. Entries with an
// unknown kind are skipped.
func Summarize(entries []model.LedgerEntry) Summary {
	sum := Summary{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		ByCategory:   []CategoryTotal{},
		ByMonth:      []MonthTotal{},
	}

	type catKey struct {
		kind     model.EntryKind
		category string
	}
	cats := make(map[catKey]*CategoryTotal)
	months := make(map[string]*MonthTotal)

	for _, e := range entries {
		if !ValidKind(e.Kind) {
			continue
		}

		k := catKey{e.Kind, e.Category}
		ct, ok := cats[k]
		if !ok {
			ct = &CategoryTotal{Kind: e.Kind, Category: e.Category, Total: decimal.Zero}
			cats[k] = ct
		}
		ct.Total = ct.Total.Add(e.Amount)
		ct.Count++

		month := monthOf(e.Date)
		mt, ok := months[month]
		if !ok {
			mt = &MonthTotal{Month: month, Income: decimal.Zero, Expense: decimal.Zero}
			months[month] = mt
		}

		if e.Kind == model.KindIncome {
			sum.TotalIncome = sum.TotalIncome.Add(e.Amount)
			mt.Income = mt.Income.Add(e.Amount)
		} else {
			sum.TotalExpense = sum.TotalExpense.Add(e.Amount)
			mt.Expense = mt.Expense.Add(e.Amount)
		}
	}
	sum.Balance = sum.TotalIncome.Sub(sum.TotalExpense)

	for _, ct := range cats {
		sum.ByCategory = append(sum.ByCategory, *ct)
	}
	sort.Slice(sum.ByCategory, func(i, j int) bool {
		a, b := sum.ByCategory[i], sum.ByCategory[j]
		if a.Kind != b.Kind {
			return a.Kind == model.KindIncome
		}
		return a.Category < b.Category
	})

	for _, mt := range months {
		mt.Balance = mt.Income.Sub(mt.Expense)
		sum.ByMonth = append(sum.ByMonth, *mt)
	}
	sort.Slice(sum.ByMonth, func(i, j int) bool {
		return sum.ByMonth[i].Month < sum.ByMonth[j].Month
	})

	return sum
}

func monthOf(date string) string {
	if len(date) >= 7 {
		return date[:7]
	}
	return date
}

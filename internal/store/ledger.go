package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/shopspring/decimal"
)

type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

const ledgerCols = `id, kind, category, description, amount, entry_date, member_id, created_by, created_at, updated_at`

func scanLedgerEntry(scanner interface{ Scan(...any) error }) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	var kind string
	var amount string
	var memberID, createdBy sql.NullInt64

	err := scanner.Scan(&e.ID, &kind, &e.Category, &e.Description, &amount, &e.Date, &memberID, &createdBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.Kind = model.EntryKind(kind)
	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if memberID.Valid {
		e.MemberID = &memberID.Int64
	}
	if createdBy.Valid {
		e.CreatedBy = &createdBy.Int64
	}
	return &e, nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func (s *LedgerStore) Create(e *model.LedgerEntry) (*model.LedgerEntry, error) {
	result, err := s.db.Exec(
		`INSERT INTO ledger_entries (kind, category, description, amount, entry_date, member_id, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(e.Kind), e.Category, e.Description, e.Amount.String(), e.Date, nullInt64(e.MemberID), nullInt64(e.CreatedBy),
	)
	if err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *LedgerStore) GetByID(id int64) (*model.LedgerEntry, error) {
	row := s.db.QueryRow(`SELECT `+ledgerCols+` FROM ledger_entries WHERE id = ?`, id)
	e, err := scanLedgerEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

// List returns entries matching the filter, newest date first.
func (s *LedgerStore) List(f model.LedgerFilter) ([]model.LedgerEntry, error) {
	var where []string
	var args []any

	if f.From != "" {
		where = append(where, "entry_date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "entry_date <= ?")
		args = append(args, f.To)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.MemberID != nil {
		where = append(where, "member_id = ?")
		args = append(args, *f.MemberID)
	}

	query := `SELECT ` + ledgerCols + ` FROM ledger_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY entry_date DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *LedgerStore) Update(id int64, e *model.LedgerEntry) (*model.LedgerEntry, error) {
	_, err := s.db.Exec(
		`UPDATE ledger_entries SET kind = ?, category = ?, description = ?, amount = ?, entry_date = ?, member_id = ?
		 WHERE id = ?`,
		string(e.Kind), e.Category, e.Description, e.Amount.String(), e.Date, nullInt64(e.MemberID), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update ledger entry: %w", err)
	}
	return s.GetByID(id)
}

func (s *LedgerStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM ledger_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	return nil
}

package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/ekklesia/internal/model"
)

type CongregationStore struct {
	db *sql.DB
}

func NewCongregationStore(db *sql.DB) *CongregationStore {
	return &CongregationStore{db: db}
}

const congregationCols = `id, name, pastor_name, address, sort_order, created_at`

func scanCongregation(scanner interface{ Scan(...any) error }) (*model.Congregation, error) {
	var c model.Congregation
	if err := scanner.Scan(&c.ID, &c.Name, &c.PastorName, &c.Address, &c.SortOrder, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CongregationStore) Create(name, pastorName, address string) (*model.Congregation, error) {
	var maxOrder int
	err := s.db.QueryRow("SELECT COALESCE(MAX(sort_order), -1) FROM congregations").Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO congregations (name, pastor_name, address, sort_order) VALUES (?, ?, ?, ?)`,
		name, pastorName, address, maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("insert congregation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *CongregationStore) GetByID(id int64) (*model.Congregation, error) {
	row := s.db.QueryRow(`SELECT `+congregationCols+` FROM congregations WHERE id = ?`, id)
	c, err := scanCongregation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get congregation: %w", err)
	}
	return c, nil
}

func (s *CongregationStore) List() ([]model.Congregation, error) {
	rows, err := s.db.Query(`SELECT ` + congregationCols + ` FROM congregations ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list congregations: %w", err)
	}
	defer rows.Close()

	var list []model.Congregation
	for rows.Next() {
		c, err := scanCongregation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan congregation: %w", err)
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

func (s *CongregationStore) Update(id int64, name, pastorName, address string) (*model.Congregation, error) {
	_, err := s.db.Exec(
		`UPDATE congregations SET name = ?, pastor_name = ?, address = ? WHERE id = ?`,
		name, pastorName, address, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update congregation: %w", err)
	}
	return s.GetByID(id)
}

func (s *CongregationStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM congregations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete congregation: %w", err)
	}
	return nil
}

func (s *CongregationStore) NameExists(name string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM congregations WHERE name = ? COLLATE NOCASE AND id != ?`,
		name, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check name exists: %w", err)
	}
	return count > 0, nil
}

func (s *CongregationStore) UpdateSortOrder(ids []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE congregations SET sort_order = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.Exec(i, id); err != nil {
			return fmt.Errorf("update sort order for id %d: %w", id, err)
		}
	}

	return tx.Commit()
}

package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/ekklesia/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

const memberCols = `id, name, photo_key, street, number, complement, neighborhood, city, state, postal_code,
	rg, cpf, birth_date, marital_status, phone, mobile, mother_name, father_name, spirit_baptized,
	water_baptism_date, church_role, ministry_date, status, congregation, notes, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	var baptized int
	var status string

	err := scanner.Scan(
		&m.ID, &m.Name, &m.PhotoKey, &m.Street, &m.Number, &m.Complement, &m.Neighborhood, &m.City, &m.State, &m.PostalCode,
		&m.RG, &m.CPF, &m.BirthDate, &m.MaritalStatus, &m.Phone, &m.Mobile, &m.MotherName, &m.FatherName, &baptized,
		&m.WaterBaptismDate, &m.ChurchRole, &m.MinistryDate, &status, &m.Congregation, &m.Notes, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.SpiritBaptized = baptized != 0
	m.Status = model.MemberStatus(status)
	return &m, nil
}

// memberArgs returns the writable columns in memberCols order, minus id,
// photo_key and the timestamps.
func memberArgs(m *model.Member) []any {
	var baptized int
	if m.SpiritBaptized {
		baptized = 1
	}
	status := m.Status
	if status == "" {
		status = model.MemberActive
	}
	return []any{
		m.Name, m.Street, m.Number, m.Complement, m.Neighborhood, m.City, m.State, m.PostalCode,
		m.RG, m.CPF, m.BirthDate, m.MaritalStatus, m.Phone, m.Mobile, m.MotherName, m.FatherName, baptized,
		m.WaterBaptismDate, m.ChurchRole, m.MinistryDate, string(status), m.Congregation, m.Notes,
	}
}

func (s *MemberStore) Create(m *model.Member) (*model.Member, error) {
	result, err := s.db.Exec(
		`INSERT INTO members (name, street, number, complement, neighborhood, city, state, postal_code,
			rg, cpf, birth_date, marital_status, phone, mobile, mother_name, father_name, spirit_baptized,
			water_baptism_date, church_role, ministry_date, status, congregation, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		memberArgs(m)...,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MemberStore) GetByID(id int64) (*model.Member, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// List returns members matching the filter, ordered by name.
func (s *MemberStore) List(f model.MemberFilter) ([]model.Member, error) {
	var where []string
	var args []any

	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Congregation != "" {
		where = append(where, "congregation = ? COLLATE NOCASE")
		args = append(args, f.Congregation)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		where = append(where, "(name LIKE ? ESCAPE '\\' OR cpf LIKE ? ESCAPE '\\' OR mobile LIKE ? ESCAPE '\\')")
		pattern := "%" + escapeLike(q) + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query := `SELECT ` + memberCols + ` FROM members`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name COLLATE NOCASE, id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *MemberStore) Update(id int64, m *model.Member) (*model.Member, error) {
	args := append(memberArgs(m), id)
	_, err := s.db.Exec(
		`UPDATE members SET name = ?, street = ?, number = ?, complement = ?, neighborhood = ?, city = ?,
			state = ?, postal_code = ?, rg = ?, cpf = ?, birth_date = ?, marital_status = ?, phone = ?,
			mobile = ?, mother_name = ?, father_name = ?, spirit_baptized = ?, water_baptism_date = ?,
			church_role = ?, ministry_date = ?, status = ?, congregation = ?, notes = ?
		 WHERE id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return s.GetByID(id)
}

func (s *MemberStore) SetPhotoKey(id int64, key string) error {
	_, err := s.db.Exec(`UPDATE members SET photo_key = ? WHERE id = ?`, key, id)
	if err != nil {
		return fmt.Errorf("set photo key: %w", err)
	}
	return nil
}

func (s *MemberStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

// Congregations returns the distinct non-empty congregation tags in use.
func (s *MemberStore) Congregations() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT congregation FROM members WHERE congregation != '' ORDER BY congregation COLLATE NOCASE`,
	)
	if err != nil {
		return nil, fmt.Errorf("list member congregations: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan congregation: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// Count returns the number of members per status.
func (s *MemberStore) Count() (map[model.MemberStatus]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM members GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.MemberStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan member count: %w", err)
		}
		counts[model.MemberStatus(status)] = n
	}
	return counts, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

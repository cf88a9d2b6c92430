package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/ekklesia/internal/model"
)

// ErrLastAdmin is returned when a change would leave no admin account.
var ErrLastAdmin = errors.New("last admin")

// keepsAnAdmin guards a statement on the user row so it only applies when
// the row is not an admin or another admin remains. It is evaluated in the
// same statement as the write, so concurrent removals cannot both pass.
const keepsAnAdmin = `(role <> 'admin' OR (SELECT COUNT(*) FROM users WHERE role = 'admin') > 1)`

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, email, name, role, created_at, updated_at`

func (s *UserStore) Create(email, name, role, passwordHash string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (email, name, role, password_hash) VALUES (?, ?, ?, ?)`,
		email, name, role, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) List() ([]model.User, error) {
	rows, err := s.db.Query(`SELECT ` + userCols + ` FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Update changes name and role. Demoting the only admin fails with
// ErrLastAdmin; an unknown id gives (nil, nil).
func (s *UserStore) Update(id int64, name, role string) (*model.User, error) {
	res, err := s.db.Exec(
		`UPDATE users SET name = ?, role = ?
		 WHERE id = ? AND (? = 'admin' OR `+keepsAnAdmin+`)`,
		name, role, id, role,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if err := s.checkGuarded(res, id); err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// checkGuarded tells a row blocked by keepsAnAdmin apart from a missing one.
func (s *UserStore) checkGuarded(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	u, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if u != nil {
		return ErrLastAdmin
	}
	return nil
}

func (s *UserStore) SetPasswordHash(id int64, hash string) error {
	_, err := s.db.Exec(`UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	return nil
}

// GetPasswordHash returns the stored bcrypt hash, or "" when the user has none.
func (s *UserStore) GetPasswordHash(id int64) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT password_hash FROM users WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("user not found")
	}
	if err != nil {
		return "", fmt.Errorf("query password hash: %w", err)
	}
	return hash, nil
}

// Delete removes a user unless it is the only admin (ErrLastAdmin).
func (s *UserStore) Delete(id int64) error {
	res, err := s.db.Exec(`DELETE FROM users WHERE id = ? AND `+keepsAnAdmin, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return s.checkGuarded(res, id)
}

func (s *UserStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *UserStore) CountByRole(role string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE role = ?`, role).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return n, nil
}

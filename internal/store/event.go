package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/ekklesia/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `id, title, event_date, event_time, location, description, created_at, updated_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	err := scanner.Scan(&e.ID, &e.Title, &e.Date, &e.Time, &e.Location, &e.Description, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *EventStore) Create(title, date, timeOfDay, location, description string) (*model.Event, error) {
	result, err := s.db.Exec(
		`INSERT INTO events (title, event_date, event_time, location, description) VALUES (?, ?, ?, ?, ?)`,
		title, date, timeOfDay, location, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *EventStore) query(q string, args ...any) ([]model.Event, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// List returns all events, soonest first.
func (s *EventStore) List() ([]model.Event, error) {
	return s.query(`SELECT ` + eventCols + ` FROM events ORDER BY event_date ASC, event_time ASC, id ASC`)
}

// ListUpcoming returns up to limit events dated on or after from (YYYY-MM-DD).
func (s *EventStore) ListUpcoming(from string, limit int) ([]model.Event, error) {
	return s.query(
		`SELECT `+eventCols+` FROM events WHERE event_date >= ?
		 ORDER BY event_date ASC, event_time ASC, id ASC LIMIT ?`,
		from, limit,
	)
}

func (s *EventStore) Update(id int64, title, date, timeOfDay, location, description string) (*model.Event, error) {
	_, err := s.db.Exec(
		`UPDATE events SET title = ?, event_date = ?, event_time = ?, location = ?, description = ? WHERE id = ?`,
		title, date, timeOfDay, location, description, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

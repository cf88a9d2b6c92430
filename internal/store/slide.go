package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/ekklesia/internal/model"
)

// SlideStore persists the single live slide so a restart resumes where the
// operator left off.
type SlideStore struct {
	db *sql.DB
}

func NewSlideStore(db *sql.DB) *SlideStore {
	return &SlideStore{db: db}
}

// Get returns the stored slide, or a blank slide at revision 0 when none
// has been written yet.
func (s *SlideStore) Get() (*model.Slide, error) {
	var payload string
	var revision int64
	var updatedAt time.Time
	err := s.db.QueryRow(`SELECT payload, revision, updated_at FROM live_slide WHERE id = 1`).
		Scan(&payload, &revision, &updatedAt)
	if err == sql.ErrNoRows {
		return &model.Slide{Kind: model.SlideBlank}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get live slide: %w", err)
	}

	var slide model.Slide
	if err := json.Unmarshal([]byte(payload), &slide); err != nil {
		return nil, fmt.Errorf("decode live slide: %w", err)
	}
	slide.Revision = revision
	slide.UpdatedAt = updatedAt
	return &slide, nil
}

// Put replaces the stored slide and returns it with the new revision.
func (s *SlideStore) Put(slide model.Slide) (*model.Slide, error) {
	now := time.Now().UTC()
	slide.Revision = 0
	slide.UpdatedAt = time.Time{}
	payload, err := json.Marshal(slide)
	if err != nil {
		return nil, fmt.Errorf("encode live slide: %w", err)
	}

	var revision int64
	err = s.db.QueryRow(
		`INSERT INTO live_slide (id, payload, revision, updated_at) VALUES (1, ?, 1, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, revision = live_slide.revision + 1, updated_at = excluded.updated_at
		 RETURNING revision`,
		string(payload), now,
	).Scan(&revision)
	if err != nil {
		return nil, fmt.Errorf("put live slide: %w", err)
	}

	slide.Revision = revision
	slide.UpdatedAt = now
	return &slide, nil
}

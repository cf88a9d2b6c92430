package model

import "time"

type SlideKind string

const (
	SlideBlank SlideKind = "blank"
	SlideHymn  SlideKind = "hymn"
	SlideBible SlideKind = "bible"
	SlideText  SlideKind = "text"
)

// Slide is the document projected to the congregation. It is replaced
// wholesale on every change; Revision increases by one per write.
type Slide struct {
	Kind       SlideKind `json:"kind"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Reference  string    `json:"reference,omitempty"`
	Label      string    `json:"label,omitempty"`
	Position   int       `json:"position"`
	Total      int       `json:"total"`
	HymnNumber int       `json:"hymn_number,omitempty"`
	BookSlug   string    `json:"book_slug,omitempty"`
	Chapter    int       `json:"chapter,omitempty"`
	Verse      int       `json:"verse,omitempty"`
	Revision   int64     `json:"revision"`
	UpdatedAt  time.Time `json:"updated_at"`
}

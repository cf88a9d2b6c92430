// Package live owns the slide currently projected during a service. A
// controller page changes it; display pages receive every change over the
// websocket hub.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dukerupert/ekklesia/internal/bible"
	"github.com/dukerupert/ekklesia/internal/hymnal"
	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/dukerupert/ekklesia/internal/websocket"
)

var (
	ErrNothingToNavigate  = errors.New("current slide has no sequence to navigate")
	ErrPositionOutOfRange = errors.New("position out of range")
	ErrEmptyHymn          = errors.New("hymn has no stanzas")
	ErrEmptyText          = errors.New("title or body is required")
)

type SlideStore interface {
	Get() (*model.Slide, error)
	Put(model.Slide) (*model.Slide, error)
}

type Broadcaster interface {
	Broadcast(websocket.Message)
}

// Recorder counts slide changes by kind.
type Recorder interface {
	SlideChanged(kind string)
}

// Service serializes slide changes under mu. The projected slide is also
// published through current so readers, including the hub's greeting, never
// wait on mu.
type Service struct {
	mu       sync.Mutex
	current  atomic.Pointer[model.Slide]
	store    SlideStore
	hymns    *hymnal.Hymnal
	bible    *bible.Bible
	hub      Broadcaster
	recorder Recorder
	logger   *slog.Logger
}

// NewService restores the last persisted slide so displays reconnecting
// after a restart see what was projected before.
func NewService(store SlideStore, hymns *hymnal.Hymnal, b *bible.Bible, hub Broadcaster, logger *slog.Logger) (*Service, error) {
	cur, err := store.Get()
	if err != nil {
		return nil, fmt.Errorf("restore live slide: %w", err)
	}
	s := &Service{
		store:  store,
		hymns:  hymns,
		bible:  b,
		hub:    hub,
		logger: logger,
	}
	s.current.Store(cur)
	return s, nil
}

func (s *Service) SetRecorder(r Recorder) {
	s.mu.Lock()
	s.recorder = r
	s.mu.Unlock()
}

func (s *Service) Current() model.Slide {
	return *s.current.Load()
}

// Greeting is the message a display receives when it connects. The hub
// calls it while holding its own lock, so it must not take s.mu.
func (s *Service) Greeting() (websocket.Message, bool) {
	cur := s.Current()
	return websocket.NewMessage("slide", "current", cur.Revision, map[string]any{"slide": cur}), true
}

// ShowHymn projects the slide at position (0-based) of the hymn's sequence.
func (s *Service) ShowHymn(ctx context.Context, number, position int) (model.Slide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slide, err := s.hymnSlide(number, position)
	if err != nil {
		return model.Slide{}, err
	}
	return s.apply(ctx, slide)
}

// ShowVerse projects a single verse.
func (s *Service) ShowVerse(ctx context.Context, slug string, chapter, verse int) (model.Slide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slide, err := s.verseSlide(slug, chapter, verse)
	if err != nil {
		return model.Slide{}, err
	}
	return s.apply(ctx, slide)
}

// ShowText projects free text such as announcements.
func (s *Service) ShowText(ctx context.Context, title, body string) (model.Slide, error) {
	title, body = strings.TrimSpace(title), strings.TrimSpace(body)
	if title == "" && body == "" {
		return model.Slide{}, ErrEmptyText
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, model.Slide{Kind: model.SlideText, Title: title, Body: body, Total: 1})
}

func (s *Service) Blank(ctx context.Context) (model.Slide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, model.Slide{Kind: model.SlideBlank})
}

func (s *Service) Next(ctx context.Context) (model.Slide, error) {
	return s.step(ctx, 1)
}

func (s *Service) Prev(ctx context.Context) (model.Slide, error) {
	return s.step(ctx, -1)
}

// step moves delta slides through the current sequence. Bible navigation
// crosses chapter boundaries; at the ends of a book or hymn the current
// slide is returned unchanged and nothing is broadcast.
func (s *Service) step(ctx context.Context, delta int) (model.Slide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Current()
	switch cur.Kind {
	case model.SlideHymn:
		pos := cur.Position + delta
		if pos < 0 || pos >= cur.Total {
			return cur, nil
		}
		slide, err := s.hymnSlide(cur.HymnNumber, pos)
		if err != nil {
			return model.Slide{}, err
		}
		return s.apply(ctx, slide)

	case model.SlideBible:
		chapter, verse, ok := s.neighborVerse(cur, delta)
		if !ok {
			return cur, nil
		}
		slide, err := s.verseSlide(cur.BookSlug, chapter, verse)
		if err != nil {
			return model.Slide{}, err
		}
		return s.apply(ctx, slide)
	}
	return model.Slide{}, ErrNothingToNavigate
}

func (s *Service) neighborVerse(cur model.Slide, delta int) (chapter, verse int, ok bool) {
	book, err := s.bible.Book(cur.BookSlug)
	if err != nil {
		return 0, 0, false
	}
	chapter, verse = cur.Chapter, cur.Verse+delta

	if verse >= 1 && verse <= cur.Total {
		return chapter, verse, true
	}
	// Chapters without verses are skipped.
	for c := chapter + delta; c >= 1 && c <= len(book.Chapters); c += delta {
		n := len(book.Chapters[c-1])
		if n == 0 {
			continue
		}
		if delta > 0 {
			return c, 1, true
		}
		return c, n, true
	}
	return 0, 0, false
}

func (s *Service) hymnSlide(number, position int) (model.Slide, error) {
	hy, err := s.hymns.Get(number)
	if err != nil {
		return model.Slide{}, err
	}
	seq := hymnal.Slides(hy)
	if len(seq) == 0 {
		return model.Slide{}, ErrEmptyHymn
	}
	if position < 0 || position >= len(seq) {
		return model.Slide{}, ErrPositionOutOfRange
	}
	return model.Slide{
		Kind:       model.SlideHymn,
		Title:      fmt.Sprintf("%d - %s", hy.Number, hy.Title),
		Body:       seq[position].Text,
		Label:      seq[position].Label,
		Position:   position,
		Total:      len(seq),
		HymnNumber: hy.Number,
	}, nil
}

func (s *Service) verseSlide(slug string, chapter, verse int) (model.Slide, error) {
	book, verses, err := s.bible.Chapter(slug, chapter)
	if err != nil {
		return model.Slide{}, err
	}
	if verse < 1 || verse > len(verses) {
		return model.Slide{}, bible.ErrVerseOutOfRange
	}
	return model.Slide{
		Kind:      model.SlideBible,
		Title:     book.Name,
		Body:      verses[verse-1],
		Reference: bible.Reference(book, chapter, verse),
		Position:  verse - 1,
		Total:     len(verses),
		BookSlug:  book.Slug,
		Chapter:   chapter,
		Verse:     verse,
	}, nil
}

// apply persists and broadcasts slide. Callers hold s.mu, which keeps the
// broadcast order identical to the write order.
func (s *Service) apply(ctx context.Context, slide model.Slide) (model.Slide, error) {
	if err := ctx.Err(); err != nil {
		return model.Slide{}, err
	}
	saved, err := s.store.Put(slide)
	if err != nil {
		return model.Slide{}, fmt.Errorf("save live slide: %w", err)
	}
	s.current.Store(saved)

	s.hub.Broadcast(websocket.NewMessage("slide", "changed", saved.Revision, map[string]any{"slide": *saved}))
	if s.recorder != nil {
		s.recorder.SlideChanged(string(saved.Kind))
	}
	s.logger.Debug("slide changed", "kind", saved.Kind, "revision", saved.Revision, "title", saved.Title)
	return *saved, nil
}

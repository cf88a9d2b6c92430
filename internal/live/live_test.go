package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/ekklesia/internal/bible"
	"github.com/dukerupert/ekklesia/internal/database"
	"github.com/dukerupert/ekklesia/internal/hymnal"
	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/dukerupert/ekklesia/internal/store"
	"github.com/dukerupert/ekklesia/internal/websocket"
)

type fakeHub struct {
	mu   sync.Mutex
	msgs []websocket.Message
}

func (f *fakeHub) Broadcast(m websocket.Message) {
	f.mu.Lock()
	f.msgs = append(f.msgs, m)
	f.mu.Unlock()
}

func (f *fakeHub) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

type countingRecorder struct {
	kinds []string
}

func (r *countingRecorder) SlideChanged(kind string) {
	r.kinds = append(r.kinds, kind)
}

func setupService(t *testing.T) (*Service, *fakeHub, *store.SlideStore) {
	t.Helper()
	hub := &fakeHub{}
	svc, ss := newService(t, hub, nil)
	return svc, hub, ss
}

// newService builds a Service over a fresh database. A nil b loads the
// fixture Bible.
func newService(t *testing.T, hub Broadcaster, b *bible.Bible) (*Service, *store.SlideStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hymns, err := hymnal.LoadFile("../hymnal/testdata/harpa.json")
	if err != nil {
		t.Fatalf("load hymnal: %v", err)
	}
	if b == nil {
		b, err = bible.LoadFile("../bible/testdata/biblia.json")
		if err != nil {
			t.Fatalf("load bible: %v", err)
		}
	}

	ss := store.NewSlideStore(db)
	svc, err := NewService(ss, hymns, b, hub, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, ss
}

func TestStartsBlank(t *testing.T) {
	svc, _, _ := setupService(t)

	if got := svc.Current(); got.Kind != model.SlideBlank {
		t.Errorf("kind = %q, want blank", got.Kind)
	}
}

func TestShowHymnChorusFirst(t *testing.T) {
	svc, hub, _ := setupService(t)
	ctx := context.Background()

	s, err := svc.ShowHymn(ctx, 1, 0)
	if err != nil {
		t.Fatalf("show hymn: %v", err)
	}
	if s.Label != "Chorus" || s.Total != 4 || s.Title != "1 - Chuvas de Graça" {
		t.Errorf("slide = %+v", s)
	}
	if s.Revision != 1 {
		t.Errorf("revision = %d, want 1", s.Revision)
	}
	if hub.count() != 1 || hub.msgs[0].Type != "slide_changed" {
		t.Errorf("broadcasts = %+v", hub.msgs)
	}
}

func TestShowHymnErrors(t *testing.T) {
	svc, hub, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.ShowHymn(ctx, 999, 0); !errors.Is(err, hymnal.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := svc.ShowHymn(ctx, 1, 4); !errors.Is(err, ErrPositionOutOfRange) {
		t.Errorf("err = %v, want ErrPositionOutOfRange", err)
	}
	if hub.count() != 0 {
		t.Errorf("failed changes should not broadcast, got %d", hub.count())
	}
	if svc.Current().Kind != model.SlideBlank {
		t.Error("failed changes should leave the slide untouched")
	}
}

func TestHymnNavigationStopsAtEnds(t *testing.T) {
	svc, hub, _ := setupService(t)
	ctx := context.Background()

	svc.ShowHymn(ctx, 1, 0)

	s, err := svc.Prev(ctx)
	if err != nil {
		t.Fatalf("prev: %v", err)
	}
	if s.Position != 0 || hub.count() != 1 {
		t.Errorf("prev at start moved: position %d, broadcasts %d", s.Position, hub.count())
	}

	for i := 0; i < 5; i++ {
		s, err = svc.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	if s.Position != 3 || s.Label != "Stanza 3" {
		t.Errorf("slide = %+v, want last stanza", s)
	}
	if hub.count() != 4 {
		t.Errorf("broadcasts = %d, want 4", hub.count())
	}
}

func TestVerseNavigationCrossesChapters(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	s, err := svc.ShowVerse(ctx, "genesis", 1, 3)
	if err != nil {
		t.Fatalf("show verse: %v", err)
	}
	if s.Reference != "Gênesis 1:3" {
		t.Errorf("reference = %q", s.Reference)
	}

	s, _ = svc.Next(ctx)
	if s.Chapter != 2 || s.Verse != 1 {
		t.Errorf("next = %d:%d, want 2:1", s.Chapter, s.Verse)
	}

	s, _ = svc.Prev(ctx)
	if s.Chapter != 1 || s.Verse != 3 {
		t.Errorf("prev = %d:%d, want 1:3", s.Chapter, s.Verse)
	}
}

func TestVerseNavigationStopsAtBookEnds(t *testing.T) {
	svc, hub, _ := setupService(t)
	ctx := context.Background()

	svc.ShowVerse(ctx, "genesis", 1, 1)
	s, _ := svc.Prev(ctx)
	if s.Chapter != 1 || s.Verse != 1 {
		t.Errorf("prev at book start = %d:%d", s.Chapter, s.Verse)
	}

	svc.ShowVerse(ctx, "genesis", 2, 2)
	before := hub.count()
	s, _ = svc.Next(ctx)
	if s.Chapter != 2 || s.Verse != 2 {
		t.Errorf("next at book end = %d:%d", s.Chapter, s.Verse)
	}
	if hub.count() != before {
		t.Error("staying put should not broadcast")
	}
}

func TestNothingToNavigate(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Next(ctx); !errors.Is(err, ErrNothingToNavigate) {
		t.Errorf("blank: err = %v", err)
	}
	svc.ShowText(ctx, "Welcome", "Good morning")
	if _, err := svc.Prev(ctx); !errors.Is(err, ErrNothingToNavigate) {
		t.Errorf("text: err = %v", err)
	}
}

func TestShowTextRequiresContent(t *testing.T) {
	svc, _, _ := setupService(t)

	if _, err := svc.ShowText(context.Background(), " ", ""); !errors.Is(err, ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
}

func TestRevisionAndPersistence(t *testing.T) {
	svc, _, ss := setupService(t)
	ctx := context.Background()

	svc.ShowText(ctx, "Announcements", "")
	svc.Blank(ctx)
	last, _ := svc.ShowVerse(ctx, "joao", 3, 1)
	if last.Revision != 3 {
		t.Errorf("revision = %d, want 3", last.Revision)
	}

	restored, err := NewService(ss, svc.hymns, svc.bible, &fakeHub{}, svc.logger)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	cur := restored.Current()
	if cur.Kind != model.SlideBible || cur.Revision != 3 || cur.Reference != "João 3:1" {
		t.Errorf("restored = %+v", cur)
	}
}

func TestRecorderAndGreeting(t *testing.T) {
	svc, _, _ := setupService(t)
	rec := &countingRecorder{}
	svc.SetRecorder(rec)

	svc.ShowHymn(context.Background(), 2, 0)
	if len(rec.kinds) != 1 || rec.kinds[0] != "hymn" {
		t.Errorf("recorded = %v", rec.kinds)
	}

	msg, ok := svc.Greeting()
	if !ok || msg.Type != "slide_current" || msg.ID != 1 {
		t.Errorf("greeting = %+v", msg)
	}
}

func TestConcurrentWritersSerialize(t *testing.T) {
	svc, hub, _ := setupService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.ShowText(ctx, "t", "b")
		}()
	}
	wg.Wait()

	if got := svc.Current().Revision; got != 10 {
		t.Errorf("revision = %d, want 10", got)
	}
	if hub.count() != 10 {
		t.Errorf("broadcasts = %d, want 10", hub.count())
	}
	for i, m := range hub.msgs {
		if m.ID != int64(i+1) {
			t.Errorf("broadcast %d has revision %d", i, m.ID)
		}
	}
}

func TestVerseNavigationSkipsEmptyChapters(t *testing.T) {
	b, err := bible.Load(strings.NewReader(`[{"id": "57", "periodo": "Novo Testamento", "nome": "Filemom",
		"abrev": "Fm", "capitulos": [["Um", "Dois"], [], ["Tres"], []]}]`))
	if err != nil {
		t.Fatalf("load bible: %v", err)
	}
	hub := &fakeHub{}
	svc, _ := newService(t, hub, b)
	ctx := context.Background()

	if _, err := svc.ShowVerse(ctx, "filemom", 1, 2); err != nil {
		t.Fatalf("show verse: %v", err)
	}
	s, err := svc.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if s.Chapter != 3 || s.Verse != 1 {
		t.Errorf("next = %d:%d, want 3:1", s.Chapter, s.Verse)
	}

	before := hub.count()
	s, err = svc.Next(ctx)
	if err != nil {
		t.Fatalf("next at end: %v", err)
	}
	if s.Chapter != 3 || s.Verse != 1 || hub.count() != before {
		t.Errorf("next past trailing empty chapter = %d:%d, want to stay at 3:1", s.Chapter, s.Verse)
	}

	s, err = svc.Prev(ctx)
	if err != nil {
		t.Fatalf("prev: %v", err)
	}
	if s.Chapter != 1 || s.Verse != 2 {
		t.Errorf("prev = %d:%d, want 1:2", s.Chapter, s.Verse)
	}
}

func TestDisplayConnectsWhileSlidesChange(t *testing.T) {
	hub := websocket.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc, _ := newService(t, hub, nil)
	ctx := context.Background()

	const changes = 200
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < changes; i++ {
			svc.ShowText(ctx, "Avisos", fmt.Sprintf("aviso %d", i))
		}
	}()
	for g := 0; g < 3; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < changes; i++ {
				c := websocket.NewClient(hub, nil, nil)
				hub.RegisterWithGreeting(c, svc.Greeting)
				hub.Unregister(c)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("slide changes and display connects blocked each other")
	}

	if got := svc.Current().Revision; got != changes {
		t.Errorf("revision = %d, want %d", got, changes)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("clients = %d, want 0", hub.ClientCount())
	}
}

package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/dukerupert/ekklesia/internal/auth"
	"github.com/dukerupert/ekklesia/internal/bible"
	"github.com/dukerupert/ekklesia/internal/database"
	"github.com/dukerupert/ekklesia/internal/hymnal"
	"github.com/dukerupert/ekklesia/internal/live"
	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/dukerupert/ekklesia/internal/store"
	"github.com/dukerupert/ekklesia/internal/websocket"
)

type nopHub struct{}

func (nopHub) Broadcast(websocket.Message) {}

func loadCatalogs(t *testing.T) (*hymnal.Hymnal, *bible.Bible) {
	t.Helper()
	hymns, err := hymnal.LoadFile("../hymnal/testdata/harpa.json")
	if err != nil {
		t.Fatalf("load hymnal: %v", err)
	}
	b, err := bible.LoadFile("../bible/testdata/biblia.json")
	if err != nil {
		t.Fatalf("load bible: %v", err)
	}
	return hymns, b
}

func setupLive(t *testing.T, secret string) *LiveHandler {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hymns, b := loadCatalogs(t)
	svc, err := live.NewService(store.NewSlideStore(db), hymns, b, nopHub{}, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewLiveHandler(svc, auth.NewDisplayTokens(secret), time.Hour, testLogger())
}

func TestLiveErrorMapping(t *testing.T) {
	h := setupLive(t, "")

	tests := []struct {
		name    string
		pattern string
		handler http.HandlerFunc
		body    string
		want    int
	}{
		{"next on blank", "POST /next", h.Next, "", http.StatusConflict},
		{"unknown hymn", "POST /hymn", h.ShowHymn, `{"number": 999}`, http.StatusNotFound},
		{"position past end", "POST /hymn", h.ShowHymn, `{"number": 1, "position": 40}`, http.StatusBadRequest},
		{"missing number", "POST /hymn", h.ShowHymn, `{}`, http.StatusBadRequest},
		{"unknown book", "POST /verse", h.ShowVerse, `{"book": "hezekiah", "chapter": 1, "verse": 1}`, http.StatusNotFound},
		{"verse past end", "POST /verse", h.ShowVerse, `{"book": "genesis", "chapter": 2, "verse": 9}`, http.StatusNotFound},
		{"empty text", "POST /text", h.ShowText, `{"title": "", "body": "  "}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.pattern[len("POST "):]
			rec := do(t, tt.pattern, tt.handler, "POST", path, tt.body, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestLiveShowVerseAndNavigate(t *testing.T) {
	h := setupLive(t, "")

	rec := do(t, "POST /verse", h.ShowVerse, "POST", "/verse", `{"book": "genesis", "chapter": 1, "verse": 3}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	slide := decodeBody[model.Slide](t, rec)
	if slide.Kind != model.SlideBible || slide.Reference != "Gênesis 1:3" {
		t.Errorf("slide = %+v", slide)
	}

	rec = do(t, "POST /next", h.Next, "POST", "/next", "", nil)
	slide = decodeBody[model.Slide](t, rec)
	if slide.Chapter != 2 || slide.Verse != 1 {
		t.Errorf("next = %d:%d, want 2:1", slide.Chapter, slide.Verse)
	}

	rec = do(t, "GET /current", h.Current, "GET", "/current", "", nil)
	if cur := decodeBody[model.Slide](t, rec); cur.Revision != slide.Revision {
		t.Errorf("current revision = %d, want %d", cur.Revision, slide.Revision)
	}
}

func TestDisplayToken(t *testing.T) {
	rec := do(t, "POST /token", setupLive(t, "").DisplayToken, "POST", "/token", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled status = %d, want 503", rec.Code)
	}

	tokens := auth.NewDisplayTokens("0123456789abcdef0123456789abcdef")
	h := setupLive(t, "0123456789abcdef0123456789abcdef")
	rec = do(t, "POST /token", h.DisplayToken, "POST", "/token", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	tok, _ := body["token"].(string)
	if err := tokens.Verify(tok); err != nil {
		t.Errorf("issued token does not verify: %v", err)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	hymns, b := loadCatalogs(t)
	h := NewCatalogHandler(hymns, b, testLogger())

	rec := do(t, "GET /hymns/{number}", h.GetHymn, "GET", "/hymns/1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	detail := decodeBody[hymnDetail](t, rec)
	if detail.Title != "Chuvas de Graça" || len(detail.Slides) == 0 {
		t.Errorf("hymn = %+v", detail)
	}

	rec = do(t, "GET /hymns/{number}", h.GetHymn, "GET", "/hymns/999", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing hymn status = %d, want 404", rec.Code)
	}

	rec = do(t, "GET /bible/{book}/{chapter}", h.Chapter, "GET", "/bible/genesis/1", "", nil)
	ch := decodeBody[chapterResponse](t, rec)
	if len(ch.Verses) != 3 || ch.Prev != nil || ch.Next == nil || ch.Next.Chapter != 2 {
		t.Errorf("chapter = %+v", ch)
	}

	rec = do(t, "GET /bible/{book}/{chapter}", h.Chapter, "GET", "/bible/genesis/3", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing chapter status = %d, want 404", rec.Code)
	}
}

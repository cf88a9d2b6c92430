package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/ekklesia/internal/bible"
	"github.com/dukerupert/ekklesia/internal/hymnal"
)

// CatalogHandler serves the read-only hymnal and Bible.
type CatalogHandler struct {
	hymns  *hymnal.Hymnal
	bible  *bible.Bible
	logger *slog.Logger
}

func NewCatalogHandler(hymns *hymnal.Hymnal, b *bible.Bible, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{hymns: hymns, bible: b, logger: logger}
}

type hymnSummary struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

type hymnDetail struct {
	hymnal.Hymn
	Slides []hymnal.Slide `json:"slides"`
}

func pathInt(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	return n, err == nil
}

// ListHymns returns number and title for every hymn matching ?q=.
func (h *CatalogHandler) ListHymns(w http.ResponseWriter, r *http.Request) {
	found := h.hymns.Search(r.URL.Query().Get("q"))
	out := make([]hymnSummary, 0, len(found))
	for _, hy := range found {
		out = append(out, hymnSummary{Number: hy.Number, Title: hy.Title})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) GetHymn(w http.ResponseWriter, r *http.Request) {
	n, ok := pathInt(r, "number")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid hymn number")
		return
	}

	hy, err := h.hymns.Get(n)
	if errors.Is(err, hymnal.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		serverError(w, h.logger, "failed to get hymn", err)
		return
	}

	writeJSON(w, http.StatusOK, hymnDetail{Hymn: hy, Slides: hymnal.Slides(hy)})
}

func (h *CatalogHandler) BibleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.bible.Index())
}

func writeBibleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bible.ErrBookNotFound),
		errors.Is(err, bible.ErrChapterOutOfRange),
		errors.Is(err, bible.ErrVerseOutOfRange):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "failed to read bible")
	}
}

func (h *CatalogHandler) Book(w http.ResponseWriter, r *http.Request) {
	book, err := h.bible.Book(r.PathValue("book"))
	if err != nil {
		writeBibleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bible.BookRef{
		Name:     book.Name,
		Slug:     book.Slug,
		Abbrev:   book.Abbrev,
		Chapters: len(book.Chapters),
	})
}

type chapterRef struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
}

type chapterResponse struct {
	Book    string      `json:"book"`
	Slug    string      `json:"slug"`
	Chapter int         `json:"chapter"`
	Verses  []string    `json:"verses"`
	Prev    *chapterRef `json:"prev,omitempty"`
	Next    *chapterRef `json:"next,omitempty"`
}

// Chapter returns a chapter's verses with links to the neighboring chapters
// of the same book.
func (h *CatalogHandler) Chapter(w http.ResponseWriter, r *http.Request) {
	n, ok := pathInt(r, "chapter")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid chapter")
		return
	}

	book, verses, err := h.bible.Chapter(r.PathValue("book"), n)
	if err != nil {
		writeBibleError(w, err)
		return
	}

	resp := chapterResponse{Book: book.Name, Slug: book.Slug, Chapter: n, Verses: verses}
	if n > 1 {
		resp.Prev = &chapterRef{Book: book.Slug, Chapter: n - 1}
	}
	if n < len(book.Chapters) {
		resp.Next = &chapterRef{Book: book.Slug, Chapter: n + 1}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CatalogHandler) Verse(w http.ResponseWriter, r *http.Request) {
	ch, ok1 := pathInt(r, "chapter")
	v, ok2 := pathInt(r, "verse")
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "invalid reference")
		return
	}

	book, text, err := h.bible.Verse(r.PathValue("book"), ch, v)
	if err != nil {
		writeBibleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reference": bible.Reference(book, ch, v),
		"text":      text,
	})
}

// Package bible loads the Bible text and resolves book, chapter and verse
// references for reading and projection.
package bible

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/dukerupert/ekklesia/internal/textfold"
)

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrChapterOutOfRange = errors.New("chapter out of range")
	ErrVerseOutOfRange   = errors.New("verse out of range")
)

type Testament string

const (
	OldTestament Testament = "old"
	NewTestament Testament = "new"
)

type Book struct {
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	Abbrev    string     `json:"abbrev"`
	Testament Testament  `json:"testament"`
	Chapters  [][]string `json:"chapters"`
}

// BookRef is the index entry for a book.
type BookRef struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Abbrev   string `json:"abbrev"`
	Chapters int    `json:"chapters"`
}

type Index struct {
	Old []BookRef `json:"old_testament"`
	New []BookRef `json:"new_testament"`
}

type Bible struct {
	books    []Book
	bySlug   map[string]int
	byAbbrev map[string]int
}

type rawBook struct {
	ID        string     `json:"id"`
	Periodo   string     `json:"periodo"`
	Nome      string     `json:"nome"`
	Abrev     string     `json:"abrev"`
	Capitulos [][]string `json:"capitulos"`
}

// Slug lower-cases name, strips diacritics and removes whitespace:
// "1 Coríntios" becomes "1corintios".
func Slug(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, textfold.Fold(name))
}

func Empty() *Bible {
	return &Bible{bySlug: map[string]int{}, byAbbrev: map[string]int{}}
}

func LoadFile(path string) (*Bible, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bible: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses an array of books. The placeholder book with id "0" is skipped.
func Load(r io.Reader) (*Bible, error) {
	var raw []rawBook
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bible: %w", err)
	}

	b := Empty()
	for _, rb := range raw {
		if rb.ID == "0" || strings.TrimSpace(rb.Nome) == "" {
			continue
		}
		book := Book{
			Name:     rb.Nome,
			Slug:     Slug(rb.Nome),
			Abbrev:   rb.Abrev,
			Chapters: rb.Capitulos,
		}
		switch {
		case strings.Contains(rb.Periodo, "Antigo"):
			book.Testament = OldTestament
		case strings.Contains(rb.Periodo, "Novo"):
			book.Testament = NewTestament
		}
		if _, dup := b.bySlug[book.Slug]; dup {
			return nil, fmt.Errorf("decode bible: duplicate book %q", book.Slug)
		}
		b.bySlug[book.Slug] = len(b.books)
		if book.Abbrev != "" {
			b.byAbbrev[strings.ToLower(book.Abbrev)] = len(b.books)
		}
		b.books = append(b.books, book)
	}
	return b, nil
}

func (b *Bible) Len() int {
	return len(b.books)
}

// Index lists the books per testament in canonical order. Books whose period
// names neither testament are left out, as the reading index does.
func (b *Bible) Index() Index {
	idx := Index{Old: []BookRef{}, New: []BookRef{}}
	for _, book := range b.books {
		ref := BookRef{Name: book.Name, Slug: book.Slug, Abbrev: book.Abbrev, Chapters: len(book.Chapters)}
		switch book.Testament {
		case OldTestament:
			idx.Old = append(idx.Old, ref)
		case NewTestament:
			idx.New = append(idx.New, ref)
		}
	}
	return idx
}

// Book resolves a slug or, failing that, an abbreviation.
func (b *Bible) Book(slug string) (*Book, error) {
	if i, ok := b.bySlug[Slug(slug)]; ok {
		return &b.books[i], nil
	}
	if i, ok := b.byAbbrev[strings.ToLower(strings.TrimSpace(slug))]; ok {
		return &b.books[i], nil
	}
	return nil, ErrBookNotFound
}

// Chapter returns the verses of a 1-based chapter.
func (b *Bible) Chapter(slug string, chapter int) (*Book, []string, error) {
	book, err := b.Book(slug)
	if err != nil {
		return nil, nil, err
	}
	if chapter < 1 || chapter > len(book.Chapters) {
		return nil, nil, ErrChapterOutOfRange
	}
	return book, book.Chapters[chapter-1], nil
}

func (b *Bible) Verse(slug string, chapter, verse int) (*Book, string, error) {
	book, verses, err := b.Chapter(slug, chapter)
	if err != nil {
		return nil, "", err
	}
	if verse < 1 || verse > len(verses) {
		return nil, "", ErrVerseOutOfRange
	}
	return book, verses[verse-1], nil
}

// Reference formats a citation such as "João 3:16".
func Reference(book *Book, chapter, verse int) string {
	return fmt.Sprintf("%s %d:%d", book.Name, chapter, verse)
}

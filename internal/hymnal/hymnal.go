// Package hymnal loads the Harpa Cristã hymn collection and builds the
// slide sequence used when a hymn is projected.
package hymnal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dukerupert/ekklesia/internal/textfold"
)

var ErrNotFound = errors.New("hymn not found")

type Hymn struct {
	Number  int      `json:"number"`
	Title   string   `json:"title"`
	Chorus  string   `json:"chorus,omitempty"`
	Stanzas []string `json:"stanzas"`
}

// Slide is one projected unit of a hymn: the chorus or a single stanza.
type Slide struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type Hymnal struct {
	hymns  []Hymn
	byNum  map[int]int
	folded []string
}

type rawHymn struct {
	Hino   string            `json:"hino"`
	Coro   string            `json:"coro"`
	Verses map[string]string `json:"verses"`
}

var titlePrefix = regexp.MustCompile(`^\d+\s*-\s*`)

// Empty returns a hymnal with no hymns, used when no data file is configured.
func Empty() *Hymnal {
	return &Hymnal{byNum: map[int]int{}}
}

func LoadFile(path string) (*Hymnal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hymnal: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a hymnal object keyed by hymn number. The "-1" metadata entry,
// non-numeric keys and entries without a title are skipped.
func Load(r io.Reader) (*Hymnal, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode hymnal: %w", err)
	}

	h := Empty()
	for key, msg := range raw {
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 {
			continue
		}
		var rh rawHymn
		if err := json.Unmarshal(msg, &rh); err != nil {
			continue
		}
		if strings.TrimSpace(rh.Hino) == "" {
			continue
		}
		h.hymns = append(h.hymns, Hymn{
			Number:  n,
			Title:   titlePrefix.ReplaceAllString(strings.TrimSpace(rh.Hino), ""),
			Chorus:  strings.TrimSpace(rh.Coro),
			Stanzas: orderedStanzas(rh.Verses),
		})
	}

	sort.Slice(h.hymns, func(i, j int) bool { return h.hymns[i].Number < h.hymns[j].Number })
	h.folded = make([]string, len(h.hymns))
	for i, hy := range h.hymns {
		h.byNum[hy.Number] = i
		h.folded[i] = textfold.Fold(hy.Title)
	}
	return h, nil
}

// orderedStanzas sorts stanza keys numerically; non-numeric keys follow in
// lexical order.
func orderedStanzas(verses map[string]string) []string {
	keys := make([]string, 0, len(verses))
	for k := range verses {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return keys[i] < keys[j]
	})

	stanzas := make([]string, 0, len(keys))
	for _, k := range keys {
		stanzas = append(stanzas, verses[k])
	}
	return stanzas
}

func (h *Hymnal) Len() int {
	return len(h.hymns)
}

// List returns every hymn ordered by number.
func (h *Hymnal) List() []Hymn {
	return append([]Hymn(nil), h.hymns...)
}

func (h *Hymnal) Get(number int) (Hymn, error) {
	i, ok := h.byNum[number]
	if !ok {
		return Hymn{}, ErrNotFound
	}
	return h.hymns[i], nil
}

// Search matches q against the hymn number as a prefix, or as a case- and
// accent-insensitive substring of the title. An empty query returns all hymns.
func (h *Hymnal) Search(q string) []Hymn {
	q = strings.TrimSpace(q)
	if q == "" {
		return h.List()
	}

	_, numErr := strconv.Atoi(q)
	fq := textfold.Fold(q)

	var out []Hymn
	for i, hy := range h.hymns {
		if numErr == nil && strings.HasPrefix(strconv.Itoa(hy.Number), q) {
			out = append(out, hy)
			continue
		}
		if strings.Contains(h.folded[i], fq) {
			out = append(out, hy)
		}
	}
	return out
}

// Slides returns the presentation order for a hymn: the chorus first when it
// has one, then each stanza.
func Slides(hy Hymn) []Slide {
	slides := make([]Slide, 0, len(hy.Stanzas)+1)
	if hy.Chorus != "" {
		slides = append(slides, Slide{Label: "Chorus", Text: hy.Chorus})
	}
	for i, s := range hy.Stanzas {
		slides = append(slides, Slide{Label: fmt.Sprintf("Stanza %d", i+1), Text: s})
	}
	return slides
}

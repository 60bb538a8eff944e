// Package syntax resolves code languages by name and splits source text
// into highlight spans.
package syntax

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"golang.org/x/sync/singleflight"

	"github.com/odvcencio/hoverkit/pkg/errors"
)

// ErrUnknownLanguage is returned when no lexer matches a language name.
var ErrUnknownLanguage = errors.New(errors.ErrCodeUnknownLanguage, "unknown language")

// Span is a highlighted byte range of the text passed to Highlight.
type Span struct {
	Start int
	End   int
	ID    HighlightID
}

// Language highlights text for one grammar.
type Language struct {
	name  string
	lexer chroma.Lexer
}

// Name is the canonical lexer name, e.g. "Go".
func (l *Language) Name() string {
	return l.name
}

// Highlight returns sorted, non-overlapping spans. Unhighlighted text has no span.
func (l *Language) Highlight(text string) []Span {
	if l == nil || text == "" {
		return nil
	}
	// EnsureLF stays off so token offsets line up with text byte offsets.
	iter, err := l.lexer.Tokenise(&chroma.TokeniseOptions{State: "root"}, text)
	if err != nil {
		return nil
	}

	var spans []Span
	offset := 0
	for token := iter(); token != chroma.EOF; token = iter() {
		start := offset
		offset += len(token.Value)
		if start >= len(text) {
			break
		}
		end := min(offset, len(text))

		id := highlightFor(token.Type)
		if id == HighlightNone || start == end {
			continue
		}
		if n := len(spans); n > 0 && spans[n-1].ID == id && spans[n-1].End == start {
			spans[n-1].End = end
			continue
		}
		spans = append(spans, Span{Start: start, End: end, ID: id})
	}
	return spans
}

// Registry resolves language names to lexers and caches the result.
type Registry struct {
	mu    sync.RWMutex
	cache map[string]*Language
	group singleflight.Group
}

// NewRegistry returns an empty registry backed by chroma's lexer set.
func NewRegistry() *Registry {
	return &Registry{cache: make(map[string]*Language)}
}

// LanguageForName resolves a fence tag or language id such as "rust",
// "go" or "Python". Empty and unknown names return ErrUnknownLanguage.
func (r *Registry) LanguageForName(name string) (*Language, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, ErrUnknownLanguage
	}

	r.mu.RLock()
	lang, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return lang, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		lexer := lexers.Get(key)
		if lexer == nil {
			return nil, errors.Wrap(ErrUnknownLanguage, errors.ErrCodeUnknownLanguage, "resolve language").
				WithContext("name", name)
		}
		lang := &Language{
			name:  lexer.Config().Name,
			lexer: chroma.Coalesce(lexer),
		}
		r.mu.Lock()
		r.cache[key] = lang
		r.mu.Unlock()
		return lang, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Language), nil
}

// LanguageIDForPath guesses a language id such as "go" or "rust" from a
// file name. It returns "plaintext" when no lexer claims the file.
func LanguageIDForPath(path string) string {
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		return "plaintext"
	}
	cfg := lexer.Config()
	if len(cfg.Aliases) > 0 {
		return strings.ToLower(cfg.Aliases[0])
	}
	return strings.ToLower(cfg.Name)
}

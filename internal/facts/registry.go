package facts

import (
	"fmt"
	"sync"
)

// Mode selects how files are turned into facts.
type Mode string

// Extraction modes.
const (
	// ModeAuto parses Go with go/ast, Rust lexically and every other
	// language with tree-sitter.
	ModeAuto Mode = "auto"
	// ModeLexical scans every language with regular expressions.
	ModeLexical Mode = "lexical"
	// ModeTreeSitter parses every language with a tree-sitter grammar
	// and falls back to lexical scanning where none exists.
	ModeTreeSitter Mode = "treesitter"
)

// Registry hands out the extractor for a file. Tree-sitter extractors
// are created on first use and shared; Close releases them.
type Registry struct {
	mode Mode

	mu         sync.Mutex
	treeSitter map[string]*TreeSitterExtractor
}

// NewRegistry returns a Registry for mode.
func NewRegistry(mode Mode) (*Registry, error) {
	switch mode {
	case ModeAuto, ModeLexical, ModeTreeSitter:
	default:
		return nil, fmt.Errorf("unknown extraction mode %q", mode)
	}
	return &Registry{mode: mode, treeSitter: make(map[string]*TreeSitterExtractor)}, nil
}

// ForPath returns the extractor for path, or ErrUnsupported when its
// language is not recognised.
func (r *Registry) ForPath(path string) (Extractor, error) {
	lang := LanguageOf(path)
	if lang == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}

	switch {
	case r.mode == ModeLexical, lang == LangRust:
		return NewLexicalExtractor(lang), nil
	case r.mode == ModeAuto && lang == LangGo:
		return fallback{NewGoExtractor(), NewLexicalExtractor(lang)}, nil
	}

	ts, err := r.treeSitterFor(lang, isTSX(path))
	if err != nil {
		return nil, err
	}
	return fallback{ts, NewLexicalExtractor(lang)}, nil
}

func (r *Registry) treeSitterFor(lang string, tsx bool) (*TreeSitterExtractor, error) {
	key := lang
	if tsx {
		key = "tsx"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.treeSitter[key]; ok {
		return e, nil
	}
	e, err := NewTreeSitterExtractor(lang, tsx)
	if err != nil {
		return nil, err
	}
	r.treeSitter[key] = e
	return e, nil
}

// Close releases the tree-sitter parsers.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, e := range r.treeSitter {
		e.Close()
		delete(r.treeSitter, key)
	}
}

// fallback tries a parsing extractor first and scans lexically when
// parsing fails.
type fallback struct {
	primary, secondary Extractor
}

func (f fallback) Extract(path string, src []byte) (*Facts, error) {
	facts, err := f.primary.Extract(path, src)
	if err == nil {
		return facts, nil
	}
	facts, lexErr := f.secondary.Extract(path, src)
	if lexErr != nil {
		return nil, fmt.Errorf("%w (lexical fallback: %v)", err, lexErr)
	}
	return facts, nil
}

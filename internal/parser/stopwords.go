package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// StopwordSet is a static membership test for words dropped from the include set.
type StopwordSet interface {
	Contains(word string) bool
}

// Stopwords is a map-backed StopwordSet. Words are stored lower-case.
type Stopwords map[string]struct{}

// NewStopwords creates a set from the given words.
func NewStopwords(words ...string) Stopwords {
	s := make(Stopwords, len(words))
	s.Add(words...)
	return s
}

// Add inserts words into the set.
func (s Stopwords) Add(words ...string) {
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			s[w] = struct{}{}
		}
	}
}

// Contains reports whether the word is a stopword.
func (s Stopwords) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// LoadStopwords reads one word per line. Blank lines and lines starting with
// '#' are skipped.
func LoadStopwords(r io.Reader) (Stopwords, error) {
	s := make(Stopwords)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.Add(line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stopwords: %w", err)
	}
	return s, nil
}

// DefaultStopwords returns the built-in English and German stopword set.
func DefaultStopwords() Stopwords {
	return NewStopwords(
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from",
		"have", "in", "is", "it", "not", "of", "on", "or", "that", "the",
		"this", "to", "was", "with", "you",
		"als", "am", "auf", "aus", "bei", "das", "dem", "den", "der", "des",
		"die", "ein", "eine", "einer", "im", "ist", "mit", "und", "von", "zu",
	)
}

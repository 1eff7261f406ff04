// Package trends collects, stores and aggregates search-interest scores
// by subregion for paired Ukrainian/Russian terms. Scores are normalized
// 0-100 within each request, so values are only comparable inside one
// (pair, year) slice.
package trends

import (
	"github.com/rotisserie/eris"
)

// Language selects which side of a word pair to read.
type Language string

const (
	LanguageUA Language = "ua"
	LanguageRU Language = "ru"
)

// ParseLanguage validates a language flag value.
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case LanguageUA, LanguageRU:
		return Language(s), nil
	}
	return "", eris.Errorf("trends: language must be %q or %q, got %q", LanguageUA, LanguageRU, s)
}

// WordPair is a Ukrainian spelling and its Russian counterpart, queried
// together so the scores share one normalization.
type WordPair struct {
	UA string `yaml:"ua"`
	RU string `yaml:"ru"`
}

// Observation is one region's score for one word pair in one year.
// A nil score means the provider returned no column for that term,
// which happens for low search volume.
type Observation struct {
	Year    int
	PairID  int
	TermUA  string
	TermRU  string
	Region  string
	ScoreUA *int
	ScoreRU *int
}

// Score returns the observation's score for the given language.
// ok is false when the term had no data.
func (o Observation) Score(lang Language) (int, bool) {
	var p *int
	if lang == LanguageRU {
		p = o.ScoreRU
	} else {
		p = o.ScoreUA
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

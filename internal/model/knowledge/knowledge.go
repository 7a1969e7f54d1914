package knowledge

import (
	"encoding/json"
	"time"
)

// Language tags a block of FAQ entries.
type Language string

const (
	English  Language = "en"
	Spanish  Language = "es"
	Japanese Language = "ja"
)

// Languages lists the supported languages in context order.
var Languages = []Language{English, Spanish, Japanese}

// Pair is one question/answer row of the FAQ sheet.
type Pair struct {
	Question string
	Answer   string
}

// MarshalJSON encodes a pair as ["question", "answer"], the shape /debug/csv exposes.
func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Question, p.Answer})
}

// Snapshot is the parsed FAQ sheet at a point in time.
type Snapshot struct {
	Version  string
	LoadedAt time.Time
	EN       []Pair
	ES       []Pair
	JA       []Pair
}

// Pairs returns the entries for lang.
func (s Snapshot) Pairs(lang Language) []Pair {
	switch lang {
	case English:
		return s.EN
	case Spanish:
		return s.ES
	case Japanese:
		return s.JA
	default:
		return nil
	}
}

// Count returns how many entries lang has.
func (s Snapshot) Count(lang Language) int {
	return len(s.Pairs(lang))
}

// All returns every pair, Japanese first, then Spanish, then English.
func (s Snapshot) All() []Pair {
	all := make([]Pair, 0, len(s.EN)+len(s.ES)+len(s.JA))
	all = append(all, s.JA...)
	all = append(all, s.ES...)
	all = append(all, s.EN...)
	return all
}

// Empty reports whether the snapshot has no entries at all.
func (s Snapshot) Empty() bool {
	return len(s.EN) == 0 && len(s.ES) == 0 && len(s.JA) == 0
}

// Sample returns up to n leading entries for lang.
func (s Snapshot) Sample(lang Language, n int) []Pair {
	pairs := s.Pairs(lang)
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	return append([]Pair{}, pairs...)
}

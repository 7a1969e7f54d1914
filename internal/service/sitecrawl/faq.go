package sitecrawl

import (
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"

	model "github.com/zhouzirui/campus-chat/backend/internal/model/knowledge"
)

// Candidate is a question/answer pair found on a crawled page.
type Candidate struct {
	Question  string
	Answer    string
	Language  model.Language
	SourceURL string
}

// FindPairs pairs every block ending in a question mark with the block after it,
// unless that block is itself a question.
func FindPairs(blocks []string) []model.Pair {
	var pairs []model.Pair
	for i := 0; i+1 < len(blocks); i++ {
		if isQuestion(blocks[i]) && !isQuestion(blocks[i+1]) {
			pairs = append(pairs, model.Pair{Question: blocks[i], Answer: blocks[i+1]})
		}
	}
	return pairs
}

func isQuestion(s string) bool {
	return strings.HasSuffix(s, "?") || strings.HasSuffix(s, "？")
}

// GuessLanguage maps text to one of the sheet languages. Any kana marks the text as
// Japanese; anything not detected as Spanish or Japanese is filed under English.
func GuessLanguage(text string) model.Language {
	if strings.TrimSpace(text) == "" {
		return model.English
	}
	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana) {
			return model.Japanese
		}
	}
	switch whatlanggo.Detect(text).Lang {
	case whatlanggo.Spa:
		return model.Spanish
	case whatlanggo.Jpn:
		return model.Japanese
	default:
		return model.English
	}
}

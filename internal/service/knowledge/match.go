package knowledge

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	model "github.com/zhouzirui/campus-chat/backend/internal/model/knowledge"
)

// TopMatch returns the pair whose question is most similar to query, provided the
// similarity ratio reaches cutoff (0..1). Candidates are screened with the cheap
// upper bounds first, as difflib's get_close_matches does. On equal scores the
// lexicographically greater question wins.
func TopMatch(query string, pairs []model.Pair, cutoff float64) (model.Pair, bool) {
	if query == "" || len(pairs) == 0 {
		return model.Pair{}, false
	}

	matcher := difflib.NewMatcher(nil, nil)
	matcher.SetSeq2(splitChars(query))

	bestScore := -1.0
	bestQuestion := ""
	for _, pair := range pairs {
		matcher.SetSeq1(splitChars(pair.Question))
		if matcher.RealQuickRatio() < cutoff || matcher.QuickRatio() < cutoff {
			continue
		}
		score := matcher.Ratio()
		if score < cutoff {
			continue
		}
		if score > bestScore || (score == bestScore && pair.Question > bestQuestion) {
			bestScore = score
			bestQuestion = pair.Question
		}
	}

	if bestScore < 0 {
		return model.Pair{}, false
	}
	for _, pair := range pairs {
		if pair.Question == bestQuestion {
			return pair, true
		}
	}
	return model.Pair{}, false
}

func splitChars(s string) []string {
	return strings.Split(s, "")
}

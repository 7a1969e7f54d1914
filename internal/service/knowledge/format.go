package knowledge

import (
	"fmt"
	"strings"

	model "github.com/zhouzirui/campus-chat/backend/internal/model/knowledge"
)

// FormatContext renders pairs as prompt blocks tagged with the language. English uses
// Q:/A:, the other languages P:/R: (pregunta/respuesta).
func FormatContext(pairs []model.Pair, lang model.Language) string {
	tag := "[" + strings.ToUpper(string(lang)) + "]"
	questionLabel, answerLabel := "P", "R"
	if lang == model.English {
		questionLabel, answerLabel = "Q", "A"
	}

	blocks := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		blocks = append(blocks, fmt.Sprintf("%s\n%s: %s\n%s: %s", tag, questionLabel, pair.Question, answerLabel, pair.Answer))
	}
	return strings.Join(blocks, "\n\n")
}

// FormatSnapshot renders every non-empty language of s, in EN, ES, JA order.
func FormatSnapshot(s model.Snapshot) string {
	sections := make([]string, 0, len(model.Languages))
	for _, lang := range model.Languages {
		if pairs := s.Pairs(lang); len(pairs) > 0 {
			sections = append(sections, FormatContext(pairs, lang))
		}
	}
	return strings.Join(sections, "\n\n")
}

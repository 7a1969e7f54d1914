package knowledge

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	model "github.com/zhouzirui/campus-chat/backend/internal/model/knowledge"
)

// Header aliases per field, first match wins.
var (
	questionENKeys = []string{"question_en", "question"}
	answerENKeys   = []string{"answer_en", "answer"}
	questionESKeys = []string{"question_es", "pregunta", "pregunta_es"}
	answerESKeys   = []string{"answer_es", "respuesta", "respuesta_es"}
	questionJAKeys = []string{"question_ja"}
	answerJAKeys   = []string{"answer_ja"}
)

// Parse reads a bilingual FAQ sheet. The first record is the header; rows missing
// either half of a language's pair contribute nothing for that language.
func Parse(r io.Reader) (model.Snapshot, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return model.Snapshot{}, nil
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read CSV header: %w", err)
	}

	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = normalizeKey(h)
	}

	var snapshot model.Snapshot
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("read CSV row: %w", err)
		}

		row := make(map[string]string, len(keys))
		for i, key := range keys {
			if i >= len(record) {
				break
			}
			// Duplicate headers: the right-most column wins.
			row[key] = strings.TrimSpace(record[i])
		}

		if pair, ok := pairFrom(row, questionENKeys, answerENKeys); ok {
			snapshot.EN = append(snapshot.EN, pair)
		}
		if pair, ok := pairFrom(row, questionESKeys, answerESKeys); ok {
			snapshot.ES = append(snapshot.ES, pair)
		}
		if pair, ok := pairFrom(row, questionJAKeys, answerJAKeys); ok {
			snapshot.JA = append(snapshot.JA, pair)
		}
	}

	return snapshot, nil
}

func normalizeKey(key string) string {
	key = strings.ReplaceAll(key, "\ufeff", "")
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.ReplaceAll(key, " ", "_")
}

func pairFrom(row map[string]string, questionKeys, answerKeys []string) (model.Pair, bool) {
	q := firstNonEmpty(row, questionKeys)
	a := firstNonEmpty(row, answerKeys)
	if q == "" || a == "" {
		return model.Pair{}, false
	}
	return model.Pair{Question: q, Answer: a}, true
}

func firstNonEmpty(row map[string]string, keys []string) string {
	for _, key := range keys {
		if v := row[key]; v != "" {
			return v
		}
	}
	return ""
}

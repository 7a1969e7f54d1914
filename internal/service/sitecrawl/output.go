package sitecrawl

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	model "github.com/zhouzirui/campus-chat/backend/internal/model/knowledge"
	"github.com/zhouzirui/campus-chat/backend/internal/service/knowledge"
)

// CandidateHeader is the column layout of the candidates sheet. Each row fills
// the question/answer columns of its detected language, so the sheet loads
// directly as a knowledge source.
var CandidateHeader = []string{
	"question_en", "answer_en",
	"question_es", "answer_es",
	"question_ja", "answer_ja",
	"language", "source_url",
}

// WriteCandidates writes the candidates as CSV in CandidateHeader layout.
func WriteCandidates(w io.Writer, candidates []Candidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CandidateHeader); err != nil {
		return err
	}
	for _, c := range candidates {
		row := make([]string, len(CandidateHeader))
		offset := 0
		switch c.Language {
		case model.Spanish:
			offset = 2
		case model.Japanese:
			offset = 4
		}
		row[offset] = c.Question
		row[offset+1] = c.Answer
		row[6] = string(c.Language)
		row[7] = c.SourceURL
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteContext writes the crawled text as markdown, one section per page.
func WriteContext(w io.Writer, result Result) error {
	for _, page := range result.Pages {
		if len(page.Blocks) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "## %s\n\n", page.URL); err != nil {
			return err
		}
		for _, block := range page.Blocks {
			if _, err := fmt.Fprintf(w, "%s\n\n", block); err != nil {
				return err
			}
		}
	}
	return nil
}

// Generator produces a completion for a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const (
	refineSystemPrompt = "You write FAQ sheets for a school's parent help desk. Answer only with CSV."
	refineMaxContext   = 60000
	refineMaxPairs     = 25
)

// Refine asks the model to condense the crawled text into bilingual FAQ pairs.
// The returned CSV has already been validated by the knowledge loader.
func Refine(ctx context.Context, gen Generator, blocks []string) (string, model.Snapshot, error) {
	text := strings.Join(blocks, "\n")
	if strings.TrimSpace(text) == "" {
		return "", model.Snapshot{}, errors.New("no page text to refine")
	}
	if runes := []rune(text); len(runes) > refineMaxContext {
		text = string(runes[:refineMaxContext])
	}

	raw, err := gen.Generate(ctx, refineSystemPrompt, buildRefinePrompt(text))
	if err != nil {
		return "", model.Snapshot{}, fmt.Errorf("refine: %w", err)
	}

	sheet := stripFences(raw)
	snapshot, err := knowledge.Parse(strings.NewReader(sheet))
	if err != nil {
		return "", model.Snapshot{}, fmt.Errorf("refine: model returned invalid CSV: %w", err)
	}
	if snapshot.Empty() {
		return "", model.Snapshot{}, errors.New("refine: model returned no FAQ pairs")
	}
	return sheet, snapshot, nil
}

func buildRefinePrompt(text string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From the school website text below, write up to %d frequently asked questions parents would ask, ", refineMaxPairs)
	sb.WriteString("each with a short factual answer taken only from the text. ")
	sb.WriteString("Give every pair in English and Spanish.\n")
	sb.WriteString("Output CSV with exactly this header and nothing else:\n")
	sb.WriteString("question_en,answer_en,question_es,answer_es\n\n")
	sb.WriteString("Website text:\n")
	sb.WriteString(text)
	return sb.String()
}

// stripFences removes a markdown code fence around the model output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s) + "\n"
}

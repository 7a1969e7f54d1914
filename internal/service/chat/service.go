package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/zhouzirui/campus-chat/backend/internal/model/chat"
	model "github.com/zhouzirui/campus-chat/backend/internal/model/knowledge"
	"github.com/zhouzirui/campus-chat/backend/internal/service/knowledge"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrUnavailable  = errors.New("ai service unavailable")
)

const baseSystemPrompt = "You are a helpful school assistant. Detect if the user writes in English, Spanish, or Japanese " +
	"and reply in that language. Prefer matching-language entries from the provided context. " +
	"If no direct match exists, translate the best available answer. Keep responses concise."

// Generator produces a reply for a system/user prompt pair.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// KnowledgeSource provides the current FAQ snapshot.
type KnowledgeSource interface {
	Context(ctx context.Context) model.Snapshot
}

// Service turns a widget message into a grounded model reply.
type Service struct {
	generator Generator
	knowledge KnowledgeSource
	cutoff    float64
}

// NewService wires the reply pipeline. generator may be nil when no model is
// configured; Reply then fails with ErrUnavailable.
func NewService(generator Generator, knowledge KnowledgeSource, cutoff float64) *Service {
	return &Service{
		generator: generator,
		knowledge: knowledge,
		cutoff:    cutoff,
	}
}

// Reply answers req.Message using the FAQ sheet, the closest FAQ entry and any
// knowledge text the widget sent along.
func (s *Service) Reply(ctx context.Context, req chat.Request) (string, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	if s.generator == nil {
		return "", ErrUnavailable
	}

	var snapshot model.Snapshot
	if s.knowledge != nil {
		snapshot = s.knowledge.Context(ctx)
	}

	var hint *model.Pair
	if best, ok := knowledge.TopMatch(message, snapshot.All(), s.cutoff); ok {
		hint = &best
	}

	systemPrompt := BuildSystemPrompt(req.Lang)
	userPrompt := BuildUserPrompt(snapshot, hint, req.KB, message)

	reply, err := s.generator.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}

	log.Printf("[chat] replied: faq_entries=%d hint=%t kb_chars=%d", len(snapshot.All()), hint != nil, len(req.KB))
	return reply, nil
}

// BuildSystemPrompt returns the assistant instructions, pinning the reply language
// when lang is one of en, es or ja.
func BuildSystemPrompt(lang string) string {
	switch forced := strings.ToLower(strings.TrimSpace(lang)); forced {
	case string(model.English), string(model.Spanish), string(model.Japanese):
		return baseSystemPrompt + fmt.Sprintf(" The user requested replies in %s regardless of input.", strings.ToUpper(forced))
	default:
		return baseSystemPrompt
	}
}

// BuildUserPrompt assembles the FAQ context, the likely match, the widget's
// knowledge text and the user's message, separated by blank lines.
func BuildUserPrompt(snapshot model.Snapshot, hint *model.Pair, kb, message string) string {
	sections := make([]string, 0, 4)

	if faq := knowledge.FormatSnapshot(snapshot); faq != "" {
		sections = append(sections, "Context:\n"+faq)
	}
	if hint != nil {
		sections = append(sections, fmt.Sprintf("Likely match:\nQ: %s\nA: %s", hint.Question, hint.Answer))
	}
	if kb = strings.TrimSpace(kb); kb != "" {
		sections = append(sections, "Additional context:\n"+kb)
	}
	sections = append(sections, "User: "+message)

	return strings.Join(sections, "\n\n")
}

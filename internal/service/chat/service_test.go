package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	chatmodel "github.com/zhouzirui/campus-chat/backend/internal/model/chat"
	model "github.com/zhouzirui/campus-chat/backend/internal/model/knowledge"
	chat "github.com/zhouzirui/campus-chat/backend/internal/service/chat"
)

type recordingGenerator struct {
	system string
	user   string
	reply  string
	err    error
	calls  int
}

func (g *recordingGenerator) Generate(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	g.calls++
	g.system = systemPrompt
	g.user = userPrompt
	return g.reply, g.err
}

type staticKnowledge model.Snapshot

func (k staticKnowledge) Context(context.Context) model.Snapshot {
	return model.Snapshot(k)
}

var snapshot = staticKnowledge{
	EN: []model.Pair{{Question: "When is lunch served?", Answer: "11:30 AM"}},
	ES: []model.Pair{{Question: "¿Cuándo es el almuerzo?", Answer: "A las 11:30"}},
}

func TestServiceReplyBuildsGroundedPrompt(t *testing.T) {
	gen := &recordingGenerator{reply: "Lunch is at 11:30 AM."}
	svc := chat.NewService(gen, snapshot, 0.55)

	reply, err := svc.Reply(context.Background(), chatmodel.Request{
		Message: "  when is lunch ",
		KB:      "Cafeteria closed Friday.",
	})
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if reply != "Lunch is at 11:30 AM." {
		t.Fatalf("unexpected reply %q", reply)
	}

	for _, want := range []string{
		"Context:\n[EN]\nQ: When is lunch served?\nA: 11:30 AM",
		"[ES]\nP: ¿Cuándo es el almuerzo?\nR: A las 11:30",
		"Likely match:\nQ: When is lunch served?\nA: 11:30 AM",
		"Additional context:\nCafeteria closed Friday.",
	} {
		if !strings.Contains(gen.user, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, gen.user)
		}
	}
	if !strings.HasSuffix(gen.user, "User: when is lunch") {
		t.Fatalf("user prompt should end with the message:\n%s", gen.user)
	}
	if strings.Contains(gen.system, "regardless of input") {
		t.Fatalf("system prompt should not force a language:\n%s", gen.system)
	}
}

func TestServiceReplyForcedLanguage(t *testing.T) {
	gen := &recordingGenerator{reply: "ok"}
	svc := chat.NewService(gen, nil, 0.55)

	if _, err := svc.Reply(context.Background(), chatmodel.Request{Message: "hola", Lang: "ES"}); err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if !strings.HasSuffix(gen.system, "The user requested replies in ES regardless of input.") {
		t.Fatalf("unexpected system prompt:\n%s", gen.system)
	}
	if gen.user != "User: hola" {
		t.Fatalf("expected bare prompt without knowledge, got %q", gen.user)
	}
}

func TestServiceReplyIgnoresUnknownLanguage(t *testing.T) {
	if got := chat.BuildSystemPrompt("fr"); strings.Contains(got, "regardless") {
		t.Fatalf("unexpected forced language: %s", got)
	}
}

func TestServiceReplyValidation(t *testing.T) {
	gen := &recordingGenerator{}
	svc := chat.NewService(gen, snapshot, 0.55)

	if _, err := svc.Reply(context.Background(), chatmodel.Request{Message: "   "}); !errors.Is(err, chat.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatal("generator called for empty message")
	}

	unavailable := chat.NewService(nil, snapshot, 0.55)
	if _, err := unavailable.Reply(context.Background(), chatmodel.Request{Message: "hi"}); !errors.Is(err, chat.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestServiceReplyWrapsGeneratorError(t *testing.T) {
	boom := errors.New("model down")
	svc := chat.NewService(&recordingGenerator{err: boom}, snapshot, 0.55)

	if _, err := svc.Reply(context.Background(), chatmodel.Request{Message: "hi"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped generator error, got %v", err)
	}
}

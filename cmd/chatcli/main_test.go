package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zhouzirui/campus-chat/backend/internal/widget"
)

func TestClientConfig(t *testing.T) {
	kbPath := filepath.Join(t.TempDir(), "kb.txt")
	if err := os.WriteFile(kbPath, []byte("Office hours: 9-5"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := clientConfig(options{baseURL: " http://localhost:9000/ ", kbFile: kbPath, lang: "ES"})
	if err != nil {
		t.Fatalf("clientConfig err: %v", err)
	}
	if cfg.BaseURL != "http://localhost:9000" {
		t.Fatalf("unexpected base url %q", cfg.BaseURL)
	}
	if cfg.Language != "es" {
		t.Fatalf("unexpected language %q", cfg.Language)
	}
	if cfg.Knowledge != "Office hours: 9-5" {
		t.Fatalf("unexpected knowledge %q", cfg.Knowledge)
	}
}

func TestClientConfigRejectsInvalid(t *testing.T) {
	cases := map[string]options{
		"empty url":    {},
		"bad lang":     {baseURL: "http://x", lang: "fr"},
		"missing file": {baseURL: "http://x", kbFile: filepath.Join(t.TempDir(), "missing.txt")},
	}
	for name, opts := range cases {
		if _, err := clientConfig(opts); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestWriteTranscriptEscapes(t *testing.T) {
	chatLog := widget.NewLog(nil)
	chatLog.Append(widget.RoleUser, "hi")
	chatLog.Append(widget.RoleBot, "<script>alert(1)</script>")

	path := filepath.Join(t.TempDir(), "chat.html")
	if err := writeTranscript(path, chatLog); err != nil {
		t.Fatalf("writeTranscript err: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "<script>") {
		t.Fatal("transcript must escape message text")
	}
	if !strings.Contains(string(data), "&lt;script&gt;") {
		t.Fatalf("escaped reply missing:\n%s", data)
	}
}

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"url", "kb-file", "lang", "transcript"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Fatalf("missing --%s flag", name)
		}
	}
	if err := cmd.Flags().Parse([]string{"--url", "http://example.test", "--lang", "ja"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if !cmd.Flags().Changed("url") {
		t.Fatal("--url should be marked as changed")
	}
}

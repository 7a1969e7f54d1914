package widget

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

var transcriptTemplate = template.Must(template.New("transcript").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Chat transcript</title>
<style>
body{font:14px/1.45 system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif;max-width:720px;margin:32px auto;padding:0 16px;background:#f6f7fb}
.log{display:flex;flex-direction:column;gap:8px}
.msg{padding:8px 12px;border-radius:12px;max-width:80%;white-space:pre-wrap;word-wrap:break-word}
.msg.user{align-self:flex-end;background:#2563eb;color:#fff}
.msg.bot{align-self:flex-start;background:#fff;color:#111;box-shadow:0 2px 6px rgba(0,0,0,.06)}
</style>
</head>
<body>
<div class="log">
{{- range .}}
<div class="msg {{.Role}}" id="msg-{{.ID}}">{{.Text}}</div>
{{- end}}
</div>
</body>
</html>
`))

// RenderHTML writes the log as a standalone HTML document. Message text is escaped by
// html/template, so markup inside a reply is shown literally and never executed.
func (l *Log) RenderHTML(w io.Writer) error {
	if err := transcriptTemplate.Execute(w, l.Messages()); err != nil {
		return fmt.Errorf("render transcript: %w", err)
	}
	return nil
}

// TerminalText makes untrusted text safe to print to a terminal: escape sequences are
// removed and the remaining control characters are dropped, except newlines and tabs.
func TerminalText(text string) string {
	stripped := ansi.Strip(text)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, stripped)
}

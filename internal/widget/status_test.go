package widget

import (
	"context"
	"net/http"
	"testing"
)

func TestPollStatusConnected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != StatusPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		replyWith(http.StatusOK, `{"en_count":3,"es_count":5}`)(w, r)
	}, ClientConfig{})

	status := client.PollStatus(context.Background())
	if !status.Connected {
		t.Fatal("expected connected status")
	}
	if status.Count("en") != 3 || status.Count("es") != 5 || status.Count("ja") != 0 {
		t.Fatalf("unexpected counts %v", status.Counts)
	}
	if got, want := status.Label(), "Connected · EN 3 · ES 5"; got != want {
		t.Fatalf("Label() = %q, want %q", got, want)
	}
}

func TestPollStatusMissingFieldsDefaultToZero(t *testing.T) {
	client, _ := newTestClient(t, replyWith(http.StatusOK, `{}`), ClientConfig{})

	status := client.PollStatus(context.Background())
	if !status.Connected || status.Count("en") != 0 || status.Count("es") != 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestPollStatusShowsJapaneseWhenPresent(t *testing.T) {
	client, _ := newTestClient(t, replyWith(http.StatusOK, `{"en_count":1,"es_count":2,"ja_count":4}`), ClientConfig{})

	if got, want := client.PollStatus(context.Background()).Label(), "Connected · EN 1 · ES 2 · JA 4"; got != want {
		t.Fatalf("Label() = %q, want %q", got, want)
	}
}

func TestPollStatusFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": replyWith(http.StatusInternalServerError, `{"en_count":3}`),
		"malformed":    replyWith(http.StatusOK, `not json`),
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			client, _ := newTestClient(t, handler, ClientConfig{})
			status := client.PollStatus(context.Background())
			if status.Connected {
				t.Fatal("expected not connected")
			}
			if status.Label() != "Not connected" {
				t.Fatalf("unexpected label %q", status.Label())
			}
		})
	}
}

func TestPollStatusUnreachable(t *testing.T) {
	client := NewClient(NewLog(nil), ClientConfig{
		BaseURL:    "http://127.0.0.1:1",
		HTTPClient: &http.Client{Transport: &http.Transport{}},
	})
	defer client.Close()

	if client.PollStatus(context.Background()).Connected {
		t.Fatal("expected not connected for unreachable backend")
	}
}
